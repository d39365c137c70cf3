// Package pprof profiles the tool itself while a command runs. The CPU
// profile covers the whole command; the other profiles are snapshots taken
// when the collector stops. The files can be fed back to "analyze -f pprof".
package pprof

import (
	"slices"
	"strings"

	apperrors "github.com/stack-analysis/pkg/errors"
)

// ProfileType names a runtime profile.
type ProfileType string

const (
	ProfileCPU       ProfileType = "cpu"
	ProfileHeap      ProfileType = "heap"
	ProfileGoroutine ProfileType = "goroutine"
	ProfileBlock     ProfileType = "block"
	ProfileMutex     ProfileType = "mutex"
	ProfileAllocs    ProfileType = "allocs"
)

// AllProfileTypes returns every profile the collector can write.
func AllProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap, ProfileGoroutine, ProfileBlock, ProfileMutex, ProfileAllocs}
}

// DefaultProfileTypes returns the profiles written when none are named.
func DefaultProfileTypes() []ProfileType {
	return []ProfileType{ProfileCPU, ProfileHeap}
}

// snapshotAfterGC reports whether pt reflects the heap as of the last GC.
func (pt ProfileType) snapshotAfterGC() bool {
	return pt == ProfileHeap || pt == ProfileAllocs
}

// ParseProfileTypes parses a comma-separated list such as "cpu,heap".
// Names are case insensitive and repeats are dropped.
func ParseProfileTypes(s string) ([]ProfileType, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultProfileTypes(), nil
	}

	all := AllProfileTypes()
	var types []ProfileType
	for name := range strings.SplitSeq(s, ",") {
		pt := ProfileType(strings.ToLower(strings.TrimSpace(name)))
		if !slices.Contains(all, pt) {
			return nil, apperrors.Newf(apperrors.CodeConfigError, "unknown profile type %q (available: %v)", name, all)
		}
		if !slices.Contains(types, pt) {
			types = append(types, pt)
		}
	}
	return types, nil
}

// Config selects the profiles and where they go.
type Config struct {
	// OutputDir receives one <type>.pprof file per profile.
	OutputDir string
	Profiles  []ProfileType
	// BlockRate and MutexFraction are applied while the collector runs
	// when the matching profile is requested.
	BlockRate     int
	MutexFraction int
}

// DefaultConfig writes cpu and heap profiles to ./pprof.
func DefaultConfig() *Config {
	return &Config{
		OutputDir:     "./pprof",
		Profiles:      DefaultProfileTypes(),
		BlockRate:     1,
		MutexFraction: 1,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case c.OutputDir == "":
		return apperrors.New(apperrors.CodeConfigError, "profile output directory is required")
	case len(c.Profiles) == 0:
		return apperrors.New(apperrors.CodeConfigError, "at least one profile type is required")
	}
	return nil
}

func (c *Config) has(pt ProfileType) bool {
	return slices.Contains(c.Profiles, pt)
}
