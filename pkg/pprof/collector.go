package pprof

import (
	"fmt"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"

	"github.com/spf13/afero"
)

// Collector profiles the process between Start and Stop.
type Collector struct {
	config *Config
	fs     afero.Fs

	mu      sync.Mutex
	running bool
	cpuFile afero.File
	files   []string
}

// NewCollector creates a collector writing through fs. A nil fs writes to
// the OS file system.
func NewCollector(cfg *Config, fs afero.Fs) (*Collector, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	return &Collector{config: cfg, fs: fs}, nil
}

// Path returns the file a profile type is written to.
func (c *Collector) Path(pt ProfileType) string {
	return filepath.Join(c.config.OutputDir, string(pt)+".pprof")
}

// Start begins CPU profiling when requested and enables the block and
// mutex samplers.
func (c *Collector) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return fmt.Errorf("collector is already running")
	}
	if err := c.fs.MkdirAll(c.config.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if c.config.has(ProfileCPU) {
		f, err := c.fs.Create(c.Path(ProfileCPU))
		if err != nil {
			return fmt.Errorf("failed to create cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			f.Close()
			return fmt.Errorf("failed to start cpu profile: %w", err)
		}
		c.cpuFile = f
	}
	if c.config.has(ProfileBlock) {
		runtime.SetBlockProfileRate(c.config.BlockRate)
	}
	if c.config.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(c.config.MutexFraction)
	}

	c.running = true
	return nil
}

// Stop ends CPU profiling and writes a snapshot of every other requested
// profile. It returns the first error but still attempts every profile.
func (c *Collector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}
	c.running = false

	var firstErr error
	keep := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if c.cpuFile != nil {
		pprof.StopCPUProfile()
		if err := c.cpuFile.Close(); err != nil {
			keep(fmt.Errorf("failed to close cpu profile: %w", err))
		} else {
			c.files = append(c.files, c.Path(ProfileCPU))
		}
		c.cpuFile = nil
	}

	for _, pt := range c.config.Profiles {
		if pt == ProfileCPU {
			continue
		}
		if pt.snapshotAfterGC() {
			runtime.GC()
		}
		if err := c.snapshot(pt); err != nil {
			keep(err)
			continue
		}
		c.files = append(c.files, c.Path(pt))
	}

	if c.config.has(ProfileBlock) {
		runtime.SetBlockProfileRate(0)
	}
	if c.config.has(ProfileMutex) {
		runtime.SetMutexProfileFraction(0)
	}
	return firstErr
}

func (c *Collector) snapshot(pt ProfileType) error {
	p := pprof.Lookup(string(pt))
	if p == nil {
		return fmt.Errorf("unknown runtime profile: %s", pt)
	}
	f, err := c.fs.Create(c.Path(pt))
	if err != nil {
		return fmt.Errorf("failed to create %s profile: %w", pt, err)
	}
	err = p.WriteTo(f, 0)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write %s profile: %w", pt, err)
	}
	return nil
}

// Running reports whether the collector has been started and not stopped.
func (c *Collector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Files returns the profiles written so far.
func (c *Collector) Files() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.files...)
}

// OutputDir returns the directory profiles are written to.
func (c *Collector) OutputDir() string {
	return c.config.OutputDir
}
