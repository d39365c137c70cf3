// Package collapsed reads folded stacks, one sample per line:
//
//	thread;outer;...;leaf count
//
// The thread element is either perf's "comm-pid/tid" or the APM
// "[name tid=N]" form.
package collapsed

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/stack-analysis/pkg/model"
)

// UnknownModule is the module of frames written without one.
const UnknownModule = "unknown"

var (
	apmThread = regexp.MustCompile(`^\[(.+)\s+tid=(\d+)\]$`)
	// perf script occasionally emits sample ids in place of the thread,
	// e.g. 5_2175795_[002]_83367.826506:-?/10101010.
	sampleID = regexp.MustCompile(`^\d+_\d+_`)
)

// Thread is the leading element of a collapsed stack. Unknown ids are -1.
type Thread struct {
	Name string
	PID  int
	TID  int
}

// Idle reports whether t is the kernel idle task.
func (t Thread) Idle() bool {
	return t.Name == "swapper"
}

// ParseThread decodes a thread element.
func ParseThread(s string) Thread {
	t := Thread{Name: s, PID: -1, TID: -1}

	if m := apmThread.FindStringSubmatch(s); m != nil {
		t.Name = m[1]
		t.TID = atoi(m[2])
		return t
	}

	dash := strings.LastIndexByte(s, '-')
	if dash <= 0 {
		return t
	}
	ids := s[dash+1:]
	if pid, tid, ok := strings.Cut(ids, "/"); ok {
		t.Name, t.PID, t.TID = s[:dash], atoi(pid), atoi(tid)
	} else if pid := atoi(ids); pid >= 0 {
		t.Name, t.PID = s[:dash], pid
	}
	return t
}

// ParseFrame splits "method(module)" or "module!method". Frames without a
// module get UnknownModule.
func ParseFrame(raw string) model.Frame {
	if open := strings.LastIndexByte(raw, '('); open > 0 && strings.HasSuffix(raw, ")") {
		return model.Frame{Module: raw[open+1 : len(raw)-1], Method: raw[:open]}
	}
	if mod, method, ok := strings.Cut(raw, "!"); ok && mod != "" {
		return model.Frame{Module: mod, Method: method}
	}
	return model.Frame{Module: UnknownModule, Method: raw}
}

// splitStack decodes "thread;outer;...;leaf" into the thread and its frames,
// leaf first. An APM thread marker directly after the perf thread is
// dropped along with empty frames.
func splitStack(stack string) (Thread, []model.Frame) {
	parts := strings.Split(stack, ";")
	thread := ParseThread(parts[0])
	parts = parts[1:]
	if len(parts) > 0 && apmThread.MatchString(parts[0]) {
		parts = parts[1:]
	}

	frames := make([]model.Frame, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		if p := parts[i]; p != "" && p != "[]" {
			frames = append(frames, ParseFrame(p))
		}
	}
	return thread, frames
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
