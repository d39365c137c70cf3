package frame

// Arena allocates accumulator frames in slabs. Frames handed out by an arena
// live as long as the arena's owner keeps the tree; the arena never frees
// individual frames.
//
// An Arena is not safe for concurrent use.
type Arena struct {
	slabSize int
	frames   []Frame
	metrics  []Metric
	count    int
}

// NewArena creates an arena allocating slabSize frames at a time.
func NewArena(slabSize int) *Arena {
	if slabSize <= 0 {
		slabSize = 4096
	}
	return &Arena{slabSize: slabSize}
}

func (a *Arena) alloc() *Frame {
	if len(a.frames) == cap(a.frames) {
		a.frames = make([]Frame, 0, a.slabSize)
	}
	a.frames = a.frames[:len(a.frames)+1]
	a.count++
	return &a.frames[len(a.frames)-1]
}

func (a *Arena) allocMetrics(n int) []Metric {
	if n == 0 {
		return nil
	}
	if cap(a.metrics)-len(a.metrics) < n {
		size := a.slabSize * 2
		if size < n {
			size = n
		}
		a.metrics = make([]Metric, 0, size)
	}
	start := len(a.metrics)
	a.metrics = a.metrics[:start+n]
	return a.metrics[start : start+n : start+n]
}

// New allocates an unlinked frame.
func (a *Arena) New(module, method string, kind Kind) *Frame {
	f := a.alloc()
	f.init(module, method, kind)
	return f
}

// Clone allocates an unlinked copy of f's identity and metrics.
func (a *Arena) Clone(f *Frame) *Frame {
	c := a.alloc()
	c.Module = f.Module
	c.Method = f.Method
	c.Kind = f.Kind
	c.fold = f.fold
	c.hash = f.hash
	c.Metrics = a.allocMetrics(len(f.Metrics))
	copy(c.Metrics, f.Metrics)
	return c
}

// Len returns the number of frames allocated so far.
func (a *Arena) Len() int { return a.count }
