package frame

// Metric is one accumulated value of a frame.
type Metric struct {
	// Inclusive covers the frame and everything beneath it.
	Inclusive int64
	// Exclusive covers samples whose leaf is this frame.
	Exclusive int64
}

// Slots of the metric array filled by stack samples.
const (
	SlotCount = iota
	SlotWeight
)

// Schema names the metric slots of a tree.
type Schema struct {
	Names []string
	Units []string
}

// CountWeight returns the schema used by stack samples: an occurrence count
// and a weight measured in unit.
func CountWeight(unit string) Schema {
	if unit == "" {
		unit = "none"
	}
	return Schema{
		Names: []string{"count", "weight"},
		Units: []string{"count", unit},
	}
}

// Len returns the number of slots.
func (s Schema) Len() int { return len(s.Names) }

// WeightUnit returns the unit of the weight slot.
func (s Schema) WeightUnit() string {
	if len(s.Units) > SlotWeight {
		return s.Units[SlotWeight]
	}
	return "none"
}

// Metric returns the value in slot, or zero if the slot was never set.
func (f *Frame) Metric(slot int) Metric {
	if slot < len(f.Metrics) {
		return f.Metrics[slot]
	}
	return Metric{}
}

// AddMetric adds m to slot, growing the metric array when needed.
func (f *Frame) AddMetric(slot int, m Metric) {
	for len(f.Metrics) <= slot {
		f.Metrics = append(f.Metrics, Metric{})
	}
	f.Metrics[slot].Inclusive += m.Inclusive
	f.Metrics[slot].Exclusive += m.Exclusive
}

// SumMetrics adds every slot of src to dst. It is the default merge hook.
func SumMetrics(src, dst *Frame) {
	for slot, m := range src.Metrics {
		dst.AddMetric(slot, m)
	}
}

// Attribute records one sample ending at leaf: every ancestor of leaf,
// leaf included, gains inclusive value and leaf gains exclusive value.
func Attribute(leaf *Frame, values ...int64) {
	for slot, v := range values {
		leaf.AddMetric(slot, Metric{Exclusive: v})
	}
	for f := leaf; f != nil; f = f.parent {
		for slot, v := range values {
			f.AddMetric(slot, Metric{Inclusive: v})
		}
	}
}

// Count returns the inclusive count of f.
func (f *Frame) Count() int64 { return f.Metric(SlotCount).Inclusive }

// Weight returns the inclusive weight of f.
func (f *Frame) Weight() int64 { return f.Metric(SlotWeight).Inclusive }

// SelfCount returns the exclusive count of f.
func (f *Frame) SelfCount() int64 { return f.Metric(SlotCount).Exclusive }

// SelfWeight returns the exclusive weight of f.
func (f *Frame) SelfWeight() int64 { return f.Metric(SlotWeight).Exclusive }
