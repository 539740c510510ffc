package network

// RollingAverage keeps a fixed-window moving average over scalar samples.
// It backs per-entity clock-drift estimation: the average of recent packet
// time offsets is a baseline that individual offsets are measured against,
// so no wall-clock synchronization between peers is needed.
type RollingAverage struct {
	samples []float64
	next    int
	count   int
	sum     float64
}

// NewRollingAverage creates an average over a window of capacity samples.
func NewRollingAverage(capacity int) *RollingAverage {
	return &RollingAverage{samples: make([]float64, capacity)}
}

// AddValue appends a sample. Once the window is full each new sample evicts
// the oldest one; the running sum is maintained so AddValue is O(1).
func (r *RollingAverage) AddValue(v float64) {
	if r.count == len(r.samples) {
		r.sum -= r.samples[r.next]
	} else {
		r.count++
	}
	r.samples[r.next] = v
	r.sum += v
	r.next = (r.next + 1) % len(r.samples)
}

// AverageValue returns the mean of the stored samples, or 0 when no sample
// has been added yet. O(1).
func (r *RollingAverage) AverageValue() float64 {
	if r.count == 0 {
		return 0
	}
	return r.sum / float64(r.count)
}

// Count returns how many samples are currently in the window.
func (r *RollingAverage) Count() int {
	return r.count
}
