package monitor

// WindowCapacity is the number of charge samples kept for rate estimation.
// At one sample a second this is five minutes of history.
const WindowCapacity = 300

// sampleWindow is a fixed capacity FIFO of charge percentages, oldest first.
type sampleWindow struct {
	samples  []float64
	capacity int
}

func newSampleWindow(capacity int) *sampleWindow {
	return &sampleWindow{
		samples:  make([]float64, 0, capacity),
		capacity: capacity,
	}
}

// push appends a sample, evicting the oldest one when the window is full.
func (w *sampleWindow) push(charge float64) {
	if len(w.samples) >= w.capacity {
		copy(w.samples, w.samples[1:])
		w.samples = w.samples[:len(w.samples)-1]
	}
	w.samples = append(w.samples, charge)
}

func (w *sampleWindow) clear() {
	w.samples = w.samples[:0]
}

func (w *sampleWindow) len() int {
	return len(w.samples)
}

func (w *sampleWindow) first() float64 {
	return w.samples[0]
}

func (w *sampleWindow) last() float64 {
	return w.samples[len(w.samples)-1]
}

// drainRate is the percent drained per hour, extrapolated linearly from the
// oldest and newest samples. Zero on an empty window.
func (w *sampleWindow) drainRate() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	return (w.first() - w.last()) / float64(len(w.samples)) * 60
}
