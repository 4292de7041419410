package analyzer

// Window is a fixed-length FIFO of samples used to average a quantity over recent frames.
// It always holds exactly Len() entries; before warm-up the missing entries are zero.
type Window struct {
	values []float64
	next   int
}

// NewWindow creates a zero-filled window. Lengths below one are raised to one.
func NewWindow(length int) *Window {
	if length < 1 {
		length = 1
	}
	return &Window{values: make([]float64, length)}
}

// Push evicts the oldest entry and appends v.
func (w *Window) Push(v float64) {
	w.values[w.next] = v
	w.next++
	if w.next == len(w.values) {
		w.next = 0
	}
}

// Average returns the arithmetic mean of the current entries.
func (w *Window) Average() float64 {
	sum := 0.0
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

// Len returns the fixed window length.
func (w *Window) Len() int {
	return len(w.values)
}

// Values returns a copy of the entries, oldest first.
func (w *Window) Values() []float64 {
	out := make([]float64, 0, len(w.values))
	out = append(out, w.values[w.next:]...)
	out = append(out, w.values[:w.next]...)
	return out
}

// Reset zero-fills the window.
func (w *Window) Reset() {
	for i := range w.values {
		w.values[i] = 0
	}
	w.next = 0
}
