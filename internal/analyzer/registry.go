package analyzer

import (
	"errors"
	"fmt"
)

// ErrDuplicateName is returned when two classifiers share a name.
var ErrDuplicateName = errors.New("duplicate classifier name")

// Registry runs an ordered set of classifiers over each frame and exposes their
// outputs by name.
type Registry struct {
	bins        int
	classifiers []Classifier
	values      map[string]float64
}

// NewRegistry creates an empty registry for frames smoothed to bins bins.
func NewRegistry(bins int) *Registry {
	return &Registry{
		bins:   bins,
		values: make(map[string]float64),
	}
}

// Register appends c. Names must be unique and binned classifiers must have been
// built for the registry's width.
func (r *Registry) Register(c Classifier) error {
	if c == nil {
		return fmt.Errorf("register nil classifier: %w", ErrInvalidConfig)
	}
	name := c.Name()
	for _, existing := range r.classifiers {
		if existing.Name() == name {
			return fmt.Errorf("register %q: %w", name, ErrDuplicateName)
		}
	}
	if b, ok := c.(binned); ok && b.Bins() != r.bins {
		return fmt.Errorf("register %q: built for %d bins, registry has %d: %w", name, b.Bins(), r.bins, ErrInvalidConfig)
	}
	r.classifiers = append(r.classifiers, c)
	return nil
}

// Update feeds the frame to every classifier in registration order.
func (r *Registry) Update(f Frame, smoothed []float64) error {
	if len(smoothed) != r.bins {
		return fmt.Errorf("registry got %d smoothed bins, want %d: %w", len(smoothed), r.bins, ErrFrameSize)
	}
	for _, c := range r.classifiers {
		r.values[c.Name()] = c.Update(f, smoothed)
	}
	return nil
}

// Value returns the last output of the named classifier. ok is false until the
// classifier has produced a value.
func (r *Registry) Value(name string) (float64, bool) {
	v, ok := r.values[name]
	return v, ok
}

// Values returns a copy of all published outputs.
func (r *Registry) Values() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// Names lists the registered classifiers in update order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.classifiers))
	for i, c := range r.classifiers {
		names[i] = c.Name()
	}
	return names
}

// Len returns the number of registered classifiers.
func (r *Registry) Len() int { return len(r.classifiers) }

// Reset resets every classifier and forgets published outputs.
func (r *Registry) Reset() {
	for _, c := range r.classifiers {
		c.Reset()
	}
	for k := range r.values {
		delete(r.values, k)
	}
}
