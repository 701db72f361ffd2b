// Package filter composes client-side predicates over fetched lists.
package filter

// Predicate reports whether an item is kept.
type Predicate[T any] func(T) bool

// Chain applies predicates in sequence; each narrows the previous result.
type Chain[T any] struct {
	preds []Predicate[T]
}

// New returns a chain of the given predicates. Nil predicates are skipped so
// constructors can return nil for "no filter".
func New[T any](preds ...Predicate[T]) *Chain[T] {
	c := &Chain[T]{}
	for _, p := range preds {
		c.Add(p)
	}
	return c
}

// Add appends p to the chain unless it is nil.
func (c *Chain[T]) Add(p Predicate[T]) *Chain[T] {
	if p != nil {
		c.preds = append(c.preds, p)
	}
	return c
}

// Len returns the number of active predicates.
func (c *Chain[T]) Len() int { return len(c.preds) }

// Apply returns the items that pass every predicate, in their original
// order. The input slice is not modified.
func (c *Chain[T]) Apply(items []T) []T {
	out := append([]T(nil), items...)
	for _, p := range c.preds {
		next := make([]T, 0, len(out))
		for _, it := range out {
			if p(it) {
				next = append(next, it)
			}
		}
		out = next
	}
	return out
}
