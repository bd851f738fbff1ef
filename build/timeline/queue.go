// Package timeline holds compiled chart events until playback reaches them.
package timeline

import "fmt"

// An Event is anything with a position on the song timeline, in seconds.
type Event interface {
	Timestamp() float64
}

// A Queue releases events in time order as a clock advances. Released events
// are gone: the queue never goes backwards.
type Queue[T Event] struct {
	items []T
	pos   int
}

// New returns a queue over items, which must already be in time order. The
// queue takes ownership of the slice.
func New[T Event](items []T) (*Queue[T], error) {
	for i := 1; i < len(items); i++ {
		if items[i].Timestamp() < items[i-1].Timestamp() {
			return nil, fmt.Errorf("event %d at %gs comes before event %d at %gs",
				i, items[i].Timestamp(), i-1, items[i-1].Timestamp())
		}
	}
	return &Queue[T]{items: items}, nil
}

// PeekDue removes and returns the next event if it is due at clock.
func (q *Queue[T]) PeekDue(clock float64) (T, bool) {
	var zero T
	if q.pos >= len(q.items) {
		return zero, false
	}
	e := q.items[q.pos]
	if e.Timestamp() > clock {
		return zero, false
	}
	q.items[q.pos] = zero
	q.pos++
	return e, true
}

// Drain passes every event due at clock to fn and returns how many there
// were.
func (q *Queue[T]) Drain(clock float64, fn func(T)) int {
	var n int
	for {
		e, ok := q.PeekDue(clock)
		if !ok {
			return n
		}
		fn(e)
		n++
	}
}

// Next returns the next event without removing it.
func (q *Queue[T]) Next() (T, bool) {
	if q.pos >= len(q.items) {
		var zero T
		return zero, false
	}
	return q.items[q.pos], true
}

// Len returns the number of events not yet released.
func (q *Queue[T]) Len() int {
	return len(q.items) - q.pos
}

// Done reports whether every event has been released.
func (q *Queue[T]) Done() bool {
	return q.pos >= len(q.items)
}
