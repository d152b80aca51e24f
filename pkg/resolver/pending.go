package resolver

import "context"

// Pending is a value that is being produced in the background, like the
// bookmarks fetch a session starts before the user types anything.
type Pending[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Start runs fn in a new goroutine and returns its pending result.
func Start[T any](fn func() (T, error)) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{})}
	go func() {
		defer close(p.done)
		p.val, p.err = fn()
	}()
	return p
}

// Ready returns an already resolved Pending.
func Ready[T any](v T) *Pending[T] {
	p := &Pending[T]{done: make(chan struct{}), val: v}
	close(p.done)
	return p
}

// Wait blocks until the value is ready or ctx is done. A nil Pending
// yields the zero value.
func (p *Pending[T]) Wait(ctx context.Context) (T, error) {
	if p == nil {
		var zero T
		return zero, nil
	}
	select {
	case <-p.done:
		return p.val, p.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
