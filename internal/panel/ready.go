package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNotReady is returned when the host container never became available.
var ErrNotReady = errors.New("bookmark box container not ready")

// Ready is a one-shot signal that the host container exists.
type Ready struct {
	once sync.Once
	ch   chan struct{}
}

// NewReady creates an unresolved signal.
func NewReady() *Ready {
	return &Ready{ch: make(chan struct{})}
}

// Resolve marks the container as available. Later calls are no-ops.
func (r *Ready) Resolve() {
	r.once.Do(func() { close(r.ch) })
}

// Done is closed once Resolve has been called.
func (r *Ready) Done() <-chan struct{} {
	return r.ch
}

// Wait blocks until Resolve or until ctx ends.
func (r *Ready) Wait(ctx context.Context) error {
	select {
	case <-r.ch:
		return nil
	default:
	}

	select {
	case <-r.ch:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrNotReady, ctx.Err())
	}
}
