package scan

import (
	"context"
	"sync"
	"sync/atomic"
)

// Coordinator serializes scan pipelines and arbitrates between them:
// at most one scan runs at a time, and a newer scan request supersedes
// any older in-flight one. The superseded scan keeps running (in-flight
// network calls are not aborted) but must drop its results instead of
// publishing them.
type Coordinator struct {
	gate chan struct{}
	gen  atomic.Uint64
}

// NewCoordinator creates a coordinator with a single scan slot.
func NewCoordinator() *Coordinator {
	return &Coordinator{
		gate: make(chan struct{}, 1),
	}
}

// Begin registers a new scan and waits for the scan slot. Registering
// happens before waiting, so an in-flight scan observes itself as
// superseded as soon as a newer one is requested.
func (c *Coordinator) Begin(ctx context.Context) (*Token, error) {
	id := c.gen.Add(1)

	select {
	case c.gate <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	return &Token{c: c, id: id}, nil
}

// Token identifies one scan. Check Superseded after every suspension
// point; release exactly once when the scan finishes.
type Token struct {
	c    *Coordinator
	id   uint64
	once sync.Once
}

// Superseded reports whether a newer scan has been requested since this
// token was issued.
func (t *Token) Superseded() bool {
	return t.c.gen.Load() != t.id
}

// Release frees the scan slot. Safe to call more than once.
func (t *Token) Release() {
	t.once.Do(func() {
		<-t.c.gate
	})
}
