package domain

import (
	"context"
	"sync"
)

// CancelToken is a cooperative cancellation handle owned one-to-one by a
// task. Signalling it cancels the context handed to the in-flight transfer.
type CancelToken struct {
	ctx    context.Context
	cancel context.CancelFunc
	once   sync.Once
}

// NewCancelToken creates an unsignalled token
func NewCancelToken() *CancelToken {
	ctx, cancel := context.WithCancel(context.Background())
	return &CancelToken{ctx: ctx, cancel: cancel}
}

// Signal requests cancellation. Safe to call more than once.
func (c *CancelToken) Signal() {
	c.once.Do(c.cancel)
}

// Signaled reports whether cancellation has been requested
func (c *CancelToken) Signaled() bool {
	select {
	case <-c.ctx.Done():
		return true
	default:
		return false
	}
}

// Done returns a channel closed when cancellation is requested
func (c *CancelToken) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Context returns the context cancelled by Signal, for passing into
// blocking transfer calls.
func (c *CancelToken) Context() context.Context {
	return c.ctx
}
