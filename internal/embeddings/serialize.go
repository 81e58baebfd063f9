// ABOUTME: Wrapper that funnels all embed calls through a single worker goroutine.
// ABOUTME: Used for models that are not safe for concurrent invocation.
package embeddings

import (
	"context"
	"sync"
)

type serialResult struct {
	vecs [][]float32
	err  error
}

type serialRequest struct {
	ctx   context.Context
	texts []string
	resp  chan serialResult
}

// Serialized runs at most one inner Embed call at a time, in arrival order.
// Callers may give up while queued by cancelling their context.
type Serialized struct {
	inner     Embedder
	queue     chan serialRequest
	done      chan struct{}
	closeOnce sync.Once
}

// NewSerialized starts the worker. Call Close to stop it.
func NewSerialized(inner Embedder, queueSize int) *Serialized {
	if queueSize < 0 {
		queueSize = 0
	}
	s := &Serialized{
		inner: inner,
		queue: make(chan serialRequest, queueSize),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Serialized) run() {
	for {
		select {
		case req := <-s.queue:
			if err := req.ctx.Err(); err != nil {
				req.resp <- serialResult{err: err}
				continue
			}
			vecs, err := s.inner.Embed(req.ctx, req.texts)
			req.resp <- serialResult{vecs: vecs, err: err}
		case <-s.done:
			return
		}
	}
}

// Embed implements Embedder.
func (s *Serialized) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	req := serialRequest{ctx: ctx, texts: texts, resp: make(chan serialResult, 1)}

	select {
	case s.queue <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}

	select {
	case r := <-req.resp:
		return r.vecs, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-s.done:
		return nil, ErrClosed
	}
}

// Dimension implements Embedder.
func (s *Serialized) Dimension() int { return s.inner.Dimension() }

// Model implements Embedder.
func (s *Serialized) Model() string { return s.inner.Model() }

// Close stops the worker. Calls still waiting for a result fail with ErrClosed.
func (s *Serialized) Close() error {
	s.closeOnce.Do(func() { close(s.done) })
	return nil
}
