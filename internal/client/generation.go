package client

import (
	"context"
	"sync"
	"sync/atomic"
)

// Generation hands out increasing request tokens for one logical fetch.
// Only the newest token is current.
type Generation struct {
	n atomic.Uint64
}

// Next starts a new request and returns its token.
func (g *Generation) Next() uint64 { return g.n.Add(1) }

// IsCurrent reports whether no newer request has started since token.
func (g *Generation) IsCurrent(token uint64) bool { return g.n.Load() == token }

// Latest holds the result of the newest fetch of one view. Responses from
// superseded fetches are dropped.
type Latest[T any] struct {
	gen Generation

	mu    sync.Mutex
	value T
	ok    bool
}

func (l *Latest[T]) Begin() uint64 { return l.gen.Next() }

// Store records v if token is still current and reports whether it did.
func (l *Latest[T]) Store(token uint64, v T) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.gen.IsCurrent(token) {
		return false
	}
	l.value, l.ok = v, true
	return true
}

func (l *Latest[T]) Load() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.ok
}

// Fetch runs fn as a new generation. If another Fetch started meanwhile the
// result is discarded and ErrStale returned.
func (l *Latest[T]) Fetch(ctx context.Context, fn func(context.Context) (T, error)) (T, error) {
	token := l.Begin()
	v, err := fn(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if !l.Store(token, v) {
		var zero T
		return zero, ErrStale
	}
	return v, nil
}
