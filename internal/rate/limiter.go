package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Limiter gates outbound API calls so we stay inside Instapaper's rate limits.
type Limiter interface {
	Wait(ctx context.Context) error
}

// TokenBucket releases up to rps calls per second.
type TokenBucket struct {
	ticker *time.Ticker
	tokens chan struct{}
	done   chan struct{}
	stop   sync.Once
}

// NewTokenBucket returns a limiter refilled at rps tokens per second. The
// first Wait proceeds immediately.
func NewTokenBucket(rps int) *TokenBucket {
	if rps <= 0 {
		rps = 1
	}
	tb := &TokenBucket{
		ticker: time.NewTicker(time.Second / time.Duration(rps)),
		tokens: make(chan struct{}, rps),
		done:   make(chan struct{}),
	}
	tb.tokens <- struct{}{}
	go tb.refill()
	return tb
}

func (t *TokenBucket) refill() {
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			select {
			case t.tokens <- struct{}{}:
			default:
			}
		}
	}
}

// Wait blocks until a token is available or the context is canceled.
func (t *TokenBucket) Wait(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate wait canceled: %w", ctx.Err())
	case <-t.tokens:
		return nil
	}
}

// Stop releases the refill goroutine. Safe to call more than once.
func (t *TokenBucket) Stop() {
	t.stop.Do(func() {
		t.ticker.Stop()
		close(t.done)
	})
}

var _ Limiter = (*TokenBucket)(nil)
