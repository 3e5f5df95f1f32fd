package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/msp-api/internal/application/ports"
)

type failCounter struct {
	ports.NopMetrics
	mu     sync.Mutex
	failed []string
}

func (f *failCounter) TaskFailed(task string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failed = append(f.failed, task)
}

func (f *failCounter) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.failed...)
}

func newTestQueue(cfg Config, m ports.BillingMetrics) *Queue {
	cfg.Backoff = time.Millisecond
	q := New(cfg, m, zerolog.Nop())
	q.Start()
	return q
}

func TestQueue_ReintentaHastaExito(t *testing.T) {
	m := &failCounter{}
	q := newTestQueue(Config{Workers: 1, MaxAttempts: 3}, m)

	var calls int32
	require.NoError(t, q.Enqueue("renewal-check", func(ctx context.Context) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("db caída")
		}
		return nil
	}))

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Empty(t, m.names())
}

func TestQueue_DescartaTrasMaxIntentos(t *testing.T) {
	m := &failCounter{}
	q := newTestQueue(Config{Workers: 1, MaxAttempts: 2}, m)

	var calls int32
	require.NoError(t, q.Enqueue("renewal-check", func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("siempre falla")
	}))

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, []string{"renewal-check"}, m.names())
}

func TestQueue_PanicCuentaComoFallo(t *testing.T) {
	m := &failCounter{}
	q := newTestQueue(Config{Workers: 1, MaxAttempts: 1}, m)

	require.NoError(t, q.Enqueue("boom", func(ctx context.Context) error {
		panic("nil map")
	}))

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, []string{"boom"}, m.names())
}

func TestQueue_ShutdownDrenaPendientes(t *testing.T) {
	q := newTestQueue(Config{Workers: 2, Buffer: 10}, nil)

	var done int32
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue("task", func(ctx context.Context) error {
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt32(&done, 1)
			return nil
		}))
	}

	require.NoError(t, q.Shutdown(context.Background()))
	assert.Equal(t, int32(5), atomic.LoadInt32(&done))
	assert.ErrorIs(t, q.Enqueue("tarde", func(ctx context.Context) error { return nil }), ErrQueueClosed)
}

func TestQueue_BufferLleno(t *testing.T) {
	// Sin Start: nadie consume.
	q := New(Config{Workers: 1, Buffer: 1}, nil, zerolog.Nop())
	noop := func(ctx context.Context) error { return nil }

	require.NoError(t, q.Enqueue("a", noop))
	assert.ErrorIs(t, q.Enqueue("b", noop), ErrQueueFull)
}

func TestQueue_ShutdownVencido(t *testing.T) {
	q := newTestQueue(Config{Workers: 1}, nil)
	release := make(chan struct{})
	require.NoError(t, q.Enqueue("lenta", func(ctx context.Context) error {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Shutdown(ctx), context.DeadlineExceeded)
	close(release)
}
