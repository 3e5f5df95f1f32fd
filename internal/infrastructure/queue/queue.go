// Package queue cola de tareas en segundo plano en proceso: canal con buffer y
// N workers. Cada tarea corre con un contexto propio (no el de la petición),
// con reintentos acotados y backoff lineal.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/jhoicas/msp-api/internal/application/ports"
)

var _ ports.TaskQueue = (*Queue)(nil)

var (
	ErrQueueFull   = errors.New("task queue is full")
	ErrQueueClosed = errors.New("task queue is closed")
)

// Config opciones de la cola.
type Config struct {
	Workers     int
	Buffer      int
	MaxAttempts int
	Backoff     time.Duration // espera base entre intentos (se multiplica por el intento)
	TaskTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.Buffer <= 0 {
		c.Buffer = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = time.Second
	}
	if c.TaskTimeout <= 0 {
		c.TaskTimeout = 30 * time.Second
	}
	return c
}

type task struct {
	name string
	fn   ports.TaskFunc
}

// Queue cola de tareas.
type Queue struct {
	cfg     Config
	tasks   chan task
	metrics ports.BillingMetrics
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	baseCtx context.Context
	cancel  context.CancelFunc
}

// New crea la cola. Llamar Start para lanzar los workers.
func New(cfg Config, metrics ports.BillingMetrics, log zerolog.Logger) *Queue {
	cfg = cfg.withDefaults()
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		cfg:     cfg,
		tasks:   make(chan task, cfg.Buffer),
		metrics: metrics,
		log:     log.With().Str("component", "queue").Logger(),
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// Start lanza los workers.
func (q *Queue) Start() {
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.log.Info().Int("workers", q.cfg.Workers).Int("buffer", q.cfg.Buffer).Msg("cola de tareas iniciada")
}

// Enqueue agrega una tarea sin bloquear. Devuelve ErrQueueFull si el buffer está lleno.
func (q *Queue) Enqueue(name string, fn ports.TaskFunc) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueClosed
	}
	select {
	case q.tasks <- task{name: name, fn: fn}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown deja de aceptar tareas y espera a que se drene la cola. Si ctx vence
// antes, cancela los contextos de las tareas en curso y retorna ctx.Err().
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.tasks)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for t := range q.tasks {
		q.run(t)
	}
	q.log.Debug().Int("worker", n).Msg("worker detenido")
}

func (q *Queue) run(t task) {
	var err error
	for attempt := 1; attempt <= q.cfg.MaxAttempts; attempt++ {
		err = q.call(t)
		if err == nil {
			return
		}
		q.log.Warn().Err(err).Str("task", t.name).Int("attempt", attempt).Msg("tarea fallida")
		if attempt == q.cfg.MaxAttempts {
			break
		}
		select {
		case <-time.After(q.cfg.Backoff * time.Duration(attempt)):
		case <-q.baseCtx.Done():
			attempt = q.cfg.MaxAttempts
		}
	}
	q.metrics.TaskFailed(t.name)
	q.log.Error().Err(err).Str("task", t.name).Int("attempts", q.cfg.MaxAttempts).Msg("tarea descartada tras agotar reintentos")
}

// call ejecuta la tarea con timeout propio; un panic se convierte en error.
func (q *Queue) call(t task) (err error) {
	ctx, cancel := context.WithTimeout(q.baseCtx, q.cfg.TaskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic en tarea %s: %v", t.name, r)
		}
	}()
	return t.fn(ctx)
}
