package ports

import "context"

// TaskFunc unidad de trabajo en segundo plano. Recibe un contexto propio,
// desligado de la petición que la encoló.
type TaskFunc func(ctx context.Context) error

// TaskQueue puerto de la cola de tareas en segundo plano.
type TaskQueue interface {
	Enqueue(name string, fn TaskFunc) error
}
