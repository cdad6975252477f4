package replay

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrLoopClosed se devuelve al encolar en un loop que ya terminó.
var ErrLoopClosed = errors.New("event loop closed")

// Loop es la goroutine única que muta el estado del motor. Los componentes de
// este paquete solo se tocan desde tareas del loop; la I/O corre en goroutines
// propias y publica su resultado con Post.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}
}

// NewLoop crea un loop detenido. Run lo pone en marcha.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Post encola fn. Devuelve false si el loop ya está cerrado.
func (l *Loop) Post(fn func()) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do encola fn y espera a que termine. No debe llamarse desde una tarea del
// propio loop.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopClosed
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		// Run pudo terminar justo después de ejecutar la tarea.
		select {
		case <-finished:
			return nil
		default:
		}
		return ErrLoopClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done se cierra cuando Run termina.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run procesa tareas hasta que ctx se cancela. Las tareas pendientes en ese
// momento se descartan.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			batch := l.queue
			l.queue = nil
			l.mu.Unlock()
			if len(batch) == 0 {
				break
			}
			for _, fn := range batch {
				if ctx.Err() != nil {
					return nil
				}
				l.exec(fn)
			}
		}
	}
}

func (l *Loop) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("event loop task panicked", "panic", r)
		}
	}()
	fn()
}
