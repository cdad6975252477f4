package replay

import (
	"context"
	"sync"
)

// Ticket es el handle de una operación asíncrona que se resuelve en el loop.
type Ticket[R any] struct {
	once   sync.Once
	done   chan struct{}
	result R
}

// NewTicket crea un ticket sin resolver.
func NewTicket[R any]() *Ticket[R] {
	return &Ticket[R]{done: make(chan struct{})}
}

// Resolve fija el resultado. Solo la primera llamada tiene efecto.
func (t *Ticket[R]) Resolve(r R) {
	t.once.Do(func() {
		t.result = r
		close(t.done)
	})
}

// Done se cierra al resolverse el ticket.
func (t *Ticket[R]) Done() <-chan struct{} {
	return t.done
}

// Result es válido solo después de Done.
func (t *Ticket[R]) Result() R {
	<-t.done
	return t.result
}

// Wait bloquea hasta que el ticket se resuelve o ctx se cancela.
func (t *Ticket[R]) Wait(ctx context.Context) (R, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}
