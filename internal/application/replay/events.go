package replay

import "sync"

// Subscription es el handle de un listener registrado. Release es idempotente.
type Subscription struct {
	once    sync.Once
	release func()
}

// Release da de baja el listener.
func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// NewSubscription envuelve una función de baja arbitraria (p. ej. la de una
// superficie de gráfico) para liberarla junto al resto.
func NewSubscription(release func()) *Subscription {
	return &Subscription{release: release}
}

// listeners es un registro ordenado de callbacks. Solo se usa desde el loop.
type listeners[T any] struct {
	nextID int
	fns    []listener[T]
}

type listener[T any] struct {
	id int
	fn func(T)
}

func (ls *listeners[T]) add(fn func(T)) *Subscription {
	ls.nextID++
	id := ls.nextID
	ls.fns = append(ls.fns, listener[T]{id: id, fn: fn})
	return &Subscription{release: func() {
		for i, l := range ls.fns {
			if l.id == id {
				ls.fns = append(ls.fns[:i:i], ls.fns[i+1:]...)
				return
			}
		}
	}}
}

func (ls *listeners[T]) emit(v T) {
	// copia: un listener puede darse de baja durante la emisión
	snapshot := append([]listener[T](nil), ls.fns...)
	for _, l := range snapshot {
		l.fn(v)
	}
}

func (ls *listeners[T]) len() int {
	return len(ls.fns)
}
