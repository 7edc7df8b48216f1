package eventbus

import (
	"context"
	"sync"

	"github.com/mcdev12/planpoker/go/internal/events"
)

// Handler receives published events.
type Handler func(ev *events.Event)

// Local delivers events to in-process subscribers synchronously. It is the
// bus used when EVENT_BUS=local.
type Local struct {
	mu       sync.RWMutex
	handlers []Handler
}

func NewLocal() *Local {
	return &Local{}
}

func (l *Local) Subscribe(h Handler) {
	l.mu.Lock()
	l.handlers = append(l.handlers, h)
	l.mu.Unlock()
}

func (l *Local) Notify(_ context.Context, ev *events.Event) error {
	l.mu.RLock()
	handlers := l.handlers
	l.mu.RUnlock()
	for _, h := range handlers {
		h(ev)
	}
	return nil
}
