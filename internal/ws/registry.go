package ws

import (
	"sync"

	"github.com/mrnkr/socketscope/core"
	pkgws "github.com/mrnkr/socketscope/pkg/ws"
)

type Registration struct {
	Event   string
	Handler core.Handler
}

// Registry는 이벤트 이름 → 핸들러 매핑입니다.
type Registry struct {
	mu            sync.RWMutex
	registrations []Registration
	byEvent       map[string]core.Handler
}

func NewRegistry() *Registry {
	return &Registry{
		registrations: make([]Registration, 0),
		byEvent:       make(map[string]core.Handler),
	}
}

func (r *Registry) On(event string, handler core.Handler) {
	if event == "" {
		panic("ws: event가 빈 값일 수 없습니다")
	}
	if event == pkgws.AckEvent || event == pkgws.ErrorEvent {
		panic("ws: 예약된 이벤트 이름입니다: " + event)
	}
	if handler == nil {
		panic("ws: handler가 nil일 수 없습니다")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEvent[event]; exists {
		panic("ws: 이미 등록된 이벤트입니다: " + event)
	}
	r.byEvent[event] = handler
	r.registrations = append(r.registrations, Registration{
		Event:   event,
		Handler: handler,
	})
}

func (r *Registry) Lookup(event string) (core.Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.byEvent[event]
	return h, ok
}

func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cpy := make([]Registration, len(r.registrations))
	copy(cpy, r.registrations)
	return cpy
}
