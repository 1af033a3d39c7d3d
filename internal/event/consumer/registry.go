package consumer

import (
	"sync"

	"github.com/mrnkr/socketscope/core"
)

type Registration struct {
	Topic   string
	Handler core.Handler
}

type Registry struct {
	mu            sync.RWMutex
	registrations []Registration
}

func NewRegistry() *Registry {
	return &Registry{
		registrations: make([]Registration, 0),
	}
}

// Register는 토픽 하나에 핸들러를 연결합니다.
// 핸들러는 (conn, eventName string, payload json.RawMessage)로 호출됩니다.
func (r *Registry) Register(topic string, handler core.Handler) {
	if topic == "" {
		panic("consumer: topic은 빈 값일 수 없습니다")
	}
	if handler == nil {
		panic("consumer: handler는 nil일 수 없습니다")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, Registration{
		Topic:   topic,
		Handler: handler,
	})
}

func (r *Registry) Registrations() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cpy := make([]Registration, len(r.registrations))
	copy(cpy, r.registrations)
	return cpy
}
