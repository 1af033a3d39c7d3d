package session

import (
	"context"
	"sync"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/pkg/di"
	"github.com/mrnkr/socketscope/pkg/invokeerr"
	pkgws "github.com/mrnkr/socketscope/pkg/ws"
)

// EmitFunc는 transport가 제공하는 실제 전송 함수입니다.
type EmitFunc func(event string, args ...any) error

type emitter struct {
	emit EmitFunc
}

func (e *emitter) Emit(event string, args ...any) error {
	if e.emit == nil {
		return nil
	}
	return e.emit(event, args...)
}

// Session은 core.ConnectionContext의 공용 구현입니다.
// 모든 transport 런타임은 연결마다 Session을 하나 만듭니다.
type Session struct {
	ctx       context.Context
	connID    string
	transport string
	emitter   *emitter

	mu    sync.RWMutex
	scope di.Scope
	store map[string]any
}

var _ core.ConnectionContext = (*Session)(nil)

func New(ctx context.Context, connID string, transport string, emit EmitFunc) *Session {
	if ctx == nil {
		ctx = context.Background()
	}
	em := &emitter{emit: emit}
	ctx = context.WithValue(ctx, pkgws.EmitterKey, em)

	return &Session{
		ctx:       ctx,
		connID:    connID,
		transport: transport,
		emitter:   em,
		store:     make(map[string]any),
	}
}

func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) ConnID() string {
	return s.connID
}

func (s *Session) Transport() string {
	return s.transport
}

func (s *Session) Scope() (di.Scope, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope, s.scope != nil
}

func (s *Session) AttachScope(scope di.Scope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.scope != nil {
		return invokeerr.ErrScopeAlreadyAttached
	}
	s.scope = scope
	return nil
}

// Release는 연결 종료 시 붙어 있던 Scope를 해제합니다.
func (s *Session) Release() error {
	s.mu.RLock()
	scope := s.scope
	s.mu.RUnlock()

	if scope == nil {
		return nil
	}
	return scope.Release()
}

func (s *Session) Emit(event string, args ...any) error {
	return s.emitter.Emit(event, args...)
}

func (s *Session) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store[key] = value
}

func (s *Session) Get(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.store[key]
	return v, ok
}
