package core

import (
	"context"

	"github.com/mrnkr/socketscope/pkg/di"
)

type ContextCarrier interface {
	Context() context.Context
}

// ConnectionContext는 지속 연결 하나를 나타내는 핸들입니다.
// 연결당 하나의 Scope가 정확히 한 번 연결됩니다.
type ConnectionContext interface {
	ContextCarrier

	ConnID() string
	// Transport는 "ws", "kafka", "rabbitmq" 등 연결을 만든 런타임 이름입니다.
	Transport() string

	// Scope 관련 메서드
	Scope() (di.Scope, bool)
	AttachScope(scope di.Scope) error

	// Emit은 연결 상대에게 이벤트를 보냅니다.
	Emit(event string, args ...any) error

	Set(key string, value any)
	Get(key string) (any, bool)
}

// Handler는 이벤트 하나를 처리합니다. 연결은 항상 첫 번째 파라미터로 전달됩니다.
type Handler func(conn ConnectionContext, args ...any) (any, error)

// Next는 미들웨어 체인의 다음 단계를 실행하고 그 결과를 그대로 돌려줍니다.
type Next func() (any, error)

// Middleware는 연결 수립 시 한 번 실행됩니다. next()를 호출해야 체인이 이어집니다.
type Middleware func(conn ConnectionContext, next Next) (any, error)
