package socketscope

import (
	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/container"
	"github.com/mrnkr/socketscope/internal/invoker"
	"github.com/mrnkr/socketscope/internal/middleware"
	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/zap"
)

// Invoker는 Resolver 하나에 묶인 핸들러 생성기입니다.
// Method(name)으로 이벤트 핸들러를 만듭니다.
type Invoker = invoker.Invoker

// MakeInvoker는 target을 분류해 struct 타입이면 MakeClassInvoker,
// 함수면 MakeFunctionInvoker와 같은 결과를 돌려줍니다.
func MakeInvoker(target any, opts ...di.Option) (*Invoker, error) {
	return invoker.ForAuto(target, opts...)
}

// MakeClassInvoker는 struct 타입 target((*T)(nil) 또는 reflect.Type)으로 Invoker를 만듭니다.
func MakeClassInvoker(target any, opts ...di.Option) (*Invoker, error) {
	return invoker.ForClass(target, opts...)
}

// MakeFunctionInvoker는 팩토리 함수로 Invoker를 만듭니다.
func MakeFunctionInvoker(fn any, opts ...di.Option) (*Invoker, error) {
	return invoker.ForFunction(fn, opts...)
}

func MakeResolverInvoker(resolver *di.Resolver) *Invoker {
	return invoker.New(resolver)
}

// AdaptToMiddleware는 (conn, next)를 받는 멤버 핸들러를 연결 미들웨어로 바꿉니다.
func AdaptToMiddleware(h core.Handler) core.Middleware {
	return invoker.AdaptToMiddleware(h)
}

// Inject는 팩토리 함수 또는 *di.Resolver로 만든 값을 직접 호출하는 핸들러를 만듭니다.
func Inject(target any) (core.Handler, error) {
	return invoker.Inject(target)
}

func MustInject(target any) core.Handler {
	return invoker.MustInject(target)
}

// ScopePerConnection은 연결마다 자식 Scope를 만들어 붙이는 미들웨어입니다.
// New로 만든 App에는 이미 설치되어 있습니다.
func ScopePerConnection(c di.Container) core.Middleware {
	return middleware.ScopePerConnection(c)
}

func NewContainer(logger *zap.Logger) di.Container {
	return container.New(container.WithLogger(logger))
}
