package middleware

import (
	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/multierr"
)

// ScopePerConnection은 연결마다 container의 자식 Scope를 만들어 연결에 붙입니다.
// 핸들러보다 먼저 등록되어야 합니다.
func ScopePerConnection(c di.Container) core.Middleware {
	if c == nil {
		panic("middleware: container는 nil일 수 없습니다")
	}

	return func(conn core.ConnectionContext, next core.Next) (any, error) {
		scope := c.CreateScope()
		if err := conn.AttachScope(scope); err != nil {
			return nil, multierr.Append(err, scope.Release())
		}
		return next()
	}
}
