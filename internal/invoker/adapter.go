package invoker

import "github.com/mrnkr/socketscope/core"

// AdaptToMiddleware는 핸들러를 연결 미들웨어로 씁니다.
// 멤버는 (conn, next)를 받으며, next를 호출해 체인을 이어가야 합니다.
func AdaptToMiddleware(h core.Handler) core.Middleware {
	if h == nil {
		panic("invoker: handler는 nil일 수 없습니다")
	}
	return func(conn core.ConnectionContext, next core.Next) (any, error) {
		return h(conn, next)
	}
}
