package middleware

import "github.com/mrnkr/socketscope/core"

// Chain은 mws를 등록 순서대로 실행하고 마지막에 final을 실행합니다.
// 미들웨어가 next()를 호출하지 않으면 그 뒤의 단계는 실행되지 않습니다.
func Chain(conn core.ConnectionContext, mws []core.Middleware, final core.Next) (any, error) {
	var run func(i int) (any, error)
	run = func(i int) (any, error) {
		if i == len(mws) {
			if final == nil {
				return nil, nil
			}
			return final()
		}
		return mws[i](conn, func() (any, error) {
			return run(i + 1)
		})
	}
	return run(0)
}
