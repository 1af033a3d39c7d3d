package pipeline

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/middleware"
	"go.uber.org/zap"
)

// ErrAborted는 연결 미들웨어가 next()를 호출하지 않고 끝났을 때 반환됩니다.
// transport는 이 경우 연결을 닫습니다.
var ErrAborted = errors.New("미들웨어가 next를 호출하지 않아 연결을 중단했습니다")

// Pipeline은 모든 transport가 공유하는 실행 모델입니다.
// 연결 수립 시 Open으로 미들웨어 체인을 한 번 실행하고,
// 이벤트마다 Execute로 핸들러를 실행합니다.
type Pipeline struct {
	middlewares []core.Middleware
	logger      *zap.Logger
}

func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{logger: logger}
}

func (p *Pipeline) AddMiddleware(mws ...core.Middleware) {
	for _, mw := range mws {
		if mw == nil {
			panic("pipeline: middleware는 nil일 수 없습니다")
		}
	}
	p.middlewares = append(p.middlewares, mws...)
}

// Open은 연결 미들웨어를 등록 순서대로 실행합니다.
func (p *Pipeline) Open(conn core.ConnectionContext) error {
	reached := false
	_, err := middleware.Chain(conn, p.middlewares, func() (any, error) {
		reached = true
		return nil, nil
	})
	if err != nil {
		return err
	}
	if !reached {
		return ErrAborted
	}
	return nil
}

// Execute는 이벤트 하나에 대해 핸들러를 실행하고 지연 결과를 기다립니다.
// 핸들러 panic은 에러로 바뀌어 반환됩니다.
func (p *Pipeline) Execute(conn core.ConnectionContext, handler core.Handler, args []any) (result any, finalErr error) {
	out, err := p.Invoke(conn, handler, args)
	if err != nil {
		return nil, err
	}
	return Await(conn, out)
}

// Invoke는 핸들러만 실행하고 지연 결과는 그대로 돌려줍니다.
func (p *Pipeline) Invoke(conn core.ConnectionContext, handler core.Handler, args []any) (result any, finalErr error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("[Pipeline] 핸들러 panic",
				zap.String("conn", conn.ConnID()),
				zap.Any("panic", rec),
			)
			result = nil
			finalErr = fmt.Errorf("핸들러 panic: %v", rec)
		}
	}()

	return handler(conn, args...)
}

// Await는 out이 core.Awaitable이면 연결 컨텍스트가 끝날 때까지 기다립니다.
// nil 포인터를 담은 Awaitable은 결과 없음으로 취급하고, Await 중 panic은 에러로 바꿉니다.
func Await(conn core.ConnectionContext, out any) (result any, finalErr error) {
	aw, ok := out.(core.Awaitable)
	if !ok {
		return out, nil
	}
	if isNil(aw) {
		return nil, nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			finalErr = fmt.Errorf("지연 결과 panic: %v", rec)
		}
	}()
	return aw.Await(conn.Context())
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
