package invoker

import (
	"errors"
	"reflect"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/pkg/di"
	"github.com/mrnkr/socketscope/pkg/invokeerr"
)

// Inject는 연결의 Scope에서 값을 만들고, 만들어진 값 자체를 함수로 호출하는 핸들러를 반환합니다.
// target이 *di.Resolver가 아니면 분류 없이 팩토리 함수로 취급합니다.
func Inject(target any) (core.Handler, error) {
	r, err := injectResolver(target)
	if err != nil {
		return nil, err
	}

	if out := r.OutputType(); out != nil && out.Kind() != reflect.Interface {
		if out.Kind() != reflect.Func {
			return nil, &invokeerr.NotCallableError{Type: out.String()}
		}
		if reason := checkSignature(out, 0); reason != "" {
			return nil, &invokeerr.NotCallableError{Type: out.String(), Reason: reason}
		}
	}

	return func(conn core.ConnectionContext, args ...any) (any, error) {
		instance, err := build(conn, r)
		if err != nil {
			return nil, err
		}

		if h, ok := instance.(core.Handler); ok && h != nil {
			return h(conn, args...)
		}

		v := reflect.ValueOf(instance)
		if !v.IsValid() || v.Kind() != reflect.Func || v.IsNil() {
			return nil, &invokeerr.NotCallableError{Type: typeNameOf(reflect.TypeOf(instance))}
		}
		if reason := checkSignature(v.Type(), 0); reason != "" {
			return nil, &invokeerr.NotCallableError{Type: v.Type().String(), Reason: reason}
		}
		return call(v, conn, args)
	}, nil
}

// MustInject는 Inject 에러를 panic으로 바꿉니다.
func MustInject(target any) core.Handler {
	h, err := Inject(target)
	if err != nil {
		panic(err)
	}
	return h
}

func injectResolver(target any) (*di.Resolver, error) {
	if r, ok := target.(*di.Resolver); ok {
		if r == nil {
			return nil, errors.New("invoker: resolver는 nil일 수 없습니다")
		}
		return r, nil
	}
	return di.AsFunction(target)
}
