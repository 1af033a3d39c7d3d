package invoker

import (
	"reflect"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/pkg/di"
	"github.com/mrnkr/socketscope/pkg/invokeerr"
)

// Invoker는 Resolver 하나에 묶인 재사용 가능한 핸들러 생성기입니다.
// Method로 만든 핸들러는 호출될 때마다 연결의 Scope에서 인스턴스를 새로 만들고
// 이름이 지정된 멤버를 실행합니다.
type Invoker struct {
	resolver *di.Resolver
}

func New(resolver *di.Resolver) *Invoker {
	if resolver == nil {
		panic("invoker: resolver는 nil일 수 없습니다")
	}
	return &Invoker{resolver: resolver}
}

func ForClass(target any, opts ...di.Option) (*Invoker, error) {
	r, err := di.AsClass(target, opts...)
	if err != nil {
		return nil, err
	}
	return New(r), nil
}

func ForFunction(fn any, opts ...di.Option) (*Invoker, error) {
	r, err := di.AsFunction(fn, opts...)
	if err != nil {
		return nil, err
	}
	return New(r), nil
}

// ForAuto는 target을 분류한 뒤 ForClass 또는 ForFunction으로 위임합니다.
func ForAuto(target any, opts ...di.Option) (*Invoker, error) {
	r, err := di.Auto(target, opts...)
	if err != nil {
		return nil, err
	}
	return New(r), nil
}

func (i *Invoker) Resolver() *di.Resolver {
	return i.resolver
}

// Method는 name 멤버를 실행하는 핸들러를 만듭니다.
// 출력 타입이 정적으로 알려진 경우 멤버 검증은 여기서 한 번만 수행됩니다.
func (i *Invoker) Method(name string) (core.Handler, error) {
	typeName := typeNameOf(i.resolver.OutputType())
	if name == "" {
		return nil, &invokeerr.InvalidMethodError{
			Type:   typeName,
			Reason: "메서드 이름이 비어 있습니다",
		}
	}

	bind, err := bindMember(i.resolver.OutputType(), name)
	if err != nil {
		return nil, err
	}

	r := i.resolver
	return func(conn core.ConnectionContext, args ...any) (any, error) {
		instance, err := build(conn, r)
		if err != nil {
			return nil, err
		}

		v := reflect.ValueOf(instance)
		if !v.IsValid() {
			return nil, &invokeerr.InvalidMethodError{
				Method: name,
				Type:   typeName,
				Reason: "생성된 인스턴스가 nil입니다",
			}
		}

		fn, err := bind(v)
		if err != nil {
			return nil, err
		}
		return call(fn, conn, args)
	}, nil
}

// MustMethod는 Method 에러를 panic으로 바꿉니다. 핸들러 등록 코드용입니다.
func (i *Invoker) MustMethod(name string) core.Handler {
	h, err := i.Method(name)
	if err != nil {
		panic(err)
	}
	return h
}

// build는 연결의 Scope에서 r의 최상위 인스턴스를 새로 만듭니다.
func build(conn core.ConnectionContext, r *di.Resolver) (any, error) {
	if conn == nil {
		return nil, &invokeerr.MissingScopeError{}
	}

	scope, ok := conn.Scope()
	if !ok || scope == nil {
		return nil, &invokeerr.MissingScopeError{ConnID: conn.ConnID()}
	}
	return scope.Build(r)
}

func typeNameOf(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
