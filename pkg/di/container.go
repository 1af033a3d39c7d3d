package di

import (
	"fmt"
	"reflect"
)

// Cradle는 팩토리가 이름으로 의존성을 꺼내기 위한 최소 계약입니다.
type Cradle interface {
	Resolve(name string) (any, error)
	Has(name string) bool
}

// Dependencies는 Resolver.Construct가 생성 중에 사용하는 조회 계약입니다.
// Container 구현체가 해석 경로(순환 감지)와 함께 제공합니다.
type Dependencies interface {
	Cradle
	ResolveType(t reflect.Type) (any, error)
}

// Builder는 등록되지 않은 Resolver로부터 인스턴스를 만듭니다.
// 최상위 대상은 항상 새로 생성되고, 의존성은 각자의 Lifetime을 따릅니다.
type Builder interface {
	Build(r *Resolver) (any, error)
}

// Scope는 연결 하나에 묶이는 자식 해석 컨텍스트입니다.
type Scope interface {
	Cradle
	Builder
	CreateScope() Scope
	// Release는 Scope가 만든 Scoped 인스턴스를 역순으로 Dispose하고 Scope를 닫습니다.
	Release() error
}

// Container는 이름 → Resolver 레지스트리를 가진 루트 해석 컨텍스트입니다.
type Container interface {
	Cradle
	Builder
	Register(name string, r *Resolver) error
	CreateScope() Scope
	Registrations() []Registration
	// Dispose는 Singleton 인스턴스를 정리합니다.
	Dispose() error
}

// Registration은 Container에 등록된 항목의 읽기 전용 정보입니다.
type Registration struct {
	Name     string
	Kind     Kind
	Lifetime Lifetime
	Type     reflect.Type
}

// Initializer를 구현한 Class 대상은 필드 주입 직후 Init이 호출됩니다.
type Initializer interface {
	Init() error
}

// Disposer를 구현한 Scoped/Singleton 인스턴스는 Scope 해제 시 Dispose가 호출됩니다.
type Disposer interface {
	Dispose() error
}

var cradleType = reflect.TypeFor[Cradle]()

// Get은 Cradle에서 이름으로 값을 꺼내 T로 변환합니다.
func Get[T any](c Cradle, name string) (T, error) {
	var zero T

	v, err := c.Resolve(name)
	if err != nil {
		return zero, err
	}

	typed, ok := v.(T)
	if !ok {
		return zero, &ResolutionError{
			Name:    name,
			Path:    []string{name},
			Message: fmt.Sprintf("타입이 일치하지 않습니다: expected %s, got %T", reflect.TypeFor[T](), v),
		}
	}
	return typed, nil
}

func MustGet[T any](c Cradle, name string) T {
	v, err := Get[T](c, name)
	if err != nil {
		panic(err)
	}
	return v
}
