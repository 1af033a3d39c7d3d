package di

import (
	"errors"
	"fmt"
	"reflect"
)

// TagKey는 Class 대상에서 주입할 필드를 표시하는 struct tag 키입니다.
const TagKey = "inject"

var errorType = reflect.TypeFor[error]()

// Resolver는 값을 만드는 방법에 대한 불변 서술자입니다.
// 생성 시점에 대상을 호출하지 않으며, 모든 연결과 호출에서 재사용됩니다.
type Resolver struct {
	kind     Kind
	lifetime Lifetime
	out      reflect.Type

	fn        reflect.Value
	params    []reflect.Type
	returnErr bool

	class  reflect.Type
	fields []field

	value any
}

type field struct {
	index int
	name  string
	typ   reflect.Type
	// byName이 false면 타입으로 주입합니다.
	byName bool
	key    string
}

type Option func(*options)

type options struct {
	lifetime Lifetime
}

func WithLifetime(l Lifetime) Option {
	return func(o *options) {
		o.lifetime = l
	}
}

func AsTransient() Option {
	return WithLifetime(Transient)
}

func AsScoped() Option {
	return WithLifetime(Scoped)
}

func AsSingleton() Option {
	return WithLifetime(Singleton)
}

func newOptions(opts []Option) options {
	o := options{lifetime: Transient}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// AsFunction은 팩토리 함수를 Resolver로 감쌉니다.
// 팩토리는 T 또는 (T, error)를 반환해야 합니다.
func AsFunction(fn any, opts ...Option) (*Resolver, error) {
	if fn == nil {
		return nil, errors.New("di: 팩토리는 nil일 수 없습니다")
	}

	v := reflect.ValueOf(fn)
	t := v.Type()
	if t.Kind() != reflect.Func {
		return nil, fmt.Errorf("di: 팩토리는 함수여야 합니다: %s", t)
	}
	if v.IsNil() {
		return nil, errors.New("di: 팩토리는 nil일 수 없습니다")
	}
	if t.IsVariadic() {
		return nil, fmt.Errorf("di: 가변 인자 팩토리는 지원하지 않습니다: %s", t)
	}

	returnErr := false
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("di: 팩토리의 두 번째 반환값은 error여야 합니다: %s", t)
		}
		returnErr = true
	default:
		return nil, fmt.Errorf("di: 팩토리는 하나의 값 또는 (값, error)를 반환해야 합니다: %s", t)
	}

	params := make([]reflect.Type, t.NumIn())
	for i := range params {
		params[i] = t.In(i)
	}

	o := newOptions(opts)
	return &Resolver{
		kind:      KindFunction,
		lifetime:  o.lifetime,
		out:       t.Out(0),
		fn:        v,
		params:    params,
		returnErr: returnErr,
	}, nil
}

// AsClass는 struct 타입을 Resolver로 감쌉니다.
// target은 reflect.Type 또는 (*T)(nil) 형태의 typed nil 포인터입니다.
func AsClass(target any, opts ...Option) (*Resolver, error) {
	if Classify(target) != KindClass {
		return nil, fmt.Errorf("di: struct 타입이 아닙니다: %T", target)
	}

	class := classType(target)
	fields, err := injectableFields(class)
	if err != nil {
		return nil, err
	}

	o := newOptions(opts)
	return &Resolver{
		kind:     KindClass,
		lifetime: o.lifetime,
		out:      reflect.PointerTo(class),
		class:    class,
		fields:   fields,
	}, nil
}

// AsValue는 이미 만들어진 값을 Resolver로 감쌉니다. Lifetime은 의미가 없습니다.
func AsValue(value any) *Resolver {
	var out reflect.Type
	if value != nil {
		out = reflect.TypeOf(value)
	}
	return &Resolver{
		kind:     KindValue,
		lifetime: Singleton,
		out:      out,
		value:    value,
	}
}

// Auto는 Classify 결과에 따라 AsClass 또는 AsFunction으로 위임합니다.
func Auto(target any, opts ...Option) (*Resolver, error) {
	switch Classify(target) {
	case KindClass:
		return AsClass(target, opts...)
	case KindFunction:
		return AsFunction(target, opts...)
	default:
		return nil, fmt.Errorf("di: 함수나 struct 타입으로 분류할 수 없습니다: %T", target)
	}
}

// Must는 Resolver 생성 에러를 panic으로 바꿉니다. 부트스트랩 코드용입니다.
func Must(r *Resolver, err error) *Resolver {
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Resolver) Kind() Kind {
	return r.kind
}

func (r *Resolver) Lifetime() Lifetime {
	return r.lifetime
}

// OutputType은 생성될 값의 정적 타입입니다. Class는 *T, Function은 팩토리 반환 타입입니다.
func (r *Resolver) OutputType() reflect.Type {
	return r.out
}

func injectableFields(class reflect.Type) ([]field, error) {
	var fields []field
	for i := 0; i < class.NumField(); i++ {
		sf := class.Field(i)
		key, ok := sf.Tag.Lookup(TagKey)
		if !ok {
			continue
		}
		if !sf.IsExported() {
			return nil, fmt.Errorf("di: unexported 필드에는 주입할 수 없습니다: %s.%s", class, sf.Name)
		}
		fields = append(fields, field{
			index:  i,
			name:   sf.Name,
			typ:    sf.Type,
			byName: key != "",
			key:    key,
		})
	}
	return fields, nil
}
