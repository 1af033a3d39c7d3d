package di

import (
	"fmt"
	"reflect"
)

// Construct는 deps에서 의존성을 꺼내 대상을 한 번 생성합니다.
// 캐싱과 Lifetime 처리는 호출하는 Container의 책임입니다.
func (r *Resolver) Construct(deps Dependencies) (any, error) {
	switch r.kind {
	case KindValue:
		return r.value, nil
	case KindFunction:
		return r.callFactory(deps)
	case KindClass:
		return r.newClass(deps)
	default:
		return nil, fmt.Errorf("di: 알 수 없는 Resolver 종류입니다: %s", r.kind)
	}
}

func (r *Resolver) callFactory(deps Dependencies) (any, error) {
	args := make([]reflect.Value, len(r.params))
	for i, pt := range r.params {
		if pt == cradleType {
			args[i] = reflect.ValueOf(deps)
			continue
		}

		instance, err := deps.ResolveType(pt)
		if err != nil {
			return nil, err
		}
		arg, err := assignable(instance, pt)
		if err != nil {
			return nil, fmt.Errorf("di: 팩토리 파라미터 %d: %w", i, err)
		}
		args[i] = arg
	}

	results := r.fn.Call(args)
	if r.returnErr && !results[1].IsNil() {
		return nil, results[1].Interface().(error)
	}
	return results[0].Interface(), nil
}

func (r *Resolver) newClass(deps Dependencies) (any, error) {
	ptr := reflect.New(r.class)
	structVal := ptr.Elem()

	for _, f := range r.fields {
		var (
			instance any
			err      error
		)
		if f.byName {
			instance, err = deps.Resolve(f.key)
		} else {
			instance, err = deps.ResolveType(f.typ)
		}
		if err != nil {
			return nil, err
		}

		val, err := assignable(instance, f.typ)
		if err != nil {
			return nil, fmt.Errorf("di: 필드 %s.%s: %w", r.class, f.name, err)
		}
		structVal.Field(f.index).Set(val)
	}

	instance := ptr.Interface()
	if initializer, ok := instance.(Initializer); ok {
		if err := initializer.Init(); err != nil {
			return nil, err
		}
	}
	return instance, nil
}

func assignable(instance any, to reflect.Type) (reflect.Value, error) {
	if instance == nil {
		return reflect.Zero(to), nil
	}
	val := reflect.ValueOf(instance)
	if !val.Type().AssignableTo(to) {
		return reflect.Value{}, fmt.Errorf("%s 값을 %s에 대입할 수 없습니다", val.Type(), to)
	}
	return val, nil
}
