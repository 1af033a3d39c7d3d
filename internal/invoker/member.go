package invoker

import (
	"reflect"

	"github.com/mrnkr/socketscope/pkg/invokeerr"
)

// binder는 생성된 인스턴스에서 호출할 함수 값을 꺼냅니다.
type binder func(instance reflect.Value) (reflect.Value, error)

// bindMember는 등록 시점에 out 타입에서 name 멤버를 찾아 검증합니다.
// out이 메서드를 선언하지 않은 인터페이스(any 등)이면 호출마다 찾습니다.
func bindMember(out reflect.Type, name string) (binder, error) {
	typeName := typeNameOf(out)

	dynamic := func(v reflect.Value) (reflect.Value, error) {
		return lookupMember(v, name)
	}

	if out == nil {
		return dynamic, nil
	}

	if out.Kind() == reflect.Interface {
		m, ok := out.MethodByName(name)
		if !ok || !m.IsExported() {
			return dynamic, nil
		}
		if reason := checkSignature(m.Type, 0); reason != "" {
			return nil, invalidMethod(name, typeName, reason)
		}
		return func(v reflect.Value) (reflect.Value, error) {
			return v.MethodByName(name), nil
		}, nil
	}

	if m, ok := out.MethodByName(name); ok {
		if reason := checkSignature(m.Type, 1); reason != "" {
			return nil, invalidMethod(name, typeName, reason)
		}
		index := m.Index
		return func(v reflect.Value) (reflect.Value, error) {
			if v.Type() != out {
				return lookupMember(v, name)
			}
			return v.Method(index), nil
		}, nil
	}

	if sf, ok := funcField(out, name); ok {
		if reason := checkSignature(sf.Type, 0); reason != "" {
			return nil, invalidMethod(name, typeName, reason)
		}
		return dynamic, nil
	}

	return nil, invalidMethod(name, typeName, "호출 가능한 멤버가 없습니다")
}

// lookupMember는 인스턴스의 메서드 또는 exported 함수 필드를 이름으로 찾습니다.
func lookupMember(v reflect.Value, name string) (reflect.Value, error) {
	typeName := v.Type().String()

	if m := v.MethodByName(name); m.IsValid() {
		if reason := checkSignature(m.Type(), 0); reason != "" {
			return reflect.Value{}, invalidMethod(name, typeName, reason)
		}
		return m, nil
	}

	sf, ok := funcField(v.Type(), name)
	if !ok {
		return reflect.Value{}, invalidMethod(name, typeName, "호출 가능한 멤버가 없습니다")
	}

	sv := v
	if sv.Kind() == reflect.Pointer {
		if sv.IsNil() {
			return reflect.Value{}, invalidMethod(name, typeName, "생성된 인스턴스가 nil입니다")
		}
		sv = sv.Elem()
	}

	f, err := sv.FieldByIndexErr(sf.Index)
	if err != nil || f.IsNil() {
		return reflect.Value{}, invalidMethod(name, typeName, "함수 필드가 nil입니다")
	}
	if reason := checkSignature(f.Type(), 0); reason != "" {
		return reflect.Value{}, invalidMethod(name, typeName, reason)
	}
	return f, nil
}

func funcField(t reflect.Type, name string) (reflect.StructField, bool) {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}

	sf, ok := t.FieldByName(name)
	if !ok || !sf.IsExported() || sf.Type.Kind() != reflect.Func {
		return reflect.StructField{}, false
	}
	return sf, true
}

// checkSignature는 연결을 첫 번째 인자로 받을 수 있고
// 반환값이 (), (T), (error), (T, error) 중 하나인지 확인합니다.
// skip은 메서드 타입의 receiver처럼 앞에서 건너뛸 파라미터 수입니다.
func checkSignature(t reflect.Type, skip int) string {
	if t.NumIn() <= skip {
		return "연결을 첫 번째 파라미터로 받아야 합니다"
	}

	first := t.In(skip)
	if t.IsVariadic() && t.NumIn() == skip+1 {
		return "연결 파라미터는 가변 인자일 수 없습니다"
	}
	if !connType.AssignableTo(first) {
		return "첫 번째 파라미터에 core.ConnectionContext를 대입할 수 없습니다: " + first.String()
	}

	switch t.NumOut() {
	case 0, 1:
	case 2:
		if t.Out(1) != errorType {
			return "두 번째 반환값은 error여야 합니다"
		}
	default:
		return "반환값은 최대 두 개(값, error)여야 합니다"
	}
	return ""
}

func invalidMethod(name, typeName, reason string) error {
	return &invokeerr.InvalidMethodError{
		Method: name,
		Type:   typeName,
		Reason: reason,
	}
}
