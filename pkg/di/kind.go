package di

import "reflect"

// Kind는 Resolver가 대상을 어떤 방식으로 생성하는지 나타냅니다.
type Kind int

const (
	KindInvalid Kind = iota
	// KindClass는 struct 타입을 할당하고 필드를 주입해서 생성합니다.
	KindClass
	// KindFunction은 팩토리 함수를 호출해서 생성합니다.
	KindFunction
	// KindValue는 등록된 값을 그대로 돌려줍니다.
	KindValue
)

func (k Kind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	case KindValue:
		return "value"
	default:
		return "invalid"
	}
}

/*
Classify는 대상이 생성 가능한 타입인지 팩토리 함수인지 판별합니다.

  - func 값이면 KindFunction
  - struct 또는 *struct 의 reflect.Type 이면 KindClass
  - struct를 가리키는 typed nil 포인터((*T)(nil))면 KindClass
  - 그 외에는 KindInvalid

같은 대상에 대해서는 항상 같은 결과를 돌려줍니다.
*/
func Classify(target any) Kind {
	if target == nil {
		return KindInvalid
	}

	if t, ok := target.(reflect.Type); ok {
		if structOf(t) != nil {
			return KindClass
		}
		return KindInvalid
	}

	v := reflect.ValueOf(target)
	switch v.Kind() {
	case reflect.Func:
		return KindFunction
	case reflect.Pointer:
		if v.IsNil() && v.Type().Elem().Kind() == reflect.Struct {
			return KindClass
		}
	}
	return KindInvalid
}

// classType은 KindClass 대상에서 struct 타입을 꺼냅니다.
func classType(target any) reflect.Type {
	if t, ok := target.(reflect.Type); ok {
		return structOf(t)
	}
	if target == nil {
		return nil
	}
	return structOf(reflect.TypeOf(target))
}

func structOf(t reflect.Type) reflect.Type {
	if t == nil {
		return nil
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}
