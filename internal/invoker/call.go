package invoker

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/pkg/invokeerr"
)

var (
	connType    = reflect.TypeFor[core.ConnectionContext]()
	errorType   = reflect.TypeFor[error]()
	rawJSONType = reflect.TypeFor[json.RawMessage]()

	errNumberRange = errors.New("값이 잘리거나 범위를 벗어납니다")
)

// call은 연결을 첫 번째 인자로, 이벤트 인자를 순서대로 넘겨 fn을 실행합니다.
// 모자란 인자는 zero value로 채우고, 가변 인자가 아니면 남는 인자는 버립니다.
// 결과는 Future 등 지연 값이어도 손대지 않고 그대로 반환합니다.
func call(fn reflect.Value, conn core.ConnectionContext, args []any) (any, error) {
	t := fn.Type()

	fixed := t.NumIn()
	if t.IsVariadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, max(t.NumIn(), len(args)+1))
	in = append(in, reflect.ValueOf(&conn).Elem())

	for p := 1; p < fixed; p++ {
		idx := p - 1
		if idx >= len(args) {
			in = append(in, reflect.Zero(t.In(p)))
			continue
		}
		v, err := coerce(args[idx], t.In(p), idx)
		if err != nil {
			return nil, err
		}
		in = append(in, v)
	}

	if t.IsVariadic() {
		elem := t.In(t.NumIn() - 1).Elem()
		for idx := fixed - 1; idx < len(args); idx++ {
			v, err := coerce(args[idx], elem, idx)
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
	}

	return results(fn.Call(in), t)
}

// coerce는 이벤트 인자 하나를 파라미터 타입 to로 맞춥니다.
func coerce(arg any, to reflect.Type, idx int) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(to), nil
	}

	if raw, ok := arg.(json.RawMessage); ok && !isBytes(to) {
		ptr := reflect.New(to)
		if err := json.Unmarshal(raw, ptr.Interface()); err != nil {
			return reflect.Value{}, &invokeerr.ArgumentError{
				Index:    idx,
				Expected: to.String(),
				Got:      "json " + string(raw),
				Cause:    err,
			}
		}
		return ptr.Elem(), nil
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(to) {
		return v, nil
	}
	if isNumber(v.Kind()) && isNumber(to.Kind()) {
		if out, ok := convertNumber(v, to); ok {
			return out, nil
		}
		return reflect.Value{}, &invokeerr.ArgumentError{
			Index:    idx,
			Expected: to.String(),
			Got:      fmt.Sprintf("%s %v", v.Type(), arg),
			Cause:    errNumberRange,
		}
	}
	if v.Kind() == to.Kind() && v.Type().ConvertibleTo(to) {
		return v.Convert(to), nil
	}

	return reflect.Value{}, &invokeerr.ArgumentError{
		Index:    idx,
		Expected: to.String(),
		Got:      v.Type().String(),
	}
}

func results(out []reflect.Value, t reflect.Type) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if t.Out(0) == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		return out[0].Interface(), asError(out[1])
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}

func isBytes(t reflect.Type) bool {
	return t == rawJSONType || (t.Kind() == reflect.Slice && t.Elem().Kind() == reflect.Uint8)
}

// convertNumber는 값이 잘리거나 부호가 바뀌지 않을 때만 변환합니다.
// float 사이의 정밀도 차이는 허용합니다.
func convertNumber(v reflect.Value, to reflect.Type) (reflect.Value, bool) {
	out := v.Convert(to)
	if isFloat(v.Kind()) && isFloat(to.Kind()) {
		return out, true
	}
	if isUnsigned(to.Kind()) && isNegative(v) {
		return reflect.Value{}, false
	}
	if isUnsigned(v.Kind()) && !isUnsigned(to.Kind()) && !isFloat(to.Kind()) && out.Int() < 0 {
		return reflect.Value{}, false
	}
	if !out.Convert(v.Type()).Equal(v) {
		return reflect.Value{}, false
	}
	return out, true
}

func isNegative(v reflect.Value) bool {
	switch {
	case isFloat(v.Kind()):
		return v.Float() < 0
	case isUnsigned(v.Kind()):
		return false
	default:
		return v.Int() < 0
	}
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isUnsigned(k reflect.Kind) bool {
	switch k {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}
