package invokeerr

import (
	"errors"
	"fmt"
)

// ErrScopeAlreadyAttached는 이미 Scope가 붙은 연결에 다시 붙이려 할 때 반환됩니다.
var ErrScopeAlreadyAttached = errors.New("연결에 이미 scope가 연결되어 있습니다")

// MissingScopeError는 Scope가 붙지 않은 연결에서 핸들러가 실행될 때 반환됩니다.
// ScopePerConnection 미들웨어가 실행되지 않았거나 핸들러보다 늦게 실행된 경우입니다.
type MissingScopeError struct {
	ConnID string
}

func (e *MissingScopeError) Error() string {
	return fmt.Sprintf("연결(%s)에 scope가 없습니다. ScopePerConnection 미들웨어를 먼저 등록하세요", e.ConnID)
}

// InvalidMethodError는 메서드 이름이 비었거나, 생성된 인스턴스에
// 호출 가능한 멤버가 없을 때 반환됩니다.
type InvalidMethodError struct {
	Method string
	Type   string
	Reason string
}

func (e *InvalidMethodError) Error() string {
	if e.Method == "" {
		return fmt.Sprintf("유효하지 않은 메서드 이름입니다 (%s): %s", e.Type, e.Reason)
	}
	return fmt.Sprintf("유효하지 않은 메서드입니다 %s.%s: %s", e.Type, e.Method, e.Reason)
}

// NotCallableError는 Inject로 생성한 값이 함수가 아니거나
// 연결을 첫 번째 인자로 받을 수 없는 함수일 때 반환됩니다.
type NotCallableError struct {
	Type   string
	Reason string
}

func (e *NotCallableError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("생성된 값이 호출 가능한 함수가 아닙니다: %s", e.Type)
	}
	return fmt.Sprintf("생성된 값이 호출 가능한 함수가 아닙니다: %s: %s", e.Type, e.Reason)
}

// ArgumentError는 이벤트 인자를 핸들러 파라미터 타입으로 바꿀 수 없을 때 반환됩니다.
// Index는 연결을 제외한 이벤트 인자의 위치(0부터)입니다.
type ArgumentError struct {
	Index    int
	Expected string
	Got      string
	Cause    error
}

func (e *ArgumentError) Error() string {
	msg := fmt.Sprintf("인자 %d를 %s로 변환할 수 없습니다 (got %s)", e.Index, e.Expected, e.Got)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ArgumentError) Unwrap() error {
	return e.Cause
}

func IsMissingScope(err error) bool {
	var e *MissingScopeError
	return errors.As(err, &e)
}

func IsInvalidMethod(err error) bool {
	var e *InvalidMethodError
	return errors.As(err, &e)
}

func IsNotCallable(err error) bool {
	var e *NotCallableError
	return errors.As(err, &e)
}
