package di

import (
	"errors"
	"strings"
)

// ErrScopeReleased는 Release 이후의 Scope에서 해석을 시도할 때 반환됩니다.
var ErrScopeReleased = errors.New("이미 해제된 scope입니다")

// ResolutionError는 의존성 그래프를 만족시킬 수 없을 때 반환됩니다.
// (미등록, 모호한 타입, 순환 의존성, 팩토리 실패)
type ResolutionError struct {
	Name    string
	Path    []string
	Message string
	Cause   error
}

func (e *ResolutionError) Error() string {
	var b strings.Builder
	b.WriteString("의존성 해석 실패")
	if len(e.Path) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(e.Path, " -> "))
		b.WriteString(")")
	} else if e.Name != "" {
		b.WriteString(" (")
		b.WriteString(e.Name)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

func IsResolutionError(err error) bool {
	var e *ResolutionError
	return errors.As(err, &e)
}
