package ws

import (
	"errors"
	"fmt"
)

var errMalformed = errors.New("잘못된 메시지 형식입니다")

type unknownEventError struct {
	event string
}

func (e *unknownEventError) Error() string {
	return fmt.Sprintf("등록되지 않은 이벤트입니다: %s", e.event)
}
