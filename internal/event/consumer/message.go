package consumer

import (
	"context"
	"encoding/json"
	"errors"
)

// ErrReaderClosed는 reader가 더 이상 메시지를 줄 수 없을 때 Read가 돌려주는 에러입니다.
// 런타임은 이 에러를 치명적 에러로 보고 세션을 끝냅니다.
var ErrReaderClosed = errors.New("컨슈머 reader가 닫혔습니다")

// Message는 브로커에서 읽은 메시지 하나입니다.
type Message struct {
	EventName string
	Payload   []byte

	ack  func() error
	nack func() error
}

func NewMessage(eventName string, payload []byte, ack func() error, nack func() error) Message {
	return Message{
		EventName: eventName,
		Payload:   payload,
		ack:       ack,
		nack:      nack,
	}
}

func (m Message) Ack() error {
	if m.ack == nil {
		return nil
	}
	return m.ack()
}

func (m Message) Nack() error {
	if m.nack == nil {
		return nil
	}
	return m.nack()
}

type Reader interface {
	Read(ctx context.Context) (Message, error)
	Close() error
}

// Publisher는 컨슈머 세션에서 Emit한 이벤트를 브로커로 보냅니다.
type Publisher interface {
	Publish(ctx context.Context, eventName string, payload []byte) error
	Close() error
}

// encodeArgs는 Emit 인자를 브로커 payload로 바꿉니다.
// 인자가 하나면 그 값을, 여러 개면 배열을 직렬화합니다.
func encodeArgs(args []any) ([]byte, error) {
	switch len(args) {
	case 0:
		return []byte("null"), nil
	case 1:
		return json.Marshal(args[0])
	default:
		return json.Marshal(args)
	}
}
