package ws

import "encoding/json"

// 서버가 보내는 예약 이벤트 이름
const (
	AckEvent   = "ack"
	ErrorEvent = "error"
)

/*
Message는 WebSocket 위에서 주고받는 프레임입니다.

	{"event": "chat.send", "id": 3, "args": ["hello", {"room": "a"}]}

ID가 0이 아니면 서버는 같은 ID로 ack(성공) 또는 error(실패) 프레임을 돌려줍니다.
*/
type Message struct {
	Event string            `json:"event"`
	ID    int64             `json:"id,omitempty"`
	Args  []json.RawMessage `json:"args,omitempty"`
	Error string            `json:"error,omitempty"`
}

// NewMessage는 Go 값 인자들을 JSON으로 직렬화해 프레임을 만듭니다.
func NewMessage(event string, args ...any) (Message, error) {
	msg := Message{Event: event}
	for _, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return Message{}, err
		}
		msg.Args = append(msg.Args, raw)
	}
	return msg, nil
}
