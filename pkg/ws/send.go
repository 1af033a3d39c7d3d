package ws

import "context"

type emitterKeyType struct{}

var EmitterKey = emitterKeyType{}

// Emitter는 연결 상대에게 이벤트를 보내는 계약입니다.
type Emitter interface {
	Emit(event string, args ...any) error
}

// Emit은 ctx에 실린 연결로 이벤트를 보냅니다.
// 연결 컨텍스트가 아니면 아무것도 하지 않습니다.
func Emit(ctx context.Context, event string, args ...any) error {
	emitter, ok := ctx.Value(EmitterKey).(Emitter)
	if !ok || emitter == nil {
		return nil
	}
	return emitter.Emit(event, args...)
}
