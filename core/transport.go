package core

import "context"

// Transport는 HTTP 서버와 별도로 실행되는 연결 런타임 계약입니다.
// 브로커 컨슈머처럼 스스로 연결(세션)을 만드는 런타임이 구현합니다.
type Transport interface {
	Name() string
	// Start는 부트스트랩 시 한 번 호출되며 블로킹하지 않아야 합니다.
	Start(ctx context.Context) error
	// Stop은 Graceful Shutdown 시 호출됩니다.
	Stop(ctx context.Context) error
}
