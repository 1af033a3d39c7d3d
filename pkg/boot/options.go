package boot

import (
	"time"

	"go.uber.org/zap"
)

// DefaultWebSocketPath는 WebSocketPath가 비었을 때 사용하는 경로입니다.
const DefaultWebSocketPath = "/ws"

type Options struct {
	// HTTP 서버 주소 (예: ":8080")
	Address string

	// WebSocket 엔드포인트 경로. 비어 있으면 DefaultWebSocketPath
	WebSocketPath string

	EnableGracefulShutdown bool
	ShutdownTimeout        time.Duration

	/*
		Kafka 컨슈머 / 발행기 설정
		nil이면 Kafka 런타임은 구성되지 않습니다.
	*/
	Kafka *KafkaOptions

	/*
		RabbitMQ 컨슈머 / 발행기 설정
		nil이면 RabbitMQ 런타임은 구성되지 않습니다.
	*/
	RabbitMQ *RabbitMqOptions

	// nil이면 로그를 남기지 않습니다.
	Logger *zap.Logger
}

func (o Options) Path() string {
	if o.WebSocketPath == "" {
		return DefaultWebSocketPath
	}
	return o.WebSocketPath
}
