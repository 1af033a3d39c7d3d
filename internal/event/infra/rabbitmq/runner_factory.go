package rabbitmq

import (
	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/pkg/boot"
)

// RunnerFactory는 컨슈머 런타임이 세션을 열 때마다 RabbitMQ Reader를 만듭니다.
type RunnerFactory struct {
	opts boot.RabbitMqOptions
}

func NewRunnerFactory(opts boot.RabbitMqOptions) *RunnerFactory {
	return &RunnerFactory{opts: opts}
}

// Build는 등록된 topic마다 전용 큐(QueuePrefix + topic)를 선언하고 소비하는 Reader를 만듭니다.
// 같은 QueuePrefix를 쓰는 인스턴스끼리는 큐를 공유하므로 메시지가 나눠 배달됩니다.
func (f *RunnerFactory) Build(registration consumer.Registration) (consumer.Reader, error) {
	return NewRabbitMqReader(registration.Topic, f.opts)
}
