package kafka

import (
	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/pkg/boot"
)

type RunnerFactory struct {
	opts boot.KafkaOptions
}

func NewRunnerFactory(opts boot.KafkaOptions) *RunnerFactory {
	return &RunnerFactory{opts: opts}
}

func (f *RunnerFactory) Build(registration consumer.Registration) (consumer.Reader, error) {
	return NewKafkaReader(registration.Topic, f.opts)
}
