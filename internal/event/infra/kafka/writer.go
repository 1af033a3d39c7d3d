package kafka

import (
	"context"
	"errors"

	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/segmentio/kafka-go"
)

// Writer는 컨슈머 세션에서 Emit한 이벤트를 TopicPrefix + 이벤트 이름 토픽으로 보냅니다.
type Writer struct {
	writer      *kafka.Writer
	topicPrefix string
}

func NewKafkaWriter(opts boot.KafkaOptions) (*Writer, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("Kafka Brokers가 설정되지 않았습니다")
	}
	if opts.Write == nil {
		return nil, errors.New("Kafka Write 옵션이 설정되지 않았습니다")
	}

	return &Writer{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(opts.Brokers...),
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		topicPrefix: opts.Write.TopicPrefix,
	}, nil
}

func (w *Writer) Topic(eventName string) string {
	return w.topicPrefix + eventName
}

func (w *Writer) Publish(ctx context.Context, eventName string, payload []byte) error {
	return w.writer.WriteMessages(ctx, kafka.Message{
		Topic:   w.Topic(eventName),
		Value:   payload,
		Headers: []kafka.Header{{Key: EventHeader, Value: []byte(eventName)}},
	})
}

func (w *Writer) Close() error {
	return w.writer.Close()
}
