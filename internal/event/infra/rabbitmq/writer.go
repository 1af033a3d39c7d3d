package rabbitmq

import (
	"context"
	"errors"
	"time"

	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/rabbitmq/amqp091-go"
)

// Writer는 컨슈머 세션에서 Emit한 이벤트를 이벤트 이름을 routing key로 발행합니다.
type Writer struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
}

func NewRabbitMqWriter(opts boot.RabbitMqOptions) (*Writer, error) {
	if opts.URL == "" {
		return nil, errors.New("RabbitMQ URL이 설정되지 않았습니다")
	}
	if opts.Write == nil || opts.Write.Exchange == "" {
		return nil, errors.New("RabbitMQ Write Exchange가 설정되지 않았습니다")
	}

	conn, err := amqp091.Dial(opts.URL)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}

	err = ch.ExchangeDeclare(
		opts.Write.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}

	return &Writer{
		conn:     conn,
		channel:  ch,
		exchange: opts.Write.Exchange,
	}, nil
}

func (w *Writer) Publish(ctx context.Context, eventName string, payload []byte) error {
	return w.channel.PublishWithContext(
		ctx,
		w.exchange,
		eventName,
		false,
		false,
		publishing(eventName, payload),
	)
}

func publishing(eventName string, payload []byte) amqp091.Publishing {
	return amqp091.Publishing{
		ContentType: "application/json",
		Body:        payload,
		Timestamp:   time.Now(),
		Type:        eventName,
	}
}

func (w *Writer) Close() error {
	if w.channel != nil {
		_ = w.channel.Close()
	}
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}
