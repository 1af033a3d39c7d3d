package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/rabbitmq/amqp091-go"
)

// Reader는 topic exchange에 바인딩된 큐 하나를 소비합니다.
// 큐 이름은 QueuePrefix + topic, routing key는 topic 입니다.
type Reader struct {
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	deliveries <-chan amqp091.Delivery
}

func validateRead(topic string, opts boot.RabbitMqOptions) error {
	if opts.URL == "" {
		return errors.New("RabbitMQ URL이 설정되지 않았습니다")
	}
	if opts.Read == nil {
		return errors.New("RabbitMQ Read 옵션이 설정되지 않았습니다")
	}
	if opts.Read.Exchange == "" {
		return errors.New("RabbitMQ Read Exchange가 비어 있습니다")
	}
	if topic == "" {
		return errors.New("RabbitMQ topic이 비어 있습니다")
	}
	return nil
}

func NewRabbitMqReader(topic string, opts boot.RabbitMqOptions) (*Reader, error) {
	if err := validateRead(topic, opts); err != nil {
		return nil, err
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

	closeAll := func() {
		_ = ch.Close()
		_ = conn.Close()
	}

	if opts.Read.Prefetch > 0 {
		if err := ch.Qos(opts.Read.Prefetch, 0, false); err != nil {
			closeAll()
			return nil, err
		}
	}

	err = ch.ExchangeDeclare(
		opts.Read.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	q, err := ch.QueueDeclare(
		opts.Read.QueuePrefix+topic,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	if err := ch.QueueBind(q.Name, topic, opts.Read.Exchange, false, nil); err != nil {
		closeAll()
		return nil, err
	}

	deliveries, err := ch.Consume(
		q.Name,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		closeAll()
		return nil, err
	}

	return &Reader{
		conn:       conn,
		channel:    ch,
		deliveries: deliveries,
	}, nil
}

func (r *Reader) Read(ctx context.Context) (consumer.Message, error) {
	select {
	case <-ctx.Done():
		return consumer.Message{}, ctx.Err()
	case d, ok := <-r.deliveries:
		if !ok {
			return consumer.Message{}, fmt.Errorf("RabbitMQ delivery 채널: %w", consumer.ErrReaderClosed)
		}
		return toMessage(d), nil
	}
}

// toMessage는 delivery를 컨슈머 메시지로 바꿉니다. 실패한 메시지는 다시 큐에 넣습니다.
func toMessage(d amqp091.Delivery) consumer.Message {
	return consumer.NewMessage(
		d.RoutingKey,
		d.Body,
		func() error { return d.Ack(false) },
		func() error { return d.Nack(false, true) },
	)
}

func (r *Reader) Close() error {
	if r.channel != nil {
		_ = r.channel.Close()
	}
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
