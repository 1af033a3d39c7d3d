package kafka

import (
	"context"
	"errors"
	"sync"

	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/segmentio/kafka-go"
)

// EventHeader는 Writer가 원래 이벤트 이름을 담는 헤더입니다.
// 헤더가 없는 메시지는 토픽 이름을 이벤트 이름으로 씁니다.
const EventHeader = "event"

// fetcher는 Reader가 쓰는 kafka.Reader의 일부입니다.
type fetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Reader는 consumer group 하나로 topic을 읽습니다.
//
// offset은 Ack에서만 커밋합니다. Kafka에는 메시지 단위 NACK가 없고, 뒤 메시지를 커밋하면
// 앞 메시지도 커밋된 것으로 취급되므로 Nack된 partition은 그 뒤로 커밋하지 않습니다.
// 다음 Read는 group reader를 다시 열어 마지막 커밋 위치부터 읽으므로 Nack된 메시지가
// 다시 배달됩니다.
type Reader struct {
	open func() fetcher

	mu      sync.Mutex
	current fetcher
	// nacked는 Nack된 partition과 그 offset입니다. 비어 있지 않으면 다음 Read에서 다시 엽니다.
	nacked map[int]int64
}

func validateRead(topic string, opts boot.KafkaOptions) error {
	switch {
	case len(opts.Brokers) == 0:
		return errors.New("Kafka Brokers가 설정되지 않았습니다")
	case opts.Read == nil:
		return errors.New("Kafka Read 옵션이 설정되지 않았습니다")
	case opts.Read.GroupID == "":
		return errors.New("Kafka Read GroupID가 비어 있습니다")
	case topic == "":
		return errors.New("Kafka topic이 비어 있습니다")
	}
	return nil
}

func NewKafkaReader(topic string, opts boot.KafkaOptions) (*Reader, error) {
	if err := validateRead(topic, opts); err != nil {
		return nil, err
	}

	config := kafka.ReaderConfig{
		Brokers: opts.Brokers,
		Topic:   topic,
		GroupID: opts.Read.GroupID,
	}
	return newReader(func() fetcher {
		return kafka.NewReader(config)
	}), nil
}

func newReader(open func() fetcher) *Reader {
	return &Reader{
		open:    open,
		current: open(),
		nacked:  make(map[int]int64),
	}
}

func (r *Reader) Read(ctx context.Context) (consumer.Message, error) {
	f, err := r.fetcher()
	if err != nil {
		return consumer.Message{}, err
	}

	m, err := f.FetchMessage(ctx)
	if err != nil {
		return consumer.Message{}, err
	}

	return consumer.NewMessage(
		eventName(m),
		m.Value,
		func() error { return r.ack(f, m) },
		func() error { return r.nack(m) },
	), nil
}

// fetcher는 Nack된 partition이 있으면 group reader를 다시 열어 돌려줍니다.
func (r *Reader) fetcher() (fetcher, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.nacked) == 0 {
		return r.current, nil
	}

	err := r.current.Close()
	r.current = r.open()
	clear(r.nacked)
	return r.current, err
}

func (r *Reader) ack(f fetcher, m kafka.Message) error {
	r.mu.Lock()
	if offset, ok := r.nacked[m.Partition]; ok && offset < m.Offset {
		r.mu.Unlock()
		return nil
	}
	r.mu.Unlock()

	return f.CommitMessages(context.Background(), m)
}

func (r *Reader) nack(m kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if offset, ok := r.nacked[m.Partition]; !ok || m.Offset < offset {
		r.nacked[m.Partition] = m.Offset
	}
	return nil
}

func eventName(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == EventHeader && len(h.Value) > 0 {
			return string(h.Value)
		}
	}
	return m.Topic
}

func (r *Reader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current.Close()
}
