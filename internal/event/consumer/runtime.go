package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mrnkr/socketscope/internal/pipeline"
	"github.com/mrnkr/socketscope/internal/session"
	"go.uber.org/zap"
)

const (
	defaultReadBackoff    = 100 * time.Millisecond
	defaultMaxReadBackoff = 5 * time.Second
)

type runnerFactory interface {
	Build(reg Registration) (Reader, error)
}

// Runtime은 토픽 등록마다 컨슈머 세션 하나를 띄웁니다.
// 세션은 연결 하나처럼 동작합니다. 시작할 때 미들웨어 체인(scope 연결)을 한 번 실행하고,
// 메시지마다 핸들러를 실행하며, 종료할 때 scope를 해제합니다.
type Runtime struct {
	name      string
	registry  *Registry
	factory   runnerFactory
	pipeline  *pipeline.Pipeline
	publisher Publisher
	logger    *zap.Logger

	// 읽기 실패 시 대기 시간. 연속 실패마다 두 배로 늘어나며 maxReadBackoff를 넘지 않습니다.
	readBackoff    time.Duration
	maxReadBackoff time.Duration

	stopOnce sync.Once
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	errChan  chan error
}

func NewRuntime(
	name string,
	registry *Registry,
	factory runnerFactory,
	pipeline *pipeline.Pipeline,
	publisher Publisher,
	logger *zap.Logger,
) *Runtime {
	if registry == nil {
		panic("consumer: 레지스트리는 nil일 수 없습니다")
	}
	if factory == nil {
		panic("consumer: factory는 nil일 수 없습니다")
	}
	if pipeline == nil {
		panic("consumer: pipeline은 nil일 수 없습니다")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Runtime{
		name:      name,
		registry:  registry,
		factory:   factory,
		pipeline:  pipeline,
		publisher: publisher,
		logger:    logger,

		readBackoff:    defaultReadBackoff,
		maxReadBackoff: defaultMaxReadBackoff,

		errChan:   make(chan error, max(1, len(registry.Registrations()))),
	}
}

func (r *Runtime) Name() string {
	return r.name
}

// Errors는 런타임 내부에서 발생한 치명적 에러를 전달받기 위한 채널입니다.
// 채널은 close되지 않으므로, 필요 시 선택적으로 1개 이벤트를 대기하거나
// non-blocking 방식으로 조회하세요.
func (r *Runtime) Errors() <-chan error {
	return r.errChan
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)
	for _, registration := range r.registry.Registrations() {
		r.logger.Info("[Event Consumer] 컨슈머를 시작합니다.",
			zap.String("transport", r.name),
			zap.String("topic", registration.Topic),
		)
		r.wg.Add(1)
		go func(reg Registration) {
			defer r.wg.Done()
			r.run(ctx, reg)
		}(registration)
	}
	return nil
}

func (r *Runtime) run(ctx context.Context, reg Registration) {
	log := r.logger.With(zap.String("transport", r.name), zap.String("topic", reg.Topic))

	reader, err := r.factory.Build(reg)
	if err != nil {
		r.fail(fmt.Errorf("[Event Consumer] 컨슈머 초기화 실패 (topic=%s): %w", reg.Topic, err))
		return
	}
	defer reader.Close()

	sess := session.New(ctx, session.NewID(), r.name, func(event string, args ...any) error {
		return r.publish(ctx, event, args)
	})
	defer func() {
		if err := sess.Release(); err != nil {
			log.Warn("[Event Consumer] scope 해제 실패", zap.Error(err))
		}
	}()

	if err := r.pipeline.Open(sess); err != nil {
		r.fail(fmt.Errorf("[Event Consumer] 세션 미들웨어 실패 (topic=%s): %w", reg.Topic, err))
		return
	}

	backoff := r.readBackoff
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msg, err := reader.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrReaderClosed) {
				r.fail(fmt.Errorf("[Event Consumer] reader 종료 (topic=%s): %w", reg.Topic, err))
				return
			}
			log.Warn("[Event Consumer] 메시지 읽기 실패", zap.Error(err), zap.Duration("backoff", backoff))
			if !sleep(ctx, backoff) {
				return
			}
			backoff = min(backoff*2, r.maxReadBackoff)
			continue
		}
		backoff = r.readBackoff

		args := []any{msg.EventName, json.RawMessage(msg.Payload)}
		if _, err := r.pipeline.Execute(sess, reg.Handler, args); err != nil {
			log.Warn("[Event Consumer] 핸들러 실행 실패", zap.String("event", msg.EventName), zap.Error(err))
			// 핸들러 실패 시 NACK
			if nackErr := msg.Nack(); nackErr != nil {
				log.Warn("[Event Consumer] NACK 실패", zap.Error(nackErr))
			}
			continue
		}

		// 핸들러 성공 시 ACK
		if ackErr := msg.Ack(); ackErr != nil {
			log.Warn("[Event Consumer] ACK 실패", zap.Error(ackErr))
		}
	}
}

// sleep은 d만큼 기다립니다. ctx가 먼저 끝나면 false를 반환합니다.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (r *Runtime) publish(ctx context.Context, event string, args []any) error {
	if r.publisher == nil {
		r.logger.Debug("[Event Consumer] 발행기가 없어 이벤트를 버립니다.", zap.String("event", event))
		return nil
	}
	payload, err := encodeArgs(args)
	if err != nil {
		return err
	}
	return r.publisher.Publish(ctx, event, payload)
}

// fail은 에러를 전파하고 런타임 전체를 중단합니다. 초기화 실패는 치명적입니다.
func (r *Runtime) fail(err error) {
	select {
	case r.errChan <- err:
	default:
		r.logger.Error("에러 채널이 가득 차 전파하지 못했습니다", zap.Error(err))
	}
	r.cancel()
}

func (r *Runtime) Validate() error {
	for _, reg := range r.registry.Registrations() {
		reader, err := r.factory.Build(reg)
		if err != nil {
			return fmt.Errorf("Consumer 초기화 실패 (%s): %w", reg.Topic, err)
		}
		if err := reader.Close(); err != nil {
			return fmt.Errorf("Consumer 종료 실패 (%s): %w", reg.Topic, err)
		}
	}
	return nil
}

// Stop은 모든 컨슈머 세션을 멈추고, 각 세션의 scope 해제와 발행기 종료까지 기다립니다.
func (r *Runtime) Stop(ctx context.Context) error {
	var stopErr error
	r.stopOnce.Do(func() {
		if r.cancel != nil {
			r.cancel() // 모든 goroutine 중지
		}

		done := make(chan struct{})
		go func() {
			r.wg.Wait()
			close(done)
		}()

		select {
		case <-done:
		case <-ctx.Done():
			stopErr = ctx.Err()
			return
		}

		if r.publisher != nil {
			stopErr = r.publisher.Close()
		}
		r.logger.Info("[Event Consumer] 모든 컨슈머를 중지했습니다.", zap.String("transport", r.name))
	})
	return stopErr
}
