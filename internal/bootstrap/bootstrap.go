package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/mrnkr/socketscope/core"
	httpEngine "github.com/mrnkr/socketscope/internal/adapter/echo"
	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/internal/event/infra/kafka"
	"github.com/mrnkr/socketscope/internal/event/infra/rabbitmq"
	"github.com/mrnkr/socketscope/internal/pipeline"
	"github.com/mrnkr/socketscope/internal/ws"
	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const defaultShutdownTimeout = 10 * time.Second

type Config struct {
	Container   di.Container
	Middlewares []core.Middleware
	WebSocket   *ws.Registry
	Kafka       *consumer.Registry
	RabbitMQ    *consumer.Registry
	Options     boot.Options
}

// Server는 HTTP(Echo) 서버와 모든 transport 런타임을 소유합니다.
type Server struct {
	echo       *echo.Echo
	container  di.Container
	ws         *ws.Runtime
	transports []core.Transport
	consumers  []*consumer.Runtime
	opts       boot.Options
	logger     *zap.Logger
}

func Build(config Config) (*Server, error) {
	if config.Container == nil {
		return nil, errors.New("bootstrap: container가 설정되지 않았습니다")
	}

	logger := config.Options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	registry := config.WebSocket
	if registry == nil {
		registry = ws.NewRegistry()
	}

	// 모든 transport가 같은 연결 미들웨어 체인을 공유합니다.
	p := pipeline.NewPipeline(logger)
	p.AddMiddleware(config.Middlewares...)

	wsRuntime := ws.NewRuntime(registry, p, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	httpEngine.NewAdapter(wsRuntime, config.Options.Path()).Mount(e)

	s := &Server{
		echo:       e,
		container:  config.Container,
		ws:         wsRuntime,
		transports: []core.Transport{wsRuntime},
		opts:       config.Options,
		logger:     logger,
	}

	if hasRegistrations(config.Kafka) {
		rt, err := buildKafka(config.Kafka, config.Options.Kafka, p, logger)
		if err != nil {
			return nil, err
		}
		s.addConsumer(rt)
	}

	if hasRegistrations(config.RabbitMQ) {
		rt, err := buildRabbitMQ(config.RabbitMQ, config.Options.RabbitMQ, p, logger)
		if err != nil {
			_ = s.stopConsumers(context.Background())
			return nil, err
		}
		s.addConsumer(rt)
	}

	return s, nil
}

func hasRegistrations(r *consumer.Registry) bool {
	return r != nil && len(r.Registrations()) > 0
}

func buildKafka(registry *consumer.Registry, opts *boot.KafkaOptions, p *pipeline.Pipeline, logger *zap.Logger) (*consumer.Runtime, error) {
	if opts == nil || opts.Read == nil {
		return nil, errors.New("Kafka 컨슈머가 등록되었지만 Kafka Read 옵션이 없습니다")
	}

	var publisher consumer.Publisher
	if opts.Write != nil {
		w, err := kafka.NewKafkaWriter(*opts)
		if err != nil {
			return nil, fmt.Errorf("Kafka 발행기 초기화 실패: %w", err)
		}
		publisher = w
	}

	return consumer.NewRuntime("kafka", registry, kafka.NewRunnerFactory(*opts), p, publisher, logger), nil
}

func buildRabbitMQ(registry *consumer.Registry, opts *boot.RabbitMqOptions, p *pipeline.Pipeline, logger *zap.Logger) (*consumer.Runtime, error) {
	if opts == nil || opts.Read == nil {
		return nil, errors.New("RabbitMQ 컨슈머가 등록되었지만 RabbitMQ Read 옵션이 없습니다")
	}

	var publisher consumer.Publisher
	if opts.Write != nil {
		w, err := rabbitmq.NewRabbitMqWriter(*opts)
		if err != nil {
			return nil, fmt.Errorf("RabbitMQ 발행기 초기화 실패: %w", err)
		}
		publisher = w
	}

	return consumer.NewRuntime("rabbitmq", registry, rabbitmq.NewRunnerFactory(*opts), p, publisher, logger), nil
}

func (s *Server) addConsumer(rt *consumer.Runtime) {
	s.consumers = append(s.consumers, rt)
	s.transports = append(s.transports, rt)
}

func (s *Server) stopConsumers(ctx context.Context) error {
	var err error
	for _, rt := range s.consumers {
		err = multierr.Append(err, rt.Stop(ctx))
	}
	return err
}

// Handler는 WebSocket 엔드포인트와 /healthz가 연결된 HTTP 핸들러입니다.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start는 모든 transport 런타임을 시작합니다. HTTP 리스너는 열지 않습니다.
func (s *Server) Start(ctx context.Context) error {
	for _, t := range s.transports {
		if err := t.Start(ctx); err != nil {
			return fmt.Errorf("%s 런타임 시작 실패: %w", t.Name(), err)
		}
	}
	return nil
}

// Run은 transport를 시작하고 HTTP 서버를 띄운 뒤, ctx가 끝나거나
// 치명적 에러가 발생하면 Shutdown합니다.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return multierr.Append(err, s.Shutdown(context.Background()))
	}

	errCh := make(chan error, 1+len(s.consumers))
	done := make(chan struct{})
	defer close(done)

	go func() {
		s.logger.Info("HTTP 서버 시작", zap.String("address", s.opts.Address))
		if err := s.echo.Start(s.opts.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	watchConsumers(s.consumers, errCh, done)

	var runErr error
	select {
	case <-ctx.Done():
		s.logger.Info("종료 신호 수신")
	case runErr = <-errCh:
		s.logger.Error("치명적 에러로 서버를 종료합니다", zap.Error(runErr))
	}

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return multierr.Append(runErr, s.Shutdown(shutdownCtx))
}

// watchConsumers는 컨슈머 런타임의 치명적 에러를 errCh로 모읍니다.
// errCh는 런타임 수만큼 버퍼가 있어야 하며, watcher는 done이 닫히면 끝납니다.
func watchConsumers(runtimes []*consumer.Runtime, errCh chan<- error, done <-chan struct{}) *sync.WaitGroup {
	var wg sync.WaitGroup
	for _, rt := range runtimes {
		wg.Add(1)
		go func(rt *consumer.Runtime) {
			defer wg.Done()
			select {
			case err := <-rt.Errors():
				errCh <- err
			case <-done:
			}
		}(rt)
	}
	return &wg
}

// Shutdown은 transport를 역순으로 멈추고 HTTP 서버를 닫은 뒤 container의 Singleton을 정리합니다.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	for i := len(s.transports) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.transports[i].Stop(ctx))
	}
	err = multierr.Append(err, s.echo.Shutdown(ctx))
	err = multierr.Append(err, s.container.Dispose())

	s.logger.Info("서버를 종료했습니다", zap.Error(err))
	return err
}

// Run은 서버를 만들고 실행합니다.
// EnableGracefulShutdown이면 SIGINT/SIGTERM 수신 시 정상 종료합니다.
func Run(config Config) error {
	server, err := Build(config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if config.Options.EnableGracefulShutdown {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
		defer stop()
	}

	return server.Run(ctx)
}
