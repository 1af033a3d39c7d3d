package socketscope

import (
	"context"
	"net/http"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/bootstrap"
	"github.com/mrnkr/socketscope/internal/container"
	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/internal/middleware"
	"github.com/mrnkr/socketscope/internal/ws"
	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/zap"
)

// WebSocketRegistry는 WebSocket 이벤트 핸들러를 등록합니다.
type WebSocketRegistry interface {
	On(event string, handler core.Handler)
}

// ConsumerRegistry는 브로커 토픽 핸들러를 등록합니다.
// 핸들러는 (conn, eventName string, payload json.RawMessage)로 호출됩니다.
type ConsumerRegistry interface {
	Register(topic string, handler core.Handler)
}

// Server는 Build로 만든 실행 가능한 서버입니다.
type Server interface {
	Handler() http.Handler
	Start(ctx context.Context) error
	Run(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

type App interface {
	// DI 컨테이너
	Container() di.Container
	// 이름으로 Resolver 등록
	Register(name string, resolver *di.Resolver) error
	// 연결 미들웨어 추가 (ScopePerConnection 다음에 실행)
	Use(mws ...core.Middleware)
	// transport별 핸들러 등록
	WebSocket() WebSocketRegistry
	Kafka() ConsumerRegistry
	RabbitMQ() ConsumerRegistry
	// 서버 구성
	Build(opts boot.Options) (Server, error)
	// 실행
	Run(opts boot.Options) error
}

type Option func(*app)

// WithLogger는 컨테이너와 런타임이 사용할 로거를 지정합니다.
// boot.Options.Logger가 지정되면 런타임에는 그쪽이 우선합니다.
func WithLogger(logger *zap.Logger) Option {
	return func(a *app) {
		if logger != nil {
			a.logger = logger
		}
	}
}

type app struct {
	logger      *zap.Logger
	container   *container.Container
	middlewares []core.Middleware
	ws          *ws.Registry
	kafka       *consumer.Registry
	rabbitmq    *consumer.Registry
}

// New는 ScopePerConnection이 첫 번째 연결 미들웨어로 설치된 App을 만듭니다.
func New(opts ...Option) App {
	a := &app{
		logger:   zap.NewNop(),
		ws:       ws.NewRegistry(),
		kafka:    consumer.NewRegistry(),
		rabbitmq: consumer.NewRegistry(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.container = container.New(container.WithLogger(a.logger))
	a.middlewares = []core.Middleware{middleware.ScopePerConnection(a.container)}
	return a
}

func (a *app) Container() di.Container {
	return a.container
}

func (a *app) Register(name string, resolver *di.Resolver) error {
	return a.container.Register(name, resolver)
}

func (a *app) Use(mws ...core.Middleware) {
	a.middlewares = append(a.middlewares, mws...)
}

func (a *app) WebSocket() WebSocketRegistry {
	return a.ws
}

func (a *app) Kafka() ConsumerRegistry {
	return a.kafka
}

func (a *app) RabbitMQ() ConsumerRegistry {
	return a.rabbitmq
}

func (a *app) config(opts boot.Options) bootstrap.Config {
	if opts.Logger == nil {
		opts.Logger = a.logger
	}
	return bootstrap.Config{
		Container:   a.container,
		Middlewares: a.middlewares,
		WebSocket:   a.ws,
		Kafka:       a.kafka,
		RabbitMQ:    a.rabbitmq,
		Options:     opts,
	}
}

func (a *app) Build(opts boot.Options) (Server, error) {
	server, err := bootstrap.Build(a.config(opts))
	if err != nil {
		return nil, err
	}
	return server, nil
}

func (a *app) Run(opts boot.Options) error {
	return bootstrap.Run(a.config(opts))
}
