package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/container"
	"github.com/mrnkr/socketscope/internal/event/consumer"
	"github.com/mrnkr/socketscope/internal/middleware"
	"github.com/mrnkr/socketscope/internal/pipeline"
	"github.com/mrnkr/socketscope/internal/ws"
	"github.com/mrnkr/socketscope/pkg/boot"
	"github.com/mrnkr/socketscope/pkg/di"
	pkgws "github.com/mrnkr/socketscope/pkg/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sharedClock struct {
	disposed *atomic.Bool
}

func (c *sharedClock) Dispose() error {
	c.disposed.Store(true)
	return nil
}

func newConfig(t *testing.T, disposed *atomic.Bool) Config {
	t.Helper()

	c := container.New()
	require.NoError(t, c.Register("clock", di.Must(di.AsFunction(func() *sharedClock {
		return &sharedClock{disposed: disposed}
	}, di.AsSingleton()))))

	registry := ws.NewRegistry()
	registry.On("echo", func(conn core.ConnectionContext, args ...any) (any, error) {
		scope, _ := conn.Scope()
		if _, err := scope.Resolve("clock"); err != nil {
			return nil, err
		}
		return args[0], nil
	})

	return Config{
		Container:   c,
		Middlewares: []core.Middleware{middleware.ScopePerConnection(c)},
		WebSocket:   registry,
		Options:     boot.Options{Address: "127.0.0.1:0", WebSocketPath: "/socket"},
	}
}

func TestServer_ServesWebSocketAndDisposesOnShutdown(t *testing.T) {
	var disposed atomic.Bool
	server, err := Build(newConfig(t, &disposed))
	require.NoError(t, err)
	require.NoError(t, server.Start(context.Background()))

	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	resp, err := http.Get(httpServer.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/socket"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	msg, err := pkgws.NewMessage("echo", "hi")
	require.NoError(t, err)
	msg.ID = 1
	require.NoError(t, conn.WriteJSON(msg))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var ack pkgws.Message
	require.NoError(t, conn.ReadJSON(&ack))
	assert.Equal(t, pkgws.AckEvent, ack.Event)
	require.Len(t, ack.Args, 1)
	assert.JSONEq(t, `"hi"`, string(ack.Args[0]))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	require.NoError(t, server.Shutdown(ctx))
	assert.True(t, disposed.Load(), "Shutdown은 singleton을 정리해야 합니다")
}

func TestServer_RunStopsWhenContextEnds(t *testing.T) {
	var disposed atomic.Bool
	server, err := Build(newConfig(t, &disposed))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run이 종료되어야 합니다")
	}
}

func TestBuild_Validation(t *testing.T) {
	_, err := Build(Config{})
	require.Error(t, err, "container 없이 빌드할 수 없습니다")

	handler := func(core.ConnectionContext, ...any) (any, error) { return nil, nil }

	kafkaRegistry := consumer.NewRegistry()
	kafkaRegistry.Register("order.created", handler)
	_, err = Build(Config{Container: container.New(), Kafka: kafkaRegistry})
	require.Error(t, err, "Kafka Read 옵션 없이 컨슈머를 띄울 수 없습니다")

	rabbitRegistry := consumer.NewRegistry()
	rabbitRegistry.Register("order.created", handler)
	_, err = Build(Config{Container: container.New(), RabbitMQ: rabbitRegistry})
	require.Error(t, err)

	server, err := Build(Config{
		Container: container.New(),
		Kafka:     kafkaRegistry,
		Options: boot.Options{Kafka: &boot.KafkaOptions{
			Brokers: []string{"localhost:9092"},
			Read:    &boot.KafkaReadOptions{GroupID: "test"},
			Write:   &boot.KafkaWriteOptions{TopicPrefix: "test."},
		}},
	})
	require.NoError(t, err, "Kafka 런타임 구성은 브로커에 접속하지 않습니다")
	assert.Len(t, server.transports, 2)
	require.NoError(t, server.Shutdown(context.Background()))
}

type brokenFactory struct {
	err error
}

func (f brokenFactory) Build(consumer.Registration) (consumer.Reader, error) {
	return nil, f.err
}

func waitGroupDone(wg *sync.WaitGroup) <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		wg.Wait()
		close(ch)
	}()
	return ch
}

func TestWatchConsumers_ForwardsErrorsAndStopsOnDone(t *testing.T) {
	handler := func(core.ConnectionContext, ...any) (any, error) { return nil, nil }
	registry := consumer.NewRegistry()
	registry.Register("order.created", handler)

	boom := errors.New("broker unreachable")
	failing := consumer.NewRuntime("kafka", registry, brokenFactory{err: boom}, pipeline.NewPipeline(nil), nil, nil)
	idle := consumer.NewRuntime("rabbitmq", consumer.NewRegistry(), brokenFactory{}, pipeline.NewPipeline(nil), nil, nil)
	require.NoError(t, failing.Start(context.Background()))
	require.NoError(t, idle.Start(context.Background()))

	errCh := make(chan error, 2)
	done := make(chan struct{})
	wg := watchConsumers([]*consumer.Runtime{failing, idle}, errCh, done)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, boom)
	case <-time.After(3 * time.Second):
		t.Fatal("컨슈머 에러가 전달되어야 합니다")
	}

	close(done)
	select {
	case <-waitGroupDone(wg):
	case <-time.After(3 * time.Second):
		t.Fatal("done이 닫히면 watcher가 모두 끝나야 합니다")
	}

	require.NoError(t, failing.Stop(context.Background()))
	require.NoError(t, idle.Stop(context.Background()))
}
