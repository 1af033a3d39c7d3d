package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/container"
	"github.com/mrnkr/socketscope/internal/middleware"
	"github.com/mrnkr/socketscope/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConn(ctx context.Context) *session.Session {
	return session.New(ctx, session.NewID(), "test", nil)
}

func TestPipeline_OpenRunsMiddlewaresInOrder(t *testing.T) {
	p := NewPipeline(nil)

	var order []string
	p.AddMiddleware(
		middleware.ScopePerConnection(container.New()),
		func(conn core.ConnectionContext, next core.Next) (any, error) {
			_, ok := conn.Scope()
			assert.True(t, ok, "scope 미들웨어 뒤에서는 scope가 있어야 합니다")
			order = append(order, "second")
			return next()
		},
	)

	conn := newConn(context.Background())
	require.NoError(t, p.Open(conn))
	assert.Equal(t, []string{"second"}, order)
}

func TestPipeline_OpenAbortsWhenNextNotCalled(t *testing.T) {
	p := NewPipeline(nil)
	p.AddMiddleware(func(core.ConnectionContext, core.Next) (any, error) {
		return nil, nil
	})

	require.ErrorIs(t, p.Open(newConn(context.Background())), ErrAborted)
}

func TestPipeline_OpenPropagatesMiddlewareError(t *testing.T) {
	boom := errors.New("unauthorized")
	p := NewPipeline(nil)
	p.AddMiddleware(func(core.ConnectionContext, core.Next) (any, error) {
		return nil, boom
	})

	require.ErrorIs(t, p.Open(newConn(context.Background())), boom)
}

func TestPipeline_AddMiddlewarePanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { NewPipeline(nil).AddMiddleware(nil) })
}

func TestPipeline_ExecuteAwaitsDeferredResult(t *testing.T) {
	p := NewPipeline(nil)
	handler := func(conn core.ConnectionContext, args ...any) (any, error) {
		return core.Async(func() (any, error) {
			return args[0], nil
		}), nil
	}

	out, err := p.Execute(newConn(context.Background()), handler, []any{"late"})
	require.NoError(t, err)
	assert.Equal(t, "late", out)
}

func TestPipeline_InvokeDoesNotAwait(t *testing.T) {
	p := NewPipeline(nil)
	future := core.Async(func() (any, error) { return 1, nil })

	out, err := p.Invoke(newConn(context.Background()), func(core.ConnectionContext, ...any) (any, error) {
		return future, nil
	}, nil)
	require.NoError(t, err)
	assert.Same(t, future, out)
}

func TestPipeline_ExecuteRecoversPanic(t *testing.T) {
	p := NewPipeline(nil)
	_, err := p.Execute(newConn(context.Background()), func(core.ConnectionContext, ...any) (any, error) {
		panic("kaboom")
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")
}

func TestAwait_StopsWhenConnectionContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	conn := newConn(ctx)

	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	never := core.Async(func() (any, error) {
		<-block
		return nil, nil
	})
	cancel()

	_, err := Await(conn, never)
	require.ErrorIs(t, err, context.Canceled)
}

func TestPipeline_ExecuteTreatsNilFutureAsNoResult(t *testing.T) {
	p := NewPipeline(nil)
	out, err := p.Execute(newConn(context.Background()), func(core.ConnectionContext, ...any) (any, error) {
		return (*core.Future)(nil), nil
	}, nil)
	require.NoError(t, err)
	assert.Nil(t, out)
}

type panickyAwaitable struct{}

func (panickyAwaitable) Await(context.Context) (any, error) {
	panic("await failed")
}

func TestPipeline_ExecuteReportsDeferredPanic(t *testing.T) {
	p := NewPipeline(nil)
	conn := newConn(context.Background())

	_, err := p.Execute(conn, func(core.ConnectionContext, ...any) (any, error) {
		return core.Async(func() (any, error) { panic("boom") }), nil
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")

	_, err = Await(conn, panickyAwaitable{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "await failed")
}
