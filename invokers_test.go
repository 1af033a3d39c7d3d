package socketscope

import (
	"context"
	"reflect"
	"testing"

	"github.com/mrnkr/socketscope/core"
	"github.com/mrnkr/socketscope/internal/session"
	"github.com/mrnkr/socketscope/pkg/di"
	"github.com/mrnkr/socketscope/pkg/invokeerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paramEcho struct {
	param int
}

func (p *paramEcho) Method(conn core.ConnectionContext, extra string) []any {
	return []any{conn, p.param, extra}
}

type chatHandler struct{}

func (h *chatHandler) Send(conn core.ConnectionContext, text string) string {
	return text
}

func newTestConn(t *testing.T, c di.Container) *session.Session {
	t.Helper()
	conn := session.New(context.Background(), session.NewID(), "test", nil)
	_, err := ScopePerConnection(c)(conn, func() (any, error) { return nil, nil })
	require.NoError(t, err)
	return conn
}

func TestClassify_StableForClassAndFunction(t *testing.T) {
	factory := func() *chatHandler { return &chatHandler{} }

	for range 3 {
		assert.Equal(t, di.KindClass, di.Classify((*chatHandler)(nil)))
		assert.Equal(t, di.KindClass, di.Classify(reflect.TypeFor[chatHandler]()))
		assert.Equal(t, di.KindFunction, di.Classify(factory))
	}
}

func TestEndToEnd_ParamValueAndFactoryTwice(t *testing.T) {
	c := NewContainer(nil)
	require.NoError(t, c.Register("param", di.AsValue(42)))

	constructed := 0
	resolver := di.Must(di.AsFunction(func(cradle di.Cradle) *paramEcho {
		constructed++
		return &paramEcho{param: di.MustGet[int](cradle, "param")}
	}))

	handler, err := MakeResolverInvoker(resolver).Method("Method")
	require.NoError(t, err)

	conn := newTestConn(t, c)
	_, attached := conn.Scope()
	require.True(t, attached)

	for range 2 {
		out, err := handler(conn, "hello")
		require.NoError(t, err)
		assert.Equal(t, []any{core.ConnectionContext(conn), 42, "hello"}, out)
	}
	assert.Equal(t, 2, constructed)
}

func TestMakeInvoker_ClassAndFunctionShapes(t *testing.T) {
	c := NewContainer(nil)
	conn := newTestConn(t, c)

	byClass, err := MakeClassInvoker((*chatHandler)(nil))
	require.NoError(t, err)
	byFunction, err := MakeFunctionInvoker(func() *chatHandler { return &chatHandler{} })
	require.NoError(t, err)
	byAuto, err := MakeInvoker((*chatHandler)(nil), di.AsScoped())
	require.NoError(t, err)

	for _, inv := range []*Invoker{byClass, byFunction, byAuto} {
		out, err := inv.MustMethod("Send")(conn, "hi")
		require.NoError(t, err)
		assert.Equal(t, "hi", out)
	}

	_, err = MakeClassInvoker(func() {})
	require.Error(t, err)
}

func TestFailures_MissingScopeAndInvalidMethod(t *testing.T) {
	inv, err := MakeFunctionInvoker(func() *chatHandler { return &chatHandler{} })
	require.NoError(t, err)

	bare := session.New(context.Background(), "bare", "test", nil)
	_, err = inv.MustMethod("Send")(bare, "x")
	assert.True(t, invokeerr.IsMissingScope(err))

	_, err = inv.Method("")
	assert.True(t, invokeerr.IsInvalidMethod(err))
}

type guard struct{}

func (g *guard) Check(conn core.ConnectionContext, next core.Next) (any, error) {
	conn.Set("checked-by", conn.ConnID())
	return next()
}

func TestAdaptToMiddleware_ReceiverAndConnection(t *testing.T) {
	c := NewContainer(nil)
	conn := newTestConn(t, c)

	inv, err := MakeClassInvoker((*guard)(nil))
	require.NoError(t, err)

	out, err := AdaptToMiddleware(inv.MustMethod("Check"))(conn, func() (any, error) { return "next", nil })
	require.NoError(t, err)
	assert.Equal(t, "next", out)

	v, ok := conn.Get("checked-by")
	require.True(t, ok)
	assert.Equal(t, conn.ConnID(), v)
}

func TestInject_DirectCall(t *testing.T) {
	c := NewContainer(nil)
	require.NoError(t, c.Register("greeting", di.AsValue("hello")))

	h, err := Inject(func(cradle di.Cradle) core.Handler {
		greeting := di.MustGet[string](cradle, "greeting")
		return func(conn core.ConnectionContext, args ...any) (any, error) {
			return greeting + " " + args[0].(string), nil
		}
	})
	require.NoError(t, err)

	out, err := h(newTestConn(t, c), "world")
	require.NoError(t, err)
	assert.Equal(t, "hello world", out)
}

func TestMustInject_PanicsOnNonCallable(t *testing.T) {
	assert.Panics(t, func() { MustInject(func() int { return 1 }) })

	h := MustInject(func() func(core.ConnectionContext, int) int {
		return func(_ core.ConnectionContext, n int) int { return n + 1 }
	})
	out, err := h(newTestConn(t, NewContainer(nil)), 41)
	require.NoError(t, err)
	assert.Equal(t, 42, out)
}
