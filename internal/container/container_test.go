package container

import (
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/mrnkr/socketscope/pkg/di"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testRepo struct {
	id int
}

type testService struct {
	repo *testRepo
}

type testHandler struct {
	svc *testService
}

type testIface interface {
	Name() string
}

type testImpl struct{}

func (t *testImpl) Name() string { return "impl" }

type cycleA struct {
	b *cycleB
}

type cycleB struct {
	a *cycleA
}

type disposable struct {
	id       int
	disposed *[]int
	err      error
}

func (d *disposable) Dispose() error {
	*d.disposed = append(*d.disposed, d.id)
	return d.err
}

func mustRegister(t *testing.T, c *Container, name string, target any, opts ...di.Option) {
	t.Helper()
	r, err := di.Auto(target, opts...)
	require.NoError(t, err)
	require.NoError(t, c.Register(name, r))
}

func TestRegister_Validation(t *testing.T) {
	c := New()

	require.Error(t, c.Register("", di.AsValue(1)), "빈 이름은 거부되어야 합니다")
	require.Error(t, c.Register("x", nil), "nil Resolver는 거부되어야 합니다")
	require.NoError(t, c.Register("x", di.AsValue(1)))
	require.Error(t, c.Register("x", di.AsValue(2)), "중복 등록은 거부되어야 합니다")
}

func TestResolve_ResolvesDependenciesByTypeAndCachesSingleton(t *testing.T) {
	c := New()

	repoCalls := 0
	svcCalls := 0
	handlerCalls := 0

	mustRegister(t, c, "repo", func() *testRepo {
		repoCalls++
		return &testRepo{}
	}, di.AsSingleton())
	mustRegister(t, c, "service", func(r *testRepo) *testService {
		svcCalls++
		return &testService{repo: r}
	}, di.AsSingleton())
	mustRegister(t, c, "handler", func(s *testService) *testHandler {
		handlerCalls++
		return &testHandler{svc: s}
	}, di.AsSingleton())

	first, err := c.Resolve("handler")
	require.NoError(t, err)
	second, err := c.CreateScope().Resolve("handler")
	require.NoError(t, err)

	assert.Same(t, first, second, "캐시된 싱글톤 인스턴스가 반환되어야 합니다")
	assert.Equal(t, 1, repoCalls)
	assert.Equal(t, 1, svcCalls)
	assert.Equal(t, 1, handlerCalls)
	assert.NotNil(t, first.(*testHandler).svc.repo)
}

func TestResolve_InterfaceAssignableConstructor(t *testing.T) {
	c := New()
	mustRegister(t, c, "impl", func() *testImpl { return &testImpl{} })
	mustRegister(t, c, "user", func(i testIface) string { return i.Name() })

	v, err := c.Resolve("user")
	require.NoError(t, err)
	assert.Equal(t, "impl", v)
}

func TestResolve_AmbiguousType(t *testing.T) {
	c := New()
	mustRegister(t, c, "a", func() *testImpl { return &testImpl{} })
	mustRegister(t, c, "b", func() *testImpl { return &testImpl{} })
	mustRegister(t, c, "user", func(i *testImpl) int { return 0 })

	_, err := c.Resolve("user")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "여러 개")
}

func TestResolve_NoConstructor(t *testing.T) {
	c := New()
	_, err := c.Resolve("missing")
	require.Error(t, err)
	assert.True(t, di.IsResolutionError(err))
	assert.Contains(t, err.Error(), "등록된 생성자가 없습니다")

	mustRegister(t, c, "needsRepo", func(r *testRepo) int { return 0 })
	_, err = c.Resolve("needsRepo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "등록된 생성자가 없습니다")
}

func TestResolve_CycleDetection(t *testing.T) {
	c := New()
	mustRegister(t, c, "a", func(b *cycleB) *cycleA { return &cycleA{b: b} })
	mustRegister(t, c, "b", func(a *cycleA) *cycleB { return &cycleB{a: a} })

	_, err := c.Resolve("a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "순환 의존성 감지")

	var resErr *di.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, []string{"a", "b", "a"}, resErr.Path)
}

func TestResolve_LifetimesAcrossScopes(t *testing.T) {
	c := New()

	var transient, scoped atomic.Int32
	mustRegister(t, c, "transient", func() *testRepo {
		transient.Add(1)
		return &testRepo{}
	})
	mustRegister(t, c, "scoped", func() *testService {
		scoped.Add(1)
		return &testService{}
	}, di.AsScoped())

	s1 := c.CreateScope()
	s2 := c.CreateScope()

	t1, _ := s1.Resolve("transient")
	t2, _ := s1.Resolve("transient")
	assert.NotSame(t, t1, t2, "transient는 매번 새 인스턴스여야 합니다")

	a1, _ := s1.Resolve("scoped")
	a2, _ := s1.Resolve("scoped")
	b1, _ := s2.Resolve("scoped")
	assert.Same(t, a1, a2, "같은 scope에서는 같은 인스턴스여야 합니다")
	assert.NotSame(t, a1, b1, "다른 scope에서는 다른 인스턴스여야 합니다")

	assert.EqualValues(t, 2, transient.Load())
	assert.EqualValues(t, 2, scoped.Load())
}

func TestBuild_AlwaysFreshButReusesScopedDependencies(t *testing.T) {
	c := New()
	mustRegister(t, c, "service", func() *testService { return &testService{} }, di.AsScoped())

	r := di.Must(di.AsFunction(func(s *testService) *testHandler {
		return &testHandler{svc: s}
	}, di.AsScoped()))

	scope := c.CreateScope()
	h1, err := scope.Build(r)
	require.NoError(t, err)
	h2, err := scope.Build(r)
	require.NoError(t, err)

	assert.NotSame(t, h1, h2, "최상위 Build는 항상 새 인스턴스여야 합니다")
	assert.Same(t, h1.(*testHandler).svc, h2.(*testHandler).svc, "scoped 의존성은 재사용되어야 합니다")
}

type injected struct {
	Param   int       `inject:"param"`
	Service testIface `inject:""`
	inits   int
}

func (i *injected) Init() error {
	i.inits++
	return nil
}

func TestBuild_ClassFieldInjection(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("param", di.AsValue(42)))
	mustRegister(t, c, "impl", func() *testImpl { return &testImpl{} })

	v, err := c.Build(di.Must(di.AsClass((*injected)(nil))))
	require.NoError(t, err)

	inst := v.(*injected)
	assert.Equal(t, 42, inst.Param)
	assert.Equal(t, "impl", inst.Service.Name())
	assert.Equal(t, 1, inst.inits)
}

func TestBuild_FactoryErrorWrapped(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	mustRegister(t, c, "broken", func() (*testRepo, error) { return nil, boom })

	_, err := c.CreateScope().Build(di.Must(di.AsFunction(func(r *testRepo) int { return 1 })))
	require.ErrorIs(t, err, boom)
	assert.True(t, di.IsResolutionError(err))
}

func TestRelease_DisposesScopedInReverseOrder(t *testing.T) {
	c := New()
	var disposed []int

	mustRegister(t, c, "first", func() *disposable {
		return &disposable{id: 1, disposed: &disposed}
	}, di.AsScoped())
	mustRegister(t, c, "second", func(c di.Cradle) testIface {
		_, _ = c.Resolve("first")
		return &testImpl{}
	}, di.AsScoped())
	mustRegister(t, c, "third", func() (di.Disposer, error) {
		return &disposable{id: 3, disposed: &disposed, err: errors.New("close 실패")}, nil
	}, di.AsScoped())
	mustRegister(t, c, "transient", func() *cycleA { return &cycleA{} })

	scope := c.CreateScope()
	_, err := scope.Resolve("second")
	require.NoError(t, err)
	_, err = scope.Resolve("third")
	require.NoError(t, err)

	err = scope.Release()
	require.Error(t, err, "Dispose 에러는 전파되어야 합니다")
	assert.Equal(t, []int{3, 1}, disposed)

	_, err = scope.Resolve("transient")
	require.ErrorIs(t, err, di.ErrScopeReleased)
	_, err = scope.Build(di.AsValue(1))
	require.ErrorIs(t, err, di.ErrScopeReleased)

	require.NoError(t, scope.Release(), "두 번째 Release는 no-op이어야 합니다")
	assert.Len(t, disposed, 2)
}

func TestDispose_ReleasesSingletons(t *testing.T) {
	c := New()
	var disposed []int
	mustRegister(t, c, "single", func() *disposable {
		return &disposable{id: 9, disposed: &disposed}
	}, di.AsSingleton())

	_, err := c.CreateScope().Resolve("single")
	require.NoError(t, err)

	require.NoError(t, c.Dispose())
	assert.Equal(t, []int{9}, disposed)
}

func TestResolve_ConcurrentScopedCreatesOnce(t *testing.T) {
	c := New()
	var calls atomic.Int32
	mustRegister(t, c, "scoped", func() *testRepo {
		calls.Add(1)
		return &testRepo{}
	}, di.AsScoped())

	scope := c.CreateScope()
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = scope.Resolve("scoped")
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
}

func TestRegistrations_PreservesOrder(t *testing.T) {
	c := New()
	require.NoError(t, c.Register("param", di.AsValue(42)))
	mustRegister(t, c, "handler", (*injected)(nil), di.AsScoped())

	regs := c.Registrations()
	require.Len(t, regs, 2)
	assert.Equal(t, "param", regs[0].Name)
	assert.Equal(t, di.KindValue, regs[0].Kind)
	assert.Equal(t, "handler", regs[1].Name)
	assert.Equal(t, di.KindClass, regs[1].Kind)
	assert.Equal(t, di.Scoped, regs[1].Lifetime)
	assert.Equal(t, reflect.TypeFor[*injected](), regs[1].Type)
}

func TestRelease_CascadesToLiveChildScopes(t *testing.T) {
	c := New()

	var disposed []int
	var next atomic.Int32
	mustRegister(t, c, "conn", func() *disposable {
		return &disposable{id: int(next.Add(1)), disposed: &disposed}
	}, di.AsScoped())

	parent := c.CreateScope()
	child := parent.CreateScope()
	released := parent.CreateScope()

	_, err := parent.Resolve("conn")
	require.NoError(t, err)
	_, err = child.Resolve("conn")
	require.NoError(t, err)
	_, err = released.Resolve("conn")
	require.NoError(t, err)
	require.NoError(t, released.Release())
	assert.Equal(t, []int{3}, disposed)

	require.NoError(t, parent.Release())

	_, err = child.Resolve("conn")
	require.ErrorIs(t, err, di.ErrScopeReleased, "부모가 해제되면 자식도 해제되어야 합니다")
	assert.Equal(t, []int{3, 2, 1}, disposed, "자식을 먼저 정리하고 이미 해제된 자식은 다시 정리하지 않아야 합니다")
}
