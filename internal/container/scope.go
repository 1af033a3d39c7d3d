package container

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// slot은 Scope 안에서 이름 하나의 캐시 자리입니다.
// 같은 이름의 동시 생성은 slot 잠금으로 직렬화됩니다.
type slot struct {
	mu    sync.Mutex
	done  bool
	value any
}

type created struct {
	name     string
	instance di.Disposer
}

// Scope는 Container에 묶인 자식 해석 컨텍스트입니다.
type Scope struct {
	container *Container
	parent    *Scope

	mu       sync.Mutex
	slots    map[string]*slot
	created  []created
	children map[*Scope]struct{}
	released bool
}

func newScope(c *Container, parent *Scope) *Scope {
	s := &Scope{
		container: c,
		parent:    parent,
		slots:     make(map[string]*slot),
		children:  make(map[*Scope]struct{}),
	}
	if parent != nil {
		parent.mu.Lock()
		if !parent.released {
			parent.children[s] = struct{}{}
		}
		parent.mu.Unlock()
	}
	return s
}

// CreateScope는 자식 Scope를 만듭니다. 부모가 해제되면 아직 살아 있는 자식도 함께 해제됩니다.
func (s *Scope) CreateScope() di.Scope {
	return newScope(s.container, s)
}

func (s *Scope) detach(child *Scope) {
	s.mu.Lock()
	delete(s.children, child)
	s.mu.Unlock()
}

func (s *Scope) Resolve(name string) (any, error) {
	return s.resolve(name, nil)
}

func (s *Scope) Has(name string) bool {
	return s.container.Has(name)
}

// Build는 등록 여부와 관계없이 r의 최상위 인스턴스를 항상 새로 만듭니다.
func (s *Scope) Build(r *di.Resolver) (any, error) {
	if r == nil {
		return nil, &di.ResolutionError{Message: "Resolver가 nil입니다"}
	}
	if s.isReleased() {
		return nil, di.ErrScopeReleased
	}
	return s.construct("", r, nil)
}

// Release는 남아 있는 자식 Scope를 먼저 해제한 뒤, 이 Scope가 캐시한 Disposer를
// 생성 역순으로 정리합니다. 두 번째 호출부터는 아무것도 하지 않습니다.
func (s *Scope) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil
	}
	s.released = true
	toDispose := s.created
	s.created = nil
	s.slots = make(map[string]*slot)
	children := s.children
	s.children = make(map[*Scope]struct{})
	s.mu.Unlock()

	if s.parent != nil {
		s.parent.detach(s)
	}

	var err error
	for child := range children {
		err = multierr.Append(err, child.Release())
	}
	for i := len(toDispose) - 1; i >= 0; i-- {
		c := toDispose[i]
		if disposeErr := c.instance.Dispose(); disposeErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s Dispose 실패: %w", c.name, disposeErr))
		}
	}

	if len(toDispose) > 0 {
		s.container.logger.Debug("[Container] Scope 해제",
			zap.Int("disposed", len(toDispose)),
			zap.Error(err),
		)
	}
	return err
}

func (s *Scope) isReleased() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func (s *Scope) resolve(name string, path []string) (any, error) {
	if s.isReleased() {
		return nil, di.ErrScopeReleased
	}

	if slices.Contains(path, name) {
		return nil, &di.ResolutionError{
			Name:    name,
			Path:    appendPath(path, name),
			Message: "순환 의존성 감지",
		}
	}

	e, ok := s.container.lookup(name)
	if !ok {
		return nil, &di.ResolutionError{
			Name:    name,
			Path:    appendPath(path, name),
			Message: "등록된 생성자가 없습니다",
		}
	}

	path = appendPath(path, name)

	if e.resolver.Kind() == di.KindValue {
		return e.resolver.Construct(nil)
	}

	switch e.resolver.Lifetime() {
	case di.Singleton:
		return s.container.root.cached(name, e.resolver, path)
	case di.Scoped:
		return s.cached(name, e.resolver, path)
	default:
		return s.construct(name, e.resolver, path)
	}
}

func (s *Scope) cached(name string, r *di.Resolver, path []string) (any, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, di.ErrScopeReleased
	}
	sl, ok := s.slots[name]
	if !ok {
		sl = &slot{}
		s.slots[name] = sl
	}
	s.mu.Unlock()

	sl.mu.Lock()
	defer sl.mu.Unlock()

	if sl.done {
		return sl.value, nil
	}

	instance, err := s.construct(name, r, path)
	if err != nil {
		return nil, err
	}
	sl.value = instance
	sl.done = true

	if disposer, ok := instance.(di.Disposer); ok {
		s.mu.Lock()
		s.created = append(s.created, created{name: name, instance: disposer})
		s.mu.Unlock()
	}
	return instance, nil
}

func (s *Scope) construct(name string, r *di.Resolver, path []string) (any, error) {
	instance, err := r.Construct(&cradle{scope: s, path: path})
	if err != nil {
		if di.IsResolutionError(err) {
			return nil, err
		}
		return nil, &di.ResolutionError{
			Name:    name,
			Path:    path,
			Message: "생성자 호출 실패",
			Cause:   err,
		}
	}
	return instance, nil
}

func (s *Scope) resolveType(t reflect.Type, path []string) (any, error) {
	names := s.container.namesFor(t)
	switch len(names) {
	case 1:
		return s.resolve(names[0], path)
	case 0:
		return nil, &di.ResolutionError{
			Name:    t.String(),
			Path:    appendPath(path, t.String()),
			Message: "등록된 생성자가 없습니다",
		}
	default:
		return nil, &di.ResolutionError{
			Name:    t.String(),
			Path:    appendPath(path, t.String()),
			Message: fmt.Sprintf("타입에 해당하는 등록이 여러 개입니다: %v", names),
		}
	}
}

func appendPath(path []string, name string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, name)
}

// cradle은 생성 중인 Resolver에 전달되는 조회 핸들입니다.
// 해석 경로를 들고 다니며 순환 의존성을 감지합니다.
type cradle struct {
	scope *Scope
	path  []string
}

func (c *cradle) Resolve(name string) (any, error) {
	return c.scope.resolve(name, c.path)
}

func (c *cradle) Has(name string) bool {
	return c.scope.Has(name)
}

func (c *cradle) ResolveType(t reflect.Type) (any, error) {
	return c.scope.resolveType(t, c.path)
}
