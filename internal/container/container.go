package container

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/mrnkr/socketscope/pkg/di"
	"go.uber.org/zap"
)

type entry struct {
	name     string
	resolver *di.Resolver
}

// Container는 이름 → Resolver 레지스트리와 루트 Scope를 소유합니다.
// Singleton 인스턴스는 루트 Scope에 캐시됩니다.
type Container struct {
	mu      sync.RWMutex
	entries map[string]*entry
	byType  map[reflect.Type][]string
	order   []string
	root    *Scope
	logger  *zap.Logger
}

type Option func(*Container)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Container) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func New(opts ...Option) *Container {
	c := &Container{
		entries: make(map[string]*entry),
		byType:  make(map[reflect.Type][]string),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.root = newScope(c, nil)
	return c
}

func (c *Container) Register(name string, r *di.Resolver) error {
	if name == "" {
		return errors.New("등록 이름은 빈 값일 수 없습니다")
	}
	if r == nil {
		return fmt.Errorf("Resolver는 nil일 수 없습니다: %s", name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[name]; exists {
		return fmt.Errorf("이미 등록된 이름입니다: %s", name)
	}

	c.entries[name] = &entry{name: name, resolver: r}
	c.order = append(c.order, name)
	if out := r.OutputType(); out != nil {
		c.byType[out] = append(c.byType[out], name)
	}

	c.logger.Debug("[Container] Resolver 등록",
		zap.String("name", name),
		zap.Stringer("kind", r.Kind()),
		zap.Stringer("lifetime", r.Lifetime()),
	)
	return nil
}

func (c *Container) Resolve(name string) (any, error) {
	return c.root.Resolve(name)
}

func (c *Container) Has(name string) bool {
	_, ok := c.lookup(name)
	return ok
}

func (c *Container) Build(r *di.Resolver) (any, error) {
	return c.root.Build(r)
}

func (c *Container) CreateScope() di.Scope {
	return c.root.CreateScope()
}

// Dispose는 루트 Scope(Singleton 및 루트에서 만든 Scoped 인스턴스)를 해제합니다.
func (c *Container) Dispose() error {
	return c.root.Release()
}

func (c *Container) Registrations() []di.Registration {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]di.Registration, 0, len(c.order))
	for _, name := range c.order {
		r := c.entries[name].resolver
		out = append(out, di.Registration{
			Name:     name,
			Kind:     r.Kind(),
			Lifetime: r.Lifetime(),
			Type:     r.OutputType(),
		})
	}
	return out
}

func (c *Container) lookup(name string) (*entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// namesFor는 타입 t로 주입 가능한 등록 이름을 찾습니다.
// 정확히 일치하는 타입을 우선하고, 없으면 대입 가능한 타입을 찾습니다.
func (c *Container) namesFor(t reflect.Type) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if names, ok := c.byType[t]; ok {
		cpy := make([]string, len(names))
		copy(cpy, names)
		return cpy
	}

	var names []string
	for _, name := range c.order {
		out := c.entries[name].resolver.OutputType()
		if out != nil && out.AssignableTo(t) {
			names = append(names, name)
		}
	}
	return names
}
