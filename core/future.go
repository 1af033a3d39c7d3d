package core

import (
	"context"
	"fmt"
	"sync"
)

// Awaitable은 나중에 완료되는 핸들러 결과입니다.
// Invoker는 이 값을 기다리지 않고 그대로 반환하며, 기다리는 것은 transport의 몫입니다.
type Awaitable interface {
	Await(ctx context.Context) (any, error)
}

// Future는 별도 goroutine에서 실행되는 Awaitable 구현입니다.
type Future struct {
	done   chan struct{}
	once   sync.Once
	result any
	err    error
}

// Async는 fn을 즉시 별도 goroutine에서 실행하고 Future를 반환합니다.
// fn의 panic은 Await가 돌려주는 에러가 됩니다.
func Async(fn func() (any, error)) *Future {
	f := &Future{done: make(chan struct{})}
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				f.complete(nil, fmt.Errorf("비동기 핸들러 panic: %v", rec))
			}
		}()
		result, err := fn()
		f.complete(result, err)
	}()
	return f
}

func (f *Future) complete(result any, err error) {
	f.once.Do(func() {
		f.result = result
		f.err = err
		close(f.done)
	})
}

// nil Future는 결과 없이 바로 완료된 것으로 봅니다.
func (f *Future) Await(ctx context.Context) (any, error) {
	if f == nil {
		return nil, nil
	}
	select {
	case <-f.done:
		return f.result, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done은 완료 시 닫히는 채널입니다.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
