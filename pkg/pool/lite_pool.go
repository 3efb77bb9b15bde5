// Package pool wraps sync.Pool with a typed API. Values implementing Resettable
// are reset on Put.
package pool

import (
	"errors"
	"sync"
)

var ErrNilConstructor = errors.New("litepool: constructor must not be nil")

type Resettable interface {
	Reset()
}

type Pool[T any] struct {
	pool sync.Pool
}

func NewLitePool[T any](newFn func() T) (*Pool[T], error) {
	if newFn == nil {
		return nil, ErrNilConstructor
	}
	if any(newFn()) == nil {
		return nil, errors.New("litepool: constructor returned nil")
	}
	return &Pool[T]{
		pool: sync.Pool{New: func() any { return newFn() }},
	}, nil
}

func (p *Pool[T]) Get() T {
	//nolint:forcetypeassert // New always yields T
	return p.pool.Get().(T)
}

func (p *Pool[T]) Put(v T) {
	if r, ok := any(v).(Resettable); ok {
		r.Reset()
	}
	p.pool.Put(v)
}

// Buffer is a fixed size read buffer. Reset restores the full length so a buffer
// sliced down by a caller is whole again on the next Get.
type Buffer struct {
	B []byte
}

func (b *Buffer) Reset() {
	b.B = b.B[:cap(b.B)]
}

// NewBufferPool pools read buffers of size bytes
func NewBufferPool(size int) (*Pool[*Buffer], error) {
	if size <= 0 {
		return nil, errors.New("litepool: buffer size must be positive")
	}
	return NewLitePool(func() *Buffer {
		return &Buffer{B: make([]byte, size)}
	})
}
