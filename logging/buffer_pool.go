package logging

import (
	"bytes"
	"sync"
)

// BufferPool 复用格式化 buffer，减少分配。
type BufferPool struct {
	pool sync.Pool
}

// NewBufferPool 创建缓冲池。
func NewBufferPool() *BufferPool {
	return &BufferPool{
		pool: sync.Pool{
			New: func() any {
				return new(bytes.Buffer)
			},
		},
	}
}

// Get 获取一个空 buffer。
func (p *BufferPool) Get() *bytes.Buffer {
	return p.pool.Get().(*bytes.Buffer)
}

// Put 归还 buffer。
func (p *BufferPool) Put(b *bytes.Buffer) {
	b.Reset()
	p.pool.Put(b)
}

// GlobalBufferPool 包级共享缓冲池
var GlobalBufferPool = NewBufferPool()
