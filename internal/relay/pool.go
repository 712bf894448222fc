package relay

import (
	"sync"
)

const copyBufferSize = 32 * 1024

var defaultPool = newBufferPool(copyBufferSize)

type bufferPool struct {
	pool sync.Pool
}

func newBufferPool(size int) *bufferPool {
	bp := &bufferPool{}
	bp.pool.New = func() any {
		b := make([]byte, size)
		return &b
	}

	return bp
}

func (p *bufferPool) Get() []byte {
	b := p.pool.Get().(*[]byte)
	return *b
}

func (p *bufferPool) Put(b []byte) {
	// Boxing the slice header costs one small allocation per Put.
	p.pool.Put(&b)
}
