package pools

import (
	"sync"
)

// Float64SlicePool recycles float64 scratch buffers such as price grids and
// P&L vectors between valuations
type Float64SlicePool struct {
	pool sync.Pool
	size int
}

// NewFloat64SlicePool creates a pool whose fresh slices have capacity size
func NewFloat64SlicePool(size int) *Float64SlicePool {
	p := &Float64SlicePool{size: size}
	p.pool.New = func() interface{} {
		s := make([]float64, 0, p.size)
		return &s
	}
	return p
}

// Get retrieves an empty float64 slice from the pool
func (p *Float64SlicePool) Get() []float64 {
	return (*p.pool.Get().(*[]float64))[:0]
}

// GetN retrieves a slice of length n. Its contents are not cleared.
func (p *Float64SlicePool) GetN(n int) []float64 {
	s := p.Get()
	if cap(s) < n {
		return make([]float64, n)
	}
	return s[:n]
}

// Put returns a slice to the pool. The caller must not use it afterwards.
func (p *Float64SlicePool) Put(f []float64) {
	// Undersized slices are left to the GC
	if cap(f) >= p.size {
		f = f[:0]
		p.pool.Put(&f)
	}
}
