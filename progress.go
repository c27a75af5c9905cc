package dav1d

import "sync"

// RowProgress exposes the two monotone row-progress counters spec.md §5
// describes: block-level (advances after pass 1 for a sbrow completes)
// and pixel-level (advances after pass 2 + filters for a sbrow
// completes). Advances are broadcast via a condition variable; waiters
// block until the counter they need reaches a target row.
type RowProgress struct {
	mu    sync.Mutex
	cond  *sync.Cond
	block int64
	pixel int64
}

func (p *RowProgress) init() {
	if p.cond == nil {
		p.cond = sync.NewCond(&p.mu)
	}
}

// AdvanceBlock publishes a new block-level progress value; it is a no-op
// if row is not greater than the current value (progress is monotone).
func (p *RowProgress) AdvanceBlock(row int64) {
	p.mu.Lock()
	p.init()
	if row > p.block {
		p.block = row
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// AdvancePixel publishes a new pixel-level progress value.
func (p *RowProgress) AdvancePixel(row int64) {
	p.mu.Lock()
	p.init()
	if row > p.pixel {
		p.pixel = row
		p.cond.Broadcast()
	}
	p.mu.Unlock()
}

// WaitBlock blocks until block-level progress reaches at least row.
func (p *RowProgress) WaitBlock(row int64) {
	p.mu.Lock()
	p.init()
	for p.block < row {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// WaitPixel blocks until pixel-level progress reaches at least row. A
// caller reading reference row y via ReconBInter must wait for
// WaitPixel(y + loopfilter_delay), per spec.md §5/§8's reference-row
// ordering invariant.
func (p *RowProgress) WaitPixel(row int64) {
	p.mu.Lock()
	p.init()
	for p.pixel < row {
		p.cond.Wait()
	}
	p.mu.Unlock()
}

// Block reports the current block-level progress value.
func (p *RowProgress) Block() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.block
}

// Pixel reports the current pixel-level progress value.
func (p *RowProgress) Pixel() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pixel
}

// loopfilterDelay returns the plane-type-dependent row delay a reference
// read must wait beyond its target row, per spec.md §5's suspension-point
// contract; this core does not implement the filters themselves, so the
// delay models the number of extra sbrows the filter chain (deblock +
// CDEF + restoration) trails pass-2 reconstruction by.
func loopfilterDelay() int64 { return 8 }
