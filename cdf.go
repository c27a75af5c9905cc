package dav1d

import "fmt"

// CDFContext is the block of probability tables covering every adaptive
// symbol, spec.md §3's "CDF snapshot". Each tile takes the frame's input
// CDF at tile-start (via Clone) and evolves its own copy independently;
// tables are created lazily and keyed by symbol name + context index, so
// every one of the ~20 interlocking context-dependent symbols the block
// parser draws shares one lookup path instead of a hand-enumerated
// struct field per symbol.
type CDFContext struct {
	tables map[string][]uint16
}

// NewCDFContext returns an empty CDF snapshot; tables are seeded to their
// uniform default on first access.
func NewCDFContext() *CDFContext {
	return &CDFContext{tables: make(map[string][]uint16)}
}

func cdfKey(name string, ctx int) string {
	return fmt.Sprintf("%s:%d", name, ctx)
}

// defaultCDF returns a fresh uniform CDF for an n-symbol alphabet: n
// non-decreasing thresholds terminated at 1<<15, plus a zeroed hit
// counter, matching msac.Decoder's N+1-value layout.
func defaultCDF(n int) []uint16 {
	cdf := make([]uint16, n+1)
	for i := 0; i < n; i++ {
		cdf[i] = uint16((i + 1) * (1 << 15) / n)
	}
	cdf[n-1] = 1 << 15
	return cdf
}

// Get returns the adaptive CDF for (name, ctx), creating it with a
// uniform default over n symbols if this is the first access.
func (c *CDFContext) Get(name string, ctx, n int) []uint16 {
	key := cdfKey(name, ctx)
	if v, ok := c.tables[key]; ok {
		return v
	}
	v := defaultCDF(n)
	c.tables[key] = v
	return v
}

// Clone returns a deep, independently-mutable copy, per spec.md §3: each
// tile takes the frame's input CDF at tile start and evolves its own.
func (c *CDFContext) Clone() *CDFContext {
	out := NewCDFContext()
	for k, v := range c.tables {
		cp := make([]uint16, len(v))
		copy(cp, v)
		out.tables[k] = cp
	}
	return out
}

// Average returns a new CDFContext with each table set to the
// rounded-down average of c and other, per spec.md §4.7's "averaging with the
// snapshot per the standard update rule" promotion step. Tables present
// in only one side pass through unchanged.
func (c *CDFContext) Average(other *CDFContext) *CDFContext {
	out := NewCDFContext()
	seen := make(map[string]bool)
	for k, v := range c.tables {
		seen[k] = true
		if ov, ok := other.tables[k]; ok && len(ov) == len(v) {
			merged := make([]uint16, len(v))
			for i := range v {
				merged[i] = uint16((uint32(v[i]) + uint32(ov[i])) / 2)
			}
			out.tables[k] = merged
		} else {
			cp := make([]uint16, len(v))
			copy(cp, v)
			out.tables[k] = cp
		}
	}
	for k, v := range other.tables {
		if seen[k] {
			continue
		}
		cp := make([]uint16, len(v))
		copy(cp, v)
		out.tables[k] = cp
	}
	return out
}
