package dav1d

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultCDFIsNonDecreasingAndTerminated(t *testing.T) {
	cdf := defaultCDF(4)
	assert.Len(t, cdf, 5)
	for i := 1; i < 4; i++ {
		assert.LessOrEqual(t, cdf[i-1], cdf[i])
	}
	assert.Equal(t, uint16(1<<15), cdf[3])
	assert.Equal(t, uint16(0), cdf[4]) // hit counter starts at zero
}

func TestCDFContextGetCachesTable(t *testing.T) {
	c := NewCDFContext()
	first := c.Get("skip", 0, 2)
	first[0] = 999
	second := c.Get("skip", 0, 2)
	assert.Equal(t, uint16(999), second[0])
}

func TestCDFContextGetIsKeyedByContext(t *testing.T) {
	c := NewCDFContext()
	a := c.Get("partition", 0, 10)
	b := c.Get("partition", 1, 10)
	a[0] = 1
	assert.NotEqual(t, a[0], b[0])
}

func TestCDFContextCloneIsIndependent(t *testing.T) {
	c := NewCDFContext()
	orig := c.Get("is_intra", 0, 2)
	clone := c.Clone()
	clone.Get("is_intra", 0, 2)[0] = 42
	assert.NotEqual(t, uint16(42), orig[0])
}

func TestCDFContextAverageMergesSharedTables(t *testing.T) {
	a := NewCDFContext()
	b := NewCDFContext()
	ta := a.Get("skip", 0, 2)
	ta[0] = 10000
	tb := b.Get("skip", 0, 2)
	tb[0] = 20000

	merged := a.Average(b)
	assert.Equal(t, uint16(15000), merged.Get("skip", 0, 2)[0])
}

func TestCDFContextAveragePassesThroughUnmatchedTables(t *testing.T) {
	a := NewCDFContext()
	a.Get("only_in_a", 0, 2)
	b := NewCDFContext()

	merged := a.Average(b)
	_, ok := merged.tables[cdfKey("only_in_a", 0)]
	assert.True(t, ok)
}
