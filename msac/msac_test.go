package msac

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newCDF3() []uint16 {
	// 3-symbol CDF: thresholds at 1/3, 2/3, terminator at 1<<15, count 0.
	return []uint16{10922, 21845, 32768, 0}
}

func someBytes(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(0x55 + i*37)
	}
	return b
}

func TestDecodeSymbolInRange(t *testing.T) {
	d := NewDecoder(someBytes(64), false)
	cdf := newCDF3()
	for i := 0; i < 50; i++ {
		sym := d.DecodeSymbol(cdf)
		assert.GreaterOrEqual(t, sym, 0)
		assert.Less(t, sym, 3)
	}
	assert.False(t, d.Error())
}

func TestCDFStaysMonotoneAndBounded(t *testing.T) {
	d := NewDecoder(someBytes(256), false)
	cdf := newCDF3()
	for i := 0; i < 200; i++ {
		d.DecodeSymbol(cdf)
		assert.LessOrEqual(t, cdf[0], cdf[1])
		assert.LessOrEqual(t, cdf[1], uint16(1<<15))
		assert.Equal(t, uint16(1<<15), cdf[2])
	}
}

func TestDisableCDFUpdateFreezesCDF(t *testing.T) {
	d := NewDecoder(someBytes(64), true)
	cdf := newCDF3()
	before := append([]uint16{}, cdf...)
	d.DecodeSymbol(cdf)
	assert.Equal(t, before, cdf)
}

func TestDecodeUniformZero(t *testing.T) {
	d := NewDecoder(someBytes(8), false)
	assert.Equal(t, uint32(0), d.DecodeUniform(1))
}

func TestDecodeBoolAdaptSharesCDFContextLayout(t *testing.T) {
	d := NewDecoder(someBytes(64), false)
	cdf := []uint16{16384, 1 << 15, 0} // CDFContext.Get's N+1 form for a 2-symbol alphabet
	for i := 0; i < 10; i++ {
		_ = d.DecodeBoolAdapt(cdf)
	}
	assert.LessOrEqual(t, cdf[0], uint16(1<<15))
	assert.Equal(t, uint16(1<<15), cdf[1])
}

func TestErrorStickyPastBuffer(t *testing.T) {
	d := NewDecoder([]byte{}, false)
	cdf := newCDF3()
	for i := 0; i < 200; i++ {
		d.DecodeSymbol(cdf)
	}
	assert.True(t, d.Error())
}
