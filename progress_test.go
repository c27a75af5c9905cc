package dav1d

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRowProgressAdvanceIsMonotone(t *testing.T) {
	var p RowProgress
	p.AdvanceBlock(5)
	p.AdvanceBlock(2) // must not regress
	assert.Equal(t, int64(5), p.Block())
}

func TestRowProgressWaitBlockUnblocksOnAdvance(t *testing.T) {
	var p RowProgress
	done := make(chan struct{})
	go func() {
		p.WaitBlock(3)
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("WaitBlock returned before progress reached the target row")
	case <-time.After(20 * time.Millisecond):
	}

	p.AdvanceBlock(3)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitBlock did not unblock after AdvanceBlock")
	}
}

func TestRowProgressPixelIndependentOfBlock(t *testing.T) {
	var p RowProgress
	p.AdvanceBlock(10)
	p.AdvancePixel(1)
	assert.Equal(t, int64(10), p.Block())
	assert.Equal(t, int64(1), p.Pixel())
}
