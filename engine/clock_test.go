package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTicksDiff(t *testing.T) {
	assert.Equal(t, int32(100), TicksDiff(300, 200))
	assert.Equal(t, int32(-100), TicksDiff(200, 300))
	assert.Equal(t, int32(0), TicksDiff(42, 42))
}

func TestTicksDiff_Wraparound(t *testing.T) {
	// A deadline shortly before the wrap, "now" shortly after it.
	before := uint32(math.MaxUint32 - 10)
	after := uint32(20)

	assert.Equal(t, int32(31), TicksDiff(after, before), "difference across the wrap boundary")
	assert.Equal(t, int32(-31), TicksDiff(before, after))
}

func TestDue(t *testing.T) {
	assert.True(t, Due(100, 100), "deadline reached exactly")
	assert.True(t, Due(101, 100))
	assert.False(t, Due(99, 100))

	// Across the wrap boundary the deadline still becomes due.
	assert.True(t, Due(5, math.MaxUint32-5))
	assert.False(t, Due(math.MaxUint32-5, 5))
}

func TestManualClock(t *testing.T) {
	clk := NewManualClock(1000)
	assert.Equal(t, uint32(1000), clk.Millis())

	clk.Advance(50)
	assert.Equal(t, uint32(1050), clk.Millis())

	clk.Set(10)
	assert.Equal(t, uint32(10), clk.Millis())
}

func TestSystemClock_Monotonic(t *testing.T) {
	clk := NewSystemClock()
	a := clk.Millis()
	b := clk.Millis()
	assert.GreaterOrEqual(t, TicksDiff(b, a), int32(0))
}
