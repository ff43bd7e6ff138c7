package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type frameRecorder struct {
	frames [][]Led
}

func (r *frameRecorder) sink(frame []Led) {
	cp := make([]Led, len(frame))
	copy(cp, frame)
	r.frames = append(r.frames, cp)
}

func newTestScheduler(t *testing.T, queueSize int) (*Scheduler, *ControlState, *BurstQueue, *frameRecorder) {
	t.Helper()
	state := NewControlState(
		Ambient{On: true, Brightness: 0.5, ColorTemp: 370},
		testParams(), testPalette())
	queue := NewBurstQueue(queueSize)
	comp := NewCompositor(60, testPalette())
	rec := &frameRecorder{}
	return NewScheduler(state, queue, comp, rec.sink), state, queue, rec
}

func TestScheduler_OneFramePerTick(t *testing.T) {
	sched, state, queue, rec := newTestScheduler(t, 8)
	amb, _ := state.Snapshot()
	par := fixedParams(1, 10, 59, BounceOneWay)

	// No bursts, one burst, several bursts: always exactly one frame.
	sched.Tick(0)
	assert.Len(t, rec.frames, 1)

	queue.Admit(newBurst(0, 0, amb, par, state.Palette(), 60))
	sched.Tick(10)
	assert.Len(t, rec.frames, 2)

	queue.Admit(newBurst(10, 0, amb, par, state.Palette(), 60))
	queue.Admit(newBurst(10, 0, amb, par, state.Palette(), 60))
	sched.Tick(20)
	assert.Len(t, rec.frames, 3)
}

func TestScheduler_TickIsIdempotent(t *testing.T) {
	sched, state, queue, _ := newTestScheduler(t, 8)
	amb, _ := state.Snapshot()
	par := fixedParams(1, 50, 59, BounceOneWay)

	b := newBurst(1000, 0, amb, par, state.Palette(), 60)
	queue.Admit(b)

	sched.Tick(1000) // pending -> active
	require.Equal(t, BurstActive, b.State())
	pos := b.Position()

	// Replaying the same timestamp must not advance anything: the
	// transition pushed the deadline past now.
	sched.Tick(1000)
	sched.Tick(1000)
	assert.Equal(t, pos, b.Position())
	assert.Equal(t, uint32(1050), b.NextStepAt())
}

func TestScheduler_AmbientRestoredAfterFinish(t *testing.T) {
	sched, state, queue, rec := newTestScheduler(t, 8)
	amb, _ := state.Snapshot()
	par := fixedParams(2, 10, 5, BounceOneWay)

	queue.Admit(newBurst(0, 0, amb, par, state.Palette(), 60))

	base := testPalette().Blend(370).Scale(0.5)

	now := uint32(0)
	sched.Tick(now) // activation
	for sched.Tick(now) {
		now += 10
		require.Less(t, now, uint32(1000), "burst must retire")
	}

	// The frame of the finishing tick and everything after is pure
	// ambient again.
	last := rec.frames[len(rec.frames)-1]
	for i, led := range last {
		require.Equal(t, base, led, "led %d", i)
	}
	assert.False(t, state.Active())
}

func TestScheduler_ActiveFlagTracksQueue(t *testing.T) {
	sched, state, queue, _ := newTestScheduler(t, 8)
	amb, _ := state.Snapshot()
	par := fixedParams(1, 10, 59, BounceOneWay)

	assert.False(t, sched.Tick(0))
	assert.False(t, state.Active())

	queue.Admit(newBurst(0, 0, amb, par, state.Palette(), 60))
	assert.True(t, sched.Tick(0))
	assert.True(t, state.Active())

	queue.Clear()
	assert.False(t, sched.Tick(10))
	assert.False(t, state.Active())
}
