package engine

import (
	"math/rand"
)

// BurstState is the lifecycle state of one burst.
type BurstState int

const (
	// BurstPending counts down the pre-start delay.
	BurstPending BurstState = iota
	// BurstActive steps the head toward the endpoint, drawing a trail.
	BurstActive
	// BurstFinished is terminal; the queue removes the burst at the end
	// of the tick it finished in.
	BurstFinished
)

// Burst is one running chase animation. All fields are fixed at
// creation from a snapshot of the control state; parameter changes
// mid-flight never reach a burst already in the queue. The scheduler is
// the only mutator after creation.
type Burst struct {
	position   int
	direction  int // +1 forward, -1 backward
	endpoint   int
	trail      int
	speed      int // ms per step
	bounce     BounceMode
	color      Led
	nextStepAt uint32
	state      BurstState
}

// newBurst builds a burst from a parameter snapshot, clamping anything
// a corrupted snapshot could carry so the scheduler never has to
// re-validate. delay is the pre-start countdown in ms; zero makes the
// burst due on the next tick.
func newBurst(now uint32, delay int, amb Ambient, par BurstParams, palette Palette, ledsTotal int) *Burst {
	trail := randRange(par.TrailMin, par.TrailMax)
	if trail < 1 {
		trail = 1
	}
	if trail > ledsTotal {
		trail = ledsTotal
	}

	speed := randRange(par.SpeedMin, par.SpeedMax)
	if speed < 1 {
		speed = 1
	}

	endpoint := par.Endpoint
	if endpoint == VariableEndpoint {
		endpoint = rand.Intn(ledsTotal)
	}
	if endpoint < 0 {
		endpoint = 0
	}
	if endpoint > ledsTotal-1 {
		endpoint = ledsTotal - 1
	}

	if delay < 0 {
		delay = 0
	}

	return &Burst{
		position:   0,
		direction:  1,
		endpoint:   endpoint,
		trail:      trail,
		speed:      speed,
		bounce:     par.Bounce,
		color:      palette.Blend(amb.ColorTemp).Scale(par.Intensity),
		nextStepAt: now + uint32(delay),
		state:      BurstPending,
	}
}

// advance applies exactly one state-machine transition. The caller has
// already established that the burst is due at now; calling it at most
// once per tick is what keeps ticks idempotent.
func (b *Burst) advance(now uint32) {
	switch b.state {
	case BurstPending:
		// The delay has elapsed; start stepping on the next deadline.
		b.state = BurstActive
		b.nextStepAt = now + uint32(b.speed)
	case BurstActive:
		b.position += b.direction
		if b.bounce == BounceForwardBack {
			if b.position >= b.endpoint {
				b.position = b.endpoint
				b.direction = -1
			} else if b.position <= 0 {
				b.position = 0
				b.direction = 1
			}
			b.nextStepAt = now + uint32(b.speed)
			return
		}
		if b.position >= b.endpoint {
			b.position = b.endpoint
			b.state = BurstFinished
			return
		}
		b.nextStepAt = now + uint32(b.speed)
	case BurstFinished:
		// terminal
	}
}

// applyTo adds the burst's trail contribution to the frame: a linear
// falloff from the head backwards over trail pixels, strongest at the
// head, blended with saturating addition.
func (b *Burst) applyTo(frame []Led) {
	if b.state != BurstActive {
		return
	}
	for i := 0; i < b.trail; i++ {
		pos := b.position - i*b.direction
		if pos < 0 || pos >= len(frame) {
			continue
		}
		falloff := float64(b.trail-i) / float64(b.trail)
		frame[pos] = frame[pos].Add(b.color.Scale(falloff))
	}
}

// State returns the lifecycle state of the burst.
func (b *Burst) State() BurstState {
	return b.state
}

// Position returns the current head index.
func (b *Burst) Position() int {
	return b.position
}

// NextStepAt returns the absolute deadline of the next transition.
func (b *Burst) NextStepAt() uint32 {
	return b.nextStepAt
}

// randRange draws a uniform int from [min, max]. A reversed range is
// treated as if the bounds were swapped.
func randRange(min, max int) int {
	if max < min {
		min, max = max, min
	}
	if min == max {
		return min
	}
	return min + rand.Intn(max-min+1)
}
