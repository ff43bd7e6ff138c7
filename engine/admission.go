package engine

import (
	"log/slog"

	u "lautenbacher.net/tronstrip/util"
)

// Source says what asked for a burst.
type Source int

const (
	// SourceMotion is a motion sensor edge; admission applies the
	// randomized pre-delay and may queue several staggered bursts.
	SourceMotion Source = iota
	// SourceManual is an explicit fire request admitted immediately.
	SourceManual
)

func (s Source) String() string {
	if s == SourceManual {
		return "manual"
	}
	return "motion"
}

// Admitter is the only constructor of bursts. It snapshots the control
// state, applies the randomized admission policy and pushes into the
// queue; when the queue is full the request is quietly dropped.
type Admitter struct {
	state     *ControlState
	queue     *BurstQueue
	ledsTotal int
	wake      *u.AtomicEvent[struct{}]
}

func NewAdmitter(state *ControlState, queue *BurstQueue, ledsTotal int, wake *u.AtomicEvent[struct{}]) *Admitter {
	return &Admitter{
		state:     state,
		queue:     queue,
		ledsTotal: ledsTotal,
		wake:      wake,
	}
}

// Fire admits bursts for one trigger at time now and returns how many
// were actually accepted. Motion draws a burst count and a pre-start
// delay from the configured ranges and staggers sequential bursts by
// the configured gap; manual fire admits exactly one burst with zero
// delay.
func (a *Admitter) Fire(src Source, now uint32) int {
	amb, par := a.state.Snapshot()

	count := 1
	delay := 0
	if src == SourceMotion {
		count = randRange(par.CountMin, par.CountMax)
		delay = randRange(par.DelayMin, par.DelayMax)
	}

	admitted := 0
	for i := 0; i < count; i++ {
		b := newBurst(now, delay+i*par.Gap, amb, par, a.state.Palette(), a.ledsTotal)
		if !a.queue.Admit(b) {
			// Best-effort animation; the queue bound wins.
			slog.Debug("Burst queue full, dropping admission", "source", src.String())
			break
		}
		admitted++
	}

	if admitted > 0 {
		slog.Debug("Admitted bursts", "source", src.String(), "count", admitted, "delay_ms", delay)
		if a.wake != nil {
			a.wake.Send(struct{}{})
		}
	}
	return admitted
}
