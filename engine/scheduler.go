package engine

// Scheduler is the single authoritative driver of time for the
// animation core. One call to Tick advances every due burst, retires
// finished ones and renders exactly one frame, no matter how many
// bursts moved. It assumes validated burst state and cannot fail at
// runtime; everything questionable was clamped at admission.
type Scheduler struct {
	state *ControlState
	queue *BurstQueue
	comp  *Compositor
	sink  func([]Led)
}

// NewScheduler wires the scheduler to its collaborators. sink receives
// the reused frame buffer once per tick and is expected to be fast and
// synchronous; slow collaborators must buffer on their side and never
// call back into the tick.
func NewScheduler(state *ControlState, queue *BurstQueue, comp *Compositor, sink func([]Led)) *Scheduler {
	return &Scheduler{
		state: state,
		queue: queue,
		comp:  comp,
		sink:  sink,
	}
}

// Tick runs one scheduling cycle for the given monotonic millisecond
// timestamp and reports whether any burst remains in the queue. Calling
// it again with the same timestamp advances nothing further: every
// transition pushes the burst's deadline past now.
func (s *Scheduler) Tick(now uint32) bool {
	s.queue.advanceDue(now)
	s.queue.sweepFinished()

	amb := s.state.Ambient()
	frame := s.comp.Render(amb, s.state.NightDim(), s.queue)
	s.sink(frame)

	remaining := s.queue.Len() > 0
	s.state.SetActive(remaining)
	return remaining
}
