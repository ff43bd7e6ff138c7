package engine

import (
	"sync"

	u "lautenbacher.net/tronstrip/util"
)

// BounceMode selects what a burst does when its head reaches the
// endpoint of its run.
type BounceMode int

const (
	// BounceOneWay lets the burst finish when it reaches its endpoint.
	BounceOneWay BounceMode = iota
	// BounceForwardBack reverses the burst at the endpoint and at the
	// strip origin. Such a burst never terminates on its own; it is
	// only removed by clearing the queue.
	BounceForwardBack
)

func (m BounceMode) String() string {
	if m == BounceForwardBack {
		return "forward-back"
	}
	return "one-way"
}

// VariableEndpoint as the endpoint parameter means every burst draws a
// random endpoint over the whole strip at creation time.
const VariableEndpoint = -1

// Ambient is the steady-state the strip shows (and returns to) when no
// bursts are active.
type Ambient struct {
	On         bool
	Brightness float64 // [0, 1]
	ColorTemp  int     // [CCTMin, CCTMax]
}

// BurstParams are the animation parameters sampled when a new burst is
// created. Mutating them never affects bursts already in flight.
type BurstParams struct {
	TrailMin  int // pixels, >= 1
	TrailMax  int
	SpeedMin  int // ms per step, >= 1
	SpeedMax  int
	Bounce    BounceMode
	Endpoint  int // led index, or VariableEndpoint
	DelayMin  int // ms of randomized pre-start delay on motion
	DelayMax  int
	CountMin  int // bursts admitted per motion trigger
	CountMax  int
	Gap       int     // ms between staggered sequential bursts
	Intensity float64 // burst head brightness, [0, 1]
}

// Mirror is the externally observable state published after every
// accepted update and whenever the animation activity flag changes.
// Collaborators (the HTTP layer) expose it; the engine only emits it.
type Mirror struct {
	On         bool    `json:"on"`
	Brightness float64 `json:"brightness"`
	ColorTemp  int     `json:"color_temp"`
	Active     bool    `json:"active"`
}

// ControlState is the single source of truth for ambient settings and
// animation parameters. The Validator is the only writer of ambient and
// params; the scheduler and compositor are strictly readers. Access is
// guarded with a RWMutex because tasks run as separate goroutines.
type ControlState struct {
	mu       sync.RWMutex
	ambient  Ambient
	params   BurstParams
	palette  Palette
	nightDim float64
	active   bool

	mirror *u.AtomicEvent[Mirror]
}

func NewControlState(ambient Ambient, params BurstParams, palette Palette) *ControlState {
	s := &ControlState{
		ambient:  ambient,
		params:   params,
		palette:  palette,
		nightDim: 1.0,
		mirror:   u.NewAtomicEvent[Mirror](),
	}
	s.publishMirror()
	return s
}

// Snapshot returns value copies of the ambient state and the animation
// parameters under one lock acquisition. Bursts are built from exactly
// one such snapshot.
func (s *ControlState) Snapshot() (Ambient, BurstParams) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient, s.params
}

// Ambient returns a copy of the current ambient state.
func (s *ControlState) Ambient() Ambient {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ambient
}

// Params returns a copy of the current animation parameters.
func (s *ControlState) Params() BurstParams {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

// Palette returns the fixed CCT blend endpoints.
func (s *ControlState) Palette() Palette {
	// Immutable after construction, no lock needed.
	return s.palette
}

// NightDim returns the current night dimming factor in (0, 1].
func (s *ControlState) NightDim() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nightDim
}

// SetNightDim is called by the night task to scale the ambient output
// between sunset and sunrise. It does not touch the user's brightness
// setting.
func (s *ControlState) SetNightDim(factor float64) {
	if factor <= 0 || factor > 1 {
		factor = 1
	}
	s.mu.Lock()
	s.nightDim = factor
	s.mu.Unlock()
	s.publishMirror()
}

// SetActive records whether any burst remains in the queue. The mirror
// is republished only when the flag actually flips.
func (s *ControlState) SetActive(active bool) {
	s.mu.Lock()
	changed := s.active != active
	s.active = active
	s.mu.Unlock()
	if changed {
		s.publishMirror()
	}
}

// Active reports whether the animation was active as of the last tick.
func (s *ControlState) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// MirrorEvents returns the event the engine publishes its observable
// state through.
func (s *ControlState) MirrorEvents() *u.AtomicEvent[Mirror] {
	return s.mirror
}

func (s *ControlState) publishMirror() {
	s.mu.RLock()
	m := Mirror{
		On:         s.ambient.On,
		Brightness: s.ambient.Brightness,
		ColorTemp:  s.ambient.ColorTemp,
		Active:     s.active,
	}
	s.mu.RUnlock()
	s.mirror.Send(m)
}
