package platform

import (
	"log/slog"
	"sync"

	e "lautenbacher.net/tronstrip/engine"
	u "lautenbacher.net/tronstrip/util"
)

// basePlatform carries the plumbing shared by the concrete platforms: a
// motion event channel and a display driver goroutine decoupled from
// the render tick by a one-deep frame channel with latest-frame-wins
// semantics and a buffer pool, so DisplayLeds never blocks and never
// allocates.
type basePlatform struct {
	ledsTotal       int
	sensorEvents    chan *u.Trigger
	frames          chan []e.Led
	pool            sync.Pool
	displayFunc     func([]e.Led)
	displayWg       sync.WaitGroup
	displayStopChan chan struct{}
	shutdownMutex   sync.RWMutex
	isShuttingDown  bool
}

func newBasePlatform(ledsTotal int, displayFunc func([]e.Led)) *basePlatform {
	b := &basePlatform{
		ledsTotal:       ledsTotal,
		sensorEvents:    make(chan *u.Trigger, 4),
		frames:          make(chan []e.Led, 1),
		displayFunc:     displayFunc,
		displayStopChan: make(chan struct{}),
	}
	b.pool.New = func() any {
		return make([]e.Led, ledsTotal)
	}
	return b
}

func (s *basePlatform) GetSensorEvents() <-chan *u.Trigger {
	return s.sensorEvents
}

// DisplayLeds copies the frame into a pooled buffer and replaces
// whatever frame is still waiting for the display driver. Dropping an
// unwritten frame is fine; only the newest one matters visually.
func (s *basePlatform) DisplayLeds(leds []e.Led) {
	buf := s.pool.Get().([]e.Led)
	copy(buf, leds)

	select {
	case s.frames <- buf:
		return
	default:
	}
	// Displace the stale frame.
	select {
	case old := <-s.frames:
		s.pool.Put(old)
	default:
	}
	select {
	case s.frames <- buf:
	default:
		s.pool.Put(buf)
	}
}

func (s *basePlatform) setInShutdown() {
	s.shutdownMutex.Lock()
	s.isShuttingDown = true
	s.shutdownMutex.Unlock()
}

func (s *basePlatform) displayDriver() {
	defer s.displayWg.Done()
	for {
		select {
		case <-s.displayStopChan:
			slog.Info("Ending DisplayDriver go-routine...")
			return
		case buf := <-s.frames:
			s.shutdownMutex.RLock()
			if !s.isShuttingDown {
				s.displayFunc(buf)
			}
			s.shutdownMutex.RUnlock()
			s.pool.Put(buf)
		}
	}
}
