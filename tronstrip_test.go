package main

import (
	"os"
	"sync"
	"testing"
	"time"

	c "lautenbacher.net/tronstrip/config"
	e "lautenbacher.net/tronstrip/engine"
	pl "lautenbacher.net/tronstrip/platform"
	u "lautenbacher.net/tronstrip/util"
)

type MockPlatform struct {
	pl.Platform
	sensorEvents chan *u.Trigger
	mu           sync.Mutex
	frames       [][]e.Led
	indicator    []bool
}

func NewMockPlatform() *MockPlatform {
	return &MockPlatform{
		sensorEvents: make(chan *u.Trigger),
	}
}

func (m *MockPlatform) Start() error { return nil }

func (m *MockPlatform) Stop() {}

func (m *MockPlatform) DisplayLeds(leds []e.Led) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Copy: the scheduler reuses the frame buffer.
	cp := make([]e.Led, len(leds))
	copy(cp, leds)
	m.frames = append(m.frames, cp)
}

func (m *MockPlatform) SetIndicator(on bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indicator = append(m.indicator, on)
}

func (m *MockPlatform) GetSensorEvents() <-chan *u.Trigger {
	return m.sensorEvents
}

func (m *MockPlatform) Ready() <-chan bool {
	ready := make(chan bool)
	close(ready)
	return ready
}

func (m *MockPlatform) LastFrame() []e.Led {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.frames) == 0 {
		return nil
	}
	return m.frames[len(m.frames)-1]
}

func (m *MockPlatform) Indicators() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.indicator...)
}

// newTestApp wires an App against the mock platform the way initialise
// does, with fast timers and no randomness in the admission policy.
func newTestApp(t *testing.T) (*App, *MockPlatform) {
	t.Helper()

	conf := &c.Config{}
	conf.Hardware.Display.LedsTotal = 10
	conf.Hardware.Display.FrameInterval = 2 * time.Millisecond
	conf.Hardware.Display.ForceUpdateDelay = time.Hour
	conf.Ambient = c.AmbientConfig{
		On: true, Brightness: 0.5, ColorTemp: 370,
		WarmRGB: []float64{255, 147, 41},
		CoolRGB: []float64{180, 205, 255},
	}
	conf.Burst = c.BurstConfig{
		TrailMin: 1, TrailMax: 1,
		SpeedMin: time.Millisecond, SpeedMax: time.Millisecond,
		Bounce:   "one-way",
		Endpoint: 9,
		BurstMin: 1, BurstMax: 1,
		Intensity: 1.0,
		QueueSize: 4,
	}

	mock := NewMockPlatform()

	app := NewApp(make(chan os.Signal, 1))
	app.conf = conf
	app.state = e.NewControlState(conf.EngineAmbient(), conf.EngineParams(), conf.Palette())
	app.queue = e.NewBurstQueue(conf.Burst.QueueSize)
	app.validator = e.NewValidator(app.state, app.queue, 10)
	app.admitter = e.NewAdmitter(app.state, app.queue, 10, app.wake)
	app.scheduler = e.NewScheduler(app.state, app.queue, e.NewCompositor(10, conf.Palette()), mock.DisplayLeds)
	app.platform = mock

	app.shutdownWg.Add(4)
	go app.renderLoop()
	go app.motionIntake()
	go app.commandIntake()
	go app.mirrorWatcher()

	t.Cleanup(func() {
		close(app.stopsignal)
		app.shutdownWg.Wait()
	})
	return app, mock
}

func TestMotionTriggerRunsBurstToCompletion(t *testing.T) {
	app, mock := newTestApp(t)

	mock.sensorEvents <- u.NewTrigger("PIR", 1, time.Now())

	// Burst over a 10 led strip at 1 ms per step is over well within
	// this deadline.
	deadline := time.After(2 * time.Second)
	for app.queue.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("motion trigger never admitted a burst")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	for app.queue.Len() > 0 {
		select {
		case <-deadline:
			t.Fatal("burst never finished")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// Strip is back to the ambient base after the burst retired.
	time.Sleep(10 * time.Millisecond)
	base := app.state.Palette().Blend(370).Scale(0.5)
	last := mock.LastFrame()
	for i, led := range last {
		if led != base {
			t.Fatalf("led %d not back at ambient base: %+v", i, led)
		}
	}
	if app.state.Active() {
		t.Fatal("activity flag still set after the burst finished")
	}
}

func TestCommandIntakeAppliesUpdates(t *testing.T) {
	app, mock := newTestApp(t)

	reply := make(chan error, 1)
	app.updates <- e.ParamUpdate{Name: "brightness", Value: 0.9, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("update rejected: %v", err)
	}
	if got := app.state.Ambient().Brightness; got != 0.9 {
		t.Fatalf("expected brightness 0.9, got %f", got)
	}

	// The accepted update wakes the render loop into a repaint.
	deadline := time.After(time.Second)
	want := app.state.Palette().Blend(370).Scale(0.9)
	for {
		last := mock.LastFrame()
		if len(last) > 0 && last[0] == want {
			break
		}
		select {
		case <-deadline:
			t.Fatal("render loop never repainted with the new brightness")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// A rejected update reports its error and changes nothing.
	reply = make(chan error, 1)
	app.updates <- e.ParamUpdate{Name: "brightness", Value: "dim", Reply: reply}
	if err := <-reply; err == nil {
		t.Fatal("expected a rejection for a non-numeric brightness")
	}
	if got := app.state.Ambient().Brightness; got != 0.9 {
		t.Fatalf("rejected update changed the state to %f", got)
	}
}

func TestMirrorWatcherDrivesIndicator(t *testing.T) {
	app, mock := newTestApp(t)

	app.admitter.Fire(e.SourceManual, app.clock.Millis())

	deadline := time.After(2 * time.Second)
	sawOn := false
	for !sawOn {
		for _, on := range mock.Indicators() {
			if on {
				sawOn = true
			}
		}
		select {
		case <-deadline:
			t.Fatal("indicator never switched on during the burst")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	// After the burst retires the indicator goes off again.
	for {
		ind := mock.Indicators()
		if len(ind) > 0 && !ind[len(ind)-1] && app.queue.Len() == 0 {
			return
		}
		select {
		case <-deadline:
			t.Fatal("indicator never switched off after the burst")
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestTurningOffStopsAnimation(t *testing.T) {
	app, _ := newTestApp(t)

	// Queue a slow burst so it is still live when the off arrives.
	app.updates <- e.ParamUpdate{Name: "speed_min", Value: 1000}
	app.updates <- e.ParamUpdate{Name: "speed_max", Value: 1000}
	time.Sleep(10 * time.Millisecond)

	app.admitter.Fire(e.SourceManual, app.clock.Millis())
	if app.queue.Len() != 1 {
		t.Fatalf("expected one live burst, got %d", app.queue.Len())
	}

	reply := make(chan error, 1)
	app.updates <- e.ParamUpdate{Name: "on", Value: false, Reply: reply}
	if err := <-reply; err != nil {
		t.Fatalf("off rejected: %v", err)
	}
	if app.queue.Len() != 0 {
		t.Fatal("turning off must clear the burst queue")
	}
}
