package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	c "lautenbacher.net/tronstrip/config"
	e "lautenbacher.net/tronstrip/engine"
	"lautenbacher.net/tronstrip/logging"
	pl "lautenbacher.net/tronstrip/platform"
	u "lautenbacher.net/tronstrip/util"
)

const CONFILE = "config.yml"

// App owns the engine, the platform and the task goroutines: render
// loop, motion intake, command intake, mirror watcher, night dimmer,
// config watcher and the HTTP server. All of them communicate with the
// engine through channels or the control state; none of them can call
// back into a render tick.
type App struct {
	ossignal   chan os.Signal
	conf       *c.Config
	clock      e.Clock
	state      *e.ControlState
	queue      *e.BurstQueue
	validator  *e.Validator
	admitter   *e.Admitter
	scheduler  *e.Scheduler
	platform   pl.Platform
	updates    chan e.ParamUpdate
	wake       *u.AtomicEvent[struct{}]
	httpServer *http.Server
	watcher    *fsnotify.Watcher
	stopsignal chan struct{}
	shutdownWg sync.WaitGroup
}

func NewApp(ossignal chan os.Signal) *App {
	return &App{
		ossignal:   ossignal,
		clock:      e.NewSystemClock(),
		updates:    make(chan e.ParamUpdate, 16),
		wake:       u.NewAtomicEvent[struct{}](),
		stopsignal: make(chan struct{}),
	}
}

func (a *App) initialise(conf *c.Config, realhw bool) error {
	a.conf = conf
	ledsTotal := conf.Hardware.Display.LedsTotal

	a.state = e.NewControlState(conf.EngineAmbient(), conf.EngineParams(), conf.Palette())
	a.queue = e.NewBurstQueue(conf.Burst.QueueSize)
	a.validator = e.NewValidator(a.state, a.queue, ledsTotal)
	a.admitter = e.NewAdmitter(a.state, a.queue, ledsTotal, a.wake)

	if realhw {
		a.platform = pl.NewRaspberryPiPlatform(&conf.Hardware)
	} else {
		tui := pl.NewTUIPlatform(ledsTotal, a.ossignal)
		tui.SetManualFire(func() {
			a.admitter.Fire(e.SourceManual, a.clock.Millis())
		})
		a.platform = tui
	}

	comp := e.NewCompositor(ledsTotal, conf.Palette())
	a.scheduler = e.NewScheduler(a.state, a.queue, comp, a.platform.DisplayLeds)

	if err := a.platform.Start(); err != nil {
		return fmt.Errorf("platform start failed: %w", err)
	}
	<-a.platform.Ready()

	a.shutdownWg.Add(4)
	go a.renderLoop()
	go a.motionIntake()
	go a.commandIntake()
	go a.mirrorWatcher()

	if conf.NightDim.Enabled {
		dimmer := e.NewNightDimmer(a.state, conf.NightDim.Latitude, conf.NightDim.Longitude, conf.NightDim.Factor)
		a.shutdownWg.Add(1)
		go func() {
			defer a.shutdownWg.Done()
			dimmer.Run(a.stopsignal)
		}()
	}

	if err := a.startConfigWatcher(); err != nil {
		slog.Warn("Config file watching disabled", "error", err)
	}

	if conf.Web.Enabled {
		a.startWebServer()
	}

	// Paint the ambient base right away.
	a.wake.Send(struct{}{})
	return nil
}

// renderLoop is the authoritative driver of ticks. While bursts are
// live it ticks at the frame interval; when idle it only repaints on
// wakeups (admissions, parameter changes) and the periodic forced
// refresh. Exactly one frame leaves per tick either way.
func (a *App) renderLoop() {
	defer a.shutdownWg.Done()

	frame := time.NewTicker(a.conf.Hardware.Display.FrameInterval)
	defer frame.Stop()
	forceDelay := a.conf.Hardware.Display.ForceUpdateDelay
	if forceDelay <= 0 {
		forceDelay = 5 * time.Second
	}
	force := time.NewTicker(forceDelay)
	defer force.Stop()

	active := false
	for {
		select {
		case <-a.stopsignal:
			slog.Info("Ending render loop...")
			return
		case <-frame.C:
			if active {
				active = a.scheduler.Tick(a.clock.Millis())
			}
		case <-force.C:
			active = a.scheduler.Tick(a.clock.Millis())
		case <-a.wake.Channel():
			active = a.scheduler.Tick(a.clock.Millis())
		}
	}
}

// motionIntake converts sensor edges into burst admissions. The engine
// owns all randomization; the platform only reports edges.
func (a *App) motionIntake() {
	defer a.shutdownWg.Done()
	for {
		select {
		case <-a.stopsignal:
			return
		case trigger := <-a.platform.GetSensorEvents():
			slog.Info("Motion detected", "sensor", trigger.ID)
			a.admitter.Fire(e.SourceMotion, a.clock.Millis())
		}
	}
}

// commandIntake applies parameter updates one at a time through the
// validator. One update per loop iteration bounds the work done between
// render ticks.
func (a *App) commandIntake() {
	defer a.shutdownWg.Done()
	for {
		select {
		case <-a.stopsignal:
			return
		case upd := <-a.updates:
			accepted, err := a.validator.Apply(upd.Name, upd.Value)
			if err != nil {
				slog.Warn("Rejected parameter update", "name", upd.Name, "value", upd.Value, "error", err)
			} else {
				slog.Debug("Applied parameter update", "name", upd.Name, "value", accepted)
				a.wake.Send(struct{}{})
			}
			if upd.Reply != nil {
				upd.Reply <- err
			}
		}
	}
}

// mirrorWatcher forwards the engine's activity flag to the platform
// indicator.
func (a *App) mirrorWatcher() {
	defer a.shutdownWg.Done()
	mirror := a.state.MirrorEvents()
	for {
		select {
		case <-a.stopsignal:
			return
		case <-mirror.Channel():
			a.platform.SetIndicator(mirror.Value().Active)
		}
	}
}

// startConfigWatcher reloads the runtime parameters whenever the config
// file is rewritten, e.g. through POST /api/config or an editor.
func (a *App) startConfigWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(a.conf.Configfile); err != nil {
		watcher.Close()
		return err
	}
	a.watcher = watcher

	a.shutdownWg.Add(1)
	go func() {
		defer a.shutdownWg.Done()
		var reloadAt <-chan time.Time
		for {
			select {
			case <-a.stopsignal:
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					// Editors and the web handler produce several events
					// per save; coalesce them.
					reloadAt = time.After(300 * time.Millisecond)
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("Config watcher error", "error", err)
			case <-reloadAt:
				reloadAt = nil
				a.reloadRuntimeParams()
			}
		}
	}()
	return nil
}

func (a *App) reloadRuntimeParams() {
	conf, err := c.ReadConfig(a.conf.Configfile)
	if err != nil {
		slog.Warn("Ignoring invalid config file change", "error", err)
		return
	}
	for _, upd := range conf.ParamUpdates() {
		select {
		case a.updates <- upd:
		case <-a.stopsignal:
			return
		}
	}
	slog.Info("Reloaded runtime parameters from config file")
}

func (a *App) startWebServer() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/config", c.ConfigHandler(a.conf.Configfile))
	mux.HandleFunc("/api/params", c.ParamsHandler(a.updates))
	mux.HandleFunc("/api/state", c.StateHandler(func() e.Mirror {
		return a.state.MirrorEvents().Value()
	}))
	mux.HandleFunc("/api/fire", c.FireHandler(func() int {
		return a.admitter.Fire(e.SourceManual, a.clock.Millis())
	}))

	a.httpServer = &http.Server{Addr: a.conf.Web.Listen, Handler: mux}
	go func() {
		slog.Info("Starting web API", "listen", a.conf.Web.Listen)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Web server failed", "error", err)
		}
	}()
}

func (a *App) shutdown() {
	close(a.stopsignal)
	if a.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		a.httpServer.Shutdown(ctx)
		cancel()
	}
	if a.watcher != nil {
		a.watcher.Close()
	}
	a.shutdownWg.Wait()
	a.platform.Stop()
}

func main() {
	cfile := flag.String("config", CONFILE, "Path to the config file")
	realp := flag.Bool("real", false, "Set to true when running on the real hardware")
	flag.Parse()

	for {
		conf, err := c.ReadConfig(*cfile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			os.Exit(2)
		}
		conf.RealHW = *realp

		logconf := conf.Logging.TUI
		if *realp {
			logconf = conf.Logging.HW
		}
		if err := logging.Init(!*realp, logconf.Level, logconf.Format, logconf.File != "", logconf.File); err != nil {
			fmt.Fprintf(os.Stderr, "can't initialise logging: %v\n", err)
			os.Exit(2)
		}

		ossignal := make(chan os.Signal, 1)
		signal.Notify(ossignal, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)

		app := NewApp(ossignal)
		if err := app.initialise(conf, *realp); err != nil {
			slog.Error("Initialisation failed", "error", err)
			logging.Close()
			os.Exit(1)
		}

		sig := <-ossignal
		signal.Stop(ossignal)
		app.shutdown()
		logging.Close()

		if sig == syscall.SIGHUP {
			slog.Info("Restarting after SIGHUP...")
			continue
		}
		return
	}
}
