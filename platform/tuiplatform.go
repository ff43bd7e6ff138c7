package platform

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	e "lautenbacher.net/tronstrip/engine"
	"lautenbacher.net/tronstrip/logging"
	u "lautenbacher.net/tronstrip/util"
)

// TUIPlatform simulates the strip in the terminal. The 'm' key feeds a
// motion trigger into the engine exactly like the PIR would, 'f' asks
// for a manual fire.
type TUIPlatform struct {
	*basePlatform
	tviewapp     *tview.Application
	intro        *tview.TextView
	ledDisplay   *tview.TextView
	logView      *tview.TextView
	ossignalChan chan os.Signal
	manualFire   func()
	active       atomic.Bool
	logFlushOnce sync.Once
	readyChan    chan bool
}

func NewTUIPlatform(ledsTotal int, ossignalchan chan os.Signal) *TUIPlatform {
	inst := &TUIPlatform{
		ossignalChan: ossignalchan,
		readyChan:    make(chan bool),
	}
	inst.basePlatform = newBasePlatform(ledsTotal, inst.renderLeds)
	return inst
}

// SetManualFire wires the callback the 'f' key invokes.
func (s *TUIPlatform) SetManualFire(fire func()) {
	s.manualFire = fire
}

func (s *TUIPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *TUIPlatform) Start() error {
	s.initSimulationTUI()

	s.displayWg.Add(1)
	go s.displayDriver()

	return nil
}

func (s *TUIPlatform) Stop() {
	s.setInShutdown()

	close(s.displayStopChan)
	s.displayWg.Wait()

	logging.BufferOutput()
	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
}

func (s *TUIPlatform) SetIndicator(active bool) {
	if s.active.Swap(active) == active {
		return
	}
	if s.tviewapp != nil {
		s.tviewapp.QueueUpdateDraw(func() {
			s.intro.SetText(s.getIntroText())
		})
	}
}

func (s *TUIPlatform) renderLeds(leds []e.Led) {
	line := s.simulateStrip(leds)
	s.tviewapp.QueueUpdateDraw(func() {
		s.ledDisplay.SetText(line)
	})
}

func (s *TUIPlatform) getIntroText() string {
	indicator := "[#444444]● idle[-]"
	if s.active.Load() {
		indicator = "[#00ff00]● burst active[-]"
	}
	line1 := fmt.Sprintf("Status: %s", indicator)
	line2 := "Hit [blue]m[-] for motion, [blue]f[-] for manual fire"
	line3 := "Hit [#ff0000]q[-] to exit, [#ff0000]r[-] to reload, [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

func (s *TUIPlatform) initSimulationTUI() {
	s.tviewapp = tview.NewApplication()

	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(s.getIntroText())
	s.intro.SetBorder(true).SetTitle(" TRONSTRIP Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	s.ledDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.ledDisplay.SetBorder(true)
	s.ledDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			s.tviewapp.Draw()
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 5, 0, false).
		AddItem(s.ledDisplay, 4, 0, false).
		AddItem(s.logView, 0, 1, true)

	// Flush buffered logs into the log pane after the first draw.
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			logWriter := tview.ANSIWriter(s.logView)
			logging.SetOutput(logWriter)
			close(s.readyChan)
		})
	})

	s.tviewapp.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC:
			s.tviewapp.Stop()
			s.ossignalChan <- os.Interrupt
			return nil
		case tcell.KeyRune:
			switch string(event.Rune()) {
			case "m", "M":
				slog.Debug("Simulated motion trigger")
				select {
				case s.sensorEvents <- u.NewTrigger("PIR", 1, time.Now()):
				default:
					slog.Warn("Motion event dropped, intake busy")
				}
				return nil
			case "f", "F":
				if s.manualFire != nil {
					slog.Debug("Simulated manual fire")
					s.manualFire()
				}
				return nil
			case "q", "Q":
				s.ossignalChan <- os.Interrupt
				return nil
			case "r", "R":
				s.ossignalChan <- syscall.SIGHUP
				return nil
			}
		case tcell.KeyUp:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row-1, col)
			return nil
		case tcell.KeyDown:
			row, col := s.logView.GetScrollOffset()
			s.logView.ScrollTo(row+1, col)
			return nil
		}
		return event
	})

	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
}

// levels maps a pixel's mean channel value onto a bar glyph.
var levels = []struct {
	limit float64
	char  string
}{
	{4, "▁"},
	{16, "▂"},
	{32, "▃"},
	{64, "▄"},
	{96, "▅"},
	{128, "▆"},
	{192, "▇"},
	{256, "█"},
}

// simulateStrip renders one frame as a single tview-colored line.
func (s *TUIPlatform) simulateStrip(leds []e.Led) string {
	var buf strings.Builder
	buf.Grow(len(leds) * (len("[#000000]") + 4))

	buf.WriteString(" ")
	for _, v := range leds {
		if v.IsEmpty() {
			buf.WriteString(" ")
			continue
		}
		buf.WriteString(scaledColor(v))
		mean := (v.Red + v.Green + v.Blue) / 3.0
		for _, lvl := range levels {
			if mean < lvl.limit {
				buf.WriteString(lvl.char)
				break
			}
		}
		buf.WriteString("[-]")
	}
	return buf.String()
}

// scaledColor normalizes the pixel so dim colors stay visible in the
// terminal; the bar glyph carries the brightness information.
func scaledColor(led e.Led) string {
	maxColor := math.Max(led.Red, math.Max(led.Green, led.Blue))
	if maxColor == 0 {
		return "[#000000]"
	}
	factor := 255 / maxColor
	red := math.Min(led.Red*factor, 255)
	green := math.Min(led.Green*factor, 255)
	blue := math.Min(led.Blue*factor, 255)

	const epsilon = 1e-9

	return fmt.Sprintf("[#%02x%02x%02x]", byte(math.Round(red+epsilon)), byte(math.Round(green+epsilon)), byte(math.Round(blue+epsilon)))
}
