package platform

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/stianeikeland/go-rpio/v4"

	"lautenbacher.net/tronstrip/config"
	e "lautenbacher.net/tronstrip/engine"
	u "lautenbacher.net/tronstrip/util"
)

// RaspberryPiPlatform drives the real strip over SPI and polls the PIR
// motion sensor on a GPIO pin. An optional second GPIO pin mirrors the
// burst activity flag as an onboard indicator.
type RaspberryPiPlatform struct {
	*basePlatform
	conf           *config.HardwareConfig
	ledDriver      ledDriver
	spiMutex       sync.Mutex
	motionPin      rpio.Pin
	indicatorPin   rpio.Pin
	hasIndicator   bool
	sensorWg       sync.WaitGroup
	sensorStopChan chan struct{}
	readyChan      chan bool
}

func NewRaspberryPiPlatform(conf *config.HardwareConfig) *RaspberryPiPlatform {
	inst := &RaspberryPiPlatform{
		conf:           conf,
		sensorStopChan: make(chan struct{}),
		readyChan:      make(chan bool),
	}
	inst.basePlatform = newBasePlatform(conf.Display.LedsTotal, inst.rpiDisplayFunc)
	return inst
}

func (s *RaspberryPiPlatform) Ready() <-chan bool {
	return s.readyChan
}

func (s *RaspberryPiPlatform) Start() error {
	slog.Info("Initialise GPIO and Spi...")
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("failed to open gpio memory: %w", err)
	}

	if err := rpio.SpiBegin(rpio.Spi0); err != nil {
		return fmt.Errorf("failed to begin spi: %w", err)
	}
	rpio.SpiSpeed(s.conf.Display.SPIFrequency)
	rpio.SpiChipSelect(0)

	s.motionPin = rpio.Pin(s.conf.Motion.Pin)
	s.motionPin.Input()
	// Keep the line defined while the PIR is idle.
	s.motionPin.PullDown()

	if s.conf.Motion.IndicatorPin > 0 {
		s.indicatorPin = rpio.Pin(s.conf.Motion.IndicatorPin)
		s.indicatorPin.Output()
		s.indicatorPin.Low()
		s.hasIndicator = true
	}

	switch strings.ToUpper(s.conf.Display.LEDType) {
	case "APA102":
		s.ledDriver = newApa102Driver(&s.conf.Display)
	case "WS2801":
		s.ledDriver = newWs2801Driver(&s.conf.Display)
	default:
		return fmt.Errorf("unknown LED type: %s", s.conf.Display.LEDType)
	}

	s.displayWg.Add(1)
	go s.displayDriver()

	s.sensorWg.Add(1)
	go s.sensorDriver()

	close(s.readyChan)
	return nil
}

func (s *RaspberryPiPlatform) Stop() {
	s.setInShutdown()

	close(s.displayStopChan)
	close(s.sensorStopChan)
	s.displayWg.Wait()
	s.sensorWg.Wait()

	if s.hasIndicator {
		s.indicatorPin.Low()
	}
	rpio.SpiEnd(rpio.Spi0)
	if err := rpio.Close(); err != nil {
		slog.Error("Error closing gpio memory", "error", err)
	}
}

func (s *RaspberryPiPlatform) SetIndicator(active bool) {
	if !s.hasIndicator {
		return
	}
	if active {
		s.indicatorPin.High()
	} else {
		s.indicatorPin.Low()
	}
}

func (s *RaspberryPiPlatform) rpiDisplayFunc(leds []e.Led) {
	if err := s.ledDriver.write(leds, s.spiTransmit); err != nil {
		slog.Error("Error writing to LED driver", "error", err)
	}
}

func (s *RaspberryPiPlatform) spiTransmit(data []byte) {
	s.spiMutex.Lock()
	defer s.spiMutex.Unlock()
	rpio.SpiTransmit(data...)
}

// sensorDriver polls the PIR and turns rising edges into motion
// triggers, debounced by the configured hold-off.
func (s *RaspberryPiPlatform) sensorDriver() {
	defer s.sensorWg.Done()
	ticker := time.NewTicker(s.conf.Motion.PollInterval)
	defer ticker.Stop()

	lastLevel := s.motionPin.Read()
	var lastTrigger time.Time

	for {
		select {
		case <-s.sensorStopChan:
			slog.Info("Ending SensorDriver go-routine (RPi)")
			return
		case <-ticker.C:
			level := s.motionPin.Read()
			if level == rpio.High && lastLevel == rpio.Low {
				now := time.Now()
				if now.Sub(lastTrigger) >= s.conf.Motion.Debounce {
					lastTrigger = now
					select {
					case s.sensorEvents <- u.NewTrigger("PIR", 1, now):
					default:
						// Intake backlogged; a dropped edge is
						// indistinguishable from the PIR holding high.
					}
				}
			}
			lastLevel = level
		}
	}
}

// ledDriver turns a frame into the byte stream of a concrete strip
// protocol. Buffers are pre-allocated once.
type ledDriver interface {
	write(leds []e.Led, transmit func([]byte)) error
}

type ws2801Driver struct {
	conf   *config.DisplayConfig
	buffer []byte
}

func newWs2801Driver(conf *config.DisplayConfig) *ws2801Driver {
	return &ws2801Driver{
		conf:   conf,
		buffer: make([]byte, 3*conf.LedsTotal),
	}
}

func (d *ws2801Driver) write(leds []e.Led, transmit func([]byte)) error {
	display := d.buffer[:3*len(leds)]
	corr := d.conf.ColorCorrection
	for idx := range leds {
		display[3*idx] = byte(math.Min(leds[idx].Red*corr[0], 255))
		display[3*idx+1] = byte(math.Min(leds[idx].Green*corr[1], 255))
		display[3*idx+2] = byte(math.Min(leds[idx].Blue*corr[2], 255))
	}
	transmit(display)
	return nil
}

type apa102Driver struct {
	conf   *config.DisplayConfig
	buffer []byte
}

func newApa102Driver(conf *config.DisplayConfig) *apa102Driver {
	frameEndLength := (conf.LedsTotal / 16) + 1
	return &apa102Driver{
		conf:   conf,
		buffer: make([]byte, 4+(4*conf.LedsTotal)+frameEndLength),
	}
}

func (d *apa102Driver) write(leds []e.Led, transmit func([]byte)) error {
	frameEndLength := (len(leds) / 16) + 1
	requiredSize := 4 + (4 * len(leds)) + frameEndLength
	display := d.buffer[:requiredSize]

	// Frame start: 4 zero bytes
	copy(display[0:4], []byte{0x00, 0x00, 0x00, 0x00})

	// Fixed global brightness
	brightness := byte(d.conf.APA102_Brightness) | 0xE0

	corr := d.conf.ColorCorrection
	offset := 4
	for i := range leds {
		red := byte(math.Min(leds[i].Red*corr[0], 255))
		green := byte(math.Min(leds[i].Green*corr[1], 255))
		blue := byte(math.Min(leds[i].Blue*corr[2], 255))

		// protocol: brightness byte, blue, green, red
		display[offset] = brightness
		display[offset+1] = blue
		display[offset+2] = green
		display[offset+3] = red
		offset += 4
	}

	// Frame end: fill the rest of the slice with 0xFF
	for i := offset; i < requiredSize; i++ {
		display[i] = 0xFF
	}

	transmit(display)
	return nil
}
