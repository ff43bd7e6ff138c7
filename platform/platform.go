package platform

import (
	e "lautenbacher.net/tronstrip/engine"
	u "lautenbacher.net/tronstrip/util"
)

// Platform abstracts the real strip hardware away from the TUI
// simulation. The engine only ever sees this interface.
type Platform interface {
	// Start initializes the platform (opens GPIO/SPI, or starts the TUI).
	Start() error

	// Stop cleans up all platform resources.
	Stop()

	// DisplayLeds hands one complete frame to the output device. It
	// must return quickly: the frame is copied and written out by a
	// separate driver goroutine, so a slow device can never stall the
	// render tick.
	DisplayLeds(leds []e.Led)

	// SetIndicator drives the onboard status indicator reflecting
	// whether any burst is currently live.
	SetIndicator(active bool)

	// GetSensorEvents returns the channel motion triggers arrive on.
	GetSensorEvents() <-chan *u.Trigger

	// Ready is closed once the platform can accept frames.
	Ready() <-chan bool
}
