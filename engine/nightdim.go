package engine

import (
	"log/slog"
	"time"

	"github.com/nathan-osman/go-sunrise"
)

// NightDimmer scales the ambient output down between sunset and sunrise
// at a configured location. It adjusts the control state's night factor
// only; the user's brightness setting is left alone and bursts are not
// affected.
type NightDimmer struct {
	state     *ControlState
	latitude  float64
	longitude float64
	factor    float64
}

func NewNightDimmer(state *ControlState, latitude, longitude, factor float64) *NightDimmer {
	return &NightDimmer{
		state:     state,
		latitude:  latitude,
		longitude: longitude,
		factor:    factor,
	}
}

// Run recomputes the dim factor at every sunrise/sunset boundary until
// stop is closed. Meant to run as its own goroutine.
func (n *NightDimmer) Run(stop <-chan struct{}) {
	for {
		wait := n.apply(time.Now())
		select {
		case <-stop:
			n.state.SetNightDim(1)
			return
		case <-time.After(wait):
		}
	}
}

// apply sets the factor for now and returns how long to sleep until the
// next boundary.
func (n *NightDimmer) apply(now time.Time) time.Duration {
	rise, set := sunrise.SunriseSunset(n.latitude, n.longitude, now.Year(), now.Month(), now.Day())
	next := now.Add(24 * time.Hour)
	riseNext, _ := sunrise.SunriseSunset(n.latitude, n.longitude, next.Year(), next.Month(), next.Day())

	switch {
	case now.After(rise) && now.Before(set):
		// daytime
		n.state.SetNightDim(1)
		slog.Debug("NightDimmer: daytime, full ambient", "until", set)
		return set.Sub(now)
	case now.Before(rise):
		// after midnight, before sunrise
		n.state.SetNightDim(n.factor)
		slog.Debug("NightDimmer: night, dimming ambient", "factor", n.factor, "until", rise)
		return rise.Sub(now)
	default:
		// evening, before midnight
		n.state.SetNightDim(n.factor)
		slog.Debug("NightDimmer: night, dimming ambient", "factor", n.factor, "until", riseNext)
		return riseNext.Sub(now)
	}
}
