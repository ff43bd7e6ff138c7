package engine

import (
	"fmt"
	"math"
)

// The validator is the single write boundary between external command
// input and the shared control state. Every recognised parameter name
// carries a declared kind and range; out-of-range numbers are clamped
// to the nearest bound, wrong-shape values and unknown names are
// rejected and the stored value stays untouched. Validation never
// happens at read time.

type paramKind int

const (
	kindBool paramKind = iota
	kindInt
	kindFloat
	kindEnum
)

type paramSpec struct {
	kind paramKind
	min  float64
	max  float64
	enum map[string]int
	set  func(s *ControlState, v float64, b bool)
}

// Validator applies validated parameter updates to the control state.
// Turning the strip off additionally clears the burst queue, which is
// how a "stop animation" request takes effect on the next tick.
type Validator struct {
	state  *ControlState
	queue  *BurstQueue
	params map[string]paramSpec
}

func NewValidator(state *ControlState, queue *BurstQueue, ledsTotal int) *Validator {
	v := &Validator{state: state, queue: queue}
	v.params = map[string]paramSpec{
		"on": {kind: kindBool,
			set: func(s *ControlState, _ float64, b bool) { s.ambient.On = b }},
		"brightness": {kind: kindFloat, min: 0, max: 1,
			set: func(s *ControlState, f float64, _ bool) { s.ambient.Brightness = f }},
		"color_temp": {kind: kindInt, min: CCTMin, max: CCTMax,
			set: func(s *ControlState, f float64, _ bool) { s.ambient.ColorTemp = int(f) }},
		"intensity": {kind: kindFloat, min: 0, max: 1,
			set: func(s *ControlState, f float64, _ bool) { s.params.Intensity = f }},
		"trail_min": {kind: kindInt, min: 1, max: float64(ledsTotal),
			set: func(s *ControlState, f float64, _ bool) { s.params.TrailMin = int(f) }},
		"trail_max": {kind: kindInt, min: 1, max: float64(ledsTotal),
			set: func(s *ControlState, f float64, _ bool) { s.params.TrailMax = int(f) }},
		"speed_min": {kind: kindInt, min: 1, max: 60000,
			set: func(s *ControlState, f float64, _ bool) { s.params.SpeedMin = int(f) }},
		"speed_max": {kind: kindInt, min: 1, max: 60000,
			set: func(s *ControlState, f float64, _ bool) { s.params.SpeedMax = int(f) }},
		"endpoint": {kind: kindInt, min: VariableEndpoint, max: float64(ledsTotal - 1),
			set: func(s *ControlState, f float64, _ bool) { s.params.Endpoint = int(f) }},
		"bounce": {kind: kindEnum,
			enum: map[string]int{
				BounceOneWay.String():      int(BounceOneWay),
				BounceForwardBack.String(): int(BounceForwardBack),
			},
			set: func(s *ControlState, f float64, _ bool) { s.params.Bounce = BounceMode(f) }},
		"delay_min": {kind: kindInt, min: 0, max: 600000,
			set: func(s *ControlState, f float64, _ bool) { s.params.DelayMin = int(f) }},
		"delay_max": {kind: kindInt, min: 0, max: 600000,
			set: func(s *ControlState, f float64, _ bool) { s.params.DelayMax = int(f) }},
		"burst_min": {kind: kindInt, min: 1, max: 16,
			set: func(s *ControlState, f float64, _ bool) { s.params.CountMin = int(f) }},
		"burst_max": {kind: kindInt, min: 1, max: 16,
			set: func(s *ControlState, f float64, _ bool) { s.params.CountMax = int(f) }},
		"burst_gap": {kind: kindInt, min: 0, max: 60000,
			set: func(s *ControlState, f float64, _ bool) { s.params.Gap = int(f) }},
	}
	return v
}

// Apply validates one (name, raw value) pair and, if accepted, stores
// the coerced value atomically with respect to scheduler reads. It
// returns the value actually stored, which may differ from raw through
// clamping.
func (v *Validator) Apply(name string, raw any) (any, error) {
	spec, ok := v.params[name]
	if !ok {
		return nil, fmt.Errorf("unknown parameter %q", name)
	}

	var num float64
	var flag bool

	switch spec.kind {
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects a boolean, got %T", name, raw)
		}
		flag = b
	case kindEnum:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("parameter %q expects one of its enumeration values, got %T", name, raw)
		}
		val, ok := spec.enum[str]
		if !ok {
			return nil, fmt.Errorf("parameter %q has no value %q", name, str)
		}
		num = float64(val)
	case kindInt:
		f, err := coerceNumber(name, raw)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("parameter %q expects an integer, got %v", name, raw)
		}
		num = clampFloat(f, spec.min, spec.max)
	case kindFloat:
		f, err := coerceNumber(name, raw)
		if err != nil {
			return nil, err
		}
		num = clampFloat(f, spec.min, spec.max)
	}

	v.state.mu.Lock()
	spec.set(v.state, num, flag)
	offNow := name == "on" && !flag
	v.state.mu.Unlock()

	if offNow && v.queue != nil {
		// Stop request: drop all bursts, observed on the next tick.
		v.queue.Clear()
	}

	v.state.publishMirror()

	switch spec.kind {
	case kindBool:
		return flag, nil
	case kindInt, kindEnum:
		return int(num), nil
	default:
		return num, nil
	}
}

func coerceNumber(name string, raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("parameter %q expects a number, got %T", name, raw)
	}
}

func clampFloat(f, min, max float64) float64 {
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}
