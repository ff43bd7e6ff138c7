package util

import "time"

// Trigger represents one motion sensor event as delivered by a platform.
// Value carries the raw sensor level (1 for a plain PIR edge, the
// simulated trigger value in the TUI).
type Trigger struct {
	ID        string
	Value     int
	Timestamp time.Time
}

// NewTrigger creates a new Trigger instance.
func NewTrigger(id string, value int, ts time.Time) *Trigger {
	inst := Trigger{
		ID:        id,
		Value:     value,
		Timestamp: ts,
	}
	return &inst
}
