package engine

// ParamUpdate is one (parameter name, raw value) pair on its way to the
// Validator. Command producers (the HTTP layer, the config reloader)
// push these onto a channel; a single intake task applies them, which
// decouples ingestion cadence from application cadence and keeps all
// mutation on one well-defined path.
type ParamUpdate struct {
	Name  string
	Value any
	// Reply, when non-nil, receives the validation outcome. Senders
	// must use a buffered channel so a departed consumer cannot block
	// the intake task.
	Reply chan error
}
