package events

import "time"

// BackendCallStart is emitted before an operation is sent to a backend service.
type BackendCallStart struct {
	Service   string
	Address   string
	Operation string // query, mutation
}

// BackendCallFinish is emitted after a backend call returns or fails.
// Status is the HTTP status code, or 0 when no response arrived.
type BackendCallFinish struct {
	Service   string
	Address   string
	Operation string
	Status    int
	Err       error
	Duration  time.Duration
}
