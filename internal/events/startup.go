package events

import "time"

// PhaseChange is emitted when the gateway moves to a new startup phase.
type PhaseChange struct {
	From string
	To   string
}

// ProbeAttempt is emitted for every failed connection attempt during the
// readiness wait.
type ProbeAttempt struct {
	Address string
	Err     error
	Elapsed time.Duration
}

// ProbeReady is emitted once an address accepted a connection.
type ProbeReady struct {
	Address string
	Elapsed time.Duration
}

// IntrospectionFinish is emitted after a service schema was fetched.
type IntrospectionFinish struct {
	Service  string
	Types    int
	Err      error
	Duration time.Duration
}
