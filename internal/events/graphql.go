package events

import "time"

// GraphQLStart is emitted before a client operation is validated and executed.
type GraphQLStart struct {
	Query         string
	OperationName string
	OperationType string
}

// GraphQLFinish is emitted after a client operation completed. Rejected is
// set when parsing or validation failed and nothing was dispatched.
type GraphQLFinish struct {
	Query         string
	OperationName string
	OperationType string
	Rejected      bool
	Errors        []error
	Duration      time.Duration
}
