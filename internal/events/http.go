package events

import (
	"net/http"
	"time"
)

// HTTPStart is emitted when the gateway receives an HTTP request.
// The publishing context carries the request id.
type HTTPStart struct {
	Request *http.Request
}

// HTTPFinish is emitted after the handler wrote its response.
type HTTPFinish struct {
	Request  *http.Request
	Status   int
	Duration time.Duration
}
