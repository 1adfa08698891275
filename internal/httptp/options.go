package httptp

import (
	"net/http"
	"time"
)

// Options configures the HTTP transport behavior.
//
// Defaults:
// - CallTimeout:     10s (an earlier context deadline still applies)
// - MaxConnsPerHost: 16 idle connections kept per backend
// - Path:            /graphql
//
// All options are safe to leave zero-valued to use defaults.
type Options struct {
	CallTimeout     time.Duration
	MaxConnsPerHost int
	Path            string

	// Client overrides the pooled client built from the options above.
	Client *http.Client
}

// Option mutates Options
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		CallTimeout:     10 * time.Second,
		MaxConnsPerHost: 16,
		Path:            "/graphql",
	}
}

func WithCallTimeout(d time.Duration) Option { return func(o *Options) { o.CallTimeout = d } }
func WithMaxConnsPerHost(n int) Option       { return func(o *Options) { o.MaxConnsPerHost = n } }
func WithPath(p string) Option               { return func(o *Options) { o.Path = p } }
func WithHTTPClient(c *http.Client) Option   { return func(o *Options) { o.Client = c } }
