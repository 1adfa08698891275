package stitchrt

import "time"

// Options configures a Runtime.
type Options struct {
	// CallTimeout bounds every backend call. Calls are detached from the
	// client request, so this is the only deadline they observe.
	CallTimeout time.Duration
}

// Option configures Options.
type Option func(*Options)

func defaultOptions() *Options {
	return &Options{CallTimeout: 10 * time.Second}
}

func WithCallTimeout(d time.Duration) Option { return func(o *Options) { o.CallTimeout = d } }
