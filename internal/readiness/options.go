package readiness

import (
	"net"
	"time"
)

// Options tunes the probe loop.
//
// Defaults:
// - InitialInterval: 100ms
// - MaxInterval:     2s
// - Dialer:          1s connect timeout
type Options struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Dialer          *net.Dialer
}

type Option func(*Options)

func defaultOptions() *Options {
	return &Options{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Dialer:          &net.Dialer{Timeout: time.Second},
	}
}

func WithInitialInterval(d time.Duration) Option { return func(o *Options) { o.InitialInterval = d } }
func WithMaxInterval(d time.Duration) Option     { return func(o *Options) { o.MaxInterval = d } }
func WithDialer(d *net.Dialer) Option            { return func(o *Options) { o.Dialer = d } }
