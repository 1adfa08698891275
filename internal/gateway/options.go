package gateway

import (
	"time"

	httptp "github.com/hanpama/stitchgate/internal/httptp"
	readiness "github.com/hanpama/stitchgate/internal/readiness"
	registry "github.com/hanpama/stitchgate/internal/registry"
	server "github.com/hanpama/stitchgate/internal/server"
	stitch "github.com/hanpama/stitchgate/internal/stitch"
)

// Options configures startup and serving.
//
// Defaults:
// - ReadyTimeout: 30s
// - CallTimeout:  10s per backend call
// - Transport:    one httptp.Executor per service
type Options struct {
	ReadyTimeout time.Duration
	CallTimeout  time.Duration
	Prober       *readiness.Prober

	// Transport builds the executor used to reach a service.
	Transport func(registry.ServiceDescriptor) stitch.Executor

	Server []server.Option
}

type Option func(*Options)

func defaultOptions() *Options {
	o := &Options{
		ReadyTimeout: readiness.DefaultTimeout,
		CallTimeout:  10 * time.Second,
		Prober:       readiness.New(),
	}
	o.Transport = func(d registry.ServiceDescriptor) stitch.Executor {
		return httptp.New(d.Name, d.Address, httptp.WithCallTimeout(o.CallTimeout))
	}
	return o
}

func WithReadyTimeout(d time.Duration) Option { return func(o *Options) { o.ReadyTimeout = d } }
func WithCallTimeout(d time.Duration) Option  { return func(o *Options) { o.CallTimeout = d } }
func WithProber(p *readiness.Prober) Option   { return func(o *Options) { o.Prober = p } }
func WithServerOptions(opts ...server.Option) Option {
	return func(o *Options) { o.Server = append(o.Server, opts...) }
}
func WithTransport(f func(registry.ServiceDescriptor) stitch.Executor) Option {
	return func(o *Options) { o.Transport = f }
}
