// Package readiness gates startup until every backend address accepts TCP
// connections.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/hanpama/stitchgate/internal/errs"
	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
)

// DefaultTimeout bounds the whole wait when callers pass zero.
const DefaultTimeout = 30 * time.Second

// TimeoutError reports the addresses that never became reachable.
type TimeoutError struct {
	Timeout     time.Duration
	Unreachable []string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("readiness timeout after %s: unreachable %s", e.Timeout, strings.Join(e.Unreachable, ", "))
}

func (e *TimeoutError) Is(target error) bool { return target == errs.ErrReadinessTimeout }

// Prober dials addresses until they accept connections.
type Prober struct {
	opts *Options
}

func New(opts ...Option) *Prober {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	return &Prober{opts: o}
}

// Wait is shorthand for New().Wait.
func Wait(ctx context.Context, addrs []string, timeout time.Duration) error {
	return New().Wait(ctx, addrs, timeout)
}

// Wait probes all addrs concurrently under one shared deadline and returns
// nil once every address answered. Cancellation of ctx is reported as is.
func (p *Prober) Wait(ctx context.Context, addrs []string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var (
		mu          sync.Mutex
		unreachable []string
		wg          sync.WaitGroup
	)
	for _, addr := range addrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if err := p.probe(ctx, addr); err != nil {
				mu.Lock()
				unreachable = append(unreachable, addr)
				mu.Unlock()
			}
		}(addr)
	}
	wg.Wait()

	if len(unreachable) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	sort.Strings(unreachable)
	return &TimeoutError{Timeout: timeout, Unreachable: unreachable}
}

func (p *Prober) probe(ctx context.Context, addr string) error {
	start := time.Now()
	retry := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.opts.InitialInterval),
		backoff.WithMaxInterval(p.opts.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	_, err := backoff.RetryWithData(func() (struct{}, error) {
		conn, err := p.opts.Dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			eventbus.Publish(ctx, events.ProbeAttempt{Address: addr, Err: err, Elapsed: time.Since(start)})
			return struct{}{}, err
		}
		_ = conn.Close()
		return struct{}{}, nil
	}, backoff.WithContext(retry, ctx))
	if err != nil {
		return err
	}
	eventbus.Publish(ctx, events.ProbeReady{Address: addr, Elapsed: time.Since(start)})
	return nil
}
