package readiness

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hanpama/stitchgate/internal/errs"
	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()
	return ln
}

// freeAddr returns an address nothing listens on.
func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestWaitAllReachable(t *testing.T) {
	a := listen(t)
	b := listen(t)

	eventbus.Use(eventbus.New())
	t.Cleanup(func() { eventbus.Use(nil) })
	var mu sync.Mutex
	var ready []string
	eventbus.Subscribe(func(_ context.Context, e events.ProbeReady) {
		mu.Lock()
		ready = append(ready, e.Address)
		mu.Unlock()
	})

	err := Wait(context.Background(), []string{a.Addr().String(), b.Addr().String()}, 5*time.Second)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{a.Addr().String(), b.Addr().String()}, ready)
}

func TestWaitLateListener(t *testing.T) {
	addr := freeAddr(t)
	go func() {
		time.Sleep(300 * time.Millisecond)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return
		}
		t.Cleanup(func() { _ = ln.Close() })
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			_ = c.Close()
		}
	}()

	p := New(WithInitialInterval(20*time.Millisecond), WithMaxInterval(50*time.Millisecond))
	require.NoError(t, p.Wait(context.Background(), []string{addr}, 5*time.Second))
}

func TestWaitTimeout(t *testing.T) {
	up := listen(t)
	down1 := freeAddr(t)
	down2 := freeAddr(t)

	p := New(WithInitialInterval(10*time.Millisecond), WithMaxInterval(20*time.Millisecond))
	start := time.Now()
	err := p.Wait(context.Background(), []string{down2, up.Addr().String(), down1}, 200*time.Millisecond)
	require.Error(t, err)
	require.Less(t, time.Since(start), 2*time.Second)

	require.True(t, errors.Is(err, errs.ErrReadinessTimeout))
	var te *TimeoutError
	require.ErrorAs(t, err, &te)
	want := []string{down1, down2}
	if want[0] > want[1] {
		want[0], want[1] = want[1], want[0]
	}
	require.Equal(t, want, te.Unreachable)
	require.Contains(t, err.Error(), down1)
	require.NotContains(t, err.Error(), up.Addr().String())
}

func TestWaitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Wait(ctx, []string{freeAddr(t)}, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
