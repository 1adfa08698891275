// Package gateway drives startup: it waits for the registered services,
// introspects and stitches their schemas, and then serves the unified
// schema over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"golang.org/x/sync/errgroup"

	eventbus "github.com/hanpama/stitchgate/internal/eventbus"
	events "github.com/hanpama/stitchgate/internal/events"
	introspection "github.com/hanpama/stitchgate/internal/introspection"
	registry "github.com/hanpama/stitchgate/internal/registry"
	server "github.com/hanpama/stitchgate/internal/server"
	stitch "github.com/hanpama/stitchgate/internal/stitch"
	stitchrt "github.com/hanpama/stitchgate/internal/stitchrt"
)

// Gateway composes the services of a registry.
type Gateway struct {
	registry *registry.Registry
	opts     *Options

	mu      sync.RWMutex
	phase   Phase
	unified *stitch.Unified
	graphql http.Handler
}

func New(reg *registry.Registry, opts ...Option) *Gateway {
	o := defaultOptions()
	for _, f := range opts {
		f(o)
	}
	return &Gateway{registry: reg, opts: o, phase: PhaseBootstrapping}
}

// Phase reports the current startup phase.
func (g *Gateway) Phase() Phase {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.phase
}

// Unified returns the stitched schema, nil before Stitching completed.
func (g *Gateway) Unified() *stitch.Unified {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.unified
}

func (g *Gateway) enter(ctx context.Context, to Phase) {
	g.mu.Lock()
	from := g.phase
	g.phase = to
	g.mu.Unlock()
	eventbus.Publish(ctx, events.PhaseChange{From: string(from), To: string(to)})
}

// Compose waits for every service, introspects them concurrently and stitches
// the results. Any error is fatal to startup.
func (g *Gateway) Compose(ctx context.Context) (*stitch.Unified, error) {
	g.enter(ctx, PhaseWaitingForServices)
	if err := g.opts.Prober.Wait(ctx, g.registry.Addresses(), g.opts.ReadyTimeout); err != nil {
		return nil, err
	}

	g.enter(ctx, PhaseIntrospecting)
	subs, err := g.introspect(ctx)
	if err != nil {
		return nil, err
	}

	g.enter(ctx, PhaseStitching)
	u, err := stitch.Stitch(subs)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.unified = u
	g.mu.Unlock()
	return u, nil
}

// Start composes the schema and switches to Serving.
func (g *Gateway) Start(ctx context.Context) error {
	u, err := g.Compose(ctx)
	if err != nil {
		return err
	}
	rt := stitchrt.New(u, stitchrt.WithCallTimeout(g.opts.CallTimeout))
	w, err := introspection.Wrap(rt, u.Schema)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	h, err := server.New(u.AST, w.Runtime, w.Schema, g.opts.Server...)
	if err != nil {
		return fmt.Errorf("gateway: %w", err)
	}
	g.mu.Lock()
	g.graphql = h
	g.mu.Unlock()
	g.enter(ctx, PhaseServing)
	return nil
}

func (g *Gateway) introspect(ctx context.Context) ([]*stitch.Subschema, error) {
	services := g.registry.Services()
	subs := make([]*stitch.Subschema, len(services))
	eg, ctx := errgroup.WithContext(ctx)
	for i, d := range services {
		exec := g.opts.Transport(d)
		eg.Go(func() error {
			sub, err := stitch.Introspect(ctx, d.Name, exec)
			if err != nil {
				return err
			}
			subs[i] = sub
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return subs, nil
}

// Handler serves /graphql, /healthz and /readyz. GraphQL requests are
// refused with 503 until the gateway is Serving.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/graphql", g.serveGraphQL)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeStatus(w, http.StatusOK, map[string]any{"status": "ok"})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		phase := g.Phase()
		status := http.StatusServiceUnavailable
		if phase == PhaseServing {
			status = http.StatusOK
		}
		writeStatus(w, status, map[string]any{"phase": phase})
	})
	return mux
}

func (g *Gateway) serveGraphQL(w http.ResponseWriter, r *http.Request) {
	g.mu.RLock()
	h := g.graphql
	phase := g.phase
	g.mu.RUnlock()
	if h == nil {
		writeStatus(w, http.StatusServiceUnavailable, map[string]any{
			"errors": []map[string]any{{"message": fmt.Sprintf("gateway is not serving yet (phase %s)", phase)}},
		})
		return
	}
	h.ServeHTTP(w, r)
}

func writeStatus(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
