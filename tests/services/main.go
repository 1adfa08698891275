// Command services runs the demo backends a, b and c on ports 3001-3003.
//
//	go run ./tests/services &
//	go run ./cmd/stitchgate serve -service a=3001 -service b=3002 -service c=3003
//	curl -s localhost:8080/graphql -d '{"query":"mutation { foo { a b c } }"}'
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	backendtest "github.com/hanpama/stitchgate/internal/backendtest"
)

func main() {
	host := flag.String("host", "localhost", "interface to listen on")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *host, logger); err != nil {
		logger.Error("demo services stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, host string, logger *slog.Logger) error {
	names := make([]string, 0, len(backendtest.DemoPorts))
	for name := range backendtest.DemoPorts {
		names = append(names, name)
	}
	sort.Strings(names)

	eg, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		svc, err := backendtest.Demo(name)
		if err != nil {
			return err
		}
		addr := net.JoinHostPort(host, strconv.Itoa(backendtest.DemoPorts[name]))
		srv := &http.Server{Addr: addr, Handler: svc, ReadHeaderTimeout: 5 * time.Second}
		eg.Go(func() error {
			logger.Info("demo service listening", "service", name, "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}
	return eg.Wait()
}
