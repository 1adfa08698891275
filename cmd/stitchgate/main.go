package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hanpama/stitchgate/internal/config"
	"github.com/hanpama/stitchgate/internal/errs"
	"github.com/hanpama/stitchgate/internal/eventbus"
	"github.com/hanpama/stitchgate/internal/gateway"
	"github.com/hanpama/stitchgate/internal/logging"
	"github.com/hanpama/stitchgate/internal/metrics"
	"github.com/hanpama/stitchgate/internal/otel"
	"github.com/hanpama/stitchgate/internal/server"
)

const rootUsage = `stitchgate - GraphQL schema stitching gateway

USAGE:
  stitchgate <command> [flags]

COMMANDS:
  serve            Compose the registered services and serve the unified schema
  export-sdl       Compose the registered services and print the unified SDL
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -service <name=host:port>           Backend GraphQL service. Repeatable; at least one
                                      service is required. A bare port means localhost.
  -config <file>                      YAML configuration file; flags override it
  -server.addr <addr>                 HTTP listen address (default: :8080)
  -server.timeout <duration>          Per-request timeout (default: 10s)
  -server.pretty                      Pretty-print JSON responses
  -server.max-body-bytes N            Request body limit, 0 for none (default: 0)
  -server.cors-origin <origin>        Allowed CORS origin. Repeatable
  -server.metadata-header <name>      Forward HTTP header to backends. Repeatable
  -ready.timeout <duration>           Startup wait for services (default: 30s)
  -backend.call-timeout <duration>    Timeout of one backend call (default: 10s)
  -log.level <level>                  debug, info, warn or error (default: info)
  -log.format <format>                text or json (default: text)
  -metrics.addr <addr>                Serve Prometheus metrics on addr
  -otel.endpoint <addr>               OTLP collector endpoint
  -otel.service <name>                OpenTelemetry service name (default: stitchgate)
`

const exportSDLUsage = `export-sdl FLAGS:
  -service <name=host:port>   Backend GraphQL service. Repeatable
  -config <file>              YAML configuration file; flags override it
  -ready.timeout <duration>   Startup wait for services (default: 30s)
  -out <file>                 Write the SDL to file (default: stdout)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("stitchgate", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "export-sdl":
		return cmdExportSDL(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "export-sdl":
		fmt.Print(exportSDLUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

// parseConfig binds the shared flags plus extra to a fresh flag set.
func parseConfig(name, usage string, args []string, extra func(*flag.FlagSet)) (*config.Config, error) {
	cfg := config.Default()
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	cfg.Bind(fs)
	if extra != nil {
		extra(fs)
	}
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return nil, err
	}
	if err := cfg.Resolve(fs); err != nil {
		fmt.Fprint(os.Stderr, usage)
		return nil, err
	}
	return cfg, nil
}

// setupObservability installs the event bus with the logging subscriber and,
// when configured, tracing. The returned function flushes and detaches them.
func setupObservability(cfg *config.Config) (*slog.Logger, func(), error) {
	logger, err := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	slog.SetDefault(logger)
	eventbus.Use(eventbus.New())
	unsubscribe := logging.Subscribe(logger)

	shutdown, err := otel.Setup(cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		unsubscribe()
		return nil, nil, fmt.Errorf("otel setup: %w", err)
	}
	return logger, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
		unsubscribe()
	}, nil
}

func gatewayOptions(cfg *config.Config) []gateway.Option {
	var sopts []server.Option
	if cfg.Server.Pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if cfg.Server.Timeout > 0 {
		sopts = append(sopts, server.WithTimeout(time.Duration(cfg.Server.Timeout)))
	}
	if cfg.Server.MaxBodyBytes > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes))
	}
	if len(cfg.Server.CORSOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(cfg.Server.CORSOrigins...))
	}
	if len(cfg.Server.MetadataHeaders) > 0 {
		sopts = append(sopts, server.WithMetadataHeaders(cfg.Server.MetadataHeaders...))
	}
	return []gateway.Option{
		gateway.WithReadyTimeout(time.Duration(cfg.Ready.Timeout)),
		gateway.WithCallTimeout(time.Duration(cfg.Backend.CallTimeout)),
		gateway.WithServerOptions(sopts...),
	}
}

func cmdServe(args []string) error {
	cfg, err := parseConfig("serve", serveUsage, args, nil)
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return serve(ctx, cfg, nil)
}

// serve runs the gateway until ctx is done. The listen address is sent on
// listening once the socket is open, before startup completes.
func serve(ctx context.Context, cfg *config.Config, listening chan<- string) error {
	logger, teardown, err := setupObservability(cfg)
	if err != nil {
		return err
	}
	defer teardown()

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	g := gateway.New(reg, gatewayOptions(cfg)...)

	if cfg.Metrics.Addr != "" {
		m := metrics.New()
		defer m.Subscribe()()
		msrv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(m)}
		go func() {
			if err := msrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		defer msrv.Close()
	}

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: g.Handler(), ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	logger.Info("listening", "addr", ln.Addr().String(), "services", reg.Len())
	if listening != nil {
		listening <- ln.Addr().String()
	}

	if err := g.Start(ctx); err != nil {
		logger.Error("startup failed", "phase", g.Phase(), "class", errs.ClassOf(err), "error", err)
		_ = srv.Close()
		return err
	}

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func metricsMux(m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func cmdExportSDL(args []string) error {
	outFile := ""
	cfg, err := parseConfig("export-sdl", exportSDLUsage, args, func(fs *flag.FlagSet) {
		fs.StringVar(&outFile, "out", outFile, "Write the SDL to file")
	})
	if err != nil {
		return err
	}
	_, teardown, err := setupObservability(cfg)
	if err != nil {
		return err
	}
	defer teardown()

	reg, err := cfg.Registry()
	if err != nil {
		return err
	}
	u, err := gateway.New(reg, gatewayOptions(cfg)...).Compose(context.Background())
	if err != nil {
		return err
	}
	if outFile == "" {
		fmt.Print(u.SDL)
		return nil
	}
	return os.WriteFile(outFile, []byte(u.SDL), 0644)
}
