package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	backendtest "github.com/hanpama/stitchgate/internal/backendtest"
	"github.com/hanpama/stitchgate/internal/config"
	"github.com/hanpama/stitchgate/internal/eventbus"
	"github.com/hanpama/stitchgate/internal/registry"
)

func captureOutput(t *testing.T, fn func() error) (stdout, stderr string, err error) {
	t.Helper()
	oldOut, oldErr := os.Stdout, os.Stderr
	defer func() {
		os.Stdout, os.Stderr = oldOut, oldErr
	}()

	outR, outW, _ := os.Pipe()
	errR, errW, _ := os.Pipe()
	os.Stdout, os.Stderr = outW, errW

	doneOut := make(chan struct{})
	var bufOut bytes.Buffer
	go func() { io.Copy(&bufOut, outR); close(doneOut) }()

	doneErr := make(chan struct{})
	var bufErr bytes.Buffer
	go func() { io.Copy(&bufErr, errR); close(doneErr) }()

	err = fn()
	outW.Close()
	errW.Close()
	<-doneOut
	<-doneErr
	stdout, stderr = bufOut.String(), bufErr.String()
	return
}

func demoServices(t *testing.T) []string {
	t.Helper()
	t.Cleanup(func() { eventbus.Use(nil) })
	var flags []string
	for _, name := range []string{"a", "b", "c"} {
		svc, err := backendtest.Demo(name)
		require.NoError(t, err)
		flags = append(flags, "-service", name+"="+svc.Start(t))
	}
	return flags
}

func TestHelp(t *testing.T) {
	out, _, err := captureOutput(t, func() error {
		return run([]string{"help", "serve"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "serve FLAGS")

	out, _, err = captureOutput(t, func() error {
		return run([]string{"help"})
	})
	require.NoError(t, err)
	require.Contains(t, out, "export-sdl")
}

func TestUnknownCommand(t *testing.T) {
	_, stderr, err := captureOutput(t, func() error {
		return run([]string{"compile-proto"})
	})
	require.ErrorContains(t, err, "unknown command")
	require.Contains(t, stderr, "USAGE")
}

func TestServeRequiresService(t *testing.T) {
	_, stderr, err := captureOutput(t, func() error {
		return run([]string{"serve"})
	})
	require.ErrorContains(t, err, "at least one service")
	require.Contains(t, stderr, "serve FLAGS")
}

func TestExportSDL(t *testing.T) {
	args := append([]string{"export-sdl"}, demoServices(t)...)
	out, _, err := captureOutput(t, func() error { return run(args) })
	require.NoError(t, err)
	require.Contains(t, out, "type FooMutations {\n  a: String!\n  b: String!\n  c: String!\n}")
	require.Contains(t, out, "type Query {\n  hello: String!\n}")

	file := filepath.Join(t.TempDir(), "schema.graphql")
	_, _, err = captureOutput(t, func() error { return run(append(args, "-out", file)) })
	require.NoError(t, err)
	written, err := os.ReadFile(file)
	require.NoError(t, err)
	require.Equal(t, out, string(written))
}

func TestExportSDLFailsWhenServiceDown(t *testing.T) {
	_, _, err := captureOutput(t, func() error {
		return run([]string{"export-sdl", "-service", "a=localhost:1", "-ready.timeout", "100ms"})
	})
	require.ErrorContains(t, err, "readiness timeout")
}

func TestServe(t *testing.T) {
	cfg := config.Default()
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Log.Level = "error"
	for i := 0; i < 3; i++ {
		name := string(rune('a' + i))
		svc, err := backendtest.Demo(name)
		require.NoError(t, err)
		d, err := registry.Parse(name + "=" + svc.Start(t))
		require.NoError(t, err)
		cfg.Services = append(cfg.Services, config.Service{Name: d.Name, Address: d.Address})
	}
	t.Cleanup(func() { eventbus.Use(nil) })

	ctx, cancel := context.WithCancel(context.Background())
	listening := make(chan string, 1)
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, listening) }()
	addr := <-listening

	url := "http://" + addr + "/graphql"
	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Post(url, "application/json", strings.NewReader(`{"query":"mutation { foo { a b c } }"}`))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 10*time.Second, 50*time.Millisecond)
	require.JSONEq(t, `{"data": {"foo": {"a": "a", "b": "b", "c": "c"}}}`, body)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}
