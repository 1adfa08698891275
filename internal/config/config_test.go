package config

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	registry "github.com/hanpama/stitchgate/internal/registry"
)

const sample = `
services:
  - name: a
    address: localhost:3001
  - name: b
    address: "3002"
server:
  addr: ":9000"
  timeout: 5s
  metadata_headers: [X-Tenant]
ready:
  timeout: 1m
log:
  level: debug
  format: json
`

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stitchgate.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func parseFlags(t *testing.T, args ...string) (*Config, *flag.FlagSet) {
	t.Helper()
	c := Default()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	c.Bind(fs)
	require.NoError(t, fs.Parse(args))
	return c, fs
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)
	want := []Service{{Name: "a", Address: "localhost:3001"}, {Name: "b", Address: "3002"}}
	if diff := cmp.Diff(want, c.Services); diff != "" {
		t.Fatalf("services mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, Duration(5*time.Second), c.Server.Timeout)
	require.Equal(t, Duration(time.Minute), c.Ready.Timeout)
	require.Equal(t, []string{"X-Tenant"}, c.Server.MetadataHeaders)
}

func TestParseErrors(t *testing.T) {
	_, err := Parse([]byte("server:\n  timeout: soon\n"))
	require.ErrorContains(t, err, "line 2")

	_, err = Parse([]byte("servers: []\n"))
	require.Error(t, err, "unknown keys are rejected")

	c, err := Parse(nil)
	require.NoError(t, err)
	require.Empty(t, c.Services)
}

func TestFlagsOnly(t *testing.T) {
	c, fs := parseFlags(t, "-service", "a=3001", "-service", "b=otherhost:3002", "-ready.timeout", "2s")
	require.NoError(t, c.Resolve(fs))

	reg, err := c.Registry()
	require.NoError(t, err)
	want := []registry.ServiceDescriptor{
		{Name: "a", Address: "localhost:3001"},
		{Name: "b", Address: "otherhost:3002"},
	}
	if diff := cmp.Diff(want, reg.Services()); diff != "" {
		t.Fatalf("registry mismatch (-want +got):\n%s", diff)
	}
	require.Equal(t, Duration(2*time.Second), c.Ready.Timeout)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "info", c.Log.Level)
}

func TestFlagsOverrideFile(t *testing.T) {
	path := writeFile(t, sample)
	c, fs := parseFlags(t, "-config", path, "-log.level", "warn", "-server.metadata-header", "X-Trace")
	require.NoError(t, c.Resolve(fs))

	require.Len(t, c.Services, 2)
	require.Equal(t, ":9000", c.Server.Addr)
	require.Equal(t, Duration(5*time.Second), c.Server.Timeout)
	require.Equal(t, "warn", c.Log.Level)
	require.Equal(t, "json", c.Log.Format)
	require.Equal(t, []string{"X-Trace"}, c.Server.MetadataHeaders)
	require.Equal(t, Duration(10*time.Second), c.Backend.CallTimeout, "defaults survive when neither sets a value")

	c, fs = parseFlags(t, "-config", path, "-service", "z=localhost:4000")
	require.NoError(t, c.Resolve(fs))
	require.Equal(t, []Service{{Name: "z", Address: "localhost:4000"}}, c.Services)
}

func TestResolveErrors(t *testing.T) {
	c, fs := parseFlags(t)
	require.ErrorContains(t, c.Resolve(fs), "at least one service")

	c, fs = parseFlags(t, "-config", filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, c.Resolve(fs))

	_, fs = parseFlags(t)
	require.Error(t, fs.Parse([]string{"-service", "nope"}))
}
