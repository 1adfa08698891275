// Package config holds the gateway settings. Settings come from command line
// flags and, optionally, a YAML file; flags given on the command line win
// over the file.
package config

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	registry "github.com/hanpama/stitchgate/internal/registry"
)

// Duration is a time.Duration written in Go syntax ("30s") in YAML.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) { return time.Duration(d).String(), nil }

type Service struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type Server struct {
	Addr            string   `yaml:"addr"`
	Timeout         Duration `yaml:"timeout"`
	Pretty          bool     `yaml:"pretty"`
	MaxBodyBytes    int64    `yaml:"max_body_bytes"`
	CORSOrigins     []string `yaml:"cors_origins"`
	MetadataHeaders []string `yaml:"metadata_headers"`
}

type Ready struct {
	Timeout Duration `yaml:"timeout"`
}

type Backend struct {
	CallTimeout Duration `yaml:"call_timeout"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type Metrics struct {
	Addr string `yaml:"addr"`
}

type Otel struct {
	Endpoint string `yaml:"endpoint"`
	Service  string `yaml:"service"`
}

// Config is the complete gateway configuration.
type Config struct {
	Services []Service `yaml:"services"`
	Server   Server    `yaml:"server"`
	Ready    Ready     `yaml:"ready"`
	Backend  Backend   `yaml:"backend"`
	Log      Log       `yaml:"log"`
	Metrics  Metrics   `yaml:"metrics"`
	Otel     Otel      `yaml:"otel"`

	// File is the YAML file the settings were read from, if any.
	File string `yaml:"-"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Server:  Server{Addr: ":8080", Timeout: Duration(10 * time.Second)},
		Ready:   Ready{Timeout: Duration(30 * time.Second)},
		Backend: Backend{CallTimeout: Duration(10 * time.Second)},
		Log:     Log{Level: "info", Format: "text"},
		Otel:    Otel{Service: "stitchgate"},
	}
}

// Parse decodes YAML settings. Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	c := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Load reads and decodes the YAML file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	c.File = path
	return c, nil
}

type serviceFlag struct{ c *Config }

func (f serviceFlag) String() string {
	if f.c == nil {
		return ""
	}
	parts := make([]string, len(f.c.Services))
	for i, s := range f.c.Services {
		parts[i] = s.Name + "=" + s.Address
	}
	return strings.Join(parts, ",")
}

func (f serviceFlag) Set(v string) error {
	d, err := registry.Parse(v)
	if err != nil {
		return err
	}
	f.c.Services = append(f.c.Services, Service{Name: d.Name, Address: d.Address})
	return nil
}

type stringListFlag struct{ list *[]string }

func (s stringListFlag) String() string {
	if s.list == nil {
		return ""
	}
	return strings.Join(*s.list, ",")
}

func (s stringListFlag) Set(v string) error {
	*s.list = append(*s.list, v)
	return nil
}

// Bind registers the gateway flags on fs. Parsed values are written into c.
func (c *Config) Bind(fs *flag.FlagSet) {
	fs.StringVar(&c.File, "config", c.File, "YAML configuration file")
	fs.Var(serviceFlag{c}, "service", "Backend service as name=host:port. Repeatable")
	fs.StringVar(&c.Server.Addr, "server.addr", c.Server.Addr, "HTTP listen address")
	fs.DurationVar((*time.Duration)(&c.Server.Timeout), "server.timeout", time.Duration(c.Server.Timeout), "Per-request timeout")
	fs.BoolVar(&c.Server.Pretty, "server.pretty", c.Server.Pretty, "Pretty-print JSON responses")
	fs.Int64Var(&c.Server.MaxBodyBytes, "server.max-body-bytes", c.Server.MaxBodyBytes, "Request body limit, 0 for none")
	fs.Var(stringListFlag{&c.Server.CORSOrigins}, "server.cors-origin", "Allowed CORS origin. Repeatable")
	fs.Var(stringListFlag{&c.Server.MetadataHeaders}, "server.metadata-header", "Forward HTTP header to backends. Repeatable")
	fs.DurationVar((*time.Duration)(&c.Ready.Timeout), "ready.timeout", time.Duration(c.Ready.Timeout), "How long to wait for services at startup")
	fs.DurationVar((*time.Duration)(&c.Backend.CallTimeout), "backend.call-timeout", time.Duration(c.Backend.CallTimeout), "Timeout of one backend call")
	fs.StringVar(&c.Log.Level, "log.level", c.Log.Level, "Log level: debug, info, warn, error")
	fs.StringVar(&c.Log.Format, "log.format", c.Log.Format, "Log format: text or json")
	fs.StringVar(&c.Metrics.Addr, "metrics.addr", c.Metrics.Addr, "Prometheus metrics listen address")
	fs.StringVar(&c.Otel.Endpoint, "otel.endpoint", c.Otel.Endpoint, "OTLP collector endpoint")
	fs.StringVar(&c.Otel.Service, "otel.service", c.Otel.Service, "OpenTelemetry service name")
}

// Resolve reads c.File, when set, after fs was parsed. Values from the file
// replace defaults but never flags that were given explicitly.
func (c *Config) Resolve(fs *flag.FlagSet) error {
	if c.File == "" {
		return c.Validate()
	}
	file, err := Load(c.File)
	if err != nil {
		return err
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	c.overlay(file, set)
	return c.Validate()
}

func (c *Config) overlay(file *Config, set map[string]bool) {
	if !set["service"] && len(file.Services) > 0 {
		c.Services = file.Services
	}
	if !set["server.addr"] && file.Server.Addr != "" {
		c.Server.Addr = file.Server.Addr
	}
	if !set["server.timeout"] && file.Server.Timeout != 0 {
		c.Server.Timeout = file.Server.Timeout
	}
	if !set["server.pretty"] && file.Server.Pretty {
		c.Server.Pretty = true
	}
	if !set["server.max-body-bytes"] && file.Server.MaxBodyBytes != 0 {
		c.Server.MaxBodyBytes = file.Server.MaxBodyBytes
	}
	if !set["server.cors-origin"] && len(file.Server.CORSOrigins) > 0 {
		c.Server.CORSOrigins = file.Server.CORSOrigins
	}
	if !set["server.metadata-header"] && len(file.Server.MetadataHeaders) > 0 {
		c.Server.MetadataHeaders = file.Server.MetadataHeaders
	}
	if !set["ready.timeout"] && file.Ready.Timeout != 0 {
		c.Ready.Timeout = file.Ready.Timeout
	}
	if !set["backend.call-timeout"] && file.Backend.CallTimeout != 0 {
		c.Backend.CallTimeout = file.Backend.CallTimeout
	}
	if !set["log.level"] && file.Log.Level != "" {
		c.Log.Level = file.Log.Level
	}
	if !set["log.format"] && file.Log.Format != "" {
		c.Log.Format = file.Log.Format
	}
	if !set["metrics.addr"] && file.Metrics.Addr != "" {
		c.Metrics.Addr = file.Metrics.Addr
	}
	if !set["otel.endpoint"] && file.Otel.Endpoint != "" {
		c.Otel.Endpoint = file.Otel.Endpoint
	}
	if !set["otel.service"] && file.Otel.Service != "" {
		c.Otel.Service = file.Otel.Service
	}
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	if len(c.Services) == 0 {
		return errors.New("config: at least one service is required")
	}
	if c.Ready.Timeout < 0 || c.Backend.CallTimeout < 0 || c.Server.Timeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}
	return nil
}

// Registry builds the service registry in declaration order.
func (c *Config) Registry() (*registry.Registry, error) {
	ds := make([]registry.ServiceDescriptor, len(c.Services))
	for i, s := range c.Services {
		d, err := registry.Parse(s.Name + "=" + s.Address)
		if err != nil {
			return nil, err
		}
		ds[i] = d
	}
	return registry.New(ds...)
}
