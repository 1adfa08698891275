// Package registry holds the static set of backend services the gateway
// composes. The set is fixed once the process starts.
package registry

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// ErrUnknownService is returned by Lookup for names that were never registered.
var ErrUnknownService = errors.New("registry: unknown service")

// ServiceDescriptor names one backend and where it listens.
type ServiceDescriptor struct {
	Name    string
	Address string // host:port
}

// Endpoint is the GraphQL URL of the service.
func (d ServiceDescriptor) Endpoint() string {
	return "http://" + d.Address + "/graphql"
}

// Registry is an immutable, ordered list of services. Registration order is
// significant: it decides which service answers shared root fields.
type Registry struct {
	services []ServiceDescriptor
	byName   map[string]int
}

// New validates descriptors and builds a Registry. Names must be unique and
// addresses must be host:port pairs.
func New(descriptors ...ServiceDescriptor) (*Registry, error) {
	if len(descriptors) == 0 {
		return nil, errors.New("registry: no services")
	}
	r := &Registry{
		services: make([]ServiceDescriptor, 0, len(descriptors)),
		byName:   make(map[string]int, len(descriptors)),
	}
	for _, d := range descriptors {
		d.Name = strings.TrimSpace(d.Name)
		d.Address = strings.TrimSpace(d.Address)
		if d.Name == "" {
			return nil, fmt.Errorf("registry: service with address %q has no name", d.Address)
		}
		if _, dup := r.byName[d.Name]; dup {
			return nil, fmt.Errorf("registry: duplicate service %q", d.Name)
		}
		if err := validateAddress(d.Address); err != nil {
			return nil, fmt.Errorf("registry: service %q: %w", d.Name, err)
		}
		r.byName[d.Name] = len(r.services)
		r.services = append(r.services, d)
	}
	return r, nil
}

// Parse reads a "name=host:port" pair. A bare port is shorthand for
// localhost, so "a=3001" and "a=localhost:3001" are equivalent.
func Parse(s string) (ServiceDescriptor, error) {
	name, addr, ok := strings.Cut(s, "=")
	if !ok {
		return ServiceDescriptor{}, fmt.Errorf("registry: invalid service %q, want name=host:port", s)
	}
	name = strings.TrimSpace(name)
	addr = strings.TrimSpace(addr)
	if _, err := strconv.Atoi(addr); err == nil {
		addr = net.JoinHostPort("localhost", addr)
	}
	if name == "" || addr == "" {
		return ServiceDescriptor{}, fmt.Errorf("registry: invalid service %q, want name=host:port", s)
	}
	return ServiceDescriptor{Name: name, Address: addr}, nil
}

func validateAddress(addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	if host == "" {
		return fmt.Errorf("address %q has no host", addr)
	}
	n, err := strconv.Atoi(port)
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("address %q has invalid port", addr)
	}
	return nil
}

// Services returns the descriptors in registration order.
func (r *Registry) Services() []ServiceDescriptor {
	out := make([]ServiceDescriptor, len(r.services))
	copy(out, r.services)
	return out
}

// Addresses returns every registered address in registration order.
func (r *Registry) Addresses() []string {
	out := make([]string, len(r.services))
	for i, d := range r.services {
		out[i] = d.Address
	}
	return out
}

// Lookup finds a service by name.
func (r *Registry) Lookup(name string) (ServiceDescriptor, error) {
	i, ok := r.byName[name]
	if !ok {
		return ServiceDescriptor{}, fmt.Errorf("%w: %q", ErrUnknownService, name)
	}
	return r.services[i], nil
}

// Len reports the number of registered services.
func (r *Registry) Len() int { return len(r.services) }
