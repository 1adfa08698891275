package registry

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    ServiceDescriptor
		wantErr bool
	}{
		{in: "a=localhost:3001", want: ServiceDescriptor{Name: "a", Address: "localhost:3001"}},
		{in: " b = 10.0.0.1:80 ", want: ServiceDescriptor{Name: "b", Address: "10.0.0.1:80"}},
		{in: "c=3003", want: ServiceDescriptor{Name: "c", Address: "localhost:3003"}},
		{in: "nope", wantErr: true},
		{in: "=host:1", wantErr: true},
		{in: "x=", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	r, err := New(
		ServiceDescriptor{Name: "a", Address: "localhost:3001"},
		ServiceDescriptor{Name: "b", Address: "localhost:3002"},
	)
	require.NoError(t, err)
	require.Equal(t, 2, r.Len())
	require.Equal(t, []string{"localhost:3001", "localhost:3002"}, r.Addresses())

	d, err := r.Lookup("b")
	require.NoError(t, err)
	require.Equal(t, "http://localhost:3002/graphql", d.Endpoint())

	_, err = r.Lookup("z")
	require.ErrorIs(t, err, ErrUnknownService)

	// Services returns a copy.
	svcs := r.Services()
	svcs[0].Name = "mutated"
	require.Equal(t, "a", r.Services()[0].Name)
}

func TestNewRejectsInvalid(t *testing.T) {
	_, err := New()
	require.Error(t, err)

	_, err = New(
		ServiceDescriptor{Name: "a", Address: "localhost:1"},
		ServiceDescriptor{Name: "a", Address: "localhost:2"},
	)
	require.ErrorContains(t, err, "duplicate")

	_, err = New(ServiceDescriptor{Name: "a", Address: "localhost"})
	require.Error(t, err)

	_, err = New(ServiceDescriptor{Name: "a", Address: ":3000"})
	require.Error(t, err)

	_, err = New(ServiceDescriptor{Name: "a", Address: "localhost:99999"})
	require.Error(t, err)
}
