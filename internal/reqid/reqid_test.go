package reqid

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestNewContext(t *testing.T) {
	ctx, id := NewContext(context.Background())
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	require.Equal(t, id, got)

	_, other := NewContext(context.Background())
	require.NotEqual(t, id, other)
}

func TestWithID(t *testing.T) {
	inbound := uuid.NewString()
	_, id := WithID(context.Background(), inbound)
	require.Equal(t, inbound, id)

	_, id = WithID(context.Background(), "not-a-uuid")
	require.NotEqual(t, "not-a-uuid", id)

	_, ok := FromContext(context.Background())
	require.False(t, ok)
}
