package eventbus

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type ping struct{ N int }
type pong struct{ S string }

func TestPublishSubscribe(t *testing.T) {
	Use(New())
	t.Cleanup(func() { Use(nil) })

	var pings []int
	var pongs []string
	unsubA := Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.N) })
	unsubB := Subscribe(func(_ context.Context, e ping) { pings = append(pings, e.N*10) })
	Subscribe(func(_ context.Context, e pong) { pongs = append(pongs, e.S) })

	Publish(context.Background(), ping{N: 1})
	Publish(context.Background(), pong{S: "x"})
	require.Equal(t, []int{1, 10}, pings)
	require.Equal(t, []string{"x"}, pongs)

	// Handlers built from the same closure must unsubscribe independently.
	unsubA()
	unsubA()
	Publish(context.Background(), ping{N: 2})
	require.Equal(t, []int{1, 10, 20}, pings)

	unsubB()
	Publish(context.Background(), ping{N: 3})
	require.Equal(t, []int{1, 10, 20}, pings)
}

func TestPublishWithoutBus(t *testing.T) {
	Use(nil)
	called := false
	unsub := Subscribe(func(context.Context, ping) { called = true })
	Publish(context.Background(), ping{})
	unsub()
	require.False(t, called)
}
