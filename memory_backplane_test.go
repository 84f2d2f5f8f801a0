package wsrelay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackplane_PublishDeliversOnlyWhileSubscribed(t *testing.T) {
	mb := NewMemoryBackplane()
	ctx := context.Background()

	var got []string
	mb.OnDelivery(func(channel string, payload []byte) {
		got = append(got, channel+":"+string(payload))
	})

	require.NoError(t, mb.Publish(ctx, "room", []byte("before")))
	require.NoError(t, mb.Subscribe(ctx, "room"))
	require.NoError(t, mb.Publish(ctx, "room", []byte("during")))
	require.NoError(t, mb.Unsubscribe(ctx, "room"))
	require.NoError(t, mb.Publish(ctx, "room", []byte("after")))

	assert.Equal(t, []string{"room:during"}, got)
}

func TestMemoryBackplane_SetSemantics(t *testing.T) {
	mb := NewMemoryBackplane()
	ctx := context.Background()

	require.NoError(t, mb.AddToSet(ctx, "k", "a"))
	require.NoError(t, mb.AddToSet(ctx, "k", "a"))
	require.NoError(t, mb.AddToSet(ctx, "k", "b"))
	require.NoError(t, mb.RemoveFromSet(ctx, "k", "b"))

	members, err := mb.ListSet(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, members)

	members, err = mb.ListSet(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, members)
}

func TestMemoryBackplane_MarkReady(t *testing.T) {
	mb := NewMemoryBackplane()
	state := NewServiceState()

	require.False(t, state.Ready())
	mb.MarkReady(state)
	assert.True(t, state.Ready())
}
