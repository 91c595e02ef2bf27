package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Windi-Fikriyansyah/platfrom_be_bidding/internal/logger"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	h := NewHub(logger.Discard())
	go h.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func TestHubSendToUser(t *testing.T) {
	h := startHub(t)
	alice, bob := uuid.New(), uuid.New()

	a1, a2, b := NewClient(alice), NewClient(alice), NewClient(bob)
	h.RegisterClient(a1)
	h.RegisterClient(a2)
	h.RegisterClient(b)
	require.Eventually(t, func() bool { return h.Connections(alice) == 2 }, time.Second, 5*time.Millisecond)

	sent := h.SendToUser(alice, map[string]string{"type": "ping"})
	assert.Equal(t, 2, sent)

	var got map[string]string
	require.NoError(t, json.Unmarshal(<-a1.Send, &got))
	assert.Equal(t, "ping", got["type"])
	assert.Len(t, a2.Send, 1)
	assert.Len(t, b.Send, 0)
}

func TestHubUnregisterClosesSend(t *testing.T) {
	h := startHub(t)
	c := NewClient(uuid.New())
	h.RegisterClient(c)
	h.UnregisterClient(c)

	select {
	case _, ok := <-c.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("send channel not closed")
	}
	assert.Equal(t, 0, h.Connections(c.UserID))
}

func TestUserFromChannel(t *testing.T) {
	id := uuid.New()
	got, err := userFromChannel(NotificationChannel(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = userFromChannel("chat:" + id.String())
	assert.Error(t, err)
}
