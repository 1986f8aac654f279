package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestHub_BroadcastAndShutdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()

	client := &Client{hub: hub, send: make(chan []byte, 4), userID: "planner-1", logger: zap.NewNop()}
	require.True(t, hub.Add(client))

	require.NoError(t, hub.Broadcast(NotificationPayload{Event: "plan.created", EntityID: "p-1"}, "plan.created"))

	select {
	case raw := <-client.send:
		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		assert.Equal(t, "plan.created", env.Type)
	case <-time.After(time.Second):
		t.Fatal("сообщение не доставлено")
	}

	require.NoError(t, hub.SendMessageToUser("planner-1", map[string]string{"k": "v"}, "direct"))
	select {
	case <-client.send:
	case <-time.After(time.Second):
		t.Fatal("личное сообщение не доставлено")
	}

	cancel()
	<-stopped

	_, open := <-client.send
	assert.False(t, open, "канал клиента закрывается при остановке хаба")
	assert.False(t, hub.Add(&Client{hub: hub, send: make(chan []byte, 1), logger: zap.NewNop()}))
	assert.Equal(t, 0, hub.ClientCount())
}
