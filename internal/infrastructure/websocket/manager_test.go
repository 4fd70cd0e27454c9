package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quillchat/pkg/errors"
)

type intentFunc func(ctx context.Context, userID string, msg *WSMessage) error

func (f intentFunc) HandleIntent(ctx context.Context, userID string, msg *WSMessage) error {
	return f(ctx, userID, msg)
}

func decodeFrame(t *testing.T, frame []byte) WSMessage {
	t.Helper()
	var msg WSMessage
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func TestManagerTracksConnectionsPerUser(t *testing.T) {
	m := NewManager()
	a := NewClient("u1", nil)
	b := NewClient("u1", nil)

	m.add(a)
	m.add(b)
	assert.Equal(t, 2, m.ConnectionCount("u1"))

	m.SendToUser("u1", []byte("hello"))
	assert.Equal(t, []byte("hello"), <-a.Send)
	assert.Equal(t, []byte("hello"), <-b.Send)

	assert.True(t, m.remove(a))
	assert.False(t, m.remove(a))
	assert.Equal(t, 1, m.ConnectionCount("u1"))
	assert.True(t, m.remove(b))
	assert.Equal(t, 0, m.ConnectionCount("u1"))
}

func TestHandleMessagePing(t *testing.T) {
	c := NewClient("u1", nil)

	reply := c.handleMessage(context.Background(), nil, []byte(`{"type":"ping"}`))

	assert.Equal(t, MessageTypePong, decodeFrame(t, reply).Type)
}

func TestHandleMessageDispatchesIntent(t *testing.T) {
	c := NewClient("u1", nil)
	var got ConversationData
	handler := intentFunc(func(ctx context.Context, userID string, msg *WSMessage) error {
		assert.Equal(t, "u1", userID)
		assert.Equal(t, MessageTypeSelectConversation, msg.Type)
		return msg.Decode(&got)
	})

	reply := c.handleMessage(context.Background(), handler, []byte(`{"type":"select_conversation","data":{"conversation_id":"u1_u2"}}`))

	assert.Nil(t, reply)
	assert.Equal(t, "u1_u2", got.ConversationID)
}

func TestHandleMessageReportsErrors(t *testing.T) {
	c := NewClient("u1", nil)
	handler := intentFunc(func(ctx context.Context, userID string, msg *WSMessage) error {
		return errors.Forbidden("User is not a participant in this conversation", nil)
	})

	reply := decodeFrame(t, c.handleMessage(context.Background(), handler, []byte(`{"type":"mark_read"}`)))
	require.Equal(t, MessageTypeError, reply.Type)

	var data ErrorData
	require.NoError(t, json.Unmarshal(reply.Data, &data))
	assert.Equal(t, errors.CodeForbidden, data.Code)

	invalid := decodeFrame(t, c.handleMessage(context.Background(), handler, []byte(`not json`)))
	assert.Equal(t, MessageTypeError, invalid.Type)
}

func closed(c *Client) func() bool {
	return func() bool {
		select {
		case <-c.Done():
			return true
		default:
			return false
		}
	}
}

func TestDroppedClientCanStillReply(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewManager()
	m.Start(ctx)

	c := NewClient("u1", nil)
	require.True(t, m.Connect(c))
	require.Eventually(t, func() bool { return m.ConnectionCount("u1") == 1 }, time.Second, 5*time.Millisecond)

	for i := 0; i < 300; i++ {
		m.SendToUser("u1", []byte("state"))
	}

	require.Eventually(t, closed(c), time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, m.ConnectionCount("u1"))

	pong := c.handleMessage(context.Background(), nil, []byte(`{"type":"ping"}`))
	assert.NotPanics(t, func() {
		assert.False(t, c.enqueue(pong))
	})
}

func TestDisconnectAfterStopReturns(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	m := NewManager()
	m.Start(ctx)

	c := NewClient("u1", nil)
	require.True(t, m.Connect(c))
	cancel()
	<-m.stopped

	done := make(chan struct{})
	go func() {
		m.Disconnect(c)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Disconnect blocked after the manager stopped")
	}
	assert.True(t, closed(c)())

	late := NewClient("u2", nil)
	assert.False(t, m.Connect(late))
	assert.True(t, closed(late)())
}
