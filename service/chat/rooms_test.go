package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func queuedFrame(t *testing.T, c *Client) *Frame {
	t.Helper()
	select {
	case data := <-c.send:
		f, err := ParseFrame(data)
		require.NoError(t, err)
		return f
	default:
		t.Fatal("no frame queued")
		return nil
	}
}

func requireNoFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case data := <-c.send:
		t.Fatalf("unexpected frame queued: %s", data)
	default:
	}
}

func TestRoomsBroadcastExcludesSender(t *testing.T) {
	r := NewRooms()
	sender := newClient("conn-a", nil)
	receiver := newClient("conn-b", nil)
	r.Join("conv-1", sender)
	r.Join("conv-1", receiver)

	r.Broadcast("conv-1", EventChat, json.RawMessage(`{"text":"hi"}`), sender.ConnID)

	f := queuedFrame(t, receiver)
	require.Equal(t, EventChat, f.Event)
	require.JSONEq(t, `{"text":"hi"}`, string(f.Data))
	requireNoFrame(t, sender)
}

func TestRoomsEmitReachesEveryDevice(t *testing.T) {
	r := NewRooms()
	phone := newClient("conn-phone", nil)
	laptop := newClient("conn-laptop", nil)
	r.Join("alice", phone)
	r.Join("alice", laptop)

	r.Emit("alice", EventNewChat, map[string]string{"name": "g"})

	for _, c := range []*Client{phone, laptop} {
		f := queuedFrame(t, c)
		require.Equal(t, EventNewChat, f.Event)
	}
}

func TestRoomsEmptyRoomIsNoop(t *testing.T) {
	r := NewRooms()
	r.Broadcast("nobody-home", EventChat, nil, "")
	require.Nil(t, r.Members("nobody-home"))
}

func TestRoomsLeaveAllRemovesFromEveryRoom(t *testing.T) {
	r := NewRooms()
	c := newClient("conn-a", nil)
	peer := newClient("conn-b", nil)
	r.Join("conv-1", c)
	r.Join("alice", c)
	r.Join("conv-1", peer)

	r.LeaveAll(c)

	require.Len(t, r.Members("conv-1"), 1)
	require.Nil(t, r.Members("alice"))

	r.Broadcast("conv-1", EventUserTyping, nil, "")
	requireNoFrame(t, c)
	queuedFrame(t, peer)
}

func TestRoomsSharedNamespace(t *testing.T) {
	// Conversation rooms and user rooms share one namespace, so a user
	// room is just a room named by the user id.
	r := NewRooms()
	c := newClient("conn-a", nil)
	r.Join("bob", c)
	require.Len(t, r.Members("bob"), 1)
}

func TestEnqueueAfterCloseIsNoop(t *testing.T) {
	c := newClient("conn-a", nil)
	c.close()
	require.False(t, c.enqueue([]byte(`{}`)))
	requireNoFrame(t, c)
}

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	c := newClient("conn-a", nil)
	for i := 0; i < sendQueueSize; i++ {
		require.True(t, c.enqueue([]byte(`{}`)))
	}
	require.False(t, c.enqueue([]byte(`{}`)), "full queue drops instead of blocking")
}
