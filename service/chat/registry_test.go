package chat

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistryMultiDevicePresence(t *testing.T) {
	r := NewRegistry()

	r.Register("conn-1", "alice")
	r.Register("conn-2", "alice")
	require.True(t, r.IsOnline("alice"))
	require.Equal(t, 2, r.Count())

	r.Unregister("conn-1")
	require.True(t, r.IsOnline("alice"), "one live device keeps the user online")

	r.Unregister("conn-2")
	require.False(t, r.IsOnline("alice"))
	require.Equal(t, 0, r.Count())
}

func TestRegistryRegisterIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Register("conn-1", "alice")
	r.Register("conn-1", "alice")
	require.Equal(t, 1, r.Count())

	r.Unregister("conn-1")
	require.False(t, r.IsOnline("alice"))
}

func TestRegistryIgnoresEmptyValues(t *testing.T) {
	r := NewRegistry()
	r.Register("", "alice")
	r.Register("conn-1", "")
	require.Equal(t, 0, r.Count())
	require.False(t, r.IsOnline("alice"))
	require.False(t, r.IsOnline(""))
}

func TestRegistryUnregisterUnknownConn(t *testing.T) {
	r := NewRegistry()
	r.Unregister("never-seen")
	require.Equal(t, 0, r.Count())
}
