package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOneSignalSend(t *testing.T) {
	var got oneSignalRequest
	var auth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	o := NewOneSignal("app-1", "key-1")
	o.url = ts.URL

	err := o.Send(context.Background(), "image", []string{"u1", "u2"},
		map[string]string{"conversationId": "c1"})
	require.NoError(t, err)

	require.Equal(t, "Basic key-1", auth)
	require.Equal(t, "app-1", got.AppID)
	require.Equal(t, map[string]string{"en": "image"}, got.Contents)
	require.Equal(t, []string{"u1", "u2"}, got.IncludeExternalUserIDs)
	require.Equal(t, "c1", got.Data["conversationId"])
}

func TestOneSignalSkipsEmptyRecipients(t *testing.T) {
	calls := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
	}))
	defer ts.Close()

	o := NewOneSignal("app-1", "key-1")
	o.url = ts.URL
	require.NoError(t, o.Send(context.Background(), "hi", nil, nil))
	require.Zero(t, calls)
}

func TestOneSignalPropagatesAPIFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	o := NewOneSignal("app-1", "key-1")
	o.url = ts.URL
	require.Error(t, o.Send(context.Background(), "hi", []string{"u1"}, nil))
}
