package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"chatsync/pkg/cache"
	"chatsync/pkg/feed"
	"chatsync/pkg/models"
	"chatsync/pkg/msgcache"
	"chatsync/pkg/store"
)

// End-to-end: save a message through the store and receive the published
// snapshot over the websocket stream.
func TestStreamDeliversSnapshots(t *testing.T) {
	hub := feed.NewHub(8)
	defer hub.Close()
	st, err := store.Open(t.TempDir(), hub, 25)
	require.NoError(t, err)
	defer st.Close()

	d := Deps{
		Store:    st,
		Cache:    msgcache.New(cache.New[any](cache.Options{Capacity: 100, TTL: time.Hour}), msgcache.Options{PageSize: 10}),
		Hub:      hub,
		PageSize: 10,
	}
	r := mux.NewRouter()
	RegisterStream(r, d)

	srv := httptest.NewServer(r)
	defer srv.Close()

	wsURL := strings.Replace(srv.URL, "http://", "ws://", 1) + "/chats/c1/stream"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		defer resp.Body.Close()
	}
	defer conn.Close()

	// the handler subscribes after the upgrade; wait for it before mutating
	require.Eventually(t, func() bool { return hub.Subscribers("c1") == 1 },
		2*time.Second, 10*time.Millisecond)

	require.NoError(t, st.SaveMessage(models.Message{
		ID: "m1", ChatID: "c1", SenderID: "alice", Content: "hello", TS: 1000,
	}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var snap feed.Snapshot
	require.NoError(t, conn.ReadJSON(&snap))
	require.Equal(t, "c1", snap.ChatID)
	require.Len(t, snap.Messages, 1)
	require.Equal(t, "m1", snap.Messages[0].ID)
}
