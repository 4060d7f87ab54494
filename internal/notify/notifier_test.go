package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestDeliverPostsEvent(t *testing.T) {
	received := make(chan Event, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		received <- event
	}))
	defer srv.Close()

	n := NewNotifier(nil, zerolog.Nop(), srv.URL)
	err := n.deliver(&Event{
		Type:      "transfer_received",
		UserID:    42,
		Data:      map[string]string{"amount": "20"},
		CreatedAt: time.Now(),
	})
	require.NoError(t, err)

	event := <-received
	require.Equal(t, "transfer_received", event.Type)
	require.Equal(t, 42, event.UserID)
	require.Equal(t, "20", event.Data["amount"])
}

func TestDeliverReportsWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(nil, zerolog.Nop(), srv.URL)
	err := n.deliver(&Event{Type: "recharge_approved", UserID: 1})
	require.Error(t, err)
}

func TestDeliverWithoutWebhookIsNoop(t *testing.T) {
	n := NewNotifier(nil, zerolog.Nop(), "")
	require.NoError(t, n.deliver(&Event{Type: "transfer_sent", UserID: 1}))
}
