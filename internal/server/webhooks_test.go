package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mistletoe/internal/config"
	"mistletoe/internal/events"
)

type capturedDelivery struct {
	Event     webhookEvent
	Body      []byte
	Signature string
}

func TestWebhookDispatcherDeliversFilteredSignedEvents(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	var mu sync.Mutex
	var got []capturedDelivery
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var evt webhookEvent
		if err := json.Unmarshal(body, &evt); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		mu.Lock()
		got = append(got, capturedDelivery{Event: evt, Body: body, Signature: r.Header.Get(SignatureHeader)})
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer receiver.Close()

	// Events that exist before the first poll are not replayed.
	_, err := srv.Engine.CreateExchange(ctx, "before", "", "admin")
	require.NoError(t, err)

	d := NewWebhookDispatcher(srv.Engine, []config.WebhookConfig{{
		URL:    receiver.URL,
		Secret: "s3cret",
		Events: []string{events.RosterSaved, events.DrawCompleted},
	}}, zaptest.NewLogger(t))
	d.DispatchAll(ctx)
	require.Empty(t, got)

	_, err = srv.Engine.CreateExchange(ctx, "family", "", "admin")
	require.NoError(t, err)
	_, err = srv.Engine.SetNames(ctx, "family", []string{"Ana", "Ben", "Cleo"}, "admin")
	require.NoError(t, err)
	d.DispatchAll(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 1)
	require.Equal(t, events.RosterSaved, got[0].Event.Type)
	require.Equal(t, "family", got[0].Event.ExchangeID)
	require.JSONEq(t, `{"count":3}`, string(got[0].Event.Payload))
	require.Equal(t, Sign("s3cret", got[0].Body), got[0].Signature)
}

func TestWebhookDispatcherRetriesAfterFailure(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	ctx := context.Background()

	var mu sync.Mutex
	fail := true
	delivered := 0
	receiver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		delivered++
	}))
	defer receiver.Close()

	disabled := false
	d := NewWebhookDispatcher(srv.Engine, []config.WebhookConfig{
		{URL: receiver.URL},
		{URL: receiver.URL, Enabled: &disabled},
	}, zaptest.NewLogger(t))
	d.DispatchAll(ctx)

	_, err := srv.Engine.CreateExchange(ctx, "family", "", "admin")
	require.NoError(t, err)
	d.DispatchAll(ctx)

	mu.Lock()
	require.Zero(t, delivered)
	fail = false
	mu.Unlock()

	d.DispatchAll(ctx)
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, delivered)
}
