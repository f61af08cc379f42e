package mistletoesdk_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"mistletoe/internal/config"
	"mistletoe/internal/db"
	"mistletoe/internal/engine"
	"mistletoe/internal/migrate"
	"mistletoe/internal/server"
	mistletoesdk "mistletoe/sdk/go"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	cfg := config.Default()
	cfg.Admin.PasswordHash, err = engine.HashAdminPassword("hohoho", 4)
	require.NoError(t, err)
	handler, err := server.New(server.Config{
		Engine:   engine.New(conn, cfg),
		BasePath: "/v0",
		Auth:     server.AuthConfig{JWTSecret: "sdk-secret"},
	})
	require.NoError(t, err)
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestClientRoundTrip(t *testing.T) {
	ts := newAPI(t)
	ctx := context.Background()
	c := mistletoesdk.New(ts.URL, "")

	_, err := c.CreateExchange(ctx, "family", "")
	var apiErr *mistletoesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	require.NoError(t, c.Login(ctx, "hohoho"))
	x, err := c.CreateExchange(ctx, "family", "cousins")
	require.NoError(t, err)
	require.Equal(t, "family", c.ExchangeID)
	require.Equal(t, "open", x.Status)

	names, err := c.SetNames(ctx, []string{"Ana", "Ben", "Cleo", "Dan"})
	require.NoError(t, err)
	require.Len(t, names, 4)

	view, err := c.Matrix(ctx)
	require.NoError(t, err)
	require.False(t, view.Saved)
	view.Matrix[0][1] = false
	view, err = c.SetMatrix(ctx, view.Matrix)
	require.NoError(t, err)
	require.True(t, view.Saved)

	res, err := c.Draw(ctx, 0)
	require.NoError(t, err)
	require.Len(t, res.Participants, 4)
	require.NotEqual(t, "Ben", res.Participants[0].Target)

	public := mistletoesdk.New(ts.URL, "family")
	roster, err := public.Roster(ctx)
	require.NoError(t, err)
	require.Equal(t, names, roster)
	target, err := public.Reveal(ctx, "Dan", res.Participants[3].Password)
	require.NoError(t, err)
	require.Equal(t, res.Participants[3].Target, target)

	doc, err := c.Export(ctx)
	require.NoError(t, err)
	require.Equal(t, res.Participants[3].Password, doc["Dan"].Password)

	items, err := c.Events(ctx, 10)
	require.NoError(t, err)
	require.Equal(t, "participant.revealed", items[0].Type)
}

func TestClientSurfacesErrorCodes(t *testing.T) {
	ts := newAPI(t)
	ctx := context.Background()
	c := mistletoesdk.New(ts.URL, "")
	require.NoError(t, c.Login(ctx, "hohoho"))
	_, err := c.CreateExchange(ctx, "office", "")
	require.NoError(t, err)
	_, err = c.SetNames(ctx, []string{"Ana", "Ben"})
	require.NoError(t, err)

	_, err = c.SetMatrix(ctx, mistletoesdk.Matrix{{false, false}, {true, false}})
	var apiErr *mistletoesdk.APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "infeasible_row", apiErr.Code)

	_, err = c.Participants(ctx)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "not_drawn", apiErr.Code)
}
