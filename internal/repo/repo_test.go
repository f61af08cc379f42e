package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mistletoe/internal/assign"
	"mistletoe/internal/db"
	"mistletoe/internal/domain"
	"mistletoe/internal/migrate"
	"mistletoe/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, migrate.Migrate(conn))
	return repo.Repo{DB: conn}
}

func seedExchange(t *testing.T, r repo.Repo, id string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	require.NoError(t, r.InsertExchange(context.Background(), nil, domain.Exchange{
		ID: id, Status: domain.ExchangeOpen, CreatedAt: now, UpdatedAt: now,
	}))
}

func TestExchangeLifecycle(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	_, err := r.SingleExchange(ctx)
	require.ErrorIs(t, err, repo.ErrNotFound)

	seedExchange(t, r, "family")
	x, err := r.SingleExchange(ctx)
	require.NoError(t, err)
	require.Equal(t, "family", x.ID)
	require.Equal(t, domain.ExchangeOpen, x.Status)

	seedExchange(t, r, "office")
	_, err = r.SingleExchange(ctx)
	require.ErrorContains(t, err, "multiple exchanges")

	require.NoError(t, r.SetExchangeStatus(ctx, nil, "family", domain.ExchangeDrawn, "2026-12-01T00:00:00Z"))
	x, err = r.GetExchange(ctx, "family")
	require.NoError(t, err)
	require.Equal(t, domain.ExchangeDrawn, x.Status)

	require.ErrorIs(t, r.SetExchangeStatus(ctx, nil, "nope", domain.ExchangeDrawn, ""), repo.ErrNotFound)
	require.NoError(t, r.DeleteExchange(ctx, "office"))
	require.ErrorIs(t, r.DeleteExchange(ctx, "office"), repo.ErrNotFound)
	_, err = r.GetExchange(ctx, "office")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestRosterAndMatrix(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seedExchange(t, r, "family")

	_, err := r.GetRoster(ctx, nil, "family")
	require.ErrorIs(t, err, repo.ErrNotFound)
	require.NoError(t, r.SaveRoster(ctx, nil, "family", []string{"Ana", "Bo"}))
	require.NoError(t, r.SaveRoster(ctx, nil, "family", []string{"Ana", "Bo", "Cy"}))
	names, err := r.GetRoster(ctx, nil, "family")
	require.NoError(t, err)
	require.Equal(t, []string{"Ana", "Bo", "Cy"}, names)

	_, err = r.GetMatrix(ctx, nil, "family")
	require.ErrorIs(t, err, repo.ErrNotFound)
	m := assign.DefaultMatrix(3)
	require.NoError(t, r.SaveMatrix(ctx, nil, "family", m))
	got, err := r.GetMatrix(ctx, nil, "family")
	require.NoError(t, err)
	require.Equal(t, m, got)
	require.NoError(t, r.DeleteMatrix(ctx, nil, "family"))
	_, err = r.GetMatrix(ctx, nil, "family")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestReplaceParticipants(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seedExchange(t, r, "family")

	first := []domain.Participant{
		{Name: "Bo", Password: "rouge_sapin", Target: "Ana"},
		{Name: "Ana", Password: "vert_renne", Target: "Bo"},
	}
	tx, err := r.DB.BeginTx(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, r.ReplaceParticipants(ctx, tx, "family", "draw-1", first))
	require.NoError(t, tx.Commit())

	got, err := r.ListParticipants(ctx, "family")
	require.NoError(t, err)
	require.Equal(t, first, got, "roster order is kept")

	second := []domain.Participant{{Name: "Cy", Password: "dore_houx", Target: "Cy"}}
	require.NoError(t, r.ReplaceParticipants(ctx, nil, "family", "draw-2", second))
	got, err = r.ListParticipants(ctx, "family")
	require.NoError(t, err)
	require.Equal(t, second, got)

	drawID, err := r.LatestDrawID(ctx, "family")
	require.NoError(t, err)
	require.Equal(t, "draw-2", drawID)

	p, err := r.GetParticipant(ctx, "family", "Cy")
	require.NoError(t, err)
	require.Equal(t, "dore_houx", p.Password)
	_, err = r.GetParticipant(ctx, "family", "Ana")
	require.ErrorIs(t, err, repo.ErrNotFound)
}

func TestAPIKeys(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	raw, key, err := r.CreateAPIKey(ctx, "admin", "ci")
	require.NoError(t, err)
	require.Contains(t, raw, repo.APIKeyPrefix)
	require.Equal(t, repo.HashAPIKey(raw), key.KeyHash)
	require.NotContains(t, key.KeyHash, raw)

	got, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey(" "+raw+" "))
	require.NoError(t, err)
	require.Equal(t, key, got)

	keys, err := r.ListAPIKeys(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 1)

	require.NoError(t, r.DeleteAPIKey(ctx, key.ID))
	require.ErrorIs(t, r.DeleteAPIKey(ctx, key.ID), repo.ErrNotFound)
	_, err = r.GetAPIKeyByHash(ctx, key.KeyHash)
	require.ErrorIs(t, err, repo.ErrNotFound)

	_, _, err = r.CreateAPIKey(ctx, " ", "")
	require.Error(t, err)
}
