package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"mistletoe/internal/token"
)

func TestOpenAndResolve(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ws, err := Open(ctx, dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer ws.Close()

	_, err = ResolveExchange(ctx, ws.Engine.Repo, "")
	require.ErrorContains(t, err, "no exchange yet")
	_, err = ResolveExchange(ctx, ws.Engine.Repo, "family")
	require.ErrorContains(t, err, "not found")

	_, err = ws.Engine.CreateExchange(ctx, "family", "", "admin")
	require.NoError(t, err)
	id, err := ResolveExchange(ctx, ws.Engine.Repo, "")
	require.NoError(t, err)
	require.Equal(t, "family", id)

	_, err = ws.Engine.CreateExchange(ctx, "office", "", "admin")
	require.NoError(t, err)
	_, err = ResolveExchange(ctx, ws.Engine.Repo, "")
	require.ErrorContains(t, err, "multiple exchanges")
	id, err = ResolveExchange(ctx, ws.Engine.Repo, "office")
	require.NoError(t, err)
	require.Equal(t, "office", id)
}

func TestOpenUsesVocabularyFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mistletoe.yml"), []byte("tokens:\n  vocabulary_file: words.yml\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "words.yml"), []byte("adjectives: [cosy]\nnouns: [mitten]\n"), 0o644))

	ws, err := Open(context.Background(), dir, nil)
	require.NoError(t, err)
	defer ws.Close()
	require.Equal(t, token.Vocabulary{Adjectives: []string{"cosy"}, Nouns: []string{"mitten"}}, ws.Vocabulary.Vocabulary())

	batch, err := ws.Engine.Tokens.Batch(ws.Engine.Rand, 1)
	require.NoError(t, err)
	require.Contains(t, batch[0], "cosy_mitten")
}
