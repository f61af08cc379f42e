package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"mistletoe/internal/config"
	"mistletoe/internal/db"
	"mistletoe/internal/engine"
	"mistletoe/internal/migrate"
	"mistletoe/internal/repo"
	"mistletoe/internal/token"
)

// Workspace is an opened, migrated workspace with its engine.
type Workspace struct {
	Dir    string
	DB     *sql.DB
	Config *config.Config
	Engine engine.Engine
	// Vocabulary backs the engine's token generator and can be reloaded.
	Vocabulary *token.Holder
}

func (w *Workspace) Close() error {
	if w == nil || w.DB == nil {
		return nil
	}
	return w.DB.Close()
}

// Open loads mistletoe.yml (defaults when absent), opens and migrates the
// database and wires an engine whose vocabulary can be swapped at runtime.
func Open(ctx context.Context, dir string, logger *zap.Logger) (*Workspace, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg, err := config.LoadOptional(dir)
	if err != nil {
		return nil, err
	}
	vocab, err := cfg.ResolveVocabulary(dir)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	conn, err := db.Open(db.Config{Workspace: dir})
	if err != nil {
		return nil, err
	}
	if err := migrate.MigrateContext(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	holder := token.NewHolder(vocab)
	e := engine.New(conn, cfg)
	e.Tokens.Words = holder
	e.Logger = logger
	return &Workspace{Dir: dir, DB: conn, Config: cfg, Engine: e, Vocabulary: holder}, nil
}

// ResolveExchange prefers override, then the only exchange in the workspace.
func ResolveExchange(ctx context.Context, r repo.Repo, override string) (string, error) {
	if override != "" {
		if _, err := r.GetExchange(ctx, override); err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return "", fmt.Errorf("exchange %s not found; create it with santa exchange create", override)
			}
			return "", err
		}
		return override, nil
	}
	x, err := r.SingleExchange(ctx)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return "", fmt.Errorf("no exchange yet; create one with santa exchange create")
		}
		return "", err
	}
	return x.ID, nil
}
