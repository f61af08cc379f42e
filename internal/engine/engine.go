package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mistletoe/internal/assign"
	"mistletoe/internal/config"
	"mistletoe/internal/domain"
	"mistletoe/internal/events"
	"mistletoe/internal/repo"
	"mistletoe/internal/token"
)

var exchangeIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

type Engine struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Config *config.Config
	// Strategy resolves assignments; nil uses a RejectionSampler on Rand.
	Strategy assign.Strategy
	Tokens   token.Generator
	Rand     *rand.Rand
	Logger   *zap.Logger
	Now      func() time.Time

	// drawMu serializes whole draws and guards Rand. It is shared by copies.
	drawMu *sync.Mutex
}

// New builds an engine serving the inline vocabulary of cfg. Replace
// Tokens.Words to serve a reloadable vocabulary.
func New(db *sql.DB, cfg *config.Config) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	return Engine{
		DB:     db,
		Repo:   repo.Repo{DB: db},
		Events: events.Writer{DB: db},
		Config: cfg,
		Tokens: token.Generator{
			Words:       token.StaticVocabulary(cfg.Vocabulary),
			MaxAttempts: cfg.Tokens.MaxAttempts,
			Separator:   cfg.Tokens.Separator,
		},
		Rand:   NewRand(cfg.Draw.Seed),
		Logger: zap.NewNop(),
		Now:    time.Now,
		drawMu: &sync.Mutex{},
	}
}

// NewRand returns a generator seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e Engine) stamp() string {
	return e.now().UTC().Format(time.RFC3339)
}

func (e Engine) logger() *zap.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return zap.NewNop()
}

// CreateExchange registers a new, empty exchange.
func (e Engine) CreateExchange(ctx context.Context, id, description, actorID string) (domain.Exchange, error) {
	id = strings.TrimSpace(id)
	if !exchangeIDPattern.MatchString(id) {
		return domain.Exchange{}, fmt.Errorf("%w: %q", ErrInvalidExchangeID, id)
	}
	now := e.stamp()
	x := domain.Exchange{
		ID:          id,
		Status:      domain.ExchangeOpen,
		Description: strings.TrimSpace(description),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Exchange{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertExchange(ctx, tx, x); err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique") {
			return domain.Exchange{}, fmt.Errorf("exchange %s already exists", id)
		}
		return domain.Exchange{}, fmt.Errorf("insert exchange: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.ExchangeCreated, id, "exchange", id, actorID, nil); err != nil {
		return domain.Exchange{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Exchange{}, err
	}
	return x, nil
}

// ParseNames splits raw admin input on commas and newlines, trims each
// entry, drops blanks and keeps the first occurrence of duplicates.
func ParseNames(raw string) []string {
	raw = strings.ReplaceAll(raw, ",", "\n")
	return NormalizeNames(strings.Split(raw, "\n"))
}

// NormalizeNames trims, drops blanks and dedupes while keeping order.
func NormalizeNames(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, name := range in {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out
}

// SetNames replaces the roster. The matrix and any drawn records are
// discarded because their indices no longer line up.
func (e Engine) SetNames(ctx context.Context, exchangeID string, names []string, actorID string) ([]string, error) {
	names = NormalizeNames(names)
	if len(names) < 2 {
		return nil, ErrTooFewNames
	}
	if _, err := e.Repo.GetExchange(ctx, exchangeID); err != nil {
		return nil, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	if err := e.Repo.SaveRoster(ctx, tx, exchangeID, names); err != nil {
		return nil, fmt.Errorf("save roster: %w", err)
	}
	if err := e.Repo.DeleteMatrix(ctx, tx, exchangeID); err != nil {
		return nil, fmt.Errorf("reset matrix: %w", err)
	}
	if err := e.Repo.ClearParticipants(ctx, tx, exchangeID); err != nil {
		return nil, fmt.Errorf("clear participants: %w", err)
	}
	if err := e.Repo.SetExchangeStatus(ctx, tx, exchangeID, domain.ExchangeOpen, e.stamp()); err != nil {
		return nil, err
	}
	if err := e.Events.Append(ctx, tx, events.RosterSaved, exchangeID, "roster", exchangeID, actorID, events.EventPayload{"count": len(names)}); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	e.logger().Info("roster saved", zap.String("exchange", exchangeID), zap.Int("count", len(names)))
	return names, nil
}

// Names returns the saved roster or ErrNotReady.
func (e Engine) Names(ctx context.Context, exchangeID string) ([]string, error) {
	return e.names(ctx, nil, exchangeID)
}

func (e Engine) names(ctx context.Context, tx *sql.Tx, exchangeID string) ([]string, error) {
	names, err := e.Repo.GetRoster(ctx, tx, exchangeID)
	if errors.Is(err, repo.ErrNotFound) {
		if _, xerr := e.Repo.GetExchange(ctx, exchangeID); xerr != nil {
			return nil, xerr
		}
		return nil, ErrNotReady
	}
	return names, err
}

// MatrixView is a roster with its compatibility matrix.
type MatrixView struct {
	Names  []string      `json:"names"`
	Matrix assign.Matrix `json:"matrix"`
	// Saved is false when Matrix is the off-diagonal default.
	Saved bool `json:"saved"`
}

// Matrix returns the saved matrix, or the default when none was saved.
func (e Engine) Matrix(ctx context.Context, exchangeID string) (MatrixView, error) {
	return e.matrix(ctx, nil, exchangeID)
}

func (e Engine) matrix(ctx context.Context, tx *sql.Tx, exchangeID string) (MatrixView, error) {
	names, err := e.names(ctx, tx, exchangeID)
	if err != nil {
		return MatrixView{}, err
	}
	m, err := e.Repo.GetMatrix(ctx, tx, exchangeID)
	if errors.Is(err, repo.ErrNotFound) {
		return MatrixView{Names: names, Matrix: assign.DefaultMatrix(len(names))}, nil
	}
	if err != nil {
		return MatrixView{}, err
	}
	return MatrixView{Names: names, Matrix: m, Saved: true}, nil
}

// SetMatrix validates and stores m. A zero row is refused with the
// participant's name so the admin can fix it before drawing.
func (e Engine) SetMatrix(ctx context.Context, exchangeID string, m assign.Matrix, actorID string) (MatrixView, error) {
	names, err := e.names(ctx, nil, exchangeID)
	if err != nil {
		return MatrixView{}, err
	}
	if err := assign.Validate(names, m); err != nil {
		return MatrixView{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return MatrixView{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.SaveMatrix(ctx, tx, exchangeID, m); err != nil {
		return MatrixView{}, fmt.Errorf("save matrix: %w", err)
	}
	if err := e.Events.Append(ctx, tx, events.MatrixSaved, exchangeID, "matrix", exchangeID, actorID, events.EventPayload{"forbidden_pairs": countForbidden(m)}); err != nil {
		return MatrixView{}, err
	}
	if err := tx.Commit(); err != nil {
		return MatrixView{}, err
	}
	return MatrixView{Names: names, Matrix: m.Clone(), Saved: true}, nil
}

// SetPair allows or forbids giver giving to receiver.
func (e Engine) SetPair(ctx context.Context, exchangeID, giver, receiver string, allowed bool, actorID string) (MatrixView, error) {
	view, err := e.Matrix(ctx, exchangeID)
	if err != nil {
		return MatrixView{}, err
	}
	i, j := indexOf(view.Names, giver), indexOf(view.Names, receiver)
	if i < 0 {
		return MatrixView{}, fmt.Errorf("%w: %s", ErrUnknownName, giver)
	}
	if j < 0 {
		return MatrixView{}, fmt.Errorf("%w: %s", ErrUnknownName, receiver)
	}
	return e.SetMatrix(ctx, exchangeID, view.Matrix.Set(i, j, allowed), actorID)
}

// ResetMatrix forgets the saved matrix so the default applies again.
func (e Engine) ResetMatrix(ctx context.Context, exchangeID, actorID string) (MatrixView, error) {
	if _, err := e.names(ctx, nil, exchangeID); err != nil {
		return MatrixView{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return MatrixView{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.DeleteMatrix(ctx, tx, exchangeID); err != nil {
		return MatrixView{}, err
	}
	if err := e.Events.Append(ctx, tx, events.MatrixSaved, exchangeID, "matrix", exchangeID, actorID, events.EventPayload{"reset": true}); err != nil {
		return MatrixView{}, err
	}
	if err := tx.Commit(); err != nil {
		return MatrixView{}, err
	}
	return e.Matrix(ctx, exchangeID)
}

func countForbidden(m assign.Matrix) int {
	n := 0
	for i, row := range m {
		for j, ok := range row {
			if i != j && !ok {
				n++
			}
		}
	}
	return n
}

func indexOf(names []string, name string) int {
	name = strings.TrimSpace(name)
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
