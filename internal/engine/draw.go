package engine

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mistletoe/internal/assign"
	"mistletoe/internal/domain"
	"mistletoe/internal/events"
	"mistletoe/internal/repo"
)

// DrawOptions tune a single draw.
type DrawOptions struct {
	// MaxTries overrides the configured budget when positive.
	MaxTries int
	ActorID  string
}

// DrawResult is the freshly persisted batch.
type DrawResult struct {
	Draw         domain.Draw          `json:"draw"`
	Participants []domain.Participant `json:"participants"`
}

// Draw resolves an assignment, issues one password per participant and
// replaces the previous batch. Only one draw runs at a time per engine.
func (e Engine) Draw(ctx context.Context, exchangeID string, opts DrawOptions) (DrawResult, error) {
	e.drawMu.Lock()
	defer e.drawMu.Unlock()

	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return DrawResult{}, err
	}
	defer tx.Rollback()

	view, err := e.matrix(ctx, tx, exchangeID)
	if err != nil {
		return DrawResult{}, err
	}
	maxTries := opts.MaxTries
	if maxTries <= 0 {
		maxTries = e.Config.MaxTries()
	}
	strategy := e.Strategy
	if strategy == nil {
		strategy = assign.NewRejectionSampler(e.Rand)
	}
	assignment, err := strategy.Resolve(view.Names, view.Matrix, maxTries)
	if err != nil {
		e.logger().Warn("draw failed",
			zap.String("exchange", exchangeID),
			zap.Int("participants", len(view.Names)),
			zap.Int("max_tries", maxTries),
			zap.Error(err))
		return DrawResult{}, err
	}
	if !assignment.Verify(view.Names, view.Matrix) {
		return DrawResult{}, ErrInvalidAssignment
	}
	passwords, err := e.Tokens.Batch(e.Rand, len(view.Names))
	if err != nil {
		return DrawResult{}, fmt.Errorf("issue passwords: %w", err)
	}
	records := make([]domain.Participant, len(view.Names))
	for i, name := range view.Names {
		records[i] = domain.Participant{Name: name, Password: passwords[i], Target: assignment[name]}
	}

	now := e.stamp()
	d := domain.Draw{
		ID:           uuid.NewString(),
		ExchangeID:   exchangeID,
		Participants: len(records),
		CreatedAt:    now,
	}
	if err := e.Repo.ReplaceParticipants(ctx, tx, exchangeID, d.ID, records); err != nil {
		return DrawResult{}, err
	}
	if err := e.Repo.SetExchangeStatus(ctx, tx, exchangeID, domain.ExchangeDrawn, now); err != nil {
		return DrawResult{}, err
	}
	if err := e.Events.Append(ctx, tx, events.DrawCompleted, exchangeID, "draw", d.ID, opts.ActorID, events.EventPayload{
		"participants": d.Participants,
		"max_tries":    maxTries,
	}); err != nil {
		return DrawResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return DrawResult{}, err
	}
	e.logger().Info("draw completed", zap.String("exchange", exchangeID), zap.String("draw_id", d.ID), zap.Int("participants", d.Participants))
	return DrawResult{Draw: d, Participants: records}, nil
}

// Participants returns the current batch in roster order.
func (e Engine) Participants(ctx context.Context, exchangeID string) ([]domain.Participant, error) {
	if _, err := e.Repo.GetExchange(ctx, exchangeID); err != nil {
		return nil, err
	}
	items, err := e.Repo.ListParticipants(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrNotDrawn
	}
	return items, nil
}

// ExportEntry is one participant in an export document.
type ExportEntry struct {
	Password string `json:"password"`
	Target   string `json:"target"`
}

// Export returns {name: {password, target}} for the current batch.
func (e Engine) Export(ctx context.Context, exchangeID string) (map[string]ExportEntry, error) {
	items, err := e.Participants(ctx, exchangeID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]ExportEntry, len(items))
	for _, p := range items {
		out[p.Name] = ExportEntry{Password: p.Password, Target: p.Target}
	}
	return out, nil
}

// Reveal returns the recipient of name when password matches.
func (e Engine) Reveal(ctx context.Context, exchangeID, name, password string) (string, error) {
	if _, err := e.Repo.GetExchange(ctx, exchangeID); err != nil {
		return "", err
	}
	name = strings.TrimSpace(name)
	p, err := e.Repo.GetParticipant(ctx, exchangeID, name)
	if errors.Is(err, repo.ErrNotFound) {
		if _, derr := e.Repo.LatestDrawID(ctx, exchangeID); errors.Is(derr, repo.ErrNotFound) {
			return "", ErrNotDrawn
		}
		return "", fmt.Errorf("%w: %s", ErrUnknownName, name)
	}
	if err != nil {
		return "", err
	}
	if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(password)), []byte(p.Password)) != 1 {
		e.logger().Info("reveal refused", zap.String("exchange", exchangeID), zap.String("name", name))
		return "", ErrInvalidCredentials
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()
	if err := e.Events.Append(ctx, tx, events.ParticipantRevealed, exchangeID, "participant", name, name, nil); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return p.Target, nil
}

// RecentEvents lists the exchange audit log, newest first.
func (e Engine) RecentEvents(ctx context.Context, exchangeID string, limit int, cursor int64) ([]domain.Event, error) {
	if _, err := e.Repo.GetExchange(ctx, exchangeID); err != nil {
		return nil, err
	}
	return e.Repo.LatestEvents(ctx, limit, cursor, exchangeID, "")
}
