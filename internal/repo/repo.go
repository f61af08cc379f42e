package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"mistletoe/internal/assign"
	"mistletoe/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r Repo) q(tx *sql.Tx) execer {
	if tx != nil {
		return tx
	}
	return r.DB
}

const exchangeColumns = `id,status,COALESCE(description,''),created_at,updated_at`

func scanExchange(row *sql.Row) (domain.Exchange, error) {
	var x domain.Exchange
	err := row.Scan(&x.ID, &x.Status, &x.Description, &x.CreatedAt, &x.UpdatedAt)
	if err == sql.ErrNoRows {
		return x, ErrNotFound
	}
	return x, err
}

func (r Repo) InsertExchange(ctx context.Context, tx *sql.Tx, x domain.Exchange) error {
	_, err := r.q(tx).ExecContext(ctx, `INSERT INTO exchanges(id,status,description,created_at,updated_at) VALUES (?,?,?,?,?)`,
		x.ID, x.Status, nullable(x.Description), x.CreatedAt, x.UpdatedAt)
	return err
}

func (r Repo) GetExchange(ctx context.Context, id string) (domain.Exchange, error) {
	return scanExchange(r.DB.QueryRowContext(ctx, `SELECT `+exchangeColumns+` FROM exchanges WHERE id=?`, id))
}

// SingleExchange returns the only exchange in the workspace.
func (r Repo) SingleExchange(ctx context.Context) (domain.Exchange, error) {
	items, err := r.ListExchanges(ctx)
	if err != nil {
		return domain.Exchange{}, err
	}
	if len(items) == 0 {
		return domain.Exchange{}, ErrNotFound
	}
	if len(items) > 1 {
		return domain.Exchange{}, fmt.Errorf("multiple exchanges exist; specify --exchange")
	}
	return items[0], nil
}

func (r Repo) ListExchanges(ctx context.Context) ([]domain.Exchange, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+exchangeColumns+` FROM exchanges ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Exchange
	for rows.Next() {
		var x domain.Exchange
		if err := rows.Scan(&x.ID, &x.Status, &x.Description, &x.CreatedAt, &x.UpdatedAt); err != nil {
			return nil, err
		}
		res = append(res, x)
	}
	return res, rows.Err()
}

func (r Repo) SetExchangeStatus(ctx context.Context, tx *sql.Tx, id, status, now string) error {
	res, err := r.q(tx).ExecContext(ctx, `UPDATE exchanges SET status=?, updated_at=? WHERE id=?`, status, now, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteExchange(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM exchanges WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveRoster stores the ordered participant names.
func (r Repo) SaveRoster(ctx context.Context, tx *sql.Tx, exchangeID string, names []string) error {
	payload, err := json.Marshal(names)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO rosters(exchange_id,names_json,updated_at) VALUES (?,?,?)
ON CONFLICT(exchange_id) DO UPDATE SET names_json=excluded.names_json, updated_at=excluded.updated_at`,
		exchangeID, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetRoster returns ErrNotFound when no names were saved.
func (r Repo) GetRoster(ctx context.Context, tx *sql.Tx, exchangeID string) ([]string, error) {
	var raw string
	err := r.q(tx).QueryRowContext(ctx, `SELECT names_json FROM rosters WHERE exchange_id=?`, exchangeID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var names []string
	if err := json.Unmarshal([]byte(raw), &names); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return names, nil
}

func (r Repo) SaveMatrix(ctx context.Context, tx *sql.Tx, exchangeID string, m assign.Matrix) error {
	payload, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = r.q(tx).ExecContext(ctx, `INSERT INTO matrices(exchange_id,matrix_json,updated_at) VALUES (?,?,?)
ON CONFLICT(exchange_id) DO UPDATE SET matrix_json=excluded.matrix_json, updated_at=excluded.updated_at`,
		exchangeID, string(payload), time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetMatrix returns ErrNotFound when no matrix was saved.
func (r Repo) GetMatrix(ctx context.Context, tx *sql.Tx, exchangeID string) (assign.Matrix, error) {
	var raw string
	err := r.q(tx).QueryRowContext(ctx, `SELECT matrix_json FROM matrices WHERE exchange_id=?`, exchangeID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var m assign.Matrix
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("decode matrix: %w", err)
	}
	return m, nil
}

func (r Repo) DeleteMatrix(ctx context.Context, tx *sql.Tx, exchangeID string) error {
	_, err := r.q(tx).ExecContext(ctx, `DELETE FROM matrices WHERE exchange_id=?`, exchangeID)
	return err
}

func (r Repo) ClearParticipants(ctx context.Context, tx *sql.Tx, exchangeID string) error {
	_, err := r.q(tx).ExecContext(ctx, `DELETE FROM participants WHERE exchange_id=?`, exchangeID)
	return err
}

// ReplaceParticipants overwrites the whole batch for an exchange. Callers
// pass a tx so the delete and inserts commit together.
func (r Repo) ReplaceParticipants(ctx context.Context, tx *sql.Tx, exchangeID, drawID string, items []domain.Participant) error {
	if err := r.ClearParticipants(ctx, tx, exchangeID); err != nil {
		return err
	}
	for i, p := range items {
		if _, err := r.q(tx).ExecContext(ctx, `INSERT INTO participants(exchange_id,name,password,target,position,draw_id) VALUES (?,?,?,?,?,?)`,
			exchangeID, p.Name, p.Password, p.Target, i, drawID); err != nil {
			return fmt.Errorf("insert participant %s: %w", p.Name, err)
		}
	}
	return nil
}

// ListParticipants returns records in roster order.
func (r Repo) ListParticipants(ctx context.Context, exchangeID string) ([]domain.Participant, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT name,password,target FROM participants WHERE exchange_id=? ORDER BY position`, exchangeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Participant
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.Name, &p.Password, &p.Target); err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (r Repo) GetParticipant(ctx context.Context, exchangeID, name string) (domain.Participant, error) {
	var p domain.Participant
	err := r.DB.QueryRowContext(ctx, `SELECT name,password,target FROM participants WHERE exchange_id=? AND name=?`, exchangeID, name).
		Scan(&p.Name, &p.Password, &p.Target)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	return p, err
}

// LatestDrawID returns the draw that produced the current batch.
func (r Repo) LatestDrawID(ctx context.Context, exchangeID string) (string, error) {
	var id string
	err := r.DB.QueryRowContext(ctx, `SELECT draw_id FROM participants WHERE exchange_id=? LIMIT 1`, exchangeID).Scan(&id)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return id, err
}

// LatestEvents returns events newest first, starting below cursor when set.
func (r Repo) LatestEvents(ctx context.Context, limit int, cursor int64, exchangeID, evtType string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if exchangeID != "" {
		clauses = append(clauses, "exchange_id=?")
		args = append(args, exchangeID)
	}
	if evtType != "" {
		clauses = append(clauses, "type=?")
		args = append(args, evtType)
	}
	if cursor > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, cursor)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(exchange_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id DESC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

// EventsAfter returns events with id greater than cursor, oldest first.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64, exchangeID string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	clauses := []string{"id>?"}
	args := []any{cursor}
	if exchangeID != "" {
		clauses = append(clauses, "exchange_id=?")
		args = append(args, exchangeID)
	}
	query := fmt.Sprintf(`SELECT id,ts,type,COALESCE(exchange_id,''),entity_kind,COALESCE(entity_id,''),actor_id,payload_json FROM events WHERE %s ORDER BY id ASC LIMIT ?`,
		strings.Join(clauses, " AND "))
	args = append(args, limit)
	return r.queryEvents(ctx, query, args...)
}

func (r Repo) queryEvents(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.Type, &e.ExchangeID, &e.EntityKind, &e.EntityID, &e.ActorID, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the highest event id, across all exchanges when exchangeID is empty.
func (r Repo) LatestEventID(ctx context.Context, exchangeID string) (int64, error) {
	query := `SELECT COALESCE(MAX(id),0) FROM events`
	var args []any
	if exchangeID != "" {
		query += ` WHERE exchange_id=?`
		args = append(args, exchangeID)
	}
	var id int64
	if err := r.DB.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
