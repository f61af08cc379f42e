package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types.
const (
	ExchangeCreated     = "exchange.created"
	RosterSaved         = "roster.saved"
	MatrixSaved         = "matrix.saved"
	DrawCompleted       = "draw.completed"
	ParticipantRevealed = "participant.revealed"
)

type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

// EventPayload must never carry passwords or targets.
type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, exchangeID, entityKind, entityID, actorID string, payload EventPayload) error {
	if w.Now == nil {
		w.Now = time.Now
	}
	ts := w.Now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,type,exchange_id,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?,?)`,
		ts, evtType, nullable(exchangeID), entityKind, nullable(entityID), actorID, string(data))
	return err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
