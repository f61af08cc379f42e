package server

import (
	"encoding/json"

	"mistletoe/internal/assign"
	"mistletoe/internal/domain"
)

// Request payloads

type CreateExchangeRequest struct {
	ID          string  `json:"id"`
	Description *string `json:"description,omitempty"`
}

type SetNamesRequest struct {
	// Names may be given as a list, as one comma/newline separated string, or both.
	Names []string `json:"names,omitempty"`
	Raw   string   `json:"raw,omitempty"`
}

type SetMatrixRequest struct {
	Matrix assign.Matrix `json:"matrix"`
}

type DrawRequest struct {
	MaxTries int `json:"max_tries,omitempty" minimum:"0"`
}

type RevealRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Password string `json:"password"`
}

// Response payloads

type ExchangeResponse struct {
	ID          string `json:"id"`
	Status      string `json:"status" enum:"open,drawn"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type NamesResponse struct {
	ExchangeID string   `json:"exchange_id"`
	Names      []string `json:"names"`
}

type MatrixResponse struct {
	ExchangeID string        `json:"exchange_id"`
	Names      []string      `json:"names"`
	Matrix     assign.Matrix `json:"matrix"`
	Saved      bool          `json:"saved"`
}

type ParticipantResponse struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Target   string `json:"target"`
}

type DrawResponse struct {
	ID           string                `json:"id"`
	ExchangeID   string                `json:"exchange_id"`
	CreatedAt    string                `json:"created_at"`
	Participants []ParticipantResponse `json:"participants"`
}

type RevealResponse struct {
	Name   string `json:"name"`
	Target string `json:"target"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	ExpiresAt string `json:"expires_at"`
}

type WhoAmIResponse struct {
	ActorID string `json:"actor_id"`
	Source  string `json:"source"`
}

type EventResponse struct {
	ID         int64          `json:"id"`
	TS         string         `json:"ts"`
	Type       string         `json:"type"`
	ExchangeID string         `json:"exchange_id,omitempty"`
	EntityKind string         `json:"entity_kind"`
	EntityID   string         `json:"entity_id,omitempty"`
	ActorID    string         `json:"actor_id"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func exchangeResponse(x domain.Exchange) ExchangeResponse {
	return ExchangeResponse{
		ID:          x.ID,
		Status:      x.Status,
		Description: x.Description,
		CreatedAt:   x.CreatedAt,
		UpdatedAt:   x.UpdatedAt,
	}
}

func mapExchanges(items []domain.Exchange) []ExchangeResponse {
	out := make([]ExchangeResponse, 0, len(items))
	for _, x := range items {
		out = append(out, exchangeResponse(x))
	}
	return out
}

func mapParticipants(items []domain.Participant) []ParticipantResponse {
	out := make([]ParticipantResponse, 0, len(items))
	for _, p := range items {
		out = append(out, ParticipantResponse{Name: p.Name, Password: p.Password, Target: p.Target})
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:         e.ID,
		TS:         e.TS,
		Type:       e.Type,
		ExchangeID: e.ExchangeID,
		EntityKind: e.EntityKind,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Payload:    decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{"raw": raw}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
