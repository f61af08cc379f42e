package domain

// Exchange statuses.
const (
	ExchangeOpen  = "open"
	ExchangeDrawn = "drawn"
)

type Exchange struct {
	ID          string `json:"id"`
	Status      string `json:"status" enum:"open,drawn"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at" format:"date-time"`
	UpdatedAt   string `json:"updated_at" format:"date-time"`
}

// Participant is one member's record after a draw.
type Participant struct {
	Name     string `json:"name"`
	Password string `json:"password"`
	Target   string `json:"target"`
}

// Draw summarizes a completed draw without revealing any targets.
type Draw struct {
	ID           string `json:"id"`
	ExchangeID   string `json:"exchange_id"`
	Participants int    `json:"participants"`
	CreatedAt    string `json:"created_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	ExchangeID string `json:"exchange_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
