package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sondaumoi/storechain-backend/pkg/enums"
)

// ActorRef identifies who caused an event. StoreID is set for store staff
// actions, nil for customer actions.
type ActorRef struct {
	UserID  uuid.UUID       `json:"user_id"`
	StoreID *uuid.UUID      `json:"store_id,omitempty"`
	Role    enums.ActorRole `json:"role"`
}

// PayloadEnvelope is the wire shape stored in outbox_events.payload and
// published verbatim to Pub/Sub. Consumers dedupe on EventID.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"event_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
