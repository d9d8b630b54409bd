package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Effect kinds dispatched after a committed sale.
const (
	KindRecord = "record" // persisted notification record upstream
	KindPush   = "push"   // push notification to the operator device
)

// Effect is a post-commit side effect that must eventually reach the
// pharmacy API. Effects are retried independently of the sale that produced
// them; a failing effect never rolls the sale back.
type Effect struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Kind      string          `json:"kind"`
	Data      json.RawMessage `json:"data"`
	Priority  int             `json:"priority"`
	Retries   int             `json:"retries"`
	Timestamp time.Time       `json:"timestamp"`

	bucketKey []byte
}

func (e *Effect) normalize() {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Priority <= 0 || e.Priority > 5 {
		e.Priority = 3
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
}
