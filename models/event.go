package models

import (
	"encoding/json"
	"time"

	"goflare.io/storefront/models/enum"
)

type Event struct {
	ID        string          `json:"id"`
	Type      enum.EventType  `json:"type"`
	Source    string          `json:"source"`
	UserID    string          `json:"user_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
