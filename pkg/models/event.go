package models

import "time"

// Event is an inbound domain event that may start workflows subscribed to its type.
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"      validate:"required"`
	Payload   map[string]any `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}
