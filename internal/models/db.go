package models

import (
	"time"
)

// ChatRecord is one completed exchange persisted per model.
type ChatRecord struct {
	Timestamp time.Time `json:"timestamp" db:"created_at"`
	Message   string    `json:"message" db:"message"`
	Response  string    `json:"response" db:"response"`
}

// RecordsByModel groups persisted exchanges by model identifier.
type RecordsByModel map[string][]ChatRecord
