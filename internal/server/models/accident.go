package models

import "time"

// Accident is the minimal record that owns a case number.
type Accident struct {
	ID           int64
	CaseNumber   string
	OccurredAt   time.Time
	Location     string
	Description  string
	RegisteredBy *int64
	CreatedAt    time.Time
}
