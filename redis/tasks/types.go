package tasks

import "time"

// Task types.
const (
	TypeReminderDaily  = "reminder:daily"
	TypeHealthCheck    = "health:check"
	TypeConnectionTest = "connection:test"
)

// Queue priority names.
const (
	PriorityLow      = "low"
	PriorityDefault  = "default"
	PriorityCritical = "critical"
)

// ReminderPayload carries the parameters of one reminder run. A zero RunAt
// means "now"; a fixed value replays a run against a known clock.
type ReminderPayload struct {
	RunAt time.Time `json:"run_at,omitempty"`
}
