// Package publisher announces finished pipeline runs to downstream consumers.
package publisher

import (
	"context"
	"time"
)

// EventRunCompleted is the event type attribute of RunCompleted messages.
const EventRunCompleted = "activity.run.completed"

// Publisher sends a payload to a topic and returns the broker's message ID.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// RunCompleted is published once a report has been written.
type RunCompleted struct {
	RunID       string         `json:"run_id"`
	CompletedAt time.Time      `json:"completed_at"`
	Entries     int            `json:"entries"`
	Days        int            `json:"days"`
	Words       int            `json:"words"`
	Years       []int          `json:"years"`
	BySource    map[string]int `json:"by_source"`
	Artifacts   []string       `json:"artifacts"`
}

// Attributes are attached to the message envelope so subscribers can filter
// without decoding the body.
func (r RunCompleted) Attributes() map[string]string {
	return map[string]string{
		"event_type": EventRunCompleted,
		"run_id":     r.RunID,
	}
}
