package messaging

import (
	"context"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	Close() error
}

// Message is the envelope published on lane changes.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// LaneChanged is the payload published whenever a department lane mutates.
// Consumers (waiting-room displays, staff dashboards) refresh on receipt.
type LaneChanged struct {
	Department   string `json:"department"`
	Status       string `json:"status"`
	QueueEntryID string `json:"queue_entry_id"`
	Operation    string `json:"operation"`
}

// Channel names.
const (
	ChannelLaneChanged = "queue.lane_changed"
)
