// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package bus

import "context"

// Topics published by the service.
const (
	TopicTimeUpdateHR    = "timing.timeupdateHR"
	TopicTimeUpdate      = "timing.timeupdate"
	TopicIngestCommitted = "ingest.committed"
)

// Message is an opaque event payload.
type Message interface{}

type Subscriber interface {
	// C returns a read-only message channel.
	C() <-chan Message
	// Close unsubscribes.
	Close() error
}

// Bus is the event transport abstraction.
type Bus interface {
	Publish(ctx context.Context, topic string, msg Message) error
	Subscribe(ctx context.Context, topic string) (Subscriber, error)
}

// Broadcaster delivers without waiting for slow subscribers.
type Broadcaster interface {
	Broadcast(topic string, msg Message) int
}
