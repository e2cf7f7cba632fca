// Package mqtt publishes DUT control events and receives commands over MQTT,
// with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"log"
	"time"

	"github.com/sweeney/dut-control/internal/control"
)

// TopicPrefix is the root of every topic used by the daemon.
const TopicPrefix = "lab/dut"

// Topics are the MQTT topics of one board.
type Topics struct {
	Events  string // control events, QoS 0
	System  string // lifecycle events, QoS 1
	Command string // incoming text commands
}

// TopicsFor returns the topics for board.
func TopicsFor(board string) Topics {
	base := TopicPrefix + "/" + board
	return Topics{
		Events:  base + "/events",
		System:  base + "/system",
		Command: base + "/command",
	}
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a control event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event control.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// Subscriber delivers text commands received on the command topic.
type Subscriber interface {
	// Subscribe registers handler for command payloads. The handler runs on
	// the client's goroutine and must not block.
	Subscribe(handler func(payload string)) error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "ATTACH_FAILED"
	Reason     string // e.g., "SIGTERM", "SIGINT"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload for a control event.
type Payload struct {
	DUT DUTPayload `json:"dut"`
}

// DUTPayload contains the control event details.
type DUTPayload struct {
	Timestamp string `json:"timestamp"`
	Board     string `json:"board"`
	Signal    string `json:"signal"`
	State     string `json:"state"`
}

// FormatPayload creates the JSON payload for a control event.
func FormatPayload(event control.Event) ([]byte, error) {
	state := "OFF"
	if event.On {
		state = "ON"
	}
	payload := Payload{
		DUT: DUTPayload{
			Timestamp: event.Time.UTC().Format(time.RFC3339),
			Board:     event.Board,
			Signal:    event.Signal.Key(),
			State:     state,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp,omitempty"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	inner := SystemPayloadInner{
		Event:  event.Event,
		Reason: event.Reason,
	}
	if !event.Timestamp.IsZero() {
		inner.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	}
	return json.Marshal(SystemPayload{System: inner})
}

// Observer forwards control events to a Publisher. Publish failures are
// logged and dropped.
type Observer struct {
	Publisher Publisher
}

// Record publishes e. It satisfies control.Observer.
func (o Observer) Record(e control.Event) {
	if err := o.Publisher.Publish(e); err != nil {
		log.Printf("publish error: %s %s: %v", e.Board, e.Signal, err)
	}
}
