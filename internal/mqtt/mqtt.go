// Package mqtt publishes heater telemetry with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"
)

// TopicTemperature carries periodic temperature samples.
const TopicTemperature = "heat/coil/temperature"

// TopicCoil carries coil state transitions and safety trips.
const TopicCoil = "heat/coil/events"

// TopicSystem carries daemon lifecycle events.
const TopicSystem = "heat/coil/system"

// Coil event names.
const (
	EventCoilOn   = "COIL_ON"
	EventCoilOff  = "COIL_OFF"
	EventOvertemp = "OVERTEMP"
)

// Publisher publishes telemetry to MQTT.
type Publisher interface {
	// PublishSample sends a temperature sample to the broker.
	// Returns error if publishing fails (should not crash the process).
	PublishSample(s Sample) error

	// PublishCoil sends a coil event to the broker.
	PublishCoil(e CoilEvent) error

	// PublishSystem sends a daemon lifecycle event to the broker.
	PublishSystem(e SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Sample is one published temperature reading.
type Sample struct {
	Timestamp   time.Time
	Ticks       uint16
	SensorFault bool
}

// CoilEvent is a coil transition or an over-temperature trip.
type CoilEvent struct {
	Timestamp time.Time
	Event     string // COIL_ON, COIL_OFF, OVERTEMP
	Heating   bool
	TempTicks uint16
}

// SystemEvent represents a daemon lifecycle event (startup, shutdown).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// SamplePayload is the MQTT message payload for a temperature sample.
type SamplePayload struct {
	Temperature SampleInner `json:"temperature"`
}

// SampleInner contains the sample details.
type SampleInner struct {
	Timestamp   string  `json:"timestamp"`
	Ticks       uint16  `json:"ticks"`
	Celsius     float64 `json:"celsius"`
	SensorFault bool    `json:"sensor_fault"`
}

// FormatSamplePayload creates the JSON payload for a temperature sample.
func FormatSamplePayload(s Sample) ([]byte, error) {
	payload := SamplePayload{
		Temperature: SampleInner{
			Timestamp:   s.Timestamp.UTC().Format(time.RFC3339),
			Ticks:       s.Ticks,
			Celsius:     float64(s.Ticks) * 0.25,
			SensorFault: s.SensorFault,
		},
	}
	return json.Marshal(payload)
}

// CoilPayload is the MQTT message payload for a coil event.
type CoilPayload struct {
	Coil CoilInner `json:"coil"`
}

// CoilInner contains the coil event details.
type CoilInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Heating   bool   `json:"heating"`
	TempTicks uint16 `json:"temp_ticks"`
}

// FormatCoilPayload creates the JSON payload for a coil event.
func FormatCoilPayload(e CoilEvent) ([]byte, error) {
	payload := CoilPayload{
		Coil: CoilInner{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     e.Event,
			Heating:   e.Heating,
			TempTicks: e.TempTicks,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the MQTT message payload for simple system events that
// don't carry a full status snapshot.
type SystemPayload struct {
	System SystemInner `json:"system"`
}

// SystemInner contains the system event details.
type SystemInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(e SystemEvent) ([]byte, error) {
	if e.RawPayload != nil {
		return e.RawPayload, nil
	}
	payload := SystemPayload{
		System: SystemInner{
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
			Event:     e.Event,
			Reason:    e.Reason,
		},
	}
	return json.Marshal(payload)
}
