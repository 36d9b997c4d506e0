// Package domain defines the telemetry events emitted by the app lifecycle coordinator.
package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the kind of telemetry event.
type EventType string

const (
	TypeLifeCycle        EventType = "lifecycle"
	TypeApplicationUsage EventType = "app_usage"
	TypeEnvironment      EventType = "environment"
	TypeNetworkStatus    EventType = "network_status"
)

// Lifecycle actions.
const (
	ActionInstall = "install"
	ActionUpdate  = "update"
)

// Usage actions, one per host transition.
const (
	ActionActive     = "Active"
	ActionInactive   = "Inactive"
	ActionBackground = "background"
	ActionTerminate  = "terminate"
)

// UnknownNetwork is reported when no network status is available.
const UnknownNetwork = "unknown"

// UnknownBattery is reported when no battery reading is available.
const UnknownBattery = -1.0

// Event is one of LifeCycle, ApplicationUsage, Environment or NetworkStatus.
type Event interface {
	EventType() EventType
}

// LifeCycle records an install or update classification of the current run.
type LifeCycle struct {
	Action  string `json:"action"`
	Version string `json:"version"`
}

// ApplicationUsage records a foreground/background transition.
type ApplicationUsage struct {
	Action        string  `json:"action"`
	Network       string  `json:"network"`
	Context       string  `json:"context"`
	Battery       float64 `json:"battery"`
	ElapsedMillis float64 `json:"time_used"`
}

// Environment is a periodic snapshot of device and profile state.
type Environment struct {
	Device              string         `json:"device"`
	Language            string         `json:"language"`
	Version             string         `json:"version"`
	DefaultSearchEngine string         `json:"defaultSearchEngine"`
	HistoryURLs         int            `json:"historyUrls"`
	HistoryDays         int            `json:"historyDays"`
	Prefs               map[string]any `json:"prefs"`
}

// NetworkStatus records the current network status and how long it has held.
type NetworkStatus struct {
	Network        string  `json:"network"`
	DurationMillis float64 `json:"duration"`
}

func (LifeCycle) EventType() EventType        { return TypeLifeCycle }
func (ApplicationUsage) EventType() EventType { return TypeApplicationUsage }
func (Environment) EventType() EventType      { return TypeEnvironment }
func (NetworkStatus) EventType() EventType    { return TypeNetworkStatus }

// Envelope is an Event stamped by the telemetry logger with its run session and sequence number.
type Envelope struct {
	Seq       int64     `json:"seq"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"ts"`
	Type      EventType `json:"type"`
	Event     Event     `json:"payload"`
}

// NewEnvelope wraps ev. Type is taken from the event.
func NewEnvelope(seq int64, sessionID string, ts time.Time, ev Event) *Envelope {
	env := &Envelope{Seq: seq, SessionID: sessionID, Timestamp: ts.UTC(), Event: ev}
	if ev != nil {
		env.Type = ev.EventType()
	}
	return env
}

// Payload returns the JSON encoding of the wrapped event ("{}" when nil).
func (e *Envelope) Payload() ([]byte, error) {
	if e == nil || e.Event == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(e.Event)
}

// UnmarshalJSON decodes the payload into the concrete event named by type.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	var raw struct {
		Seq       int64           `json:"seq"`
		SessionID string          `json:"session_id"`
		Timestamp time.Time       `json:"ts"`
		Type      EventType       `json:"type"`
		Payload   json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	ev, err := DecodeEvent(raw.Type, raw.Payload)
	if err != nil {
		return err
	}
	*e = Envelope{Seq: raw.Seq, SessionID: raw.SessionID, Timestamp: raw.Timestamp, Type: raw.Type, Event: ev}
	return nil
}

// DecodeEvent decodes a JSON payload of the given type. An empty payload decodes to the zero event.
func DecodeEvent(t EventType, payload []byte) (Event, error) {
	var ev Event
	switch t {
	case TypeLifeCycle:
		ev = &LifeCycle{}
	case TypeApplicationUsage:
		ev = &ApplicationUsage{}
	case TypeEnvironment:
		ev = &Environment{}
	case TypeNetworkStatus:
		ev = &NetworkStatus{}
	default:
		return nil, fmt.Errorf("telemetry: unknown event type %q", t)
	}
	if len(payload) > 0 && string(payload) != "null" {
		if err := json.Unmarshal(payload, ev); err != nil {
			return nil, fmt.Errorf("telemetry: decode %s payload: %w", t, err)
		}
	}
	switch v := ev.(type) {
	case *LifeCycle:
		return *v, nil
	case *ApplicationUsage:
		return *v, nil
	case *Environment:
		return *v, nil
	case *NetworkStatus:
		return *v, nil
	}
	return ev, nil
}
