// pkg/network/protocol.go
package network

import (
	"github.com/opd-ai/go-carsoccer/pkg/engine"
	"github.com/opd-ai/go-carsoccer/pkg/validation"
)

// Server envelope types
const (
	TypeWelcome = "welcome"
	TypeState   = "state"
	TypePong    = "pong"
	TypeError   = "error"
)

// ServerEnvelope is every message the stream server sends
type ServerEnvelope struct {
	Type     string             `json:"type"`
	Session  string             `json:"session,omitempty"`
	State    *engine.MatchState `json:"state,omitempty"`
	Message  string             `json:"message,omitempty"`
	ServerMS int64              `json:"server_ms,omitempty"`
}

// ClientEnvelope is every message a spectator sends
type ClientEnvelope = validation.InputEnvelope
