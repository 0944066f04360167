// Package validation checks input envelopes sent by remote spectators before they reach the match.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/opd-ai/go-carsoccer/pkg/engine"
)

// Envelope limits
const (
	MaxMessageSize = 1024
	MaxKeyLen      = 16
)

// Envelope types accepted from spectators
const (
	TypeKeyDown = "key_down"
	TypeKeyUp   = "key_up"
	TypeReset   = "reset"
	TypePing    = "ping"
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrInvalidJSON     = errors.New("invalid JSON format")
	ErrUnknownType     = errors.New("unsupported message type")
	ErrInvalidKey      = errors.New("invalid key")
	ErrRateLimited     = errors.New("rate limit exceeded")
)

// InputEnvelope is a message from a remote input collaborator
type InputEnvelope struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

// MessageValidator parses and validates envelopes, limiting how often each session may send
type MessageValidator struct {
	rateLimiter *RateLimiter
}

// NewMessageValidator creates a validator allowing rate envelopes per second per session, with bursts
func NewMessageValidator(rate, burst int) *MessageValidator {
	return &MessageValidator{
		rateLimiter: NewRateLimiter(rate, burst),
	}
}

// Close releases resources used by the message validator
func (v *MessageValidator) Close() {
	if v.rateLimiter != nil {
		v.rateLimiter.Close()
	}
}

// Forget drops rate limiting state for a disconnected session
func (v *MessageValidator) Forget(sessionID string) {
	v.rateLimiter.Forget(sessionID)
}

// ValidateMessage checks size, format, rate and content of a raw envelope
func (v *MessageValidator) ValidateMessage(data []byte, sessionID string) (*InputEnvelope, error) {
	if len(data) > MaxMessageSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrMessageTooLarge, len(data), MaxMessageSize)
	}

	var env InputEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
	}

	if env.Type != TypePing && !v.rateLimiter.Allow(sessionID) {
		return nil, ErrRateLimited
	}

	if err := ValidateEnvelope(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// ValidateEnvelope checks an envelope's type and, for key events, its key name
func ValidateEnvelope(env *InputEnvelope) error {
	switch env.Type {
	case TypeKeyDown, TypeKeyUp:
		return ValidateKey(env.Key)
	case TypeReset, TypePing:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
	}
}

// ValidateKey accepts only key names bound to a match action
func ValidateKey(key string) error {
	if key == "" || len(key) > MaxKeyLen || !utf8.ValidString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if !engine.IsBoundKey(key) {
		return fmt.Errorf("%w: %q is not bound", ErrInvalidKey, key)
	}
	return nil
}
