package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrUnknownCommand is returned by Decode for commands outside the vocabulary.
// Receivers ignore such envelopes.
var ErrUnknownCommand = errors.New("unknown command")

// Envelope is a single directed message between the UI and its host
type Envelope struct {
	ID      string          `json:"id"`
	Command Command         `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// ErrorInfo describes a failed request as reported by the host
type ErrorInfo struct {
	Code    string                 `json:"code,omitempty"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// NewID returns a fresh envelope identifier
func NewID() string {
	return uuid.New().String()
}

// NewRequest creates a request envelope with a new unique id
func NewRequest(command Command, payload interface{}) (Envelope, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", command, err)
	}
	return Envelope{ID: NewID(), Command: command, Payload: raw}, nil
}

// NewResponse creates a response envelope that echoes the request id
func NewResponse(id string, command Command, payload interface{}) (Envelope, error) {
	raw, err := encodePayload(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s payload: %w", command, err)
	}
	return Envelope{ID: id, Command: command, Payload: raw}, nil
}

// NewErrorResponse creates a failed response for the request with the given id
func NewErrorResponse(id string, command Command, info ErrorInfo) Envelope {
	return Envelope{ID: id, Command: command, Error: &info}
}

// NewBroadcast creates an unsolicited push envelope. It carries a fresh id
// and is never matched to a pending request.
func NewBroadcast(command Command, payload interface{}) (Envelope, error) {
	return NewResponse(NewID(), command, payload)
}

// Failed returns true if the envelope carries a non-empty error
func (e Envelope) Failed() bool {
	return e.Error != nil && !e.Error.IsEmpty()
}

// Encode serializes the envelope for the wire
func (e Envelope) Encode() ([]byte, error) {
	return json.Marshal(e)
}

// Decode parses a wire message. Unknown commands yield ErrUnknownCommand
// together with the partially decoded envelope.
func Decode(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("invalid envelope: %w", err)
	}
	if env.Command == "" {
		return env, fmt.Errorf("invalid envelope: missing command")
	}
	if !env.Command.Known() {
		return env, fmt.Errorf("%w: %s", ErrUnknownCommand, env.Command)
	}
	return env, nil
}

// DecodePayload decodes the payload of env into a command-specific record
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.Command, err)
	}
	return out, nil
}

// IsEmpty reports whether the error carries no information
func (e *ErrorInfo) IsEmpty() bool {
	return e == nil || (e.Message == "" && e.Code == "" && len(e.Data) == 0)
}

// Error implements the error interface
func (e *ErrorInfo) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return e.Message
}

// UnmarshalJSON accepts both a bare string and an object
func (e *ErrorInfo) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var msg string
		if err := json.Unmarshal(trimmed, &msg); err != nil {
			return err
		}
		*e = ErrorInfo{Message: msg}
		return nil
	}
	type alias ErrorInfo
	var a alias
	if err := json.Unmarshal(trimmed, &a); err != nil {
		return err
	}
	*e = ErrorInfo(a)
	return nil
}

func encodePayload(payload interface{}) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	return json.Marshal(payload)
}
