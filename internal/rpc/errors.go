package rpc

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/pairchat/internal/models"
)

var (
	// ErrTimeout matches every *TimeoutError
	ErrTimeout = errors.New("request timed out")
	// ErrClosed settles requests still pending when the registry closes
	ErrClosed = errors.New("registry closed")
)

// TimeoutError is returned when no response arrived in time
type TimeoutError struct {
	Command models.Command
	ID      string
	After   time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request %s timed out after %s", e.Command, e.ID, e.After)
}

// Is lets errors.Is(err, ErrTimeout) match
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout
}

// HostError is returned when the host answered with a failed envelope. Info
// is exactly what the host sent.
type HostError struct {
	Command models.Command
	ID      string
	Info    models.ErrorInfo
}

func (e *HostError) Error() string {
	return fmt.Sprintf("host error: %s", e.Info.Error())
}

// IsTimeout reports whether err is a request timeout
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// AsHostError extracts the host error from err, if any
func AsHostError(err error) (*HostError, bool) {
	var he *HostError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
