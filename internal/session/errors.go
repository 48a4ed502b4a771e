package session

import (
	"errors"
	"strings"
)

var (
	// ErrNotReady is returned by write operations while the session has
	// not reached the ready state.
	ErrNotReady = errors.New("session not ready")

	// ErrInvalidIdentifier is returned when a composite message
	// identifier cannot be parsed.
	ErrInvalidIdentifier = errors.New("invalid message identifier")

	// ErrNotFound is returned when a message is not present in the
	// recent window of its conversation.
	ErrNotFound = errors.New("message not found")
)

// fatalIndicators are substrings of upstream error messages that mean
// the underlying connection is unrecoverable and the client must be
// rebuilt rather than retried in place.
var fatalIndicators = []string{
	"detached frame",
	"execution context was destroyed",
	"session closed",
	"protocol error",
	"websocket disconnected",
	"client is not connected",
}

// IsFatal reports whether err indicates a dead upstream connection.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, s := range fatalIndicators {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
