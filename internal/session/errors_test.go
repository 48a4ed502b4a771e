package session

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsFatal(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"websocket gone", errors.New("websocket disconnected (code 1006)"), true},
		{"not connected", errors.New("client is not connected"), true},
		{"protocol error", errors.New("Protocol error: connection reset"), true},
		{"session closed", errors.New("Session closed before reply"), true},
		{"detached frame", errors.New("navigation failed: detached Frame"), true},
		{"context destroyed", errors.New("Execution context was destroyed"), true},
		{"wrapped", fmt.Errorf("send: %w", errors.New("websocket disconnected")), true},
		{"ordinary failure", errors.New("rate limited, try again"), false},
		{"timeout", errors.New("context deadline exceeded"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFatal(tt.err); got != tt.want {
				t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
