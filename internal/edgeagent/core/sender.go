package core

import (
	"context"
	"encoding/json"
	"fmt"
)

// HandlerFunc processes one inbound bus message.
type HandlerFunc func(ctx context.Context, payload []byte) error

// Sender is the agent's outbound port toward the hub.
type Sender interface {
	Send(ctx context.Context, event EventType, payload []byte) error
	SendJSON(ctx context.Context, event EventType, v any) error
}

// JSONAdapter decodes the raw payload into T before invoking fn, so module
// handlers stay typed.
func JSONAdapter[T any](fn func(ctx context.Context, msg *T) error) HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		var msg T
		if err := json.Unmarshal(payload, &msg); err != nil {
			return fmt.Errorf("failed to decode payload: %w", err)
		}
		return fn(ctx, &msg)
	}
}
