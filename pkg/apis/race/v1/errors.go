package v1

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across the control plane.
var (
	// ErrNotFound indicates an unknown target or lane.
	ErrNotFound = errors.New("not found")

	// ErrStale indicates an ack whose command ID no longer matches the
	// stored request ID. It is not a failure for the caller: the ack was
	// accepted and deliberately ignored.
	ErrStale = errors.New("stale ack ignored")

	// ErrTerminal indicates a redelivered ack for an already-terminal
	// command. Like ErrStale, receivers treat it as a no-op.
	ErrTerminal = errors.New("command already terminal")
)

// ValidationError marks a bad kind or payload value. It is produced at the
// dispatcher boundary and the edge listener, always before any hardware is
// touched.
type ValidationError struct {
	Kind  Kind
	Field string
	Value string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s for %s: %q", e.Field, e.Kind, e.Value)
}

// RateLimitedError marks a valid command refused because the same physical
// resource acted too recently. Distinct from HardwareError so operators
// know to wait, not retry.
type RateLimitedError struct {
	Resource string
	Cooldown time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited: %s acted within the last %s", e.Resource, e.Cooldown)
}

// HardwareError marks a device probe or process start/stop failure, with a
// human-readable cause that surfaces verbatim in the operator UI.
type HardwareError struct {
	Op    string
	Cause error
}

func (e *HardwareError) Error() string {
	return fmt.Sprintf("hardware %s failed: %v", e.Op, e.Cause)
}

func (e *HardwareError) Unwrap() error { return e.Cause }

// TimeoutError marks a pending command resolved by the read path after
// its deadline passed with no ack. Callers still receive the lane state;
// the typed error exists for the dispatcher's log and metric surface.
type TimeoutError struct {
	RequestID string
	Kind      Kind
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("command %s (%s) timed out awaiting ack", e.RequestID, e.Kind)
}

// AuthError marks a credential mismatch on the ack or heartbeat path.
// Always terminal, never auto-retried.
type AuthError struct {
	VehicleID string
}

func (e *AuthError) Error() string {
	if e.VehicleID == "" {
		return "credential rejected"
	}
	return fmt.Sprintf("credential rejected for vehicle %s", e.VehicleID)
}
