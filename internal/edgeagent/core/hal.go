package core

import (
	"context"
	"time"
)

// HAL is the agent's outbound port toward the streaming hardware: camera
// mux, encoder process, and clip recorder. Implementations must report
// actual outcome (probe result, process exit), never "request accepted".
type HAL interface {
	// VehicleID returns the hardware-provisioned identity, or "" when
	// the device carries none.
	VehicleID() string

	// FirmwareVersion returns the running software version.
	FirmwareVersion() string

	// SwitchCamera routes the given camera into the encoder input.
	SwitchCamera(ctx context.Context, camera string) error

	// ActiveCamera probes which camera feed is currently live.
	ActiveCamera(ctx context.Context) (string, error)

	// SetStreamProfile restarts the encoder with the new parameters.
	SetStreamProfile(ctx context.Context, profile string) error

	// ActiveProfile probes the encoder's current profile.
	ActiveProfile(ctx context.Context) (string, error)

	// StartEncoder launches the encode process.
	StartEncoder(ctx context.Context) error

	// StopEncoder terminates the encode process.
	StopEncoder(ctx context.Context) error

	// EncoderRunning probes the encode process state.
	EncoderRunning(ctx context.Context) (bool, error)

	// CaptureClip records a highlight clip and returns its local path.
	CaptureClip(ctx context.Context, duration time.Duration) (string, error)
}
