package core

import (
	"context"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// CommandNotifier pushes commands to the addressed vehicle's channel. In
// Pitwall this is implemented by the MQTT outbound adapter. Delivery is
// best-effort: a command that never arrives resolves through the
// dispatcher's read-path timeout.
type CommandNotifier interface {
	Notify(ctx context.Context, cmd *v1.Command) error
}

// BroadcastNotifier publishes fan-out values consumed by the viewer-facing
// layer (SSE, overlays), e.g. the currently featured camera. Values are
// retained so late subscribers see the latest one.
type BroadcastNotifier interface {
	Broadcast(ctx context.Context, eventID, name, value string) error
}

// ClipResponder returns presigned-URL responses to the requesting vehicle.
type ClipResponder interface {
	Respond(ctx context.Context, vehicleID string, resp *v1.ClipUploadResponse) error
}
