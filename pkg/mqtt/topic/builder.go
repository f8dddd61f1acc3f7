package topic

import (
	"fmt"
)

// Topic segments for the Pitwall control-plane protocol. These constants
// are the routing contract between the hub and the edge agents; changing
// them breaks compatibility with deployed vehicles.
const (
	// SegmentCommand is the downstream control directive topic (Hub -> Edge).
	// Pattern: {root}/command/{vehicleID}
	SegmentCommand = "command"

	// SegmentCommandAck is the upstream execution report topic (Edge -> Hub).
	// Pattern: {root}/command/ack/{vehicleID}
	SegmentCommandAck = "command/ack"

	// SegmentPresence is the upstream online/offline marker topic, retained.
	// The edge agent's MQTT will message lands here on unclean disconnect.
	// Pattern: {root}/presence/{vehicleID}
	SegmentPresence = "presence"

	// SegmentBroadcast carries the retained fan-out values viewers consume,
	// e.g. the currently featured camera per event.
	// Pattern: {root}/broadcast/{eventID}/{kind}
	SegmentBroadcast = "broadcast"

	// SegmentClipRequest is the upstream request for a clip upload URL.
	// Pattern: {root}/clip/request/{vehicleID}
	SegmentClipRequest = "clip/request"

	// SegmentClipResponse is the downstream presigned upload URL reply.
	// Pattern: {root}/clip/response/{vehicleID}
	SegmentClipResponse = "clip/response"
)

// Wildcard is the single-level MQTT wildcard "+".
const Wildcard = "+"

// Builder encapsulates the construction of MQTT topic strings so both
// sides agree on the topology by type, not by convention.
type Builder struct {
	// root is the base namespace for all topics (e.g. "pitwall/v1").
	root string
}

// NewBuilder creates a Builder with the specified root namespace.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

// Build constructs {root}/{segment}/{id}.
func (b *Builder) Build(segment, id string) string {
	return fmt.Sprintf("%s/%s/%s", b.root, segment, id)
}

// Command returns the downstream command topic for one vehicle.
func (b *Builder) Command(vehicleID string) string {
	return b.Build(SegmentCommand, vehicleID)
}

// CommandAck returns the topic a vehicle reports execution results on.
func (b *Builder) CommandAck(vehicleID string) string {
	return b.Build(SegmentCommandAck, vehicleID)
}

// CommandAckWildcard is the filter the hub subscribes to for all acks.
func (b *Builder) CommandAckWildcard() string {
	return b.Build(SegmentCommandAck, Wildcard)
}

// Presence returns the retained presence marker topic for one vehicle.
func (b *Builder) Presence(vehicleID string) string {
	return b.Build(SegmentPresence, vehicleID)
}

// PresenceWildcard is the filter the hub subscribes to for all presence
// markers, including broker-delivered will messages.
func (b *Builder) PresenceWildcard() string {
	return b.Build(SegmentPresence, Wildcard)
}

// Broadcast returns the retained fan-out topic for one broadcast value of
// one event, e.g. Broadcast("monza-2026", "featured_camera").
func (b *Builder) Broadcast(eventID, name string) string {
	return fmt.Sprintf("%s/%s/%s/%s", b.root, SegmentBroadcast, eventID, name)
}

// ClipRequest returns the topic a vehicle requests clip upload URLs on.
func (b *Builder) ClipRequest(vehicleID string) string {
	return b.Build(SegmentClipRequest, vehicleID)
}

// ClipRequestWildcard is the filter the hub subscribes to for all clip requests.
func (b *Builder) ClipRequestWildcard() string {
	return b.Build(SegmentClipRequest, Wildcard)
}

// ClipResponse returns the topic the hub answers clip requests on.
func (b *Builder) ClipResponse(vehicleID string) string {
	return b.Build(SegmentClipResponse, vehicleID)
}

// VehicleID extracts the trailing identifier from a per-vehicle topic.
// Returns "" when the topic has no identifier segment.
func VehicleID(topic string) string {
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			return topic[i+1:]
		}
	}
	return ""
}
