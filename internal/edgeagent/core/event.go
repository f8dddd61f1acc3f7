package core

// EventType names one logical message flow between the agent and the hub.
// The bus maps each to its MQTT topic segment.
type EventType string

const (
	// EventCommand is the inbound control directive from the hub.
	EventCommand EventType = "command.receive"

	// EventCommandAck is the outbound execution report.
	EventCommandAck EventType = "command.ack"

	// EventClipRequest is the outbound ask for a clip upload URL.
	EventClipRequest EventType = "clip.request"

	// EventClipResponse is the inbound presigned URL reply.
	EventClipResponse EventType = "clip.response"
)
