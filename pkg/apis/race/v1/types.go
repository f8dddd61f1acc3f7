package v1

import (
	"encoding/json"
	"fmt"
	"time"
)

// TokenHeader carries the per-vehicle credential on the heartbeat and
// command-response HTTP endpoints.
const TokenHeader = "X-Pitwall-Token"

// Kind identifies a command lane. The set is closed: every kind carries its
// own payload schema and is decoded through DecodePayload, which rejects
// anything outside this set before it can reach hardware.
type Kind string

const (
	KindSwitchCamera     Kind = "switch_camera"
	KindSetStreamProfile Kind = "set_stream_profile"
	KindStartStream      Kind = "start_stream"
	KindStopStream       Kind = "stop_stream"
	KindCaptureClip      Kind = "capture_clip"
)

// Kinds lists every valid command kind.
func Kinds() []Kind {
	return []Kind{
		KindSwitchCamera,
		KindSetStreamProfile,
		KindStartStream,
		KindStopStream,
		KindCaptureClip,
	}
}

// Valid reports whether k is a member of the closed kind set.
func (k Kind) Valid() bool {
	switch k {
	case KindSwitchCamera, KindSetStreamProfile, KindStartStream, KindStopStream, KindCaptureClip:
		return true
	}
	return false
}

// OneShot reports whether the kind is a fire-once action rather than a
// state lane. One-shot kinds are never snapshotted and never replayed by
// boot reconciliation.
func (k Kind) OneShot() bool {
	return k == KindCaptureClip
}

// Resource names the physical resource a kind occupies while executing.
// Kinds sharing a resource are serialized against each other on the edge:
// the rate limiter refuses overlapping intent per resource, not per kind.
func (k Kind) Resource() string {
	switch k {
	case KindSwitchCamera, KindSetStreamProfile, KindStartStream, KindStopStream:
		return "encoder"
	case KindCaptureClip:
		return "recorder"
	}
	return string(k)
}

// Target addresses one vehicle within one event.
type Target struct {
	EventID   string `json:"eventID"`
	VehicleID string `json:"vehicleID"`
}

func (t Target) String() string {
	return t.EventID + "/" + t.VehicleID
}

// Command is the immutable instruction published to a vehicle's command
// topic. Once published it is never mutated; supersession happens by
// issuing a new Command with a new CommandID.
type Command struct {
	CommandID string          `json:"commandID"`
	Kind      Kind            `json:"kind"`
	Target    Target          `json:"target"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	IssuedAt  time.Time       `json:"issuedAt"`
	TimeoutAt time.Time       `json:"timeoutAt"`
}

// Ack is the edge-to-cloud report for one execution attempt. The channel
// may drop or duplicate it; receivers must treat redelivery of a terminal
// CommandID as a no-op.
type Ack struct {
	CommandID string `json:"commandID"`
	VehicleID string `json:"vehicleID"`
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`

	// ReportedActive is the value the hardware actually settled on,
	// as probed after execution. Only meaningful when Success is true.
	ReportedActive string `json:"reportedActive,omitempty"`
}

// CommandStatus is the cloud's lifecycle phase for a lane entry.
type CommandStatus string

const (
	StatusPending CommandStatus = "pending"
	StatusSuccess CommandStatus = "success"
	StatusFailed  CommandStatus = "failed"
	StatusTimeout CommandStatus = "timeout"
)

// Terminal reports whether no further transition is possible without a
// new request ID.
func (s CommandStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusTimeout
}

// CommandState is the cloud's view of one (target, kind) lane. At most one
// lane entry is pending at a time.
type CommandState struct {
	RequestID string        `json:"requestID"`
	Kind      Kind          `json:"kind"`
	Target    Target        `json:"target"`
	Desired   string        `json:"desired,omitempty"`
	Active    string        `json:"active,omitempty"`
	Status    CommandStatus `json:"status"`
	LastError string        `json:"lastError,omitempty"`
	IssuedAt  time.Time     `json:"issuedAt"`
	TimeoutAt time.Time     `json:"timeoutAt"`
}

// Heartbeat is the edge presence report.
type Heartbeat struct {
	VehicleID string `json:"vehicleID"`
	Version   string `json:"version,omitempty"`
	Status    string `json:"status,omitempty"`
}

// HeartbeatResponse echoes the identity the hub resolved from the
// vehicle's credential, so the edge learns its event binding.
type HeartbeatResponse struct {
	VehicleID string    `json:"vehicleID"`
	EventID   string    `json:"eventID"`
	ServerTS  time.Time `json:"serverTS"`
}

// PresenceRecord is upserted on every heartbeat. It is never deleted;
// staleness itself signals "offline".
type PresenceRecord struct {
	VehicleID  string    `json:"vehicleID"`
	LastSeenAt time.Time `json:"lastSeenAt"`
	ReportedIP string    `json:"reportedIP,omitempty"`
	Version    string    `json:"version,omitempty"`
}

// ClipUploadRequest asks the hub for a presigned upload URL for a
// captured highlight clip.
type ClipUploadRequest struct {
	RequestID string `json:"requestID"`
	VehicleID string `json:"vehicleID"`
	EventID   string `json:"eventID"`
	ObjectKey string `json:"objectKey"`
}

// ClipUploadResponse carries the presigned URL back to the vehicle.
type ClipUploadResponse struct {
	RequestID string `json:"requestID"`
	UploadURL string `json:"uploadURL,omitempty"`
	Error     string `json:"error,omitempty"`
}

// SubmitRequest is the body of POST /events/{event}/vehicles/{vehicle}/command.
type SubmitRequest struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// SubmitResponse is returned for both a fresh submit and an idempotent
// resubmit of the same desired value.
type SubmitResponse struct {
	RequestID string        `json:"requestID"`
	Status    CommandStatus `json:"status"`
}

// Vehicle is the registry entry for one race vehicle, owned by the
// CRUD/auth subsystem; the control plane reads its identity and
// credential and updates presence-derived fields.
type Vehicle struct {
	VehicleID string    `json:"vehicleID"`
	EventID   string    `json:"eventID"`
	Token     string    `json:"-"`
	Online    bool      `json:"online"`
	LastSeen  time.Time `json:"lastSeen"`
	Version   string    `json:"version,omitempty"`
}

func (v *Vehicle) Target() Target {
	return Target{EventID: v.EventID, VehicleID: v.VehicleID}
}

func (c *Command) String() string {
	return fmt.Sprintf("%s %s -> %s", c.CommandID, c.Kind, c.Target)
}
