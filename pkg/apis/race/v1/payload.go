package v1

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Payload is the closed union of per-kind command parameters. Each member
// validates its own value set and normalizes deprecated aliases to the
// canonical identifier, so older edge builds and UIs keep working.
type Payload interface {
	// Kind returns the command kind this payload belongs to.
	Kind() Kind

	// Normalize maps aliases onto canonical identifiers in place, then
	// checks the value against the kind's closed set.
	Normalize() error

	// Desired is the canonical string form of the commanded value, used
	// for idempotent-resubmit comparison and broadcast fan-out.
	Desired() string
}

// Canonical camera positions. CameraAliases maps the names older edge
// builds still emit onto these.
const (
	CameraCockpit  = "cockpit"
	CameraChase    = "chase"
	CameraNose     = "nose"
	CameraRearWing = "rear_wing"
)

var cameras = map[string]bool{
	CameraCockpit:  true,
	CameraChase:    true,
	CameraNose:     true,
	CameraRearWing: true,
}

// CameraAliases holds deprecated camera identifiers. Do not add new
// entries for new cameras; aliases exist only for backward compatibility.
var CameraAliases = map[string]string{
	"cockpit_cam": CameraCockpit,
	"onboard":     CameraCockpit,
	"follow":      CameraChase,
	"front":       CameraNose,
}

// Canonical stream profiles, lowest to highest bitrate.
const (
	ProfileLow      = "low"
	ProfileStandard = "standard"
	ProfileHigh     = "high"
	ProfileUltra    = "ultra"
)

var profiles = map[string]bool{
	ProfileLow:      true,
	ProfileStandard: true,
	ProfileHigh:     true,
	ProfileUltra:    true,
}

// ProfileAliases maps the legacy resolution-style names onto profiles.
var ProfileAliases = map[string]string{
	"mobile": ProfileLow,
	"sd":     ProfileLow,
	"hd720":  ProfileStandard,
	"hd":     ProfileHigh,
	"hd1080": ProfileHigh,
	"4k":     ProfileUltra,
}

// SwitchCameraPayload selects the live camera feed.
type SwitchCameraPayload struct {
	Camera string `json:"camera"`
}

func (p *SwitchCameraPayload) Kind() Kind      { return KindSwitchCamera }
func (p *SwitchCameraPayload) Desired() string { return p.Camera }

func (p *SwitchCameraPayload) Normalize() error {
	if canonical, ok := CameraAliases[p.Camera]; ok {
		p.Camera = canonical
	}
	if !cameras[p.Camera] {
		return &ValidationError{Kind: KindSwitchCamera, Field: "camera", Value: p.Camera}
	}
	return nil
}

// SetStreamProfilePayload adjusts encoder bitrate/resolution.
type SetStreamProfilePayload struct {
	Profile string `json:"profile"`
}

func (p *SetStreamProfilePayload) Kind() Kind      { return KindSetStreamProfile }
func (p *SetStreamProfilePayload) Desired() string { return p.Profile }

func (p *SetStreamProfilePayload) Normalize() error {
	if canonical, ok := ProfileAliases[p.Profile]; ok {
		p.Profile = canonical
	}
	if !profiles[p.Profile] {
		return &ValidationError{Kind: KindSetStreamProfile, Field: "profile", Value: p.Profile}
	}
	return nil
}

// StartStreamPayload carries no parameters.
type StartStreamPayload struct{}

func (p *StartStreamPayload) Kind() Kind       { return KindStartStream }
func (p *StartStreamPayload) Desired() string  { return "running" }
func (p *StartStreamPayload) Normalize() error { return nil }

// StopStreamPayload carries no parameters.
type StopStreamPayload struct{}

func (p *StopStreamPayload) Kind() Kind       { return KindStopStream }
func (p *StopStreamPayload) Desired() string  { return "stopped" }
func (p *StopStreamPayload) Normalize() error { return nil }

// Clip duration bounds in seconds.
const (
	MinClipSeconds = 5
	MaxClipSeconds = 60
)

// CaptureClipPayload records a bounded highlight clip from the live feed.
type CaptureClipPayload struct {
	DurationSeconds int `json:"durationSeconds"`
}

func (p *CaptureClipPayload) Kind() Kind { return KindCaptureClip }

func (p *CaptureClipPayload) Desired() string {
	return fmt.Sprintf("clip_%ds", p.DurationSeconds)
}

func (p *CaptureClipPayload) Normalize() error {
	if p.DurationSeconds < MinClipSeconds || p.DurationSeconds > MaxClipSeconds {
		return &ValidationError{
			Kind:  KindCaptureClip,
			Field: "durationSeconds",
			Value: fmt.Sprintf("%d", p.DurationSeconds),
		}
	}
	return nil
}

// DecodePayload unmarshals and normalizes the payload for the given kind.
// The switch is exhaustive over the closed kind set; an unknown kind is a
// ValidationError, never a silent pass-through.
func DecodePayload(kind Kind, raw json.RawMessage) (Payload, error) {
	var p Payload
	switch kind {
	case KindSwitchCamera:
		p = &SwitchCameraPayload{}
	case KindSetStreamProfile:
		p = &SetStreamProfilePayload{}
	case KindStartStream:
		p = &StartStreamPayload{}
	case KindStopStream:
		p = &StopStreamPayload{}
	case KindCaptureClip:
		p = &CaptureClipPayload{}
	default:
		return nil, &ValidationError{Kind: kind, Field: "kind", Value: string(kind)}
	}

	if len(raw) > 0 {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		if err := dec.Decode(p); err != nil {
			return nil, &ValidationError{Kind: kind, Field: "payload", Value: err.Error()}
		}
	}

	if err := p.Normalize(); err != nil {
		return nil, err
	}
	return p, nil
}

// EncodePayload is the inverse of DecodePayload, for publishing.
func EncodePayload(p Payload) (json.RawMessage, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", p.Kind(), err)
	}
	return b, nil
}
