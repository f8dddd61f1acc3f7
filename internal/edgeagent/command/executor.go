package command

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/looplab/fsm"

	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/internal/edgeagent/state"
	"github.com/pitwall-io/pitwall/internal/pkg/metrics"
	utilfsm "github.com/pitwall-io/pitwall/internal/pkg/util/fsm"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// Executor runs one command at a time through its lifecycle machine:
//
//	received -> validating -> (rate_limited | executing) -> acked
//
// Success is judged from the hardware probe after the action, never from
// "request accepted".
type Executor struct {
	hal       core.HAL
	snapshots *state.Store
	gate      *resourceGate
	uploader  *ClipUploader
	logger    log.Logger
}

func NewExecutor(hal core.HAL, snapshots *state.Store, cooldown time.Duration, uploader *ClipUploader) *Executor {
	return &Executor{
		hal:       hal,
		snapshots: snapshots,
		gate:      newResourceGate(cooldown),
		uploader:  uploader,
		logger:    log.WithName("executor"),
	}
}

// run carries one command through the machine.
type run struct {
	cmd     *v1.Command
	payload v1.Payload

	reportedActive string
}

// Execute processes the command and returns the ack to report. Every
// execution attempt produces exactly one ack; errors resolve into the
// ack's error text instead of propagating.
func (e *Executor) Execute(ctx context.Context, cmd *v1.Command) *v1.Ack {
	r := &run{cmd: cmd}

	machine := fsm.NewFSM(
		"received",
		fsm.Events{
			{Name: "validate", Src: []string{"received"}, Dst: "validating"},
			{Name: "reject", Src: []string{"validating"}, Dst: "rate_limited"},
			{Name: "run", Src: []string{"validating"}, Dst: "executing"},
			{Name: "ack", Src: []string{"executing", "rate_limited"}, Dst: "acked"},
		},
		fsm.Callbacks{
			"enter_validating": utilfsm.WrapEvent(func(ctx context.Context, _ *fsm.Event) error {
				return e.validate(r)
			}),
			"enter_executing": utilfsm.WrapEvent(func(ctx context.Context, _ *fsm.Event) error {
				return e.executeHardware(ctx, r)
			}),
		},
	)

	// Validation failures never reach hardware.
	if err := machine.Event(ctx, "validate"); err != nil {
		return failedAck(cmd, err)
	}

	if err := e.gate.Acquire(cmd.Kind); err != nil {
		_ = machine.Event(ctx, "reject")
		_ = machine.Event(ctx, "ack")
		return failedAck(cmd, err)
	}
	defer e.gate.Release(cmd.Kind)

	// Persist before touching hardware, so a crash mid-action resumes
	// toward the new value on restart.
	if err := e.persistDesired(r); err != nil {
		return failedAck(cmd, err)
	}

	if err := machine.Event(ctx, "run"); err != nil {
		_ = machine.Event(ctx, "ack")
		return failedAck(cmd, err)
	}
	_ = machine.Event(ctx, "ack")

	metrics.EdgeCommandsExecuted.WithLabelValues(string(cmd.Kind), "success").Inc()
	return &v1.Ack{
		CommandID:      cmd.CommandID,
		VehicleID:      cmd.Target.VehicleID,
		Success:        true,
		ReportedActive: r.reportedActive,
	}
}

func (e *Executor) validate(r *run) error {
	payload, err := v1.DecodePayload(r.cmd.Kind, r.cmd.Payload)
	if err != nil {
		return err
	}
	r.payload = payload
	return nil
}

func (e *Executor) persistDesired(r *run) error {
	// One-shot actions leave no lane to resume.
	if r.cmd.Kind.OneShot() {
		return nil
	}

	raw, err := v1.EncodePayload(r.payload)
	if err != nil {
		return err
	}
	return e.snapshots.Put(&state.Snapshot{
		Kind:      r.cmd.Kind,
		Desired:   r.payload.Desired(),
		Payload:   raw,
		UpdatedAt: time.Now().UTC(),
	})
}

// executeHardware performs the side effect and probes the outcome. The
// probed value, not the requested one, lands in the ack.
func (e *Executor) executeHardware(ctx context.Context, r *run) error {
	switch p := r.payload.(type) {
	case *v1.SwitchCameraPayload:
		if err := e.hal.SwitchCamera(ctx, p.Camera); err != nil {
			return err
		}
		active, err := e.hal.ActiveCamera(ctx)
		if err != nil {
			return &v1.HardwareError{Op: "switch_camera", Cause: err}
		}
		if active != p.Camera {
			return &v1.HardwareError{Op: "switch_camera",
				Cause: fmt.Errorf("probe reports %q after switching to %q", active, p.Camera)}
		}
		r.reportedActive = active
		return nil

	case *v1.SetStreamProfilePayload:
		if err := e.hal.SetStreamProfile(ctx, p.Profile); err != nil {
			return err
		}
		active, err := e.hal.ActiveProfile(ctx)
		if err != nil {
			return &v1.HardwareError{Op: "set_stream_profile", Cause: err}
		}
		if active != p.Profile {
			return &v1.HardwareError{Op: "set_stream_profile",
				Cause: fmt.Errorf("probe reports %q after applying %q", active, p.Profile)}
		}
		r.reportedActive = active
		return nil

	case *v1.StartStreamPayload:
		if err := e.hal.StartEncoder(ctx); err != nil {
			return err
		}
		running, err := e.hal.EncoderRunning(ctx)
		if err != nil {
			return &v1.HardwareError{Op: "start_stream", Cause: err}
		}
		if !running {
			return &v1.HardwareError{Op: "start_stream", Cause: fmt.Errorf("encoder not running after start")}
		}
		r.reportedActive = "running"
		return nil

	case *v1.StopStreamPayload:
		if err := e.hal.StopEncoder(ctx); err != nil {
			return err
		}
		running, err := e.hal.EncoderRunning(ctx)
		if err != nil {
			return &v1.HardwareError{Op: "stop_stream", Cause: err}
		}
		if running {
			return &v1.HardwareError{Op: "stop_stream", Cause: fmt.Errorf("encoder still running after stop")}
		}
		r.reportedActive = "stopped"
		return nil

	case *v1.CaptureClipPayload:
		path, err := e.hal.CaptureClip(ctx, time.Duration(p.DurationSeconds)*time.Second)
		if err != nil {
			return err
		}
		if e.uploader != nil {
			if err := e.uploader.Upload(ctx, r.cmd.Target, path); err != nil {
				return err
			}
		}
		r.reportedActive = p.Desired()
		return nil
	}

	return fmt.Errorf("unhandled payload type %T", r.payload)
}

// Reapply drives the hardware toward a persisted snapshot during boot
// reconciliation. No ack is produced; there is no command to answer.
func (e *Executor) Reapply(ctx context.Context, snap *state.Snapshot) error {
	r := &run{
		cmd: &v1.Command{Kind: snap.Kind, Payload: snap.Payload},
	}
	if err := e.validate(r); err != nil {
		return err
	}
	return e.executeHardware(ctx, r)
}

func failedAck(cmd *v1.Command, err error) *v1.Ack {
	metrics.EdgeCommandsExecuted.WithLabelValues(string(cmd.Kind), outcomeLabel(err)).Inc()
	return &v1.Ack{
		CommandID: cmd.CommandID,
		VehicleID: cmd.Target.VehicleID,
		Success:   false,
		Error:     err.Error(),
	}
}

func outcomeLabel(err error) string {
	var verr *v1.ValidationError
	var rerr *v1.RateLimitedError
	switch {
	case errors.As(err, &verr):
		return "invalid"
	case errors.As(err, &rerr):
		return "rate_limited"
	default:
		return "failed"
	}
}
