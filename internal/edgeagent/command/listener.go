// Package command implements the edge side of the control plane: the
// listener module receiving hub directives, the per-command execution
// machine, the hardware rate gate, and the clip upload flow.
package command

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/internal/edgeagent/state"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// ackAttempts bounds ack delivery retries. The dispatcher's pull-based
// timeout is the designed fallback for a lost ack; the edge never builds
// a second retry loop on top of it.
const ackAttempts = 3

var _ core.Module = (*Listener)(nil)

// Listener subscribes to this vehicle's command channel, drives the
// executor, and reports acks. It also keeps the local per-lane view the
// on-device UI reads.
type Listener struct {
	vehicleID string
	executor  *Executor
	uploader  *ClipUploader
	snapshots *state.Store
	sender    core.Sender
	logger    log.Logger

	mu    sync.Mutex
	lanes map[v1.Kind]*v1.CommandState
}

func NewListener(vehicleID string, executor *Executor, uploader *ClipUploader, snapshots *state.Store) *Listener {
	return &Listener{
		vehicleID: vehicleID,
		executor:  executor,
		uploader:  uploader,
		snapshots: snapshots,
		lanes:     make(map[v1.Kind]*v1.CommandState),
		logger:    log.WithName("command"),
	}
}

func (l *Listener) Name() string {
	return "command"
}

func (l *Listener) Setup(ctx context.Context, sender core.Sender) error {
	l.sender = sender
	if l.uploader != nil {
		l.uploader.Setup(sender)
	}
	return nil
}

func (l *Listener) Routes() map[core.EventType]core.HandlerFunc {
	routes := map[core.EventType]core.HandlerFunc{
		core.EventCommand: core.JSONAdapter(l.handleCommand),
	}
	if l.uploader != nil {
		routes[core.EventClipResponse] = core.JSONAdapter(l.uploader.HandleResponse)
	}
	return routes
}

func (l *Listener) handleCommand(ctx context.Context, cmd *v1.Command) error {
	if cmd.Target.VehicleID != l.vehicleID {
		return fmt.Errorf("dropping command %s addressed to %s", cmd.CommandID, cmd.Target.VehicleID)
	}

	l.trackPending(cmd)
	ack := l.execute(ctx, cmd)
	l.trackResult(cmd, ack)

	l.sendAck(ctx, ack)
	return nil
}

func (l *Listener) execute(ctx context.Context, cmd *v1.Command) *v1.Ack {
	return l.executor.Execute(ctx, cmd)
}

// SubmitLocal runs a command originated by the on-device UI through the
// same validate/rate-limit/execute path as a cloud command. No ack goes
// upstream; the result lands in the local lane view.
func (l *Listener) SubmitLocal(ctx context.Context, req *v1.SubmitRequest) (*v1.CommandState, error) {
	if !req.Kind.Valid() {
		return nil, &v1.ValidationError{Kind: req.Kind, Field: "kind", Value: string(req.Kind)}
	}

	cmd := &v1.Command{
		CommandID: "local-" + uuid.NewString(),
		Kind:      req.Kind,
		Target:    v1.Target{VehicleID: l.vehicleID},
		Payload:   req.Payload,
		IssuedAt:  time.Now(),
	}

	l.trackPending(cmd)
	ack := l.execute(ctx, cmd)
	l.trackResult(cmd, ack)
	return l.State(req.Kind), nil
}

// Resume reapplies every persisted desired value during startup, so a
// reboot resumes toward the newest commanded state instead of hardcoded
// defaults. Failures are logged per lane and never abort the boot.
func (l *Listener) Resume(ctx context.Context) {
	snaps, err := l.snapshots.All()
	if err != nil {
		l.logger.Error(err, "failed to load desired-state snapshots")
		return
	}

	// Oldest first. start_stream and stop_stream are opposing lanes on
	// the same encoder, so the newest commanded value must apply last.
	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].UpdatedAt.Before(snaps[j].UpdatedAt)
	})

	for _, snap := range snaps {
		if snap.Kind.OneShot() {
			// Stores written before one-shot kinds stopped being
			// snapshotted may still hold one; never replay it.
			continue
		}
		if err := l.executor.Reapply(ctx, snap); err != nil {
			l.logger.Error(err, "failed to resume lane", "kind", snap.Kind, "desired", snap.Desired)
			continue
		}
		l.logger.Info("lane resumed", "kind", snap.Kind, "desired", snap.Desired)
	}
}

// State returns a copy of one lane's local view, or nil when the lane was
// never commanded.
func (l *Listener) State(kind v1.Kind) *v1.CommandState {
	l.mu.Lock()
	defer l.mu.Unlock()

	if s, ok := l.lanes[kind]; ok {
		cp := *s
		return &cp
	}
	return nil
}

// States returns the local view of every commanded lane.
func (l *Listener) States() []*v1.CommandState {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*v1.CommandState, 0, len(l.lanes))
	for _, s := range l.lanes {
		cp := *s
		out = append(out, &cp)
	}
	return out
}

func (l *Listener) trackPending(cmd *v1.Command) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := &v1.CommandState{
		RequestID: cmd.CommandID,
		Kind:      cmd.Kind,
		Target:    cmd.Target,
		Status:    v1.StatusPending,
		IssuedAt:  cmd.IssuedAt,
		TimeoutAt: cmd.TimeoutAt,
	}
	if prev, ok := l.lanes[cmd.Kind]; ok {
		s.Active = prev.Active
	}
	l.lanes[cmd.Kind] = s
}

func (l *Listener) trackResult(cmd *v1.Command, ack *v1.Ack) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.lanes[cmd.Kind]
	if !ok || s.RequestID != cmd.CommandID {
		return
	}
	if ack.Success {
		s.Status = v1.StatusSuccess
		s.Active = ack.ReportedActive
		s.Desired = ack.ReportedActive
	} else {
		s.Status = v1.StatusFailed
		s.LastError = ack.Error
	}
}

// sendAck reports the execution result with a small bounded retry for the
// sender's own transient failures, then gives up.
func (l *Listener) sendAck(ctx context.Context, ack *v1.Ack) {
	var err error
	for attempt := 1; attempt <= ackAttempts; attempt++ {
		if err = l.sender.SendJSON(ctx, core.EventCommandAck, ack); err == nil {
			return
		}
		select {
		case <-time.After(time.Duration(attempt) * 500 * time.Millisecond):
		case <-ctx.Done():
			return
		}
	}
	l.logger.Error(err, "giving up on ack delivery; dispatcher timeout takes over",
		"commandID", ack.CommandID)
}
