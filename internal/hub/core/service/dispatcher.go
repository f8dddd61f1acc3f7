package service

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/pitwall-io/pitwall/internal/hub/core/model"
	"github.com/pitwall-io/pitwall/internal/pkg/metrics"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// Submit validates and dispatches a command to one vehicle. A resubmit of
// the same desired value while the lane is still pending returns the
// existing request ID and publishes nothing, so a retried UI request can
// never trigger a duplicate hardware action.
func (s *Service) Submit(ctx context.Context, target v1.Target, kind v1.Kind, raw json.RawMessage) (*v1.SubmitResponse, error) {
	payload, err := v1.DecodePayload(kind, raw)
	if err != nil {
		metrics.CommandsSubmitted.WithLabelValues(string(kind), "invalid").Inc()
		return nil, err
	}

	vehicle, err := s.vehicles.Get(ctx, target.VehicleID)
	if err != nil {
		metrics.CommandsSubmitted.WithLabelValues(string(kind), "not_found").Inc()
		return nil, err
	}
	if vehicle.EventID != target.EventID {
		metrics.CommandsSubmitted.WithLabelValues(string(kind), "not_found").Inc()
		return nil, v1.ErrNotFound
	}

	normalized, err := v1.EncodePayload(payload)
	if err != nil {
		return nil, err
	}

	desired := payload.Desired()
	lane := model.Lane{Target: target, Kind: kind}
	now := s.now()

	var published *v1.Command
	state, err := s.lanes.Update(ctx, lane, func(cur *v1.CommandState) (*v1.CommandState, error) {
		if cur != nil && cur.Status == v1.StatusPending && now.Before(cur.TimeoutAt) && cur.Desired == desired {
			// Idempotent resubmit: same lane, same desired value,
			// still in flight.
			return cur, nil
		}

		next := &v1.CommandState{
			RequestID: uuid.NewString(),
			Kind:      kind,
			Target:    target,
			Desired:   desired,
			Status:    v1.StatusPending,
			IssuedAt:  now,
			TimeoutAt: now.Add(s.cfg.CommandTimeout),
		}
		if cur != nil {
			// Active reflects probed hardware state; only a successful
			// ack may change it, so it survives supersession.
			next.Active = cur.Active
		}

		published = &v1.Command{
			CommandID: next.RequestID,
			Kind:      kind,
			Target:    target,
			Payload:   normalized,
			IssuedAt:  next.IssuedAt,
			TimeoutAt: next.TimeoutAt,
		}
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	if published == nil {
		metrics.CommandsSubmitted.WithLabelValues(string(kind), "reused").Inc()
		s.logger.Info("resubmit reused pending command",
			"lane", lane, "requestID", state.RequestID)
		return &v1.SubmitResponse{RequestID: state.RequestID, Status: state.Status}, nil
	}

	// Persist before publish. A publish failure is logged, not returned:
	// the undelivered command resolves through the read-path timeout.
	if err := s.notifier.Notify(ctx, published); err != nil {
		s.logger.Error(err, "failed to publish command",
			"lane", lane, "requestID", published.CommandID)
	}

	s.broadcastDesired(ctx, target.EventID, kind, desired)

	metrics.CommandsSubmitted.WithLabelValues(string(kind), "accepted").Inc()
	s.logger.Info("command dispatched",
		"lane", lane, "requestID", published.CommandID, "desired", desired)
	return &v1.SubmitResponse{RequestID: state.RequestID, Status: state.Status}, nil
}

// Get returns the lane's state, resolving an expired pending entry to
// timeout on the way out. Timeout detection is lazy and read-driven; there
// is no background sweeper.
func (s *Service) Get(ctx context.Context, target v1.Target, kind v1.Kind) (*v1.CommandState, error) {
	lane := model.Lane{Target: target, Kind: kind}

	var timedOut bool
	state, err := s.lanes.Update(ctx, lane, func(cur *v1.CommandState) (*v1.CommandState, error) {
		if cur == nil {
			return nil, v1.ErrNotFound
		}
		if cur.Status == v1.StatusPending && s.now().After(cur.TimeoutAt) {
			next := *cur
			next.Status = v1.StatusTimeout
			timedOut = true
			return &next, nil
		}
		return cur, nil
	})
	if err != nil {
		return nil, err
	}

	if timedOut {
		metrics.CommandsResolved.WithLabelValues(string(kind), string(v1.StatusTimeout)).Inc()
		s.logger.Warn("pending command timed out",
			"lane", lane, "err", &v1.TimeoutError{RequestID: state.RequestID, Kind: kind})
	}
	return state, nil
}

// ReceiveAck reconciles one execution report from a vehicle. The ack is
// applied only when its command ID still matches the lane's request ID;
// identity wins over arrival order, so a stale ack from a superseded
// command can never overwrite newer state. Returns v1.ErrStale or
// v1.ErrTerminal for deliberately ignored acks, which callers report as
// accepted.
func (s *Service) ReceiveAck(ctx context.Context, vehicleID string, ack *v1.Ack) error {
	lane, err := s.lanes.Resolve(ctx, ack.CommandID)
	if err != nil {
		if errors.Is(err, v1.ErrNotFound) {
			return v1.ErrStale
		}
		return err
	}

	if lane.Target.VehicleID != vehicleID {
		metrics.AuthRejections.WithLabelValues("ack").Inc()
		return &v1.AuthError{VehicleID: vehicleID}
	}

	state, err := s.lanes.Update(ctx, lane, func(cur *v1.CommandState) (*v1.CommandState, error) {
		if cur == nil || cur.RequestID != ack.CommandID {
			return nil, v1.ErrStale
		}
		if cur.Status.Terminal() {
			return nil, v1.ErrTerminal
		}

		next := *cur
		if ack.Success {
			next.Status = v1.StatusSuccess
			if ack.ReportedActive != "" {
				next.Active = ack.ReportedActive
			}
		} else {
			next.Status = v1.StatusFailed
			next.LastError = ack.Error
		}
		return &next, nil
	})
	if err != nil {
		if errors.Is(err, v1.ErrStale) || errors.Is(err, v1.ErrTerminal) {
			s.logger.Info("ignored ack", "commandID", ack.CommandID, "reason", err)
		}
		return err
	}

	metrics.CommandsResolved.WithLabelValues(string(state.Kind), string(state.Status)).Inc()
	metrics.AckLatency.WithLabelValues(string(state.Kind)).Observe(s.now().Sub(state.IssuedAt).Seconds())
	s.logger.Info("ack applied",
		"lane", lane, "requestID", ack.CommandID, "status", state.Status)
	return nil
}

// broadcastDesired optimistically pushes the in-progress value to the
// viewer fan-out so consumers see the change before confirmation.
func (s *Service) broadcastDesired(ctx context.Context, eventID string, kind v1.Kind, desired string) {
	if s.broadcast == nil {
		return
	}

	var name string
	switch kind {
	case v1.KindSwitchCamera:
		name = "featured_camera"
	case v1.KindSetStreamProfile:
		name = "stream_profile"
	case v1.KindStartStream, v1.KindStopStream:
		name = "stream_state"
	default:
		return
	}

	if err := s.broadcast.Broadcast(ctx, eventID, name, desired); err != nil {
		s.logger.Warn("broadcast update failed", "name", name, "err", err)
	}
}
