package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/pitwall-io/pitwall/internal/pkg/metrics"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// HandleHeartbeat processes one presence report. The vehicle identity is
// resolved from the presented credential, never from the body, so a
// heartbeat can never be attributed to the wrong vehicle. The response
// echoes the resolved event binding back to the edge.
func (s *Service) HandleHeartbeat(ctx context.Context, token, remoteIP string, hb *v1.Heartbeat) (*v1.HeartbeatResponse, error) {
	vehicle, err := s.vehicles.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, v1.ErrNotFound) {
			vehicle, err = s.autoRegister(ctx, token, hb)
		}
		if err != nil {
			metrics.AuthRejections.WithLabelValues("heartbeat").Inc()
			return nil, err
		}
	}

	if hb.VehicleID != "" && hb.VehicleID != vehicle.VehicleID {
		metrics.AuthRejections.WithLabelValues("heartbeat").Inc()
		return nil, &v1.AuthError{VehicleID: hb.VehicleID}
	}

	now := s.now()
	rec := &v1.PresenceRecord{
		VehicleID:  vehicle.VehicleID,
		LastSeenAt: now,
		ReportedIP: remoteIP,
		Version:    hb.Version,
	}
	if err := s.presence.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to upsert presence: %w", err)
	}

	if err := s.vehicles.UpdateStatus(ctx, vehicle.VehicleID, true, hb.Version); err != nil {
		// Presence is already recorded; a registry lag is not worth
		// failing the heartbeat over.
		s.logger.Warn("failed to update vehicle status",
			"vehicleID", vehicle.VehicleID, "err", err)
	}

	metrics.HeartbeatsReceived.WithLabelValues(vehicle.EventID).Inc()
	return &v1.HeartbeatResponse{
		VehicleID: vehicle.VehicleID,
		EventID:   vehicle.EventID,
		ServerTS:  now,
	}, nil
}

// autoRegister admits an unknown credential on its first heartbeat when
// the deployment allows it. The vehicle binds to the configured event and
// keeps the presented token as its credential.
func (s *Service) autoRegister(ctx context.Context, token string, hb *v1.Heartbeat) (*v1.Vehicle, error) {
	if s.cfg.AutoRegisterEvent == "" || hb.VehicleID == "" {
		return nil, &v1.AuthError{VehicleID: hb.VehicleID}
	}

	vehicle := &v1.Vehicle{
		VehicleID: hb.VehicleID,
		EventID:   s.cfg.AutoRegisterEvent,
		Token:     token,
		Online:    true,
		LastSeen:  s.now(),
		Version:   hb.Version,
	}
	if err := s.vehicles.Create(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to auto-register vehicle: %w", err)
	}

	s.logger.Info("vehicle auto-registered",
		"vehicleID", vehicle.VehicleID, "eventID", vehicle.EventID)
	return vehicle, nil
}

// MarkOffline flips a vehicle's registry entry to offline. Invoked by the
// MQTT ingress when the broker delivers the vehicle's will message.
func (s *Service) MarkOffline(ctx context.Context, vehicleID string) error {
	if err := s.vehicles.UpdateStatus(ctx, vehicleID, false, ""); err != nil {
		return fmt.Errorf("failed to mark vehicle offline: %w", err)
	}
	s.logger.Info("vehicle marked offline", "vehicleID", vehicleID)
	return nil
}

// AuthenticateVehicle resolves a credential for the ack and clip surfaces.
func (s *Service) AuthenticateVehicle(ctx context.Context, token string) (*v1.Vehicle, error) {
	vehicle, err := s.vehicles.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, v1.ErrNotFound) {
			return nil, &v1.AuthError{}
		}
		return nil, err
	}
	return vehicle, nil
}

// ListVehicles returns the registry for operator tooling.
func (s *Service) ListVehicles(ctx context.Context) ([]*v1.Vehicle, error) {
	return s.vehicles.List(ctx)
}

// ListPresence returns every presence record for operator tooling.
func (s *Service) ListPresence(ctx context.Context) ([]*v1.PresenceRecord, error) {
	return s.presence.List(ctx)
}
