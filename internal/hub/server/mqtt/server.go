// Package mqtt implements the hub's broker-facing ingress: command acks,
// clip upload requests, and presence will messages. Vehicle identity on
// this path comes from the per-vehicle topic, which the broker's ACLs pin
// to the vehicle's connection credential.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pitwall-io/pitwall/internal/hub/core"
	"github.com/pitwall-io/pitwall/internal/hub/core/service"
	"github.com/pitwall-io/pitwall/pkg/log"
	pkgmqtt "github.com/pitwall-io/pitwall/pkg/mqtt"
	"github.com/pitwall-io/pitwall/pkg/mqtt/topic"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// offlineMarker is the payload of a vehicle's will message.
const offlineMarker = "offline"

type Server struct {
	client    pkgmqtt.Client
	topics    *topic.Builder
	svc       *service.Service
	responder core.ClipResponder
	logger    log.Logger
}

func NewServer(client pkgmqtt.Client, topics *topic.Builder, svc *service.Service, responder core.ClipResponder) *Server {
	return &Server{
		client:    client,
		topics:    topics,
		svc:       svc,
		responder: responder,
		logger:    log.WithName("mqtt-ingress"),
	}
}

// Start connects to the broker, subscribes, and blocks until the context
// is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.client.Start(ctx); err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Disconnect(shutdownCtx)
		s.logger.Info("MQTT client disconnected")
	}()

	s.logger.Info("waiting for MQTT connection")
	if err := s.client.AwaitConnection(ctx); err != nil {
		return err
	}
	s.logger.Info("MQTT connected")

	if err := s.initSubscriptions(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	return nil
}

func (s *Server) initSubscriptions(ctx context.Context) error {
	const qos = 1

	subscriptions := map[string]pkgmqtt.MessageHandler{
		s.topics.CommandAckWildcard():  s.handleAck,
		s.topics.ClipRequestWildcard(): s.handleClipRequest,
		s.topics.PresenceWildcard():    s.handlePresence,
	}

	for filter, handler := range subscriptions {
		if err := s.client.Subscribe(ctx, filter, qos, handler); err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", filter, err)
		}
	}
	return nil
}

func (s *Server) handleAck(ctx context.Context, t string, payload []byte) {
	vehicleID := topic.VehicleID(t)

	var ack v1.Ack
	if err := json.Unmarshal(payload, &ack); err != nil {
		s.logger.Warn("dropping malformed ack", "topic", t, "err", err)
		return
	}

	if err := s.svc.ReceiveAck(ctx, vehicleID, &ack); err != nil {
		// Stale and duplicate acks are ignored on purpose; ReceiveAck
		// already logged them.
		return
	}
}

func (s *Server) handleClipRequest(ctx context.Context, t string, payload []byte) {
	vehicleID := topic.VehicleID(t)

	var req v1.ClipUploadRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Warn("dropping malformed clip request", "topic", t, "err", err)
		return
	}

	resp := s.svc.ClipUploadURL(ctx, vehicleID, &req)
	if err := s.responder.Respond(ctx, vehicleID, resp); err != nil {
		s.logger.Error(err, "failed to send clip response", "vehicleID", vehicleID)
	}
}

// handlePresence watches the retained presence markers. Only the broker's
// will message matters here: a live vehicle reports through heartbeats.
func (s *Server) handlePresence(ctx context.Context, t string, payload []byte) {
	if string(payload) != offlineMarker {
		return
	}

	vehicleID := topic.VehicleID(t)
	if err := s.svc.MarkOffline(ctx, vehicleID); err != nil {
		s.logger.Warn("failed to process offline marker", "vehicleID", vehicleID, "err", err)
	}
}
