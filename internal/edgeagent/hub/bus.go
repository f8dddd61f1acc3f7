// Package hub is the agent's MQTT-facing bus. It maps logical events to
// the per-vehicle topics and dispatches inbound messages to the modules
// that registered for them.
package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/pkg/log"
	pkgmqtt "github.com/pitwall-io/pitwall/pkg/mqtt"
	mqtttopic "github.com/pitwall-io/pitwall/pkg/mqtt/topic"
)

var _ core.Sender = (*Bus)(nil)

// Bus owns the agent's broker connection.
type Bus struct {
	vehicleID string

	mc     pkgmqtt.Client
	topics *mqtttopic.Builder

	events map[core.EventType]string
	routes map[string]core.HandlerFunc

	onActivity func()

	logger log.Logger
}

func New(client pkgmqtt.Client, builder *mqtttopic.Builder, vehicleID string) *Bus {
	return &Bus{
		vehicleID: vehicleID,
		mc:        client,
		topics:    builder,
		events: map[core.EventType]string{
			core.EventCommand:      mqtttopic.SegmentCommand,
			core.EventCommandAck:   mqtttopic.SegmentCommandAck,
			core.EventClipRequest:  mqtttopic.SegmentClipRequest,
			core.EventClipResponse: mqtttopic.SegmentClipResponse,
		},
		routes: make(map[string]core.HandlerFunc),
		logger: log.WithName("bus"),
	}
}

// OnActivity registers a callback fired on successful broker traffic in
// either direction. Must be called before Start.
func (b *Bus) OnActivity(fn func()) {
	b.onActivity = fn
}

func (b *Bus) sawActivity() {
	if b.onActivity != nil {
		b.onActivity()
	}
}

// Register binds an inbound event to a module handler. Must be called
// before Start.
func (b *Bus) Register(event core.EventType, handler core.HandlerFunc) error {
	segment, ok := b.events[event]
	if !ok {
		return fmt.Errorf("unmapped event: %s", event)
	}
	b.routes[b.topics.Build(segment, b.vehicleID)] = handler
	return nil
}

func (b *Bus) Send(ctx context.Context, event core.EventType, payload []byte) error {
	segment, ok := b.events[event]
	if !ok {
		return fmt.Errorf("unmapped event: %s", event)
	}
	if err := b.mc.Publish(ctx, b.topics.Build(segment, b.vehicleID), 1, false, payload); err != nil {
		return err
	}
	b.sawActivity()
	return nil
}

func (b *Bus) SendJSON(ctx context.Context, event core.EventType, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", event, err)
	}
	return b.Send(ctx, event, payload)
}

// Start connects and subscribes every registered route.
func (b *Bus) Start(ctx context.Context) error {
	if err := b.mc.Start(ctx); err != nil {
		return err
	}
	if err := b.mc.AwaitConnection(ctx); err != nil {
		return err
	}

	for topic, handler := range b.routes {
		h := handler
		err := b.mc.Subscribe(ctx, topic, 1, func(c context.Context, t string, p []byte) {
			b.sawActivity()
			if handleErr := h(c, p); handleErr != nil {
				b.logger.Error(handleErr, "handler execution failed", "topic", t)
			}
		})
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}
	}
	return nil
}

// MarkOnline clears the retained offline marker left by a previous
// unclean disconnect.
func (b *Bus) MarkOnline(ctx context.Context) error {
	if err := b.mc.Publish(ctx, b.topics.Presence(b.vehicleID), 1, true, []byte("online")); err != nil {
		return err
	}
	b.sawActivity()
	return nil
}

func (b *Bus) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	b.mc.Disconnect(ctx)
	b.logger.Info("MQTT client disconnected")
}
