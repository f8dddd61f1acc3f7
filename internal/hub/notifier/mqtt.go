// Package notifier implements the hub's outbound ports on MQTT.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pitwall-io/pitwall/internal/hub/core"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
	pkgmqtt "github.com/pitwall-io/pitwall/pkg/mqtt"
	"github.com/pitwall-io/pitwall/pkg/mqtt/topic"
)

var (
	_ core.CommandNotifier   = (*MQTTNotifier)(nil)
	_ core.BroadcastNotifier = (*MQTTNotifier)(nil)
	_ core.ClipResponder     = (*MQTTNotifier)(nil)
)

// MQTTNotifier publishes commands, broadcast values, and clip responses.
// It shares the hub's MQTT connection; topics come from the shared builder
// so both sides of the wire agree on the layout.
type MQTTNotifier struct {
	client pkgmqtt.Client
	topics *topic.Builder
}

func New(client pkgmqtt.Client, topics *topic.Builder) *MQTTNotifier {
	return &MQTTNotifier{client: client, topics: topics}
}

// Notify publishes the command on the vehicle's command topic at QoS 1.
// Not retained: a vehicle that was offline reconciles from its desired
// state snapshot, not from a replayed stale command.
func (n *MQTTNotifier) Notify(ctx context.Context, cmd *v1.Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to encode command: %w", err)
	}
	return n.client.Publish(ctx, n.topics.Command(cmd.Target.VehicleID), 1, false, payload)
}

// Broadcast publishes a fan-out value, retained so late viewer-layer
// subscribers immediately see the latest one.
func (n *MQTTNotifier) Broadcast(ctx context.Context, eventID, name, value string) error {
	return n.client.Publish(ctx, n.topics.Broadcast(eventID, name), 0, true, []byte(value))
}

// Respond answers a clip upload request on the vehicle's response topic.
func (n *MQTTNotifier) Respond(ctx context.Context, vehicleID string, resp *v1.ClipUploadResponse) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode clip response: %w", err)
	}
	return n.client.Publish(ctx, n.topics.ClipResponse(vehicleID), 1, false, payload)
}
