package topic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder(t *testing.T) {
	b := NewBuilder("pitwall/v1")

	assert.Equal(t, "pitwall/v1/command/car-44", b.Command("car-44"))
	assert.Equal(t, "pitwall/v1/command/ack/car-44", b.CommandAck("car-44"))
	assert.Equal(t, "pitwall/v1/command/ack/+", b.CommandAckWildcard())
	assert.Equal(t, "pitwall/v1/presence/car-44", b.Presence("car-44"))
	assert.Equal(t, "pitwall/v1/broadcast/monza-2026/featured_camera", b.Broadcast("monza-2026", "featured_camera"))
	assert.Equal(t, "pitwall/v1/clip/request/+", b.ClipRequestWildcard())
	assert.Equal(t, "pitwall/v1/clip/response/car-44", b.ClipResponse("car-44"))
}

func TestVehicleID(t *testing.T) {
	assert.Equal(t, "car-44", VehicleID("pitwall/v1/command/ack/car-44"))
	assert.Equal(t, "", VehicleID("noslash"))
}
