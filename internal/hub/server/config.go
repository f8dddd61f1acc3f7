package server

import (
	"github.com/pitwall-io/pitwall/internal/hub/core"
	"github.com/pitwall-io/pitwall/internal/hub/core/service"
	pkgmqtt "github.com/pitwall-io/pitwall/pkg/mqtt"
	"github.com/pitwall-io/pitwall/pkg/mqtt/topic"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

// Config carries everything the protocol servers need.
type Config struct {
	HTTPOptions *genericoptions.HttpOptions

	// MQTTClient is the hub's shared broker connection; the manager owns
	// its lifecycle.
	MQTTClient pkgmqtt.Client
	Topics     *topic.Builder

	Service *service.Service

	// ClipResponder answers clip upload requests arriving over MQTT.
	ClipResponder core.ClipResponder
}
