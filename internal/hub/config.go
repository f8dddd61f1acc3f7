package hub

import (
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

// Config aggregates the option groups the hub consumes.
type Config struct {
	HTTPOptions    *genericoptions.HttpOptions
	MQTTOptions    *genericoptions.MqttOptions
	S3Options      *genericoptions.S3Options
	StoreOptions   *genericoptions.StoreOptions
	CommandOptions *genericoptions.CommandOptions

	// AutoRegisterEvent lets unknown credentials self-register into this
	// event on first heartbeat. Empty disables it.
	AutoRegisterEvent string

	// DisableClipStorage skips the object-store adapter; clip requests
	// then answer with an in-body error.
	DisableClipStorage bool
}
