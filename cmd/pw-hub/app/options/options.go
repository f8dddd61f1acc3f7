package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/pitwall-io/pitwall/internal/hub"
	"github.com/pitwall-io/pitwall/pkg/app"
	"github.com/pitwall-io/pitwall/pkg/log"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

var _ app.Options = (*HubOptions)(nil)

// HubOptions aggregates every option group of the pw-hub binary.
type HubOptions struct {
	HTTPOptions    *genericoptions.HttpOptions    `json:"http" mapstructure:"http"`
	MQTTOptions    *genericoptions.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	S3Options      *genericoptions.S3Options      `json:"s3" mapstructure:"s3"`
	StoreOptions   *genericoptions.StoreOptions   `json:"store" mapstructure:"store"`
	CommandOptions *genericoptions.CommandOptions `json:"command" mapstructure:"command"`
	Log            *log.Options                   `json:"log" mapstructure:"log"`

	AutoRegisterEvent  string `json:"auto-register-event" mapstructure:"auto-register-event"`
	DisableClipStorage bool   `json:"disable-clip-storage" mapstructure:"disable-clip-storage"`
}

func NewHubOptions() *HubOptions {
	return &HubOptions{
		HTTPOptions:    genericoptions.NewHttpOptions(),
		MQTTOptions:    genericoptions.NewMqttOptions(),
		S3Options:      genericoptions.NewS3Options(),
		StoreOptions:   genericoptions.NewStoreOptions(),
		CommandOptions: genericoptions.NewCommandOptions(),
		Log:            log.NewOptions(),
	}
}

func (o *HubOptions) AddFlags(fs *pflag.FlagSet) {
	o.HTTPOptions.AddFlags(fs)
	o.MQTTOptions.AddFlags(fs)
	o.S3Options.AddFlags(fs)
	o.StoreOptions.AddFlags(fs)
	o.CommandOptions.AddFlags(fs)
	o.Log.AddFlags(fs)

	fs.StringVar(&o.AutoRegisterEvent, "auto-register-event", o.AutoRegisterEvent,
		"Event ID unknown vehicles self-register into on first heartbeat. Empty disables auto-registration.")
	fs.BoolVar(&o.DisableClipStorage, "disable-clip-storage", o.DisableClipStorage,
		"Run without an object store; clip requests are refused.")
}

func (o *HubOptions) Complete() error {
	return nil
}

func (o *HubOptions) Validate() error {
	var errs []error
	errs = append(errs, o.HTTPOptions.Validate()...)
	errs = append(errs, o.MQTTOptions.Validate()...)
	if !o.DisableClipStorage {
		errs = append(errs, o.S3Options.Validate()...)
	}
	errs = append(errs, o.StoreOptions.Validate()...)
	errs = append(errs, o.CommandOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

func (o *HubOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *HubOptions) Config() (*hub.Config, error) {
	return &hub.Config{
		HTTPOptions:        o.HTTPOptions,
		MQTTOptions:        o.MQTTOptions,
		S3Options:          o.S3Options,
		StoreOptions:       o.StoreOptions,
		CommandOptions:     o.CommandOptions,
		AutoRegisterEvent:  o.AutoRegisterEvent,
		DisableClipStorage: o.DisableClipStorage,
	}, nil
}
