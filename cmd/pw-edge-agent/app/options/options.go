package options

import (
	"errors"

	"github.com/spf13/pflag"

	"github.com/pitwall-io/pitwall/internal/edgeagent"
	"github.com/pitwall-io/pitwall/pkg/app"
	"github.com/pitwall-io/pitwall/pkg/log"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

var _ app.Options = (*AgentOptions)(nil)

// AgentOptions aggregates every option group of the pw-edge-agent binary.
type AgentOptions struct {
	MQTTOptions    *genericoptions.MqttOptions    `json:"mqtt" mapstructure:"mqtt"`
	EdgeOptions    *genericoptions.EdgeOptions    `json:"edge" mapstructure:"edge"`
	CommandOptions *genericoptions.CommandOptions `json:"command" mapstructure:"command"`
	Log            *log.Options                   `json:"log" mapstructure:"log"`
}

func NewAgentOptions() *AgentOptions {
	return &AgentOptions{
		MQTTOptions:    genericoptions.NewMqttOptions(),
		EdgeOptions:    genericoptions.NewEdgeOptions(),
		CommandOptions: genericoptions.NewCommandOptions(),
		Log:            log.NewOptions(),
	}
}

func (o *AgentOptions) AddFlags(fs *pflag.FlagSet) {
	o.MQTTOptions.AddFlags(fs)
	o.EdgeOptions.AddFlags(fs)
	o.CommandOptions.AddFlags(fs)
	o.Log.AddFlags(fs)
}

func (o *AgentOptions) Complete() error {
	return nil
}

func (o *AgentOptions) Validate() error {
	var errs []error
	errs = append(errs, o.MQTTOptions.Validate()...)
	errs = append(errs, o.EdgeOptions.Validate()...)
	errs = append(errs, o.CommandOptions.Validate()...)
	errs = append(errs, o.Log.Validate()...)
	return errors.Join(errs...)
}

func (o *AgentOptions) LogOptions() *log.Options {
	return o.Log
}

func (o *AgentOptions) Config() (*edgeagent.Config, error) {
	return &edgeagent.Config{
		MQTTOptions:    o.MQTTOptions,
		EdgeOptions:    o.EdgeOptions,
		CommandOptions: o.CommandOptions,
	}, nil
}
