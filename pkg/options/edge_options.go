package options

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
)

var _ IOptions = (*EdgeOptions)(nil)

// EdgeOptions configures the on-vehicle agent.
type EdgeOptions struct {
	// VehicleID overrides hardware discovery. Normally injected by the
	// provisioning layer; the HAL is consulted when empty.
	VehicleID string `json:"vehicle-id" mapstructure:"vehicle-id"`

	// Token is the per-vehicle credential presented on heartbeats and acks.
	Token string `json:"token" mapstructure:"token"`

	// HubURL is the cloud control-plane base URL for the heartbeat POST.
	// Empty means "not configured": the presence loop still runs and
	// reports not_configured locally every cycle.
	HubURL string `json:"hub-url" mapstructure:"hub-url"`

	// HeartbeatInterval is the presence reporting cadence.
	HeartbeatInterval time.Duration `json:"heartbeat-interval" mapstructure:"heartbeat-interval"`

	// StatePath is the directory for the durable desired-state snapshots.
	StatePath string `json:"state-path" mapstructure:"state-path"`

	// ConfigFile, when set, is watched for changes; a rewrite triggers
	// the presence-loop restart primitive with the fresh configuration.
	ConfigFile string `json:"config-file" mapstructure:"config-file"`

	// LocalAddr is the bind address of the on-device HTTP API.
	LocalAddr string `json:"local-addr" mapstructure:"local-addr"`
}

// NewEdgeOptions creates EdgeOptions with default values.
func NewEdgeOptions() *EdgeOptions {
	return &EdgeOptions{
		HeartbeatInterval: 5 * time.Second,
		StatePath:         "/var/lib/pitwall/edge",
		LocalAddr:         "127.0.0.1:8481",
	}
}

func (o *EdgeOptions) Validate() []error {
	if o == nil {
		return nil
	}

	errors := []error{}

	if o.HeartbeatInterval <= 0 {
		errors = append(errors, fmt.Errorf("edge.heartbeat-interval must be positive"))
	}
	if o.LocalAddr != "" {
		if err := ValidateAddress(o.LocalAddr); err != nil {
			errors = append(errors, err)
		}
	}

	return errors
}

func (o *EdgeOptions) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	fs.StringVar(&o.VehicleID, "edge.vehicle-id", o.VehicleID, "Explicit vehicle ID (overrides HAL discovery).")
	fs.StringVar(&o.Token, "edge.token", o.Token, "Per-vehicle credential for heartbeats and acks.")
	fs.StringVar(&o.HubURL, "edge.hub-url", o.HubURL, "Cloud control-plane base URL. Empty runs in not-configured mode.")
	fs.DurationVar(&o.HeartbeatInterval, "edge.heartbeat-interval", o.HeartbeatInterval, "Presence reporting cadence.")
	fs.StringVar(&o.StatePath, "edge.state-path", o.StatePath, "Directory for durable desired-state snapshots.")
	fs.StringVar(&o.ConfigFile, "edge.config-file", o.ConfigFile, "Config file watched for presence-loop restarts.")
	fs.StringVar(&o.LocalAddr, "edge.local-addr", o.LocalAddr, "Bind address of the on-device HTTP API.")
}
