// Package edgeagent wires the on-vehicle agent: the HAL, the durable
// desired-state store, the MQTT bus, the command listener, the presence
// loop, and the local API.
package edgeagent

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/pitwall-io/pitwall/internal/edgeagent/command"
	"github.com/pitwall-io/pitwall/internal/edgeagent/hal"
	"github.com/pitwall-io/pitwall/internal/edgeagent/hub"
	"github.com/pitwall-io/pitwall/internal/edgeagent/localapi"
	"github.com/pitwall-io/pitwall/internal/edgeagent/presence"
	"github.com/pitwall-io/pitwall/internal/edgeagent/state"
	"github.com/pitwall-io/pitwall/internal/edgeagent/watcher"
	"github.com/pitwall-io/pitwall/internal/statuslight"
	"github.com/pitwall-io/pitwall/pkg/log"
	pkgmqtt "github.com/pitwall-io/pitwall/pkg/mqtt"
	mqtttopic "github.com/pitwall-io/pitwall/pkg/mqtt/topic"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

// BrokerSource is the status-light source fed by MQTT traffic.
const BrokerSource = "broker"

// Config aggregates the option groups the agent consumes.
type Config struct {
	MQTTOptions    *genericoptions.MqttOptions
	EdgeOptions    *genericoptions.EdgeOptions
	CommandOptions *genericoptions.CommandOptions
}

// NewAgent assembles the agent. The HAL is consulted for the vehicle
// identity unless the options pin one explicitly.
func (cfg *Config) NewAgent() (*Agent, error) {
	systemHAL := hal.NewHAL()

	vid := cfg.EdgeOptions.VehicleID
	if vid == "" {
		vid = systemHAL.VehicleID()
	}
	if vid == "" {
		return nil, fmt.Errorf("unable to resolve vehicle ID from options or HAL")
	}

	mqttClient, topics, err := cfg.initMQTTClient(vid)
	if err != nil {
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}
	bus := hub.New(mqttClient, topics, vid)

	snapshots, err := state.Open(cfg.EdgeOptions.StatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open state store: %w", err)
	}

	monitor := statuslight.NewMonitor(time.Now())
	monitor.Register(presence.CloudSource, statuslight.Policy{
		BootGrace: 30 * time.Second,
		Freshness: 3 * cfg.EdgeOptions.HeartbeatInterval,
	})
	monitor.Register(BrokerSource, statuslight.Policy{
		BootGrace: 30 * time.Second,
		Freshness: 2 * time.Minute,
	})
	bus.OnActivity(func() { monitor.ReportSeen(BrokerSource) })

	uploader := command.NewClipUploader()
	executor := command.NewExecutor(systemHAL, snapshots, cfg.CommandOptions.Cooldown, uploader)
	listener := command.NewListener(vid, executor, uploader, snapshots)

	tracker := presence.NewTracker(func() presence.Config {
		opts := cfg.EdgeOptions
		if opts.ConfigFile != "" {
			fresh, err := reloadEdgeOptions(opts.ConfigFile, opts)
			if err != nil {
				log.Error(err, "failed to reload edge config, keeping current values",
					"path", opts.ConfigFile)
			} else {
				opts = fresh
			}
		}
		return presence.Config{
			VehicleID: vid,
			Version:   systemHAL.FirmwareVersion(),
			HubURL:    opts.HubURL,
			Token:     opts.Token,
			Interval:  opts.HeartbeatInterval,
		}
	}, monitor)

	a := &Agent{
		vehicleID: vid,
		bus:       bus,
		listener:  listener,
		tracker:   tracker,
		snapshots: snapshots,
		local:     localapi.NewServer(cfg.EdgeOptions.LocalAddr, vid, listener, monitor),
	}
	if cfg.EdgeOptions.ConfigFile != "" {
		a.watcher = watcher.New(cfg.EdgeOptions.ConfigFile, tracker.Restart)
	}
	return a, nil
}

// reloadEdgeOptions re-reads the watched file's edge section, so a
// presence-loop restart runs with the rewritten values instead of the
// ones parsed at boot. Keys absent from the file keep their current
// values.
func reloadEdgeOptions(path string, cur *genericoptions.EdgeOptions) (*genericoptions.EdgeOptions, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	fresh := *cur
	if err := v.UnmarshalKey("edge", &fresh); err != nil {
		return nil, err
	}
	return &fresh, nil
}

// initMQTTClient configures the broker connection with a retained will,
// so an unclean disconnect flips the retained presence marker to offline
// without any timer on the hub side.
func (cfg *Config) initMQTTClient(vid string) (pkgmqtt.Client, *mqtttopic.Builder, error) {
	topics := mqtttopic.NewBuilder(cfg.MQTTOptions.TopicRoot)

	clientCfg := cfg.MQTTOptions.ToClientConfig()
	if clientCfg.ClientID == "" {
		clientCfg.ClientID = fmt.Sprintf("pw-agent-%s", vid)
	}
	clientCfg.WillTopic = topics.Presence(vid)
	clientCfg.WillPayload = []byte("offline")
	clientCfg.WillQoS = 1
	clientCfg.WillRetain = true

	client, err := pkgmqtt.NewClient(clientCfg)
	if err != nil {
		return nil, nil, err
	}
	return client, topics, nil
}
