package mqtt

import (
	"errors"
	"net/url"
	"time"
)

// ClientConfig holds the configuration for creating a new MQTT Client.
type ClientConfig struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string

	// KeepAlive in seconds. Default is 60.
	KeepAlive uint16

	// ConnectTimeout for the initial connection. Default is 5s.
	ConnectTimeout time.Duration

	// SessionExpiry in seconds. Non-zero lets the broker hold QoS1
	// messages for an agent that is briefly offline.
	SessionExpiry uint32

	// CleanStart indicates whether to start a clean session.
	// For edge agents this is usually false to receive missed commands.
	CleanStart bool

	// InsecureSkipVerify disables TLS certificate verification.
	// Needed for the self-signed certs used in trackside deployments;
	// never enable against a public broker.
	InsecureSkipVerify bool

	// Will message, published by the broker on unclean disconnect.
	// Used by the edge agent to leave a retained offline marker on its
	// presence topic.
	WillTopic   string
	WillPayload []byte
	WillQoS     byte
	WillRetain  bool
}

// setDefaultConfig applies safe default values to the configuration.
func setDefaultConfig(cfg *ClientConfig) {
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}

	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = 60
	}
}

// Validate checks if the configuration is valid.
func (c *ClientConfig) Validate() error {
	if c.BrokerURL == "" {
		return errors.New("broker url is required")
	}
	if _, err := url.Parse(c.BrokerURL); err != nil {
		return err
	}
	return nil
}
