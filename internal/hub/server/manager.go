// Package server hosts the hub's protocol servers: the HTTP API for
// operators and edge devices, and the MQTT ingress for acks and clip
// requests.
package server

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/pitwall-io/pitwall/internal/hub/server/http"
	"github.com/pitwall-io/pitwall/internal/hub/server/mqtt"
	"github.com/pitwall-io/pitwall/pkg/log"
)

// Server is the common lifecycle of all sub-servers.
type Server interface {
	Start(ctx context.Context) error
}

// Manager runs every protocol server until the first failure or context
// cancellation.
type Manager struct {
	servers []Server
}

// NewManager initializes all sub-servers.
func NewManager(cfg *Config) *Manager {
	return &Manager{
		servers: []Server{
			mqtt.NewServer(cfg.MQTTClient, cfg.Topics, cfg.Service, cfg.ClipResponder),
			http.NewServer(cfg.HTTPOptions, cfg.Service),
		},
	}
}

// Start launches all servers in parallel and waits for termination.
func (m *Manager) Start(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, s := range m.servers {
		srv := s
		g.Go(func() error {
			return srv.Start(ctx)
		})
	}

	log.Info("all servers starting")
	return g.Wait()
}
