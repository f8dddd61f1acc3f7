// Package hub wires the cloud control plane: the badger store, the MQTT
// connection, the core dispatch service, and the protocol servers.
package hub

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/pitwall-io/pitwall/internal/hub/core"
	"github.com/pitwall-io/pitwall/internal/hub/core/service"
	"github.com/pitwall-io/pitwall/internal/hub/notifier"
	"github.com/pitwall-io/pitwall/internal/hub/server"
	"github.com/pitwall-io/pitwall/internal/hub/storage"
	"github.com/pitwall-io/pitwall/internal/hub/store"
	"github.com/pitwall-io/pitwall/pkg/log"
	pkgmqtt "github.com/pitwall-io/pitwall/pkg/mqtt"
	"github.com/pitwall-io/pitwall/pkg/mqtt/topic"
)

// HubServer owns the wired control plane.
type HubServer struct {
	serverManager *server.Manager
	repo          core.Repository
}

// NewHubServer assembles the adapters and the core service. Dependency
// direction: secondary adapters in, core service, primary adapters out.
func (cfg *Config) NewHubServer() (*HubServer, error) {
	repo, err := store.Open(cfg.StoreOptions, cfg.CommandOptions.EntryTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	mqttClient, err := initMQTTClient(cfg)
	if err != nil {
		repo.Close()
		return nil, fmt.Errorf("failed to init mqtt client: %w", err)
	}
	topics := topic.NewBuilder(cfg.MQTTOptions.TopicRoot)
	mqttNotifier := notifier.New(mqttClient, topics)

	var clipStorage core.Storage
	if !cfg.DisableClipStorage {
		provider, err := storage.NewMinIOProvider(cfg.S3Options)
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to init clip storage: %w", err)
		}
		ensureCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = provider.EnsureBucket(ensureCtx)
		cancel()
		if err != nil {
			repo.Close()
			return nil, fmt.Errorf("failed to ensure clip bucket: %w", err)
		}
		clipStorage = provider
	}

	svc := service.New(service.Config{
		CommandTimeout:    cfg.CommandOptions.Timeout,
		AutoRegisterEvent: cfg.AutoRegisterEvent,
	}, repo, mqttNotifier, mqttNotifier, clipStorage)

	manager := server.NewManager(&server.Config{
		HTTPOptions:   cfg.HTTPOptions,
		MQTTClient:    mqttClient,
		Topics:        topics,
		Service:       svc,
		ClipResponder: mqttNotifier,
	})

	return &HubServer{serverManager: manager, repo: repo}, nil
}

// Run starts the servers and blocks until the context is cancelled or a
// server fails. The store closes on the way out.
func (s *HubServer) Run(ctx context.Context) error {
	defer func() {
		if err := s.repo.Close(); err != nil {
			log.Error(err, "failed to close store")
		}
	}()
	return s.serverManager.Start(ctx)
}

func initMQTTClient(cfg *Config) (pkgmqtt.Client, error) {
	clientCfg := cfg.MQTTOptions.ToClientConfig()
	if clientCfg.ClientID == "" {
		hostname, _ := os.Hostname()
		clientCfg.ClientID = fmt.Sprintf("pw-hub-%s", hostname)
	}
	return pkgmqtt.NewClient(clientCfg)
}
