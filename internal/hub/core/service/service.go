// Package service implements the hub's core use cases: command dispatch,
// ack reconciliation, presence, and clip upload brokering. It orchestrates
// the model entities through the adapter ports and holds the only code
// allowed to transition lane state.
package service

import (
	"time"

	"github.com/pitwall-io/pitwall/internal/hub/core"
	"github.com/pitwall-io/pitwall/pkg/log"
)

// Config carries the product-tunable dispatch knobs.
type Config struct {
	// CommandTimeout is how long a pending command may wait for an ack
	// before the read path resolves it to timeout.
	CommandTimeout time.Duration

	// AutoRegisterEvent, when non-empty, lets an unknown credential
	// self-register a vehicle bound to that event on its first
	// heartbeat. Empty disables auto-registration.
	AutoRegisterEvent string

	// ClipURLExpiry bounds the lifetime of presigned clip upload URLs.
	ClipURLExpiry time.Duration
}

// Service implements the hub's core business logic.
type Service struct {
	cfg Config

	lanes     core.CommandStateRepository
	presence  core.PresenceRepository
	vehicles  core.VehicleRepository
	notifier  core.CommandNotifier
	broadcast core.BroadcastNotifier
	storage   core.Storage

	logger log.Logger

	// now is swapped in tests to drive the lazy timeout deterministically.
	now func() time.Time
}

// New wires the core service. Dependency injection happens here; broadcast
// and storage may be nil when the deployment runs without a viewer fan-out
// or an object store.
func New(
	cfg Config,
	repo core.Repository,
	notifier core.CommandNotifier,
	broadcast core.BroadcastNotifier,
	storage core.Storage,
) *Service {
	if cfg.CommandTimeout <= 0 {
		cfg.CommandTimeout = 15 * time.Second
	}
	if cfg.ClipURLExpiry <= 0 {
		cfg.ClipURLExpiry = 15 * time.Minute
	}

	return &Service{
		cfg:       cfg,
		lanes:     repo.CommandState(),
		presence:  repo.Presence(),
		vehicles:  repo.Vehicle(),
		notifier:  notifier,
		broadcast: broadcast,
		storage:   storage,
		logger:    log.WithName("hub-service"),
		now:       time.Now,
	}
}
