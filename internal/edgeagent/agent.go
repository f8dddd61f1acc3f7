package edgeagent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/pitwall-io/pitwall/internal/edgeagent/command"
	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/internal/edgeagent/hub"
	"github.com/pitwall-io/pitwall/internal/edgeagent/localapi"
	"github.com/pitwall-io/pitwall/internal/edgeagent/presence"
	"github.com/pitwall-io/pitwall/internal/edgeagent/state"
	"github.com/pitwall-io/pitwall/internal/edgeagent/watcher"
	"github.com/pitwall-io/pitwall/pkg/log"
)

// Agent owns the wired edge components.
type Agent struct {
	vehicleID string
	bus       *hub.Bus
	listener  *command.Listener
	tracker   *presence.Tracker
	snapshots *state.Store
	local     *localapi.Server
	watcher   *watcher.ConfigWatcher
}

// Run starts everything and blocks until the context is cancelled or a
// component fails. Startup order matters: routes register before the bus
// connects, and persisted desired state reapplies before new commands
// can arrive.
func (a *Agent) Run(ctx context.Context) error {
	log.Info("starting pw-edge-agent", "vehicleID", a.vehicleID)
	defer func() {
		if err := a.snapshots.Close(); err != nil {
			log.Error(err, "failed to close state store")
		}
	}()

	for _, m := range []core.Module{a.listener} {
		if err := m.Setup(ctx, a.bus); err != nil {
			return fmt.Errorf("module %s setup failed: %w", m.Name(), err)
		}
		for event, handler := range m.Routes() {
			if err := a.bus.Register(event, handler); err != nil {
				return fmt.Errorf("module %s register event %s failed: %w", m.Name(), event, err)
			}
		}
	}

	if err := a.bus.Start(ctx); err != nil {
		return fmt.Errorf("failed to start bus: %w", err)
	}
	defer a.bus.Stop()

	if err := a.bus.MarkOnline(ctx); err != nil {
		// The retained offline marker stays until the next reconnect;
		// not fatal for command handling.
		log.Warn("failed to clear retained offline marker", "err", err)
	}

	a.listener.Resume(ctx)

	a.tracker.Start(ctx)
	defer a.tracker.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.local.Start(gctx)
	})
	if a.watcher != nil {
		g.Go(func() error {
			return a.watcher.Start(gctx)
		})
	}

	err := g.Wait()
	log.Info("agent shutting down")
	return err
}
