// Package presence runs the edge heartbeat loop under a small supervisor.
// The loop never stops on its own: an unconfigured hub URL, a refused
// credential, or a crashed cycle all still produce a local result every
// interval, so the on-device status light always has something to derive
// from.
package presence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/pitwall-io/pitwall/internal/pkg/metrics"
	"github.com/pitwall-io/pitwall/internal/statuslight"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// CloudSource is the status-light source name the tracker reports into.
const CloudSource = "cloud"

// Config is one loop incarnation's settings. The loader is re-invoked on
// every Restart, so a rewritten config file takes effect without touching
// the rest of the agent.
type Config struct {
	VehicleID string
	Version   string
	HubURL    string
	Token     string
	Interval  time.Duration
}

// Tracker supervises the heartbeat loop.
type Tracker struct {
	load    func() Config
	monitor *statuslight.Monitor
	client  *http.Client
	logger  log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTracker creates a Tracker. load supplies the loop configuration and
// is called again on every restart.
func NewTracker(load func() Config, monitor *statuslight.Monitor) *Tracker {
	return &Tracker{
		load:    load,
		monitor: monitor,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  log.WithName("presence"),
	}
}

// Start launches the loop. The loop stops when ctx is canceled or when
// Restart replaces it.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.launch(ctx)
}

// Restart replaces the running loop with a fresh one: observe whether the
// old loop already finished, cancel it if it has not, wait for it to wind
// down, then relaunch with reloaded configuration. Safe to call from the
// config watcher at any time.
func (t *Tracker) Restart(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done != nil {
		select {
		case <-t.done:
			// Old loop already wound down on its own.
		default:
			t.cancel()
			<-t.done
		}
	}
	t.launch(ctx)
}

// Stop cancels the loop and waits for it to finish.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done == nil {
		return
	}
	t.cancel()
	<-t.done
	t.cancel, t.done = nil, nil
}

func (t *Tracker) launch(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	done := make(chan struct{})
	t.cancel, t.done = cancel, done

	cfg := t.load()
	go t.run(ctx, cfg, done)
}

func (t *Tracker) run(ctx context.Context, cfg Config, done chan struct{}) {
	defer close(done)

	interval := cfg.Interval
	if interval <= 0 {
		interval = 5 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	t.cycle(ctx, cfg)
	for {
		select {
		case <-ticker.C:
			t.cycle(ctx, cfg)
		case <-ctx.Done():
			return
		}
	}
}

// cycle performs one heartbeat attempt. The recover here is the loop's
// outermost frame per cycle: whatever blows up below, the next tick still
// happens.
func (t *Tracker) cycle(ctx context.Context, cfg Config) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error(fmt.Errorf("panic: %v", r), "presence cycle crashed")
			metrics.PresenceCycles.WithLabelValues("error").Inc()
		}
	}()

	if cfg.HubURL == "" {
		// Unconfigured is a reportable state, not a reason to stop.
		t.logger.Info("presence cycle", "vehicleID", cfg.VehicleID, "status", "not_configured")
		metrics.PresenceCycles.WithLabelValues("not_configured").Inc()
		return
	}

	if err := t.report(ctx, cfg); err != nil {
		if ctx.Err() != nil {
			return
		}
		t.logger.Error(err, "heartbeat failed")
		metrics.PresenceCycles.WithLabelValues("error").Inc()
		return
	}

	t.monitor.ReportSeen(CloudSource)
	metrics.PresenceCycles.WithLabelValues("reported").Inc()
}

func (t *Tracker) report(ctx context.Context, cfg Config) error {
	hb := v1.Heartbeat{
		VehicleID: cfg.VehicleID,
		Version:   cfg.Version,
		Status:    "online",
	}
	body, err := json.Marshal(hb)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cfg.HubURL+"/telemetry/heartbeat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(v1.TokenHeader, cfg.Token)

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		// Pins the cloud light Down until a heartbeat is accepted again.
		t.monitor.SetPhase(CloudSource, statuslight.PhaseRejected)
		return &v1.AuthError{VehicleID: cfg.VehicleID}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("heartbeat returned %s", resp.Status)
	}

	var ack v1.HeartbeatResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return fmt.Errorf("failed to decode heartbeat response: %w", err)
	}
	if ack.VehicleID != cfg.VehicleID {
		t.logger.Info("hub resolved a different vehicle identity",
			"local", cfg.VehicleID, "resolved", ack.VehicleID)
	}
	return nil
}
