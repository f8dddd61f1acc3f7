package presence

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall-io/pitwall/internal/statuslight"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

func cloudMonitor() *statuslight.Monitor {
	m := statuslight.NewMonitor(time.Now())
	m.Register(CloudSource, statuslight.Policy{
		BootGrace: 30 * time.Second,
		Freshness: 15 * time.Second,
	})
	return m
}

func TestCycleNotConfigured(t *testing.T) {
	m := cloudMonitor()
	tr := NewTracker(func() Config { return Config{} }, m)

	// No hub URL: the cycle completes without error and without a report.
	tr.cycle(context.Background(), Config{VehicleID: "car-44"})
	assert.Equal(t, statuslight.Warning, m.Light(CloudSource))
}

func TestCycleReports(t *testing.T) {
	var gotToken atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/telemetry/heartbeat", r.URL.Path)
		gotToken.Store(r.Header.Get(v1.TokenHeader))

		var hb v1.Heartbeat
		require.NoError(t, json.NewDecoder(r.Body).Decode(&hb))
		_ = json.NewEncoder(w).Encode(v1.HeartbeatResponse{
			VehicleID: hb.VehicleID,
			EventID:   "monza",
			ServerTS:  time.Now(),
		})
	}))
	defer srv.Close()

	m := cloudMonitor()
	cfg := Config{VehicleID: "car-44", Token: "tok-44", HubURL: srv.URL}
	tr := NewTracker(func() Config { return cfg }, m)

	tr.cycle(context.Background(), cfg)
	assert.Equal(t, "tok-44", gotToken.Load())
	assert.Equal(t, statuslight.Ok, m.Light(CloudSource))
}

func TestCycleRejectedPinsDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := cloudMonitor()
	cfg := Config{VehicleID: "car-44", Token: "tok-bogus", HubURL: srv.URL}
	tr := NewTracker(func() Config { return cfg }, m)

	tr.cycle(context.Background(), cfg)
	assert.Equal(t, statuslight.Down, m.Light(CloudSource))
}

func TestCycleRecoversFromPanic(t *testing.T) {
	m := cloudMonitor()
	tr := NewTracker(func() Config { return Config{} }, m)
	tr.client = nil // forces a panic inside report

	assert.NotPanics(t, func() {
		tr.cycle(context.Background(), Config{HubURL: "http://hub.invalid"})
	})
}

func TestRestartReplacesLoop(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_ = json.NewEncoder(w).Encode(v1.HeartbeatResponse{VehicleID: "car-44"})
	}))
	defer srv.Close()

	var loads atomic.Int64
	load := func() Config {
		loads.Add(1)
		return Config{VehicleID: "car-44", HubURL: srv.URL, Interval: time.Hour}
	}

	tr := NewTracker(load, cloudMonitor())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tr.Start(ctx)
	require.Eventually(t, func() bool { return hits.Load() >= 1 }, time.Second, 5*time.Millisecond)

	// Each restart reloads config and fires the immediate first cycle of
	// the fresh loop.
	tr.Restart(ctx)
	require.Eventually(t, func() bool { return hits.Load() >= 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int64(2), loads.Load())

	tr.Stop()
	final := hits.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, final, hits.Load())
}

func TestRestartAfterLoopFinished(t *testing.T) {
	tr := NewTracker(func() Config { return Config{Interval: time.Hour} }, cloudMonitor())

	inner, cancelInner := context.WithCancel(context.Background())
	tr.Start(inner)
	cancelInner()

	tr.mu.Lock()
	done := tr.done
	tr.mu.Unlock()
	<-done

	// Restarting a finished loop must not block on the dead cancel.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	tr.Restart(ctx)
	tr.Stop()
}
