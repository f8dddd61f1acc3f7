//go:build !linux

package hal

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// MockHAL simulates the streaming hardware for development machines. The
// mutex mirrors the real constraint that the encoder tolerates exactly one
// in-flight operation.
type MockHAL struct {
	mu      sync.Mutex
	baseDir string

	camera  string
	profile string
	running bool
}

func NewHAL() core.HAL {
	tmpDir := filepath.Join(os.TempDir(), "pitwall-mock-hal")
	_ = os.MkdirAll(tmpDir, 0o755)
	return &MockHAL{
		baseDir: tmpDir,
		camera:  "cockpit",
		profile: "standard",
	}
}

func (h *MockHAL) VehicleID() string {
	if envID := os.Getenv("PITWALL_VEHICLE_ID"); envID != "" {
		return envID
	}
	return "car-mock-001"
}

func (h *MockHAL) FirmwareVersion() string {
	return "dev"
}

func (h *MockHAL) SwitchCamera(ctx context.Context, camera string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Info("[HAL-mock] switching camera mux", "camera", camera)
	time.Sleep(200 * time.Millisecond)
	h.camera = camera
	return nil
}

func (h *MockHAL) ActiveCamera(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.camera, nil
}

func (h *MockHAL) SetStreamProfile(ctx context.Context, profile string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Info("[HAL-mock] restarting encoder with new profile", "profile", profile)
	time.Sleep(300 * time.Millisecond)
	h.profile = profile
	return nil
}

func (h *MockHAL) ActiveProfile(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile, nil
}

func (h *MockHAL) StartEncoder(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.running {
		return nil
	}
	log.Info("[HAL-mock] starting encode process")
	h.running = true
	return nil
}

func (h *MockHAL) StopEncoder(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	log.Info("[HAL-mock] stopping encode process")
	h.running = false
	return nil
}

func (h *MockHAL) EncoderRunning(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running, nil
}

func (h *MockHAL) CaptureClip(ctx context.Context, duration time.Duration) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.running {
		return "", &v1.HardwareError{Op: "capture_clip", Cause: fmt.Errorf("encoder not running")}
	}

	path := filepath.Join(h.baseDir, fmt.Sprintf("clip-%d.mp4", time.Now().UnixMilli()))
	if err := os.WriteFile(path, []byte("mock clip data"), 0o644); err != nil {
		return "", &v1.HardwareError{Op: "capture_clip", Cause: err}
	}
	log.Info("[HAL-mock] recorded clip", "path", path, "duration", duration)
	return path, nil
}
