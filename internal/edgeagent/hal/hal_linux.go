//go:build linux

package hal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// Device paths provisioned by the vehicle image.
const (
	vehicleIDFile = "/etc/pitwall/vehicle-id"
	versionFile   = "/etc/pitwall/version"
	encoderBin    = "/usr/bin/pw-encoder"
	clipDir       = "/var/lib/pitwall/clips"
)

// LinuxHAL drives the real streaming stack: the camera mux and the encoder
// child process. Success is judged from process state and probe output,
// not from having issued the command.
type LinuxHAL struct {
	mu sync.Mutex

	camera  string
	profile string
	encoder *exec.Cmd
}

func NewHAL() core.HAL {
	return &LinuxHAL{
		camera:  "cockpit",
		profile: "standard",
	}
}

func (h *LinuxHAL) VehicleID() string {
	data, _ := os.ReadFile(vehicleIDFile)
	return strings.TrimSpace(string(data))
}

func (h *LinuxHAL) FirmwareVersion() string {
	data, _ := os.ReadFile(versionFile)
	return strings.TrimSpace(string(data))
}

// SwitchCamera restarts the encoder against the new input. The camera mux
// has no independent probe; a running encoder on the new input is the
// success signal.
func (h *LinuxHAL) SwitchCamera(ctx context.Context, camera string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasRunning := h.encoderAlive()
	if wasRunning {
		if err := h.stopEncoderLocked(); err != nil {
			return &v1.HardwareError{Op: "switch_camera", Cause: err}
		}
	}
	h.camera = camera
	if wasRunning {
		if err := h.startEncoderLocked(ctx); err != nil {
			return &v1.HardwareError{Op: "switch_camera", Cause: err}
		}
	}
	return nil
}

func (h *LinuxHAL) ActiveCamera(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.camera, nil
}

func (h *LinuxHAL) SetStreamProfile(ctx context.Context, profile string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	wasRunning := h.encoderAlive()
	if wasRunning {
		if err := h.stopEncoderLocked(); err != nil {
			return &v1.HardwareError{Op: "set_stream_profile", Cause: err}
		}
	}
	h.profile = profile
	if wasRunning {
		if err := h.startEncoderLocked(ctx); err != nil {
			return &v1.HardwareError{Op: "set_stream_profile", Cause: err}
		}
	}
	return nil
}

func (h *LinuxHAL) ActiveProfile(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.profile, nil
}

func (h *LinuxHAL) StartEncoder(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.encoderAlive() {
		return nil
	}
	if err := h.startEncoderLocked(ctx); err != nil {
		return &v1.HardwareError{Op: "start_stream", Cause: err}
	}
	return nil
}

func (h *LinuxHAL) StopEncoder(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.encoderAlive() {
		return nil
	}
	if err := h.stopEncoderLocked(); err != nil {
		return &v1.HardwareError{Op: "stop_stream", Cause: err}
	}
	return nil
}

func (h *LinuxHAL) EncoderRunning(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.encoderAlive(), nil
}

func (h *LinuxHAL) CaptureClip(ctx context.Context, duration time.Duration) (string, error) {
	h.mu.Lock()
	if !h.encoderAlive() {
		h.mu.Unlock()
		return "", &v1.HardwareError{Op: "capture_clip", Cause: fmt.Errorf("encoder not running")}
	}
	camera := h.camera
	h.mu.Unlock()

	if err := os.MkdirAll(clipDir, 0o755); err != nil {
		return "", &v1.HardwareError{Op: "capture_clip", Cause: err}
	}
	path := filepath.Join(clipDir, fmt.Sprintf("clip-%d.mp4", time.Now().UnixMilli()))

	// The recorder taps the encoder's output; it runs to completion, so
	// its exit code is the outcome.
	cmd := exec.CommandContext(ctx, encoderBin,
		"record",
		"--input", camera,
		"--duration", fmt.Sprintf("%d", int(duration.Seconds())),
		"--output", path,
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return "", &v1.HardwareError{Op: "capture_clip", Cause: fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))}
	}
	return path, nil
}

func (h *LinuxHAL) startEncoderLocked(ctx context.Context) error {
	cmd := exec.Command(encoderBin, "stream", "--input", h.camera, "--profile", h.profile)
	if err := cmd.Start(); err != nil {
		return err
	}

	// Reap in the background so a crashed encoder shows up as not-alive
	// on the next probe instead of as a zombie.
	go func() {
		if err := cmd.Wait(); err != nil {
			log.Warn("encoder exited", "err", err)
		}
	}()

	h.encoder = cmd
	return nil
}

func (h *LinuxHAL) stopEncoderLocked() error {
	if h.encoder == nil || h.encoder.Process == nil {
		return nil
	}
	if err := h.encoder.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return err
	}
	h.encoder = nil
	return nil
}

func (h *LinuxHAL) encoderAlive() bool {
	if h.encoder == nil || h.encoder.Process == nil {
		return false
	}
	// Signal 0 probes liveness without touching the process.
	return h.encoder.Process.Signal(syscall.Signal(0)) == nil
}
