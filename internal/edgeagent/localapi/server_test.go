package localapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall-io/pitwall/internal/edgeagent/command"
	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/internal/edgeagent/state"
	"github.com/pitwall-io/pitwall/internal/statuslight"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

type nopSender struct{}

func (nopSender) Send(context.Context, core.EventType, []byte) error  { return nil }
func (nopSender) SendJSON(context.Context, core.EventType, any) error { return nil }

// stubHAL answers every probe with whatever was last requested.
type stubHAL struct {
	camera  string
	profile string
	running bool
}

func (h *stubHAL) VehicleID() string                                  { return "car-44" }
func (h *stubHAL) FirmwareVersion() string                            { return "test" }
func (h *stubHAL) SwitchCamera(_ context.Context, c string) error     { h.camera = c; return nil }
func (h *stubHAL) ActiveCamera(context.Context) (string, error)       { return h.camera, nil }
func (h *stubHAL) SetStreamProfile(_ context.Context, p string) error { h.profile = p; return nil }
func (h *stubHAL) ActiveProfile(context.Context) (string, error)      { return h.profile, nil }
func (h *stubHAL) StartEncoder(context.Context) error                 { h.running = true; return nil }
func (h *stubHAL) StopEncoder(context.Context) error                  { h.running = false; return nil }
func (h *stubHAL) EncoderRunning(context.Context) (bool, error)       { return h.running, nil }
func (h *stubHAL) CaptureClip(context.Context, time.Duration) (string, error) {
	return "/tmp/clip.mp4", nil
}

func newTestServer(t *testing.T) (*Server, *statuslight.Monitor) {
	t.Helper()

	snapshots, err := state.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = snapshots.Close() })

	exec := command.NewExecutor(&stubHAL{camera: "cockpit"}, snapshots, 0, nil)
	listener := command.NewListener("car-44", exec, nil, snapshots)
	require.NoError(t, listener.Setup(context.Background(), nopSender{}))

	monitor := statuslight.NewMonitor(time.Now())
	monitor.Register("cloud", statuslight.Policy{BootGrace: 30 * time.Second, Freshness: 15 * time.Second})

	return NewServer("127.0.0.1:0", "car-44", listener, monitor), monitor
}

func doRequest(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitAndStatus(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/command", &v1.SubmitRequest{
		Kind:    v1.KindSwitchCamera,
		Payload: json.RawMessage(`{"camera":"chase"}`),
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var lane v1.CommandState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lane))
	assert.Equal(t, v1.StatusSuccess, lane.Status)
	assert.Equal(t, "chase", lane.Active)

	rec = doRequest(t, srv, http.MethodGet, "/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var status StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "car-44", status.VehicleID)
	assert.Len(t, status.Lanes, 1)
	assert.Equal(t, statuslight.Warning, status.Lights["cloud"])
}

func TestSubmitBadKind(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodPost, "/command", &v1.SubmitRequest{Kind: "eject"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetLane(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doRequest(t, srv, http.MethodGet, "/command/switch_camera", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	doRequest(t, srv, http.MethodPost, "/command", &v1.SubmitRequest{
		Kind:    v1.KindSwitchCamera,
		Payload: json.RawMessage(`{"camera":"nose"}`),
	})

	rec = doRequest(t, srv, http.MethodGet, "/command/switch_camera", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var lane v1.CommandState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lane))
	assert.Equal(t, "nose", lane.Active)
}
