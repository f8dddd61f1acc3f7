package http

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

	"github.com/pitwall-io/pitwall/internal/hub/core/service"
	"github.com/pitwall-io/pitwall/internal/hub/store"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, *v1.Command) error               { return nil }
func (nopNotifier) Broadcast(context.Context, string, string, string) error { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()

	repo, err := store.Open(&genericoptions.StoreOptions{InMemory: true}, time.Hour)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	vehicle := &v1.Vehicle{VehicleID: "car-44", EventID: "monza", Token: "tok-44"}
	require.NoError(t, repo.Vehicle().Create(context.Background(), vehicle))

	svc := service.New(service.Config{CommandTimeout: 15 * time.Second}, repo, nopNotifier{}, nopNotifier{}, nil)
	return NewServer(genericoptions.NewHttpOptions(), svc)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestSubmitEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/events/monza/vehicles/car-44/command", v1.SubmitRequest{
		Kind:    v1.KindSwitchCamera,
		Payload: json.RawMessage(`{"camera":"cockpit"}`),
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp v1.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RequestID)
	assert.Equal(t, v1.StatusPending, resp.Status)

	state := doJSON(t, srv, http.MethodGet, "/events/monza/vehicles/car-44/command/switch_camera", nil, nil)
	assert.Equal(t, http.StatusOK, state.Code)
}

func TestSubmitEndpointErrors(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/events/monza/vehicles/car-44/command", v1.SubmitRequest{
		Kind:    v1.KindSwitchCamera,
		Payload: json.RawMessage(`{"camera":"invalid_camera"}`),
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/events/monza/vehicles/car-99/command", v1.SubmitRequest{
		Kind:    v1.KindSwitchCamera,
		Payload: json.RawMessage(`{"camera":"cockpit"}`),
	}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv, http.MethodGet, "/events/monza/vehicles/car-44/command/switch_camera", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommandResponseEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/events/monza/vehicles/car-44/command", v1.SubmitRequest{
		Kind:    v1.KindSwitchCamera,
		Payload: json.RawMessage(`{"camera":"cockpit"}`),
	}, nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	var submitted v1.SubmitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))

	auth := map[string]string{TokenHeader: "tok-44"}
	rec = doJSON(t, srv, http.MethodPost, "/edge/command-response", v1.Ack{
		CommandID: submitted.RequestID, Success: true, ReportedActive: "cockpit",
	}, auth)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Redelivery of a terminal ack is accepted-and-ignored.
	rec = doJSON(t, srv, http.MethodPost, "/edge/command-response", v1.Ack{
		CommandID: submitted.RequestID, Success: true, ReportedActive: "cockpit",
	}, auth)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Bad credential never touches state.
	rec = doJSON(t, srv, http.MethodPost, "/edge/command-response", v1.Ack{
		CommandID: submitted.RequestID, Success: false,
	}, map[string]string{TokenHeader: "tok-bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHeartbeatEndpoint(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/telemetry/heartbeat", v1.Heartbeat{
		VehicleID: "car-44", Version: "1.4.2",
	}, map[string]string{TokenHeader: "tok-44"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp v1.HeartbeatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "monza", resp.EventID)

	rec = doJSON(t, srv, http.MethodPost, "/telemetry/heartbeat", v1.Heartbeat{VehicleID: "car-44"},
		map[string]string{TokenHeader: "tok-bogus"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
