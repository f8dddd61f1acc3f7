// Package localapi exposes the on-device HTTP API the cockpit UI talks
// to: the status light, the per-lane command view, and a local submit
// path that works with or without cloud connectivity.
package localapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitwall-io/pitwall/internal/edgeagent/command"
	"github.com/pitwall-io/pitwall/internal/statuslight"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	VehicleID string                       `json:"vehicleID"`
	Lights    map[string]statuslight.State `json:"lights"`
	Lanes     []*v1.CommandState           `json:"lanes"`
}

type Server struct {
	server    *http.Server
	vehicleID string
	listener  *command.Listener
	monitor   *statuslight.Monitor
	logger    log.Logger
}

func NewServer(addr, vehicleID string, listener *command.Listener, monitor *statuslight.Monitor) *Server {
	s := &Server{
		vehicleID: vehicleID,
		listener:  listener,
		monitor:   monitor,
		logger:    log.WithName("localapi"),
	}

	r := mux.NewRouter()
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/command", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/command/{kind}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/healthz", handleOK).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting local API", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, &StatusResponse{
		VehicleID: s.vehicleID,
		Lights:    s.monitor.Lights(),
		Lanes:     s.listener.States(),
	})
}

// handleSubmit runs a UI-originated command through the same path a cloud
// command takes. Execution failures land in the returned lane state, not
// in the HTTP status.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req v1.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &v1.ValidationError{Field: "body", Value: err.Error()})
		return
	}

	state, err := s.listener.SubmitLocal(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	state := s.listener.State(v1.Kind(mux.Vars(r)["kind"]))
	if state == nil {
		writeError(w, v1.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func handleOK(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var verr *v1.ValidationError
	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.Is(err, v1.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
