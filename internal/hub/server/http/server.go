// Package http exposes the hub's REST surface: the operator command API,
// the edge ack/heartbeat endpoints, and the health and metrics probes.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pitwall-io/pitwall/internal/hub/core/service"
	"github.com/pitwall-io/pitwall/pkg/log"
	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// TokenHeader carries the per-vehicle credential on edge-facing endpoints.
const TokenHeader = v1.TokenHeader

type Server struct {
	server *http.Server
	svc    *service.Service
	logger log.Logger
}

func NewServer(opts *genericoptions.HttpOptions, svc *service.Service) *Server {
	s := &Server{
		svc:    svc,
		logger: log.WithName("http"),
	}

	r := mux.NewRouter()

	// Operator surface.
	r.HandleFunc("/events/{event}/vehicles/{vehicle}/command", s.handleSubmit).Methods(http.MethodPost)
	r.HandleFunc("/events/{event}/vehicles/{vehicle}/command/{kind}", s.handleGet).Methods(http.MethodGet)
	r.HandleFunc("/vehicles", s.handleListVehicles).Methods(http.MethodGet)
	r.HandleFunc("/presence", s.handleListPresence).Methods(http.MethodGet)

	// Edge surface, authenticated per vehicle.
	r.HandleFunc("/edge/command-response", s.handleCommandResponse).Methods(http.MethodPost)
	r.HandleFunc("/telemetry/heartbeat", s.handleHeartbeat).Methods(http.MethodPost)

	// Probes and metrics.
	r.HandleFunc("/healthz", handleOK).Methods(http.MethodGet)
	r.HandleFunc("/readyz", handleOK).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  opts.Timeout,
		WriteTimeout: opts.Timeout,
	}
	return s
}

func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting HTTP server", "addr", s.server.Addr)

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

func handleOK(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
