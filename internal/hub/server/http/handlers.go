package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	target := v1.Target{EventID: vars["event"], VehicleID: vars["vehicle"]}

	var req v1.SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &v1.ValidationError{Field: "body", Value: err.Error()})
		return
	}

	resp, err := s.svc.Submit(r.Context(), target, req.Kind, req.Payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	target := v1.Target{EventID: vars["event"], VehicleID: vars["vehicle"]}

	state, err := s.svc.Get(r.Context(), target, v1.Kind(vars["kind"]))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// handleCommandResponse is the HTTP ack path. A stale or duplicate ack is
// accepted-and-ignored, which is not an error for the caller: the edge
// must not retry it.
func (s *Server) handleCommandResponse(w http.ResponseWriter, r *http.Request) {
	vehicle, err := s.svc.AuthenticateVehicle(r.Context(), r.Header.Get(TokenHeader))
	if err != nil {
		writeError(w, err)
		return
	}

	var ack v1.Ack
	if err := json.NewDecoder(r.Body).Decode(&ack); err != nil {
		writeError(w, &v1.ValidationError{Field: "body", Value: err.Error()})
		return
	}

	err = s.svc.ReceiveAck(r.Context(), vehicle.VehicleID, &ack)
	if err != nil && !errors.Is(err, v1.ErrStale) && !errors.Is(err, v1.ErrTerminal) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "accepted"})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var hb v1.Heartbeat
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		writeError(w, &v1.ValidationError{Field: "body", Value: err.Error()})
		return
	}

	resp, err := s.svc.HandleHeartbeat(r.Context(), r.Header.Get(TokenHeader), remoteIP(r), &hb)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListVehicles(w http.ResponseWriter, r *http.Request) {
	vehicles, err := s.svc.ListVehicles(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

func (s *Server) handleListPresence(w http.ResponseWriter, r *http.Request) {
	recs, err := s.svc.ListPresence(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	var verr *v1.ValidationError
	var aerr *v1.AuthError

	status := http.StatusInternalServerError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
	case errors.As(err, &aerr):
		status = http.StatusUnauthorized
	case errors.Is(err, v1.ErrNotFound):
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
