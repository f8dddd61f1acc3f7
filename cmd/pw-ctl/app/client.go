package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// client is a thin wrapper over the hub's operator HTTP API.
type client struct {
	base string
	http *http.Client
}

func newClient(base string, timeout time.Duration) *client {
	return &client{
		base: base,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *client) vehicles(ctx context.Context) ([]*v1.Vehicle, error) {
	var out []*v1.Vehicle
	return out, c.get(ctx, "/vehicles", &out)
}

func (c *client) presence(ctx context.Context) ([]*v1.PresenceRecord, error) {
	var out []*v1.PresenceRecord
	return out, c.get(ctx, "/presence", &out)
}

func (c *client) commandState(ctx context.Context, eventID, vehicleID string, kind v1.Kind) (*v1.CommandState, error) {
	var out v1.CommandState
	path := fmt.Sprintf("/events/%s/vehicles/%s/command/%s", eventID, vehicleID, kind)
	return &out, c.get(ctx, path, &out)
}

func (c *client) submit(ctx context.Context, eventID, vehicleID string, req *v1.SubmitRequest) (*v1.SubmitResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/events/%s/vehicles/%s/command", eventID, vehicleID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return nil, apiError(resp)
	}

	var out v1.SubmitResponse
	return &out, json.NewDecoder(resp.Body).Decode(&out)
}

func (c *client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return fmt.Errorf("hub: %s", e.Error)
	}
	return fmt.Errorf("hub returned %s", resp.Status)
}
