package service

import (
	"context"
	"fmt"
	"strings"

	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// ClipUploadURL answers a vehicle's request for a clip upload slot with a
// presigned URL, so the vehicle never holds object-store credentials. The
// error, if any, travels inside the response so the MQTT responder can
// always answer the request.
func (s *Service) ClipUploadURL(ctx context.Context, vehicleID string, req *v1.ClipUploadRequest) *v1.ClipUploadResponse {
	resp := &v1.ClipUploadResponse{RequestID: req.RequestID}

	if s.storage == nil {
		resp.Error = "clip storage not configured"
		return resp
	}
	if req.VehicleID != vehicleID {
		resp.Error = "clip request not attributable to this vehicle"
		return resp
	}
	if req.ObjectKey == "" || strings.Contains(req.ObjectKey, "..") {
		resp.Error = fmt.Sprintf("invalid object key %q", req.ObjectKey)
		return resp
	}

	// Keys are namespaced per event and vehicle so one vehicle cannot
	// overwrite another's clips.
	key := fmt.Sprintf("%s/%s/%s", req.EventID, req.VehicleID, req.ObjectKey)
	url, err := s.storage.PresignedPutURL(ctx, key, s.cfg.ClipURLExpiry)
	if err != nil {
		s.logger.Error(err, "failed to presign clip upload", "key", key)
		resp.Error = "failed to generate upload URL"
		return resp
	}

	resp.UploadURL = url
	return resp
}
