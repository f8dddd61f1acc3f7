package command

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pitwall-io/pitwall/internal/edgeagent/core"
	"github.com/pitwall-io/pitwall/pkg/log"
	v1 "github.com/pitwall-io/pitwall/pkg/apis/race/v1"
)

// responseWait bounds how long an upload waits for the hub's presigned
// URL before the clip is declared failed.
const responseWait = 10 * time.Second

// ClipUploader ships recorded clips to the object store. It asks the hub
// for a presigned URL over the bus and correlates the async response by
// request ID.
type ClipUploader struct {
	sender core.Sender
	client *http.Client
	logger log.Logger

	mu      sync.Mutex
	pending map[string]chan *v1.ClipUploadResponse
}

func NewClipUploader() *ClipUploader {
	return &ClipUploader{
		client:  &http.Client{Timeout: 60 * time.Second},
		pending: make(map[string]chan *v1.ClipUploadResponse),
		logger:  log.WithName("clips"),
	}
}

func (u *ClipUploader) Setup(sender core.Sender) {
	u.sender = sender
}

// HandleResponse resolves the waiting Upload call, if any. Late responses
// for expired waits are dropped.
func (u *ClipUploader) HandleResponse(ctx context.Context, resp *v1.ClipUploadResponse) error {
	u.mu.Lock()
	ch, ok := u.pending[resp.RequestID]
	delete(u.pending, resp.RequestID)
	u.mu.Unlock()

	if !ok {
		u.logger.Warn("dropping clip response with no waiter", "requestID", resp.RequestID)
		return nil
	}
	ch <- resp
	return nil
}

// Upload requests a presigned URL and PUTs the local file to it.
func (u *ClipUploader) Upload(ctx context.Context, target v1.Target, localPath string) error {
	if u.sender == nil {
		return fmt.Errorf("clip uploader not wired to a sender")
	}

	req := &v1.ClipUploadRequest{
		RequestID: uuid.NewString(),
		VehicleID: target.VehicleID,
		EventID:   target.EventID,
		ObjectKey: filepath.Base(localPath),
	}

	ch := make(chan *v1.ClipUploadResponse, 1)
	u.mu.Lock()
	u.pending[req.RequestID] = ch
	u.mu.Unlock()
	defer func() {
		u.mu.Lock()
		delete(u.pending, req.RequestID)
		u.mu.Unlock()
	}()

	if err := u.sender.SendJSON(ctx, core.EventClipRequest, req); err != nil {
		return fmt.Errorf("failed to request upload URL: %w", err)
	}

	var resp *v1.ClipUploadResponse
	select {
	case resp = <-ch:
	case <-time.After(responseWait):
		return fmt.Errorf("timed out waiting for upload URL")
	case <-ctx.Done():
		return ctx.Err()
	}
	if resp.Error != "" {
		return fmt.Errorf("hub refused clip upload: %s", resp.Error)
	}

	return u.put(ctx, resp.UploadURL, localPath)
}

func (u *ClipUploader) put(ctx context.Context, url, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open clip: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat clip: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, f)
	if err != nil {
		return err
	}
	httpReq.ContentLength = info.Size()
	httpReq.Header.Set("Content-Type", "video/mp4")

	httpResp, err := u.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("clip upload failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return fmt.Errorf("clip upload rejected: %s", httpResp.Status)
	}

	u.logger.Info("clip uploaded", "path", localPath)
	return nil
}
