package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	genericoptions "github.com/pitwall-io/pitwall/pkg/options"
)

func newTestProvider(t *testing.T, handler http.Handler) *minioProvider {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p, err := NewMinIOProvider(&genericoptions.S3Options{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKeyID:     "test",
		SecretAccessKey: "test",
		BucketName:      "clips",
		Region:          "us-east-1",
	})
	require.NoError(t, err)
	return p
}

func TestEnsureBucketExisting(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, p.EnsureBucket(context.Background()))

	// A present bucket is never recreated.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodHead}, requests)
}

func TestEnsureBucketCreatesMissing(t *testing.T) {
	var mu sync.Mutex
	var requests []string
	p := newTestProvider(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		requests = append(requests, r.Method)
		mu.Unlock()
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))

	require.NoError(t, p.EnsureBucket(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{http.MethodHead, http.MethodPut}, requests)
}
