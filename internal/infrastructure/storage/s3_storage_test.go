package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/flowstart/douyin-web/internal/infrastructure/config"
)

// fakeS3 serves path-style object requests from memory
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodPut:
		data, _ := io.ReadAll(r.Body)
		f.objects[r.URL.Path] = data
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		data, ok := f.objects[r.URL.Path]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message></Error>`)
			return
		}
		_, _ = w.Write(data)
	case http.MethodDelete:
		delete(f.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	case http.MethodHead:
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newFakeS3Store(t *testing.T) (*S3FileStore, *fakeS3) {
	t.Helper()
	fake := &fakeS3{objects: map[string][]byte{}}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	store, err := NewS3FileStore(&config.StorageConfig{
		Bucket:       "imports",
		AccessKey:    "test-key",
		SecretKey:    "test-secret",
		Endpoint:     server.URL,
		UsePathStyle: true,
	}, WithLogger(zaptest.NewLogger(t)), WithTempDir(t.TempDir()))
	require.NoError(t, err)
	return store, fake
}

func TestNewS3FileStore_Validation(t *testing.T) {
	t.Run("nil config returns error", func(t *testing.T) {
		_, err := NewS3FileStore(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration is required")
	})

	t.Run("missing bucket returns error", func(t *testing.T) {
		_, err := NewS3FileStore(&config.StorageConfig{AccessKey: "k", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("missing access key returns error", func(t *testing.T) {
		_, err := NewS3FileStore(&config.StorageConfig{Bucket: "b", SecretKey: "s"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "access key is required")
	})

	t.Run("missing secret key returns error", func(t *testing.T) {
		_, err := NewS3FileStore(&config.StorageConfig{Bucket: "b", AccessKey: "k"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "secret key is required")
	})

	t.Run("endpoint without scheme", func(t *testing.T) {
		store, err := NewS3FileStore(&config.StorageConfig{
			Bucket: "b", AccessKey: "k", SecretKey: "s", Endpoint: "localhost:9000", UseSSL: true,
		}, WithKeyPrefix("files/"))
		require.NoError(t, err)
		assert.Equal(t, "b", store.Bucket())
		assert.Equal(t, "files/a.csv", store.key("dir/a.csv"))
	})
}

func TestS3FileStore_PutFetchDelete(t *testing.T) {
	store, fake := newFakeS3Store(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "all_20240501_120000_orders.xlsx", strings.NewReader("workbook")))
	assert.Contains(t, fake.objects, "/imports/uploads/all_20240501_120000_orders.xlsx")

	path, release, err := store.Fetch(ctx, "all_20240501_120000_orders.xlsx")
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "workbook", string(data))

	release()
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, store.Delete(ctx, "all_20240501_120000_orders.xlsx"))
	assert.Empty(t, fake.objects)
}

func TestS3FileStore_FetchMissing(t *testing.T) {
	store, _ := newFakeS3Store(t)

	_, _, err := store.Fetch(context.Background(), "missing.csv")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestS3FileStore_EnsureBucketExisting(t *testing.T) {
	store, _ := newFakeS3Store(t)
	assert.NoError(t, store.EnsureBucket(context.Background()))
}

func TestEndpointURL(t *testing.T) {
	got, err := endpointURL("", false)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000", got)

	got, err = endpointURL("minio.internal:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "https://minio.internal:9000", got)

	got, err = endpointURL("http://127.0.0.1:9000", true)
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9000", got)
}
