package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qa-dashboard/engine/internal/blob"
	"github.com/qa-dashboard/engine/pkg/utils"
)

func blobRouter(h *BlobHandler) http.Handler {
	r := chi.NewRouter()
	r.Post("/api/storage/*", h.Upload)
	return r
}

func newBlobStore(t *testing.T) *blob.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return blob.NewRedisStore(rdb, "project-sync", 0)
}

func TestBlobUpload(t *testing.T) {
	store := newBlobStore(t)
	payload := `{"id":"p1","name":"Uploaded"}`

	rr, body := serve(blobRouter(NewBlobHandler(store, 1024)), httptest.NewRequest(http.MethodPost, "/api/storage/uploads/p1.json", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "uploads/p1.json", body["storagePath"])
	assert.Equal(t, float64(len(payload)), body["size"])
	assert.Equal(t, utils.SHA256Hex([]byte(payload)), body["checksum"])

	got, err := store.Download(context.Background(), "uploads/p1.json")
	require.NoError(t, err)
	assert.Equal(t, payload, string(got))
}

func TestBlobUploadRejectsEmptyAndOversized(t *testing.T) {
	h := blobRouter(NewBlobHandler(newBlobStore(t), 8))

	rr, _ := serve(h, httptest.NewRequest(http.MethodPost, "/api/storage/a.json", strings.NewReader("")))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = serve(h, httptest.NewRequest(http.MethodPost, "/api/storage/a.json", strings.NewReader("0123456789")))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestBlobUploadRejectsTraversal(t *testing.T) {
	h := blobRouter(NewBlobHandler(newBlobStore(t), 1024))
	rr, body := serve(h, httptest.NewRequest(http.MethodPost, "/api/storage/a/../b.json", strings.NewReader("{}")))
	assert.NotEqual(t, http.StatusOK, rr.Code)
	assert.Equal(t, false, body["success"])
}

func TestBlobUploadNotConfigured(t *testing.T) {
	rr, body := serve(blobRouter(NewBlobHandler(nil, 1024)), httptest.NewRequest(http.MethodPost, "/api/storage/a.json", strings.NewReader("{}")))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "blob storage not configured", body["error"])
}
