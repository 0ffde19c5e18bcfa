package web

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"image-compress-go/internal/api"
	"image-compress-go/internal/config"
	"image-compress-go/internal/metadata"
	"image-compress-go/internal/statistics"
	"image-compress-go/internal/workflow"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestServer wires a real controller against a fake backend service and
// returns the web server plus the download directory.
func newTestServer(t *testing.T, backend http.Handler) (*Server, string) {
	t.Helper()

	remote := httptest.NewServer(backend)
	t.Cleanup(remote.Close)

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.DefaultConfig()
	cfg.Services.AnalysisURL = remote.URL
	cfg.Services.CompressionURL = remote.URL

	downloadDir := t.TempDir()
	client := api.NewClient(remote.URL, remote.URL, 5*time.Second, log)
	inspector := metadata.NewImageInspector(log)
	sink := workflow.NewFileSink(downloadDir)
	stats := statistics.NewStatistics()
	ctrl := workflow.NewController(workflow.ControllerConfig{
		DefaultOptions: workflow.Options{Method: workflow.MethodTraditional, Quality: 80, EnableAnalysis: true},
	}, client, inspector, sink, stats, log)

	return NewServer(cfg, log, ctrl, inspector, stats), downloadDir
}

func pngUpload(t *testing.T, fieldName, fileName string) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}
	var encoded bytes.Buffer
	require.NoError(t, png.Encode(&encoded, img))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(fieldName, fileName)
	require.NoError(t, err)
	_, err = part.Write(encoded.Bytes())
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	return body, writer.FormDataContentType()
}

// fakeBackend answers the three collaborator endpoints.
func fakeBackend(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(api.ImageAnalysis{Entropy: 6.2, Complexity: "medium"})
	})
	mux.HandleFunc("/api/compression/compress", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		json.NewEncoder(w).Encode(api.CompressionResult{
			ID:               "abc123",
			OriginalSize:     2000000,
			CompressedSize:   500000,
			CompressionRatio: 4.0,
			Method:           r.FormValue("method"),
		})
	})
	mux.HandleFunc("/api/compression/download/abc123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("compressed-bytes"))
	})
	return mux
}

func TestSelectRejectsNonImageUpload(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("image", "notes.txt")
	require.NoError(t, err)
	part.Write([]byte("just text"))
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/select", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestCompressWithoutFileIsBadRequest(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))

	req := httptest.NewRequest(http.MethodPost, "/api/compress", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadWithoutResultIsBadRequest(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))

	req := httptest.NewRequest(http.MethodPost, "/api/download", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestOptionsRoundTrip(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))

	update := `{"method":"hybrid","quality":85,"target_size_kb":0,"enable_analysis":true}`
	req := httptest.NewRequest(http.MethodPut, "/api/options", strings.NewReader(update))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/options", nil)
	rec = httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"method":"hybrid"`)
	assert.Contains(t, rec.Body.String(), `"quality":85`)
}

func TestSetOptionsRejectsUnknownMethod(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))

	req := httptest.NewRequest(http.MethodPut, "/api/options", strings.NewReader(`{"method":"brotli"}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFullWorkflowOverHTTP(t *testing.T) {
	server, downloadDir := newTestServer(t, fakeBackend(t))
	router := server.Router()

	// Select
	body, contentType := pngUpload(t, "image", "photo.png")
	req := httptest.NewRequest(http.MethodPost, "/api/select", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"state":"file_selected"`)

	// Compress is asynchronous; poll status until completed.
	req = httptest.NewRequest(http.MethodPost, "/api/compress", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/status", nil))
		return strings.Contains(rec.Body.String(), `"state":"completed"`)
	}, 2*time.Second, 20*time.Millisecond)

	// Download persists the artifact under the prefixed name.
	req = httptest.NewRequest(http.MethodPost, "/api/download", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), filepath.Join(downloadDir, "compressed_photo.png"))

	// Statistics reflect the session.
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/statistics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"compressions_succeeded":1`)
	assert.Contains(t, rec.Body.String(), `"downloads_succeeded":1`)
}

func TestPreviewServesThumbnail(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))
	router := server.Router()

	// No selection yet.
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preview", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	body, contentType := pngUpload(t, "image", "photo.png")
	req := httptest.NewRequest(http.MethodPost, "/api/select", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/preview?w=4&h=4", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/jpeg", rec.Header().Get("Content-Type"))
}

func TestMethodsEndpoint(t *testing.T) {
	server, _ := newTestServer(t, fakeBackend(t))

	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/methods", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	for _, id := range []string{"traditional", "ml", "hybrid"} {
		assert.Contains(t, rec.Body.String(), `"id":"`+id+`"`)
	}
}
