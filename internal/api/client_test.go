package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestAnalyzeSubmitsImageAndDecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/analyze", r.URL.Path)
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "photo.png", header.Filename)

		payload, err := io.ReadAll(file)
		require.NoError(t, err)
		assert.Equal(t, []byte("image-bytes"), payload)

		json.NewEncoder(w).Encode(ImageAnalysis{
			Entropy:        6.2,
			MeanIntensity:  128.5,
			Complexity:     "medium",
			DominantColors: []string{"#aabbcc"},
			Recommendation: "hybrid at quality 85",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	analysis, err := client.Analyze(context.Background(), "photo.png", []byte("image-bytes"))
	require.NoError(t, err)

	assert.Equal(t, 6.2, analysis.Entropy)
	assert.Equal(t, "medium", analysis.Complexity)
	assert.Equal(t, []string{"#aabbcc"}, analysis.DominantColors)
}

func TestAnalyzeNonSuccessIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	_, err := client.Analyze(context.Background(), "photo.png", []byte("x"))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestCompressSubmitsAllFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/compression/compress", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		assert.Equal(t, "hybrid", r.FormValue("method"))
		assert.Equal(t, "85", r.FormValue("quality"))
		assert.Equal(t, "250", r.FormValue("targetSizeKB"))
		assert.Equal(t, "true", r.FormValue("enableAnalysis"))

		_, header, err := r.FormFile("image")
		require.NoError(t, err)
		assert.Equal(t, "photo.png", header.Filename)

		json.NewEncoder(w).Encode(CompressionResult{
			ID:               "abc123",
			OriginalSize:     2000000,
			CompressedSize:   500000,
			CompressionRatio: 4.0,
			Quality:          85,
			Method:           "hybrid",
			ProcessingTime:   1.25,
			DownloadURL:      "/api/compression/download/abc123",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	result, err := client.Compress(context.Background(), CompressRequest{
		FileName:       "photo.png",
		Data:           []byte("image-bytes"),
		Method:         "hybrid",
		Quality:        85,
		TargetSizeKB:   250,
		EnableAnalysis: true,
	})
	require.NoError(t, err)

	assert.Equal(t, "abc123", result.ID)
	assert.Equal(t, int64(2000000), result.OriginalSize)
	assert.InDelta(t, 75.0, result.SavingsPercent(), 0.001)
}

func TestCompressOmitsAbsentTargetSize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))

		_, present := r.MultipartForm.Value["targetSizeKB"]
		assert.False(t, present, "targetSizeKB must be omitted when unset")

		json.NewEncoder(w).Encode(CompressionResult{ID: "r1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	_, err := client.Compress(context.Background(), CompressRequest{
		FileName: "photo.png",
		Data:     []byte("x"),
		Method:   "traditional",
		Quality:  80,
	})
	require.NoError(t, err)
}

func TestCompressSurfacesServerMessage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"message": "invalid quality"})
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	_, err := client.Compress(context.Background(), CompressRequest{
		FileName: "photo.png",
		Data:     []byte("x"),
		Method:   "traditional",
		Quality:  80,
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "invalid quality", apiErr.Message)
	assert.Equal(t, "invalid quality", apiErr.Error())
}

func TestCompressTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewClient(server.URL, server.URL, time.Second, testLogger())
	_, err := client.Compress(context.Background(), CompressRequest{
		FileName: "photo.png",
		Data:     []byte("x"),
		Method:   "traditional",
		Quality:  80,
	})
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures carry no server message")
}

func TestDownloadReturnsPayload(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/compression/download/abc123", r.URL.Path)
		w.Write(payload)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	got, err := client.Download(context.Background(), "abc123")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadNonSuccessIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(server.URL, server.URL, 5*time.Second, testLogger())
	_, err := client.Download(context.Background(), "missing")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}
