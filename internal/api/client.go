package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"image-compress-go/internal/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	analyzePath  = "/api/analyze"
	compressPath = "/api/compression/compress"
	downloadPath = "/api/compression/download/"
)

// Client talks to the analysis and compression services. The two services are
// addressed independently and share no session state.
type Client struct {
	analysisURL    string
	compressionURL string
	httpClient     *http.Client
	log            *logrus.Logger
}

// NewClient returns a Client for the given service addresses.
func NewClient(analysisURL, compressionURL string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		analysisURL:    strings.TrimRight(analysisURL, "/"),
		compressionURL: strings.TrimRight(compressionURL, "/"),
		httpClient:     &http.Client{Timeout: timeout},
		log:            log,
	}
}

// Analyze submits the image to the analysis service and decodes the
// assessment. Any non-success status is returned as an error; callers treat
// analysis as best-effort and must not surface the failure.
func (c *Client) Analyze(ctx context.Context, fileName string, data []byte) (*ImageAnalysis, error) {
	requestID := uuid.NewString()
	entry := logger.WithRequest(c.log, requestID, "analyze")

	body, contentType, err := buildMultipart(fileName, data, nil)
	if err != nil {
		return nil, fmt.Errorf("build analysis request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.analysisURL+analyzePath, body)
	if err != nil {
		return nil, fmt.Errorf("create analysis request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("analysis request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	var analysis ImageAnalysis
	if err := json.NewDecoder(resp.Body).Decode(&analysis); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"file":       fileName,
		"complexity": analysis.Complexity,
		"elapsed":    time.Since(start).String(),
	}).Debug("Analysis completed")

	return &analysis, nil
}

// Compress submits the image and parameters to the compression service. A
// non-success response with a decodable message is returned as an *APIError
// carrying that message verbatim.
func (c *Client) Compress(ctx context.Context, request CompressRequest) (*CompressionResult, error) {
	requestID := uuid.NewString()
	entry := logger.WithRequest(c.log, requestID, "compress")

	fields := map[string]string{
		"method":         request.Method,
		"quality":        strconv.Itoa(request.Quality),
		"enableAnalysis": strconv.FormatBool(request.EnableAnalysis),
	}
	if request.TargetSizeKB > 0 {
		fields["targetSizeKB"] = strconv.Itoa(request.TargetSizeKB)
	}

	body, contentType, err := buildMultipart(request.FileName, request.Data, fields)
	if err != nil {
		return nil, fmt.Errorf("build compression request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.compressionURL+compressPath, body)
	if err != nil {
		return nil, fmt.Errorf("create compression request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("compression request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody errorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Message = errBody.Message
		}
		entry.WithField("status", resp.StatusCode).Warn("Compression rejected by service")
		return nil, apiErr
	}

	var result CompressionResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode compression response: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"file":            request.FileName,
		"result_id":       result.ID,
		"original_size":   result.OriginalSize,
		"compressed_size": result.CompressedSize,
		"elapsed":         time.Since(start).String(),
	}).Info("Compression completed")

	return &result, nil
}

// Download retrieves the compressed artifact for the given result ID.
func (c *Client) Download(ctx context.Context, id string) ([]byte, error) {
	requestID := uuid.NewString()
	entry := logger.WithRequest(c.log, requestID, "download")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.compressionURL+downloadPath+id, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("X-Request-ID", requestID)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		drain(resp.Body)
		return nil, &APIError{StatusCode: resp.StatusCode}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read download payload: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"result_id": id,
		"bytes":     len(payload),
	}).Debug("Artifact downloaded")

	return payload, nil
}

// buildMultipart assembles a multipart body with the image under the "image"
// field plus any extra string fields.
func buildMultipart(fileName string, data []byte, fields map[string]string) (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("image", fileName)
	if err != nil {
		return nil, "", fmt.Errorf("create image part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", fmt.Errorf("write image part: %w", err)
	}

	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("write field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}

	return body, writer.FormDataContentType(), nil
}

// drain discards the remainder of a response body so the connection can be
// reused.
func drain(r io.Reader) {
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 1<<20))
}
