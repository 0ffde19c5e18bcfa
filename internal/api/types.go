package api

import "fmt"

// ImageAnalysis is the quality/complexity assessment produced by the analysis
// service for a single image.
type ImageAnalysis struct {
	Entropy           float64  `json:"entropy"`
	MeanIntensity     float64  `json:"meanIntensity"`
	StandardDeviation float64  `json:"standardDeviation"`
	DominantColors    []string `json:"dominantColors"`
	Complexity        string   `json:"complexity"` // low, medium, high
	Recommendation    string   `json:"recommendation"`
}

// QualityMetrics contains the optional post-compression quality assessment
// returned when analysis is enabled on the compression request.
type QualityMetrics struct {
	PSNR                     float64 `json:"psnr"`
	SSIM                     float64 `json:"ssim"`
	MSE                      float64 `json:"mse"`
	Entropy                  float64 `json:"entropy"`
	ColorHistogramSimilarity float64 `json:"colorHistogramSimilarity"`
	EdgePreservation         float64 `json:"edgePreservation"`
}

// CompressionResult describes the outcome of a successful compression call.
type CompressionResult struct {
	ID               string          `json:"id"`
	OriginalSize     int64           `json:"originalSize"`
	CompressedSize   int64           `json:"compressedSize"`
	CompressionRatio float64         `json:"compressionRatio"`
	Quality          int             `json:"quality"`
	Method           string          `json:"method"`
	ProcessingTime   float64         `json:"processingTime"` // seconds
	DownloadURL      string          `json:"downloadUrl"`
	Analysis         *QualityMetrics `json:"analysis,omitempty"`
}

// SavingsPercent returns the size reduction as a percentage of the original.
func (r *CompressionResult) SavingsPercent() float64 {
	if r.OriginalSize <= 0 {
		return 0
	}
	return float64(r.OriginalSize-r.CompressedSize) * 100 / float64(r.OriginalSize)
}

// CompressRequest defines parameters for a single compression call.
type CompressRequest struct {
	FileName       string
	Data           []byte
	Method         string
	Quality        int
	TargetSizeKB   int // 0 omits the field from the submission
	EnableAnalysis bool
}

// APIError is a non-success response from a collaborator carrying a
// server-provided message.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("service returned status %d", e.StatusCode)
}

// errorResponse is the JSON error body shape used by the compression service.
type errorResponse struct {
	Message string `json:"message"`
}
