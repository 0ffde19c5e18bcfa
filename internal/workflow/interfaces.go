package workflow

import (
	"context"
	"time"

	"image-compress-go/internal/api"
	"image-compress-go/internal/metadata"
)

// Service is the remote collaborator surface used by the Controller. The
// analysis and compression endpoints are independent services behind the same
// interface; *api.Client is the production implementation.
type Service interface {
	Analyze(ctx context.Context, fileName string, data []byte) (*api.ImageAnalysis, error)
	Compress(ctx context.Context, request api.CompressRequest) (*api.CompressionResult, error)
	Download(ctx context.Context, id string) ([]byte, error)
}

// Sink receives downloaded artifacts for host persistence and returns the
// location the artifact was saved to.
type Sink interface {
	Save(fileName string, data []byte) (string, error)
}

// Listener observes externally visible workflow changes. Implementations must
// not call back into the Controller from WorkflowChanged.
type Listener interface {
	WorkflowChanged(snapshot Snapshot)
}

// SourceFile is the currently selected image payload. Exactly one SourceFile
// is held at a time; replacing it invalidates all state derived from the
// previous one.
type SourceFile struct {
	Name       string
	Size       int64
	Data       []byte
	Info       *metadata.Info
	SelectedAt time.Time
}

// FileInfo is the serializable view of a SourceFile, without the payload.
type FileInfo struct {
	Name       string         `json:"name"`
	Size       int64          `json:"size"`
	Info       *metadata.Info `json:"info,omitempty"`
	SelectedAt time.Time      `json:"selected_at"`
}

// Snapshot is a consistent view of the workflow for status surfaces and
// listeners.
type Snapshot struct {
	State         string                 `json:"state"`
	AnalysisState string                 `json:"analysis_state"`
	File          *FileInfo              `json:"file,omitempty"`
	Options       Options                `json:"options"`
	Analysis      *api.ImageAnalysis     `json:"analysis,omitempty"`
	Result        *api.CompressionResult `json:"result,omitempty"`
	Notice        Notice                 `json:"notice"`
}
