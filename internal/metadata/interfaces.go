package metadata

import (
	"errors"
	"time"
)

// ErrNotImage reports that a payload could not be decoded as a supported
// image format.
var ErrNotImage = errors.New("payload is not a supported image")

// Info describes a selected image payload.
type Info struct {
	Format     string     `json:"format"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	CapturedAt *time.Time `json:"captured_at,omitempty"`
}

// Inspector validates and describes image payloads.
type Inspector interface {
	Inspect(fileName string, data []byte) (*Info, error)
}
