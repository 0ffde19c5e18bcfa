package workflow

import "errors"

var (
	// ErrNoFile is returned when an operation requiring a selected file is
	// invoked with none. No network call is made.
	ErrNoFile = errors.New("no file selected")

	// ErrBusy is returned when compress is re-triggered while a compression
	// call is outstanding for the current file.
	ErrBusy = errors.New("compression already in progress")

	// ErrNoResult is returned when download is invoked without a completed
	// compression result. No network call is made.
	ErrNoResult = errors.New("no compression result available")

	// ErrSuperseded is returned when a call resolved after the selection it
	// was issued for had been replaced; its outcome is discarded.
	ErrSuperseded = errors.New("selection changed while request was in flight")
)

// Generic user-facing messages for transport-level failures that carry no
// server-provided message.
const (
	genericCompressionFailure = "Compression failed. Please try again."
	genericDownloadFailure    = "Download failed. Please try again."
)
