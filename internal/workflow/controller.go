package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"image-compress-go/internal/api"
	"image-compress-go/internal/metadata"
	"image-compress-go/internal/statistics"

	"github.com/sirupsen/logrus"
)

// ControllerConfig carries the tunable parts of a Controller.
type ControllerConfig struct {
	// DefaultOptions seeds the options store; normalized on construction.
	DefaultOptions Options
	// DownloadPrefix is prepended to the original file name when the
	// artifact is handed to the sink. Defaults to "compressed_".
	DownloadPrefix string
}

// Controller coordinates the compression workflow: file selection, the
// best-effort analysis side call, the single-flight compression call, and
// artifact download. All state mutation goes through the controller; every
// asynchronous completion is checked against the selection generation
// captured when its request was issued, so a response for a superseded file
// is dropped rather than published.
type Controller struct {
	service   Service
	inspector metadata.Inspector
	sink      Sink
	stats     *statistics.Statistics
	log       *logrus.Logger

	downloadPrefix string

	mu            sync.Mutex
	listener      Listener
	generation    uint64
	file          *SourceFile
	options       Options
	state         State
	analysisState AnalysisState
	analysis      *api.ImageAnalysis
	result        *api.CompressionResult
	notice        Notice
}

// NewController returns a Controller wired to the given collaborators.
func NewController(cfg ControllerConfig, service Service, inspector metadata.Inspector, sink Sink, stats *statistics.Statistics, log *logrus.Logger) *Controller {
	prefix := cfg.DownloadPrefix
	if prefix == "" {
		prefix = "compressed_"
	}
	return &Controller{
		service:        service,
		inspector:      inspector,
		sink:           sink,
		stats:          stats,
		log:            log,
		downloadPrefix: prefix,
		options:        cfg.DefaultOptions.Normalized(),
		state:          StateIdle,
		analysisState:  AnalysisUnstarted,
	}
}

// SetListener registers the listener notified after each externally visible
// change. Pass nil to remove it.
func (c *Controller) SetListener(l Listener) {
	c.mu.Lock()
	c.listener = l
	c.mu.Unlock()
}

// Select replaces the current source file. Any live result, notice and
// analysis state tied to the previous file is cleared, and a best-effort
// analysis request is fired for the new file. Payloads that do not decode as
// images are rejected without changing any state.
func (c *Controller) Select(name string, data []byte) error {
	info, err := c.inspector.Inspect(name, data)
	if err != nil {
		c.stats.RecordSelectionRejected()
		c.log.WithField("file", name).Debugf("Selection rejected: %v", err)
		return err
	}

	c.mu.Lock()
	c.generation++
	generation := c.generation
	c.file = &SourceFile{
		Name:       name,
		Size:       int64(len(data)),
		Data:       data,
		Info:       info,
		SelectedAt: time.Now(),
	}
	c.result = nil
	c.analysis = nil
	c.notice = Notice{}
	c.state = StateFileSelected
	c.analysisState = AnalysisPending
	c.mu.Unlock()

	c.stats.RecordSelection()
	c.stats.RecordAnalysisRequested()
	c.log.WithFields(logrus.Fields{
		"file":   name,
		"size":   len(data),
		"format": info.Format,
	}).Info("File selected")

	c.publish()

	go c.requestAnalysis(generation, name, data)

	return nil
}

// requestAnalysis issues the best-effort analysis call. The result is
// published only if the selection generation still matches; failures are
// logged and never surfaced to the user.
func (c *Controller) requestAnalysis(generation uint64, name string, data []byte) {
	analysis, err := c.service.Analyze(context.Background(), name, data)

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		c.stats.RecordAnalysisDiscarded()
		c.log.WithField("file", name).Debug("Discarding stale analysis result")
		return
	}

	if err != nil {
		c.analysisState = AnalysisUnavailable
		c.mu.Unlock()
		c.stats.RecordAnalysisFailed()
		c.log.WithField("file", name).Warnf("Analysis unavailable: %v", err)
		c.publish()
		return
	}

	c.analysis = analysis
	c.analysisState = AnalysisAvailable
	c.mu.Unlock()

	c.stats.RecordAnalysisCompleted()
	c.log.WithFields(logrus.Fields{
		"file":       name,
		"complexity": analysis.Complexity,
		"entropy":    analysis.Entropy,
	}).Info("Analysis available")
	c.publish()
}

// Options returns the current compression options.
func (c *Controller) Options() Options {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.options
}

// SetOptions replaces the compression options after normalization. Options
// are snapshotted when a compression is issued, so edits never affect an
// in-flight request.
func (c *Controller) SetOptions(opts Options) error {
	if opts.Method != "" && !ValidMethod(opts.Method) {
		return fmt.Errorf("unknown compression method: %s", opts.Method)
	}

	c.mu.Lock()
	c.options = opts.Normalized()
	c.mu.Unlock()

	c.publish()
	return nil
}

// Compress issues the blocking compression call for the selected file with a
// snapshot of the current options. It fails locally when no file is selected
// and rejects re-triggering while a call is outstanding. The outcome is
// applied only if the selection has not changed in the meantime.
func (c *Controller) Compress(ctx context.Context) (*api.CompressionResult, error) {
	c.mu.Lock()
	if c.file == nil {
		c.mu.Unlock()
		return nil, ErrNoFile
	}
	if c.state == StateCompressing {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	generation := c.generation
	file := c.file
	opts := c.options
	c.result = nil
	c.notice = Notice{}
	c.state = StateCompressing
	c.mu.Unlock()

	c.stats.RecordCompressionStarted()
	c.publish()

	result, err := c.service.Compress(ctx, api.CompressRequest{
		FileName:       file.Name,
		Data:           file.Data,
		Method:         opts.Method,
		Quality:        opts.Quality,
		TargetSizeKB:   opts.TargetSizeKB,
		EnableAnalysis: opts.EnableAnalysis,
	})

	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		c.stats.RecordCompressionDiscarded()
		c.log.WithField("file", file.Name).Debug("Discarding compression outcome for superseded selection")
		return nil, ErrSuperseded
	}

	if err != nil {
		c.state = StateFailed
		c.notice = ErrorNotice(compressionFailureMessage(err))
		c.mu.Unlock()
		c.stats.RecordCompressionFailed()
		c.log.WithField("file", file.Name).Errorf("Compression failed: %v", err)
		c.publish()
		return nil, err
	}

	c.result = result
	c.state = StateCompleted
	c.notice = SuccessNotice(fmt.Sprintf("Compressed %s by %.1f%%", file.Name, result.SavingsPercent()))
	c.mu.Unlock()

	c.stats.RecordCompressionSucceeded(result.OriginalSize, result.CompressedSize)
	c.publish()
	return result, nil
}

// Download retrieves the compressed artifact for the live result and hands it
// to the sink under the original name with the configured prefix. It fails
// locally when no result exists and never alters the result or the main
// state.
func (c *Controller) Download(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.result == nil {
		c.mu.Unlock()
		return "", ErrNoResult
	}
	generation := c.generation
	result := c.result
	fileName := c.downloadPrefix + c.file.Name
	c.notice = Notice{}
	c.mu.Unlock()

	c.publish()

	payload, err := c.service.Download(ctx, result.ID)
	if err != nil {
		c.stats.RecordDownload(false)
		c.log.WithField("result_id", result.ID).Errorf("Download failed: %v", err)
		c.setNoticeIfCurrent(generation, ErrorNotice(genericDownloadFailure))
		return "", err
	}

	location, err := c.sink.Save(fileName, payload)
	if err != nil {
		c.stats.RecordDownload(false)
		c.log.WithField("file", fileName).Errorf("Saving artifact failed: %v", err)
		c.setNoticeIfCurrent(generation, ErrorNotice(genericDownloadFailure))
		return "", fmt.Errorf("save artifact: %w", err)
	}

	c.stats.RecordDownload(true)
	c.log.WithFields(logrus.Fields{
		"file":     fileName,
		"location": location,
		"bytes":    len(payload),
	}).Info("Artifact saved")
	c.setNoticeIfCurrent(generation, SuccessNotice("Saved "+fileName))
	return location, nil
}

// State returns the current workflow state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// AnalysisStatus returns the analysis sub-state and, when available, the
// published assessment for the current file.
func (c *Controller) AnalysisStatus() (AnalysisState, *api.ImageAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.analysisState, c.analysis
}

// SourceData returns the name and payload of the selected file, when one is
// held. The payload must be treated as read-only.
func (c *Controller) SourceData() (string, []byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.file == nil {
		return "", nil, false
	}
	return c.file.Name, c.file.Data, true
}

// Result returns the live compression result, or nil.
func (c *Controller) Result() *api.CompressionResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result
}

// Notice returns the live outcome notice.
func (c *Controller) Notice() Notice {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// GetSnapshot returns a consistent view of the workflow.
func (c *Controller) GetSnapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:         c.state.String(),
		AnalysisState: c.analysisState.String(),
		Options:       c.options,
		Analysis:      c.analysis,
		Result:        c.result,
		Notice:        c.notice,
	}
	if c.file != nil {
		snap.File = &FileInfo{
			Name:       c.file.Name,
			Size:       c.file.Size,
			Info:       c.file.Info,
			SelectedAt: c.file.SelectedAt,
		}
	}
	return snap
}

// setNoticeIfCurrent applies the notice only when the selection has not been
// replaced since the triggering action started.
func (c *Controller) setNoticeIfCurrent(generation uint64, notice Notice) {
	c.mu.Lock()
	if generation != c.generation {
		c.mu.Unlock()
		return
	}
	c.notice = notice
	c.mu.Unlock()
	c.publish()
}

// publish hands a snapshot to the registered listener, outside the lock.
func (c *Controller) publish() {
	c.mu.Lock()
	listener := c.listener
	var snap Snapshot
	if listener != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if listener != nil {
		listener.WorkflowChanged(snap)
	}
}

// compressionFailureMessage surfaces the server-provided message when the
// service answered with one, and a generic message for transport failures.
func compressionFailureMessage(err error) string {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return genericCompressionFailure
}
