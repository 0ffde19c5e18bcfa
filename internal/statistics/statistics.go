package statistics

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"
)

// Statistics contains counters for a workflow session. All counters are
// updated atomically so they can be read while operations are in flight.
type Statistics struct {
	FilesSelected      int64
	SelectionsRejected int64

	AnalysesRequested int64
	AnalysesCompleted int64
	AnalysesFailed    int64
	AnalysesDiscarded int64

	CompressionsStarted   int64
	CompressionsSucceeded int64
	CompressionsFailed    int64
	CompressionsDiscarded int64

	DownloadsSucceeded int64
	DownloadsFailed    int64

	BytesOriginal   int64
	BytesCompressed int64

	StartTime time.Time
}

// Snapshot is a point-in-time copy of the counters for serialization.
type Snapshot struct {
	FilesSelected         int64   `json:"files_selected"`
	SelectionsRejected    int64   `json:"selections_rejected"`
	AnalysesRequested     int64   `json:"analyses_requested"`
	AnalysesCompleted     int64   `json:"analyses_completed"`
	AnalysesFailed        int64   `json:"analyses_failed"`
	AnalysesDiscarded     int64   `json:"analyses_discarded"`
	CompressionsStarted   int64   `json:"compressions_started"`
	CompressionsSucceeded int64   `json:"compressions_succeeded"`
	CompressionsFailed    int64   `json:"compressions_failed"`
	CompressionsDiscarded int64   `json:"compressions_discarded"`
	DownloadsSucceeded    int64   `json:"downloads_succeeded"`
	DownloadsFailed       int64   `json:"downloads_failed"`
	BytesOriginal         int64   `json:"bytes_original"`
	BytesCompressed       int64   `json:"bytes_compressed"`
	BytesSaved            int64   `json:"bytes_saved"`
	SavingsPercent        float64 `json:"savings_percent"`
	UptimeSeconds         float64 `json:"uptime_seconds"`
}

// NewStatistics returns a new Statistics instance.
func NewStatistics() *Statistics {
	return &Statistics{StartTime: time.Now()}
}

// RecordSelection counts an accepted file selection.
func (s *Statistics) RecordSelection() {
	atomic.AddInt64(&s.FilesSelected, 1)
}

// RecordSelectionRejected counts a payload that was not an image.
func (s *Statistics) RecordSelectionRejected() {
	atomic.AddInt64(&s.SelectionsRejected, 1)
}

// RecordAnalysisRequested counts an issued analysis call.
func (s *Statistics) RecordAnalysisRequested() {
	atomic.AddInt64(&s.AnalysesRequested, 1)
}

// RecordAnalysisCompleted counts an analysis result that was published.
func (s *Statistics) RecordAnalysisCompleted() {
	atomic.AddInt64(&s.AnalysesCompleted, 1)
}

// RecordAnalysisFailed counts an analysis call that errored.
func (s *Statistics) RecordAnalysisFailed() {
	atomic.AddInt64(&s.AnalysesFailed, 1)
}

// RecordAnalysisDiscarded counts an analysis result dropped because the
// selection changed before it resolved.
func (s *Statistics) RecordAnalysisDiscarded() {
	atomic.AddInt64(&s.AnalysesDiscarded, 1)
}

// RecordCompressionStarted counts an issued compression call.
func (s *Statistics) RecordCompressionStarted() {
	atomic.AddInt64(&s.CompressionsStarted, 1)
}

// RecordCompressionSucceeded counts a successful compression and its byte totals.
func (s *Statistics) RecordCompressionSucceeded(originalSize, compressedSize int64) {
	atomic.AddInt64(&s.CompressionsSucceeded, 1)
	atomic.AddInt64(&s.BytesOriginal, originalSize)
	atomic.AddInt64(&s.BytesCompressed, compressedSize)
}

// RecordCompressionFailed counts a failed compression call.
func (s *Statistics) RecordCompressionFailed() {
	atomic.AddInt64(&s.CompressionsFailed, 1)
}

// RecordCompressionDiscarded counts a compression result dropped because the
// selection changed while the call was in flight.
func (s *Statistics) RecordCompressionDiscarded() {
	atomic.AddInt64(&s.CompressionsDiscarded, 1)
}

// RecordDownload counts a download attempt.
func (s *Statistics) RecordDownload(success bool) {
	if success {
		atomic.AddInt64(&s.DownloadsSucceeded, 1)
	} else {
		atomic.AddInt64(&s.DownloadsFailed, 1)
	}
}

// GetSnapshot returns a point-in-time copy of all counters.
func (s *Statistics) GetSnapshot() Snapshot {
	snap := Snapshot{
		FilesSelected:         atomic.LoadInt64(&s.FilesSelected),
		SelectionsRejected:    atomic.LoadInt64(&s.SelectionsRejected),
		AnalysesRequested:     atomic.LoadInt64(&s.AnalysesRequested),
		AnalysesCompleted:     atomic.LoadInt64(&s.AnalysesCompleted),
		AnalysesFailed:        atomic.LoadInt64(&s.AnalysesFailed),
		AnalysesDiscarded:     atomic.LoadInt64(&s.AnalysesDiscarded),
		CompressionsStarted:   atomic.LoadInt64(&s.CompressionsStarted),
		CompressionsSucceeded: atomic.LoadInt64(&s.CompressionsSucceeded),
		CompressionsFailed:    atomic.LoadInt64(&s.CompressionsFailed),
		CompressionsDiscarded: atomic.LoadInt64(&s.CompressionsDiscarded),
		DownloadsSucceeded:    atomic.LoadInt64(&s.DownloadsSucceeded),
		DownloadsFailed:       atomic.LoadInt64(&s.DownloadsFailed),
		BytesOriginal:         atomic.LoadInt64(&s.BytesOriginal),
		BytesCompressed:       atomic.LoadInt64(&s.BytesCompressed),
		UptimeSeconds:         time.Since(s.StartTime).Seconds(),
	}
	snap.BytesSaved = snap.BytesOriginal - snap.BytesCompressed
	if snap.BytesOriginal > 0 {
		snap.SavingsPercent = float64(snap.BytesSaved) * 100 / float64(snap.BytesOriginal)
	}
	return snap
}

// GetSummary returns a human-readable summary of the session.
func (s *Statistics) GetSummary() string {
	snap := s.GetSnapshot()

	var b strings.Builder
	b.WriteString("SESSION SUMMARY\n")
	b.WriteString("==================================================\n")
	fmt.Fprintf(&b, "Files selected:          %d (rejected: %d)\n",
		snap.FilesSelected, snap.SelectionsRejected)
	fmt.Fprintf(&b, "Analyses:                %d requested, %d completed, %d failed, %d stale\n",
		snap.AnalysesRequested, snap.AnalysesCompleted, snap.AnalysesFailed, snap.AnalysesDiscarded)
	fmt.Fprintf(&b, "Compressions:            %d started, %d succeeded, %d failed\n",
		snap.CompressionsStarted, snap.CompressionsSucceeded, snap.CompressionsFailed)
	fmt.Fprintf(&b, "Downloads:               %d succeeded, %d failed\n",
		snap.DownloadsSucceeded, snap.DownloadsFailed)
	fmt.Fprintf(&b, "Bytes processed:         %d original, %d compressed\n",
		snap.BytesOriginal, snap.BytesCompressed)
	fmt.Fprintf(&b, "Space saved:             %d bytes (%.1f%%)\n",
		snap.BytesSaved, snap.SavingsPercent)
	fmt.Fprintf(&b, "Session duration:        %.1fs\n", snap.UptimeSeconds)

	return b.String()
}
