package metadata

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/disintegration/imaging"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"
)

// ImageInspector is the default Inspector implementation. It decodes the
// payload header to confirm it is an image and extracts the capture timestamp
// from EXIF metadata when present.
type ImageInspector struct {
	logger *logrus.Logger
}

// NewImageInspector returns a new ImageInspector.
func NewImageInspector(logger *logrus.Logger) *ImageInspector {
	return &ImageInspector{logger: logger}
}

// Inspect validates that the payload decodes as an image and returns its
// format, dimensions and, when available, the EXIF capture timestamp.
// Timestamp extraction is best-effort and never fails the inspection.
func (i *ImageInspector) Inspect(fileName string, data []byte) (*Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotImage, fileName)
	}

	info := &Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	if date := i.extractCaptureDate(fileName, data); date != nil {
		info.CapturedAt = date
	}

	return info, nil
}

// Preview re-encodes the payload as a bounded JPEG thumbnail for display
// surfaces.
func (i *ImageInspector) Preview(data []byte, maxWidth, maxHeight int) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: preview decode failed", ErrNotImage)
	}

	thumb := imaging.Fit(img, maxWidth, maxHeight, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

// extractCaptureDate tries goexif first and falls back to an external
// exiftool binary for formats goexif cannot parse.
func (i *ImageInspector) extractCaptureDate(fileName string, data []byte) *time.Time {
	if date := i.extractWithGoExif(data); date != nil {
		i.logger.Debugf("Extracted capture date %v from EXIF for %s", date, fileName)
		return date
	}

	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".jpg" || ext == ".jpeg" {
		// goexif already covers JPEG; no point shelling out.
		return nil
	}

	if date := i.extractWithExiftool(fileName, data); date != nil {
		i.logger.Debugf("Extracted capture date %v via exiftool for %s", date, fileName)
		return date
	}

	return nil
}

// extractWithGoExif extracts the capture date using the rwcarlsen/goexif library.
func (i *ImageInspector) extractWithGoExif(data []byte) *time.Time {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil
	}

	if tm, err := x.DateTime(); err == nil {
		return &tm
	}

	for _, tag := range []exif.FieldName{exif.DateTimeOriginal, exif.DateTimeDigitized} {
		field, err := x.Get(tag)
		if err != nil {
			continue
		}
		dateStr, err := field.StringVal()
		if err != nil {
			continue
		}
		if date := parseEXIFDateTime(dateStr); date != nil {
			return date
		}
	}

	return nil
}

// extractWithExiftool extracts the capture date using an external exiftool
// binary. The payload is staged in a temporary file because exiftool only
// reads from disk.
func (i *ImageInspector) extractWithExiftool(fileName string, data []byte) *time.Time {
	et, err := exiftool.NewExiftool()
	if err != nil {
		i.logger.Debugf("exiftool unavailable: %v", err)
		return nil
	}
	defer et.Close()

	tmp, err := os.CreateTemp("", "inspect-*"+filepath.Ext(fileName))
	if err != nil {
		return nil
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil
	}
	tmp.Close()

	files := et.ExtractMetadata(tmp.Name())
	if len(files) == 0 || files[0].Err != nil {
		return nil
	}

	for _, key := range []string{"DateTimeOriginal", "CreateDate", "ModifyDate"} {
		raw, ok := files[0].Fields[key]
		if !ok {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			continue
		}
		if date := parseEXIFDateTime(str); date != nil {
			return date
		}
	}

	return nil
}

// parseEXIFDateTime parses an EXIF date time string and returns a time.Time
// pointer. Returns nil if parsing fails.
func parseEXIFDateTime(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006:01:02 15:04:05",
		"2006-01-02 15:04:05",
		"2006:01:02",
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return &date
		}
	}

	return nil
}
