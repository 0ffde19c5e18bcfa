package workflow

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileSink persists downloaded artifacts into a directory on the local
// filesystem.
type FileSink struct {
	directory string
}

// NewFileSink returns a FileSink writing into the given directory.
func NewFileSink(directory string) *FileSink {
	return &FileSink{directory: directory}
}

// Save writes the artifact and returns its full path. The directory is
// created on first use.
func (s *FileSink) Save(fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(s.directory, 0755); err != nil {
		return "", fmt.Errorf("create download directory: %w", err)
	}

	// Strip any path components a remote name could smuggle in.
	path := filepath.Join(s.directory, filepath.Base(fileName))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	return path, nil
}
