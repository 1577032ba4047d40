package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rirsync/rirsync/internal/port"
)

// partialSuffix marks an in-flight download. A rename over the final
// name happens only after the full body has been written, so an
// interrupted run never clobbers the previous run's file.
const partialSuffix = ".downloading"

// Manager handles destination directory operations
type Manager struct {
	destDir    string
	bufferSize int
}

// Ensure Manager implements port.FileSystem
var _ port.FileSystem = (*Manager)(nil)

// NewManager creates a new filesystem manager, creating the destination
// directory if needed.
func NewManager(destDir string, bufferSize int) (*Manager, error) {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination dir: %w", err)
	}

	if bufferSize <= 0 {
		bufferSize = 1024 * 1024 // 1MB default
	}

	return &Manager{
		destDir:    destDir,
		bufferSize: bufferSize,
	}, nil
}

// DestDir returns the destination directory
func (m *Manager) DestDir() string {
	return m.destDir
}

// WriteFile streams reader to <dest>/<name> via a temp file and rename
func (m *Manager) WriteFile(name string, reader io.Reader) (string, int64, error) {
	finalPath := filepath.Join(m.destDir, filepath.Base(name))
	tempPath := finalPath + partialSuffix

	written, err := m.WriteTo(tempPath, reader)
	if err != nil {
		os.Remove(tempPath)
		return "", 0, err
	}

	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return "", 0, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return finalPath, written, nil
}

// WriteTo streams reader to an absolute path, truncating any existing file
func (m *Manager) WriteTo(path string, reader io.Reader) (int64, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}

	buf := make([]byte, m.bufferSize)
	written, err := io.CopyBuffer(f, reader, buf)
	if err != nil {
		f.Close()
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	if err := f.Close(); err != nil {
		return 0, fmt.Errorf("failed to close file: %w", err)
	}

	return written, nil
}

// MoveIntoDest moves srcPath into the destination directory under name.
// Rename is attempted first; a copy+remove fallback covers temp dirs on
// a different filesystem.
func (m *Manager) MoveIntoDest(srcPath, name string) (string, error) {
	finalPath := filepath.Join(m.destDir, filepath.Base(name))

	if err := os.Rename(srcPath, finalPath); err == nil {
		return finalPath, nil
	}

	return m.copyIntoDest(srcPath, name)
}

// copyIntoDest copies srcPath into the destination directory under name
// and removes the source, for moves that cannot use rename.
func (m *Manager) copyIntoDest(srcPath, name string) (string, error) {
	src, err := os.Open(srcPath)
	if err != nil {
		return "", fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	finalPath, _, err := m.WriteFile(name, src)
	if err != nil {
		return "", err
	}
	os.Remove(srcPath)
	return finalPath, nil
}

// MakeTempDir creates a fresh temporary working directory
func (m *Manager) MakeTempDir(prefix string) (string, error) {
	dir, err := os.MkdirTemp("", prefix)
	if err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	return dir, nil
}

// RemoveAll removes a path and everything under it
func (m *Manager) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// FileExists checks if a file exists at path
func (m *Manager) FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// CleanStalePartials removes partial downloads older than the given age
func (m *Manager) CleanStalePartials(olderThan time.Duration) (int, error) {
	count := 0
	threshold := time.Now().Add(-olderThan)

	entries, err := os.ReadDir(m.destDir)
	if err != nil {
		return 0, err
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), partialSuffix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(threshold) {
			if err := os.Remove(filepath.Join(m.destDir, entry.Name())); err == nil {
				count++
			}
		}
	}
	return count, nil
}
