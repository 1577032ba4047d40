// Package archive extracts single entries from zip archives, as used
// for the ARIN bulk WHOIS download.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/rirsync/rirsync/internal/domain"
)

// ExtractEntry extracts the archive entry whose base name matches
// entryName into destDir and returns the extracted file's path. The
// entry is matched by base name because ARIN has shipped the file both
// at the archive root and nested under a dated directory.
func ExtractEntry(zipPath, entryName, destDir string) (string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() || path.Base(f.Name) != entryName {
			continue
		}
		return extractFile(f, entryName, destDir)
	}

	return "", fmt.Errorf("%w: %q", domain.ErrEntryNotFound, entryName)
}

func extractFile(f *zip.File, entryName, destDir string) (string, error) {
	// Only the base name is used for the output path, so a traversal
	// path inside the archive cannot place the file outside destDir.
	outPath := filepath.Join(destDir, filepath.Base(entryName))

	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open archive entry: %w", err)
	}
	defer rc.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(outPath)
		return "", fmt.Errorf("failed to extract entry: %w", err)
	}

	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to close output file: %w", err)
	}

	return outPath, nil
}
