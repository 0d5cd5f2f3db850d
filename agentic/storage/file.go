// Package storage provides file-system backed persistence for compaction:
// body writers, a bounded file reader for restoration and a locked session
// transcript store.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultMaxReadBytes bounds a single restored file.
const DefaultMaxReadBytes = 4 << 20

// ErrFileTooLarge is returned by FileReader.Read for files above MaxBytes.
var ErrFileTooLarge = errors.New("storage: file too large")

// FileWriter writes files atomically, creating parent directories.
type FileWriter struct {
	// Root, when set, is joined in front of relative paths.
	Root string
}

// NewFileWriter returns a FileWriter rooted at root ("" for the process working directory).
func NewFileWriter(root string) *FileWriter {
	return &FileWriter{Root: root}
}

// Write stores content at path via a temp file and rename.
func (w *FileWriter) Write(ctx context.Context, path string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	target := path
	if w.Root != "" && !filepath.IsAbs(target) {
		target = filepath.Join(w.Root, target)
	}
	return writeAtomic(target, content)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmp)
	}()
	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err == nil {
		return nil
	}
	// Windows does not always allow rename-over-existing semantics.
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmp, path)
}

// FileReader reads regular files from disk.
type FileReader struct {
	// MaxBytes caps how much of a file may be read. Default: DefaultMaxReadBytes.
	MaxBytes int64
}

// NewFileReader returns a FileReader with the default size cap.
func NewFileReader() *FileReader {
	return &FileReader{MaxBytes: DefaultMaxReadBytes}
}

// Exists reports whether path is a regular file.
func (r *FileReader) Exists(ctx context.Context, path string) bool {
	if ctx.Err() != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Read returns the file's content as text.
func (r *FileReader) Read(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	limit := r.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxReadBytes
	}
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return "", err
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("%w: %s exceeds %d bytes", ErrFileTooLarge, path, limit)
	}
	return string(data), nil
}
