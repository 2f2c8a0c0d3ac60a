package view

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File is a list view backed by an HTML file on disk. Output may go to a
// different path than the input; writing to the input path annotates it in place.
type File struct {
	path      string
	output    string
	lastWrite [sha256.Size]byte
	mu        sync.Mutex
}

// NewFile creates a file-backed view reading from path and writing to output.
// An empty output writes back to path.
func NewFile(path, output string) *File {
	if output == "" {
		output = path
	}
	return &File{path: path, output: output}
}

// Path returns the input path.
func (f *File) Path() string { return f.path }

// Output returns the output path.
func (f *File) Output() string { return f.output }

// InPlace reports whether rendered output replaces the input.
func (f *File) InPlace() bool {
	return filepath.Clean(f.path) == filepath.Clean(f.output)
}

// Load parses the current contents of the input file.
func (f *File) Load(ctx context.Context) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read view %s: %w", f.path, err)
	}
	return Parse(bytes.NewReader(data))
}

// Save renders doc to the output file, replacing it atomically.
func (f *File) Save(ctx context.Context, doc *Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := doc.Bytes()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := WriteAtomic(f.output, data); err != nil {
		return err
	}
	f.lastWrite = sha256.Sum256(data)
	return nil
}

// WroteContent reports whether data is exactly what Save last wrote.
func (f *File) WroteContent(data []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastWrite == sha256.Sum256(data)
}

// WriteAtomic replaces path with data through a temp file in the same directory.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", path, err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
