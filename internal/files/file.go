package files

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// MaxAdvertisedSize is the upload ceiling the backend advertises (50 MB).
const MaxAdvertisedSize int64 = 50_000_000

// ErrEmptyName indicates a selection without a filename.
var ErrEmptyName = errors.New("file name cannot be empty")

// SelectedFile is an immutable handle to a file chosen for upload.
type SelectedFile struct {
	name    string
	content []byte
}

// FromBytes copies content so later mutation by the caller has no effect.
func FromBytes(name string, content []byte) (*SelectedFile, error) {
	name = filepath.Base(name)
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, ErrEmptyName
	}
	buf := make([]byte, len(content))
	copy(buf, content)
	return &SelectedFile{name: name, content: buf}, nil
}

// FromReader reads r fully. A limit > 0 caps the bytes read; exceeding it is an error.
func FromReader(name string, r io.Reader, limit int64) (*SelectedFile, error) {
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if limit > 0 && int64(len(b)) > limit {
		return nil, fmt.Errorf("read %s: exceeds %d bytes", name, limit)
	}
	return FromBytes(name, b)
}

// Open reads a file from disk.
func Open(path string) (*SelectedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return FromBytes(path, data)
}

func (f *SelectedFile) Name() string { return f.name }

// Size is the byte length of the content.
func (f *SelectedFile) Size() int64 { return int64(len(f.content)) }

func (f *SelectedFile) Kind() Kind { return KindOf(f.name) }

// Reader returns a fresh reader over the content.
func (f *SelectedFile) Reader() io.Reader { return bytes.NewReader(f.content) }

// Bytes returns a copy of the content.
func (f *SelectedFile) Bytes() []byte {
	out := make([]byte, len(f.content))
	copy(out, f.content)
	return out
}
