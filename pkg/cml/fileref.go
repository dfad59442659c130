package cml

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// FileState classifies an uploaded file reference against the upload root.
type FileState int

const (
	// FileUpdated means the file exists under the upload root: this
	// exchange replaces its content.
	FileUpdated FileState = iota + 1
	// FilePrevious means no file was uploaded: content already present
	// on the site is reused.
	FilePrevious
)

var imageSuffixes = []string{".png", ".gif", ".jpg", ".jpeg"}

// FileRef is a client-supplied relative file path, normalized so it can
// never escape the upload root it is later resolved against.
type FileRef struct {
	// Path is the sanitized slash-separated relative path.
	Path string
}

// NewFileRef sanitizes a raw path taken from untrusted input. The path is
// resolved against a synthetic root so that any "../" or "./" segments
// collapse before the root prefix is stripped again.
func NewFileRef(raw string) (*FileRef, error) {
	p := strings.TrimSpace(raw)
	if p == "" {
		return nil, fmt.Errorf("file path must not be empty")
	}
	p = strings.ReplaceAll(p, `\`, "/")
	p = strings.TrimPrefix(path.Join("/", p), "/")
	if p == "" {
		return nil, fmt.Errorf("file path %q resolves to the upload root", raw)
	}
	return &FileRef{Path: p}, nil
}

// IsImage reports whether the reference points at an image, by extension.
func (f *FileRef) IsImage() bool {
	suffix := strings.ToLower(path.Ext(f.Path))
	for _, s := range imageSuffixes {
		if suffix == s {
			return true
		}
	}
	return false
}

// IsXML reports whether the reference points at an XML document.
func (f *FileRef) IsXML() bool {
	return strings.EqualFold(path.Ext(f.Path), ".xml")
}

// IsZip reports whether the reference points at a zip archive.
func (f *FileRef) IsZip() bool {
	return strings.EqualFold(path.Ext(f.Path), ".zip")
}

// FullPath resolves the reference beneath the given upload root.
func (f *FileRef) FullPath(root string) string {
	return filepath.Join(root, filepath.FromSlash(f.Path))
}

// State reports whether this exchange carries new content for the
// reference or reuses what is already on disk.
func (f *FileRef) State(root string) FileState {
	if _, err := os.Stat(f.FullPath(root)); err == nil {
		return FileUpdated
	}
	return FilePrevious
}
