package model

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
)

// FileReference points at a local file to be uploaded.
type FileReference struct {
	Path     string `json:"path"`
	Name     string `json:"name"`
	MIMEType string `json:"mime_type"`
}

// NewFileReference builds a reference with name and type derived from path.
func NewFileReference(path string) FileReference {
	return FileReference{Path: path}.normalized()
}

func (f FileReference) normalized() FileReference {
	if f.Name == "" && f.Path != "" {
		f.Name = filepath.Base(f.Path)
	}
	if f.MIMEType == "" {
		f.MIMEType = mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
	}
	if f.MIMEType == "" {
		f.MIMEType = "application/octet-stream"
	}
	return f
}

// Validate checks the reference is complete and the file exists.
func (f FileReference) Validate() (FileReference, error) {
	if strings.TrimSpace(f.Path) == "" {
		return f, errors.New("file path is required")
	}
	f = f.normalized()
	info, err := os.Stat(f.Path)
	if err != nil {
		return f, fmt.Errorf("file %s: %w", f.Name, err)
	}
	if info.IsDir() {
		return f, fmt.Errorf("file %s is a directory", f.Name)
	}
	return f, nil
}

// Read returns the whole file content.
func (f FileReference) Read() ([]byte, error) {
	return os.ReadFile(f.Path)
}
