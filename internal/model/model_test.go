package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRegisterOptionsDefaults(t *testing.T) {
	got := RegisterOptions{MaxFrames: 40}.WithDefaults()
	if got.MinRequiredImages != 5 || got.FrameInterval != 30 || got.MaxFrames != 40 {
		t.Fatalf("unexpected options %+v", got)
	}
}

func TestFileReferenceValidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(path, []byte("video"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	ref, err := FileReference{Path: path}.Validate()
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if ref.Name != "clip.mp4" {
		t.Fatalf("expected derived name, got %s", ref.Name)
	}
	if ref.MIMEType == "" {
		t.Fatalf("expected a mime type")
	}

	if _, err := (FileReference{}).Validate(); err == nil {
		t.Fatalf("expected empty path to fail")
	}
	if _, err := (FileReference{Path: filepath.Join(dir, "missing.jpg")}).Validate(); err == nil {
		t.Fatalf("expected missing file to fail")
	}
	if _, err := (FileReference{Path: dir}).Validate(); err == nil {
		t.Fatalf("expected directory to fail")
	}
}
