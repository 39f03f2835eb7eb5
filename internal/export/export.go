// Package export saves generated attendance spreadsheets and hands them to
// a share target.
package export

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"classroll/internal/apperr"
)

// SpreadsheetMIME is the MIME type offered to share targets.
const SpreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ShareUnavailableMessage is returned when no share target is configured.
const ShareUnavailableMessage = "Sharing is not available on this device"

var zipMagic = []byte("PK\x03\x04")

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Sharer offers a saved file to the user and returns where it went.
type Sharer interface {
	Share(ctx context.Context, path, mimeType string) (string, error)
}

// Exporter writes spreadsheets into Dir.
type Exporter struct {
	Dir    string
	Sharer Sharer
	Now    func() time.Time
}

// New creates an exporter.
func New(dir string, sharer Sharer) *Exporter {
	return &Exporter{Dir: dir, Sharer: sharer, Now: time.Now}
}

// Result describes a saved and shared report.
type Result struct {
	Path     string
	Location string
}

// FileName builds attendance_{label}_{YYYY-MM-DD}.xlsx.
func FileName(classroomLabel string, day time.Time) string {
	label := unsafeName.ReplaceAllString(classroomLabel, "_")
	if label == "" {
		label = "class"
	}
	return fmt.Sprintf("attendance_%s_%s.xlsx", label, day.Format("2006-01-02"))
}

// Save writes payload and shares it.
func (e *Exporter) Save(ctx context.Context, payload []byte, classroomLabel string) (*Result, error) {
	if len(payload) == 0 {
		return nil, apperr.Unexpected("Spreadsheet is empty", nil)
	}
	if !bytes.HasPrefix(payload, zipMagic) {
		return nil, apperr.Unexpected("Spreadsheet data is not a valid xlsx file", nil)
	}

	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	dir := e.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Storage("Could not create export directory", err)
	}
	path := filepath.Join(dir, FileName(classroomLabel, now()))
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return nil, apperr.Storage("Could not save spreadsheet", err)
	}

	if e.Sharer == nil {
		return nil, apperr.Unexpected(ShareUnavailableMessage+" (saved to "+path+")", nil)
	}
	loc, err := e.Sharer.Share(ctx, path, SpreadsheetMIME)
	if err != nil {
		return nil, apperr.Unexpected("Could not share spreadsheet (saved to "+path+")", err)
	}
	return &Result{Path: path, Location: loc}, nil
}

// LocalSharer leaves the file where it was saved.
type LocalSharer struct{}

func (LocalSharer) Share(ctx context.Context, path, mimeType string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	log.Printf("export: saved %s (%s)", abs, mimeType)
	return abs, nil
}
