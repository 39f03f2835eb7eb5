package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"classroll/internal/apperr"
	"classroll/internal/classroom"
	"classroll/internal/model"
)

// SpreadsheetMIME is the content type of generated reports.
const SpreadsheetMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// PhotosRequiredMessage is returned when attendance has no photos.
const PhotosRequiredMessage = "At least one photo is required to process attendance"

// Headers a backend may use to report counts alongside the spreadsheet.
const (
	HeaderPresentCount = "X-Present-Count"
	HeaderAbsentCount  = "X-Absent-Count"
)

// AttendanceRequest carries the photos of one class session.
type AttendanceRequest struct {
	ClassroomLabel string
	Standard       string
	Division       string
	Photos         []model.FileReference
}

// AttendanceResult is the raw spreadsheet plus anything the backend
// reported inline. Present and Absent are nil when not reported.
type AttendanceResult struct {
	Classroom   classroom.Identifier
	Photos      []model.FileReference
	Payload     []byte
	ContentType string
	Present     *int
	Absent      *int
}

// ProcessAttendance uploads classroom photos and returns the generated sheet.
func (c *Client) ProcessAttendance(ctx context.Context, in AttendanceRequest) (res *AttendanceResult, err error) {
	if len(in.Photos) == 0 {
		return nil, apperr.Validation(PhotosRequiredMessage)
	}
	defer observe("process_attendance", time.Now(), &err)

	id, err := classroom.Resolve(in.ClassroomLabel, in.Standard, in.Division)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}

	photos := make([]model.FileReference, len(in.Photos))
	for i, p := range in.Photos {
		ref, err := p.Validate()
		if err != nil {
			return nil, apperr.Validation(fmt.Sprintf("Invalid photo %d: %v", i+1, err))
		}
		photos[i] = ref
	}

	// All reads finish before the request is built.
	contents := make([][]byte, len(photos))
	g, gctx := errgroup.WithContext(ctx)
	for i := range photos {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			data, err := photos[i].Read()
			if err != nil {
				return fmt.Errorf("photo %s: %w", photos[i].Name, err)
			}
			contents[i] = data
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, apperr.Validation("Could not read photos: " + err.Error())
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for i, ref := range photos {
		if err := createFilePart(w, "images", ref, contents[i]); err != nil {
			return nil, apperr.Unexpected("Could not build upload", err)
		}
	}
	_ = w.WriteField("standard", id.StandardParam(c.StandardSuffix))
	_ = w.WriteField("division", id.Division)
	w.Close()

	req, err := c.newRequest(ctx, http.MethodPost, PathAttendance, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", SpreadsheetMIME+", application/json")

	resp, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.Server(resp.StatusCode, serverMessage(body, "Failed to process attendance"))
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.Contains(ct, "spreadsheetml") {
		return nil, apperr.Unexpected("Unexpected response format", fmt.Errorf("content type %q", ct))
	}
	if len(body) == 0 {
		return nil, apperr.Unexpected("Received an empty spreadsheet", nil)
	}

	return &AttendanceResult{
		Classroom:   id,
		Photos:      photos,
		Payload:     body,
		ContentType: ct,
		Present:     headerInt(resp.Header, HeaderPresentCount),
		Absent:      headerInt(resp.Header, HeaderAbsentCount),
	}, nil
}

func headerInt(h http.Header, key string) *int {
	v := strings.TrimSpace(h.Get(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return nil
	}
	return &n
}
