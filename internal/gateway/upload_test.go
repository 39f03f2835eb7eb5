package gateway

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"classroll/internal/apperr"
	"classroll/internal/model"
)

func TestRegisterRequiresVideo(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := New(srv.URL, time.Second).RegisterStudent(context.Background(), RegisterRequest{
		Name: "Asha", RollNumber: "7", ClassroomLabel: "5A",
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if apperr.Message(err) != "Video is required for student registration" {
		t.Fatalf("unexpected message %q", apperr.Message(err))
	}
	if atomic.LoadInt32(n) != 0 {
		t.Fatalf("expected zero requests, got %d", *n)
	}
}

func TestRegisterRejectsMalformedClassroom(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	video := writeFile(t, "asha.mp4", "video")
	_, err := New(srv.URL, time.Second).RegisterStudent(context.Background(), RegisterRequest{
		Name: "Asha", RollNumber: "7", ClassroomLabel: "5", Video: &video,
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(apperr.Message(err), "^[0-9]+[A-Z]$") {
		t.Fatalf("expected message to name the pattern, got %q", apperr.Message(err))
	}
	if atomic.LoadInt32(n) != 0 {
		t.Fatalf("expected zero requests")
	}
}

func TestRegisterFormParams(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathRegister {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.RawQuery != "" {
			t.Errorf("expected no query params in form mode, got %s", r.URL.RawQuery)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		want := map[string]string{
			"name": "Asha", "roll_number": "7", "standard": "5", "division": "A",
			"min_required_images": "5", "frame_interval": "30", "max_frames": "100",
		}
		for k, v := range want {
			if got := r.FormValue(k); got != v {
				t.Errorf("field %s: expected %q, got %q", k, v, got)
			}
		}
		f, hdr, err := r.FormFile("video")
		if err != nil {
			t.Errorf("video part: %v", err)
			return
		}
		data, _ := io.ReadAll(f)
		if string(data) != "video-bytes" || hdr.Filename != "asha.mp4" {
			t.Errorf("unexpected video part %s %q", hdr.Filename, data)
		}
		io.WriteString(w, `{"status":"success","message":"ok","processing_summary":{"embeddings_stored":5}}`)
	})

	video := writeFile(t, "asha.mp4", "video-bytes")
	c := New(srv.URL, time.Second)
	fixed := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return fixed }

	res, err := c.RegisterStudent(context.Background(), RegisterRequest{
		Name: " Asha ", RollNumber: "7", ClassroomLabel: "5A", Video: &video,
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	st := res.Student
	if st.Name != "Asha" || st.RollNumber != "7" || st.ClassroomLabel != "5A" || st.ID == "" {
		t.Fatalf("unexpected record %+v", st)
	}
	if !st.CreatedAt.Equal(fixed) || st.VideoReference != video.Path {
		t.Fatalf("unexpected record metadata %+v", st)
	}
	if res.Info.Status != "success" || len(res.Info.ProcessingSummary) == 0 {
		t.Fatalf("expected processing info, got %+v", res.Info)
	}
}

func TestRegisterQueryParamsAndSuffix(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("standard") != "10th" || q.Get("division") != "B" || q.Get("max_frames") != "40" {
			t.Errorf("unexpected query %s", r.URL.RawQuery)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		if len(r.MultipartForm.Value) != 0 {
			t.Errorf("expected only the video part, got fields %v", r.MultipartForm.Value)
		}
		io.WriteString(w, `{"status":"success","message":"ok"}`)
	})

	video := writeFile(t, "ravi.mp4", "v")
	c := New(srv.URL, time.Second)
	c.RegisterParams = ParamsInQuery
	c.StandardSuffix = "th"
	res, err := c.RegisterStudent(context.Background(), RegisterRequest{
		Name: "Ravi", RollNumber: "3", Standard: "10", Division: "b", Video: &video,
		Options: model.RegisterOptions{MaxFrames: 40},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if res.Student.ClassroomLabel != "10B" {
		t.Fatalf("expected label from parts, got %s", res.Student.ClassroomLabel)
	}
}

func TestRegisterServerReportsError(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"error","message":"Not enough faces found in video"}`)
	})
	video := writeFile(t, "asha.mp4", "v")
	_, err := New(srv.URL, time.Second).RegisterStudent(context.Background(), RegisterRequest{
		Name: "Asha", RollNumber: "7", ClassroomLabel: "5A", Video: &video,
	})
	if apperr.KindOf(err) != apperr.KindServer || apperr.Message(err) != "Not enough faces found in video" {
		t.Fatalf("expected server error with message, got %v", err)
	}
}

func TestProcessAttendanceRequiresPhotos(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := New(srv.URL, time.Second).ProcessAttendance(context.Background(), AttendanceRequest{ClassroomLabel: "5A"})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(n) != 0 {
		t.Fatalf("expected zero requests")
	}
}

func TestProcessAttendanceMalformedLabel(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	photo := writeFile(t, "a.jpg", "jpeg")
	_, err := New(srv.URL, time.Second).ProcessAttendance(context.Background(), AttendanceRequest{
		ClassroomLabel: "5", Photos: []model.FileReference{photo},
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(n) != 0 {
		t.Fatalf("expected zero requests")
	}
}

func TestProcessAttendanceMissingPhotoFile(t *testing.T) {
	srv, n := countingServer(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := New(srv.URL, time.Second).ProcessAttendance(context.Background(), AttendanceRequest{
		ClassroomLabel: "5A", Photos: []model.FileReference{{Path: "/nonexistent/photo.jpg"}},
	})
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if atomic.LoadInt32(n) != 0 {
		t.Fatalf("expected zero requests")
	}
}

func TestProcessAttendanceSpreadsheet(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathAttendance {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse: %v", err)
			return
		}
		images := r.MultipartForm.File["images"]
		if len(images) != 2 {
			t.Errorf("expected 2 images, got %d", len(images))
			return
		}
		if r.FormValue("standard") != "5" || r.FormValue("division") != "A" {
			t.Errorf("unexpected class fields %s/%s", r.FormValue("standard"), r.FormValue("division"))
		}
		if ct := images[0].Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("expected image/jpeg part, got %s", ct)
		}
		w.Header().Set("Content-Type", SpreadsheetMIME)
		w.Write([]byte("PK\x03\x04sheet"))
	})

	photos := []model.FileReference{writeFile(t, "a.jpg", "one"), writeFile(t, "b.jpg", "two")}
	res, err := New(srv.URL, time.Second).ProcessAttendance(context.Background(), AttendanceRequest{
		ClassroomLabel: "5A", Photos: photos,
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(res.Payload) == 0 || res.Classroom.Label() != "5A" || len(res.Photos) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Present != nil || res.Absent != nil {
		t.Fatalf("expected no inline counts")
	}
}

func TestProcessAttendanceInlineCounts(t *testing.T) {
	srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", SpreadsheetMIME)
		w.Header().Set(HeaderPresentCount, "21")
		w.Header().Set(HeaderAbsentCount, "4")
		w.Write([]byte("PK\x03\x04"))
	})
	res, err := New(srv.URL, time.Second).ProcessAttendance(context.Background(), AttendanceRequest{
		ClassroomLabel: "5A", Photos: []model.FileReference{writeFile(t, "a.jpg", "x")},
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if res.Present == nil || *res.Present != 21 || res.Absent == nil || *res.Absent != 4 {
		t.Fatalf("expected inline counts, got %v %v", res.Present, res.Absent)
	}
}

func TestProcessAttendanceFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		ct      string
		body    string
		kind    apperr.Kind
		message string
	}{
		{"json on success", http.StatusOK, "application/json", `{"result":"ok"}`, apperr.KindUnexpectedResponse, "Unexpected response format"},
		{"detail", http.StatusBadRequest, "application/json", `{"detail":"No faces detected"}`, apperr.KindServer, "No faces detected"},
		{"generic", http.StatusBadGateway, "text/plain", `bad gateway`, apperr.KindServer, "Failed to process attendance"},
		{"empty sheet", http.StatusOK, SpreadsheetMIME, ``, apperr.KindUnexpectedResponse, "Received an empty spreadsheet"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := countingServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", tc.ct)
				w.WriteHeader(tc.status)
				io.WriteString(w, tc.body)
			})
			_, err := New(srv.URL, time.Second).ProcessAttendance(context.Background(), AttendanceRequest{
				ClassroomLabel: "5A", Photos: []model.FileReference{writeFile(t, "a.jpg", "x")},
			})
			if apperr.KindOf(err) != tc.kind || apperr.Message(err) != tc.message {
				t.Fatalf("expected %s %q, got %v", tc.kind, tc.message, err)
			}
		})
	}
}
