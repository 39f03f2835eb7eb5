package cloudinary

import (
	"context"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSignExcludesAPIKey(t *testing.T) {
	c := New("demo", "key", "secret", "")
	got := c.sign(map[string]string{"timestamp": "100", "api_key": "key", "folder": "reports"})
	want := fmt.Sprintf("%x", sha1.Sum([]byte("folder=reports&timestamp=100secret")))
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
}

func TestShareUploadsRawFile(t *testing.T) {
	var gotPath, gotFolder, gotFile string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotFolder = r.FormValue("folder")
		if _, hdr, err := r.FormFile("file"); err == nil {
			gotFile = hdr.Filename
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"public_id":"reports/x","secure_url":"https://res.example/x.xlsx","resource_type":"raw"}`)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "reports")
	c.APIBase = srv.URL
	c.Now = func() time.Time { return time.Unix(1700000000, 0) }

	path := filepath.Join(t.TempDir(), "attendance_5A_2026-10-19.xlsx")
	if err := os.WriteFile(path, []byte("PK\x03\x04data"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	url, err := c.Share(context.Background(), path, "application/octet-stream")
	if err != nil {
		t.Fatalf("share: %v", err)
	}
	if url != "https://res.example/x.xlsx" {
		t.Fatalf("unexpected url %s", url)
	}
	if gotPath != "/v1_1/demo/raw/upload" {
		t.Fatalf("unexpected upload path %s", gotPath)
	}
	if gotFolder != "reports" || gotFile != "attendance_5A_2026-10-19.xlsx" {
		t.Fatalf("unexpected form folder=%s file=%s", gotFolder, gotFile)
	}
}

func TestUploadErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"Invalid Signature"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New("demo", "key", "secret", "")
	c.APIBase = srv.URL
	if _, err := c.Upload(context.Background(), []byte("x"), "x.xlsx", "raw"); err == nil {
		t.Fatalf("expected upload error")
	}
}
