// Package gateway is the HTTP client for the attendance backend. Every
// operation fails closed: a non-nil error is always an *apperr.Error.
package gateway

import (
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"classroll/internal/apperr"
	"classroll/internal/metrics"
	"classroll/internal/model"
)

// Backend paths.
const (
	PathLogin      = "/login"
	PathRegister   = "/vectordb/students/video"
	PathStudents   = "/vectordb/students"
	PathAttendance = "/attendance/images-attendance"
)

// maxErrorBody caps how much of an error reply is read.
const maxErrorBody = 64 << 10

// HeaderSource supplies per-request headers, typically the bearer token.
type HeaderSource interface {
	AuthHeader(ctx context.Context) http.Header
}

// ParamEncoding selects where registration parameters travel.
type ParamEncoding int

const (
	ParamsInForm ParamEncoding = iota
	ParamsInQuery
)

// Client calls the attendance backend.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Auth    HeaderSource

	// StandardSuffix is appended to the numeric standard on every endpoint.
	StandardSuffix string
	RegisterParams ParamEncoding

	Now func() time.Time
}

// New creates a client with the given request timeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: timeout},
		Now:     time.Now,
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, apperr.Unexpected("Could not build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.Auth != nil {
		for k, vs := range c.Auth.AuthHeader(ctx) {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}
	}
	return req, nil
}

// do sends req and returns the response with its body fully read.
func (c *Client) do(req *http.Request) (*http.Response, []byte, error) {
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, apperr.Network(err)
	}
	defer resp.Body.Close()

	reader := io.Reader(resp.Body)
	if resp.StatusCode >= 300 {
		reader = io.LimitReader(resp.Body, maxErrorBody)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, nil, apperr.Network(err)
	}
	return resp, body, nil
}

// observe records the outcome of an operation. It is deferred with a
// pointer to the named error result.
func observe(op string, started time.Time, errp *error) {
	outcome := "ok"
	if *errp != nil {
		outcome = string(apperr.KindOf(*errp))
	}
	metrics.ObserveBackend(op, outcome, started)
}

// serverMessage extracts a human message from an error body. FastAPI
// replies with {"detail": "..."} or {"detail": [{"msg": "..."}]}.
func serverMessage(body []byte, fallback string) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
			return items[0].Msg
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return fallback
}

// createFilePart adds a file part that keeps the file's own content type,
// which multipart.Writer.CreateFormFile would replace with octet-stream.
func createFilePart(w *multipart.Writer, field string, ref model.FileReference, data []byte) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+escapeQuotes(ref.Name)+`"`)
	h.Set("Content-Type", ref.MIMEType)
	part, err := w.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(data)
	return err
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string { return quoteEscaper.Replace(s) }
