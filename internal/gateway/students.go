package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"classroll/internal/apperr"
	"classroll/internal/classroom"
	"classroll/internal/model"
)

// VideoRequiredMessage is returned when registration has no video.
const VideoRequiredMessage = "Video is required for student registration"

const rosterKey = "list of enrolled student names"

// RegisterRequest describes a student registration. Either ClassroomLabel
// or both Standard and Division must be set.
type RegisterRequest struct {
	Name           string
	RollNumber     string
	ClassroomLabel string
	Standard       string
	Division       string
	Video          *model.FileReference
	Options        model.RegisterOptions
}

// RegisterResult is the locally built record plus the backend's report.
type RegisterResult struct {
	Student model.StudentRecord
	Info    model.ProcessingInfo
}

// RegisterStudent uploads an identification video for one student.
func (c *Client) RegisterStudent(ctx context.Context, in RegisterRequest) (res *RegisterResult, err error) {
	if in.Video == nil {
		return nil, apperr.Validation(VideoRequiredMessage)
	}
	defer observe("register_student", time.Now(), &err)

	name := strings.TrimSpace(in.Name)
	roll := strings.TrimSpace(in.RollNumber)
	if name == "" || roll == "" {
		return nil, apperr.Validation("Name and roll number are required")
	}
	id, err := classroom.Resolve(in.ClassroomLabel, in.Standard, in.Division)
	if err != nil {
		return nil, apperr.Validation(err.Error())
	}
	video, err := in.Video.Validate()
	if err != nil {
		return nil, apperr.Validation("Invalid video file: " + err.Error())
	}
	data, err := video.Read()
	if err != nil {
		return nil, apperr.Validation("Could not read video file: " + err.Error())
	}

	opts := in.Options.WithDefaults()
	params := url.Values{}
	params.Set("name", name)
	params.Set("roll_number", roll)
	params.Set("standard", id.StandardParam(c.StandardSuffix))
	params.Set("division", id.Division)
	params.Set("min_required_images", strconv.Itoa(opts.MinRequiredImages))
	params.Set("frame_interval", strconv.Itoa(opts.FrameInterval))
	params.Set("max_frames", strconv.Itoa(opts.MaxFrames))

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := createFilePart(w, "video", video, data); err != nil {
		return nil, apperr.Unexpected("Could not build upload", err)
	}
	path := PathRegister
	if c.RegisterParams == ParamsInQuery {
		path += "?" + params.Encode()
	} else {
		for _, k := range sortedKeys(params) {
			_ = w.WriteField(k, params.Get(k))
		}
	}
	w.Close()

	req, err := c.newRequest(ctx, http.MethodPost, path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.Server(resp.StatusCode, serverMessage(body, "Failed to register student"))
	}

	var info model.ProcessingInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, apperr.Unexpected("Unexpected response format", err)
	}
	if info.Status == "error" {
		msg := info.Message
		if msg == "" {
			msg = "Failed to register student"
		}
		return nil, apperr.Server(resp.StatusCode, msg)
	}

	return &RegisterResult{
		Student: model.StudentRecord{
			ID:             uuid.NewString(),
			Name:           name,
			RollNumber:     roll,
			ClassroomLabel: id.Label(),
			VideoReference: video.Path,
			CreatedAt:      c.now().UTC(),
		},
		Info: info,
	}, nil
}

// ListStudents fetches the enrolled roster. The backend knows only roll
// numbers and names, so every record gets model.UnknownClassroom.
func (c *Client) ListStudents(ctx context.Context) (students []model.StudentRecord, err error) {
	defer observe("list_students", time.Now(), &err)

	req, err := c.newRequest(ctx, http.MethodGet, PathStudents, nil)
	if err != nil {
		return nil, err
	}
	resp, body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, apperr.Server(resp.StatusCode, serverMessage(body, "Failed to fetch students"))
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, apperr.Unexpected("Unexpected response format", err)
	}
	var roster map[string]string
	if raw, ok := out[rosterKey]; ok {
		if err := json.Unmarshal(raw, &roster); err != nil {
			return nil, apperr.Unexpected("Unexpected response format", err)
		}
	}

	students = make([]model.StudentRecord, 0, len(roster))
	for roll, name := range roster {
		students = append(students, model.StudentRecord{
			ID:             roll,
			Name:           name,
			RollNumber:     roll,
			ClassroomLabel: model.UnknownClassroom,
		})
	}
	sort.Slice(students, func(i, j int) bool {
		return rollLess(students[i].RollNumber, students[j].RollNumber)
	})
	return students, nil
}

// rollLess orders numeric roll numbers numerically and everything else
// lexically after them.
func rollLess(a, b string) bool {
	ai, aerr := strconv.Atoi(a)
	bi, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return ai < bi
	case aerr == nil:
		return true
	case berr == nil:
		return false
	default:
		return a < b
	}
}

func sortedKeys(v url.Values) []string {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
