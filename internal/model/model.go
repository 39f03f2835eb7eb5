package model

import (
	"encoding/json"
	"time"
)

// Session is the authenticated teacher context.
type Session struct {
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AccessToken string `json:"access_token,omitempty"`
}

// StudentRecord represents a registered student.
type StudentRecord struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	RollNumber     string    `json:"roll_number"`
	ClassroomLabel string    `json:"classroom_label"`
	VideoReference string    `json:"video_reference,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// UnknownClassroom labels roster entries the server returned without a class.
const UnknownClassroom = "Unknown"

const (
	StatusPresent = "present"
	StatusAbsent  = "absent"
)

// StudentResult is one row of a processed attendance sheet.
type StudentResult struct {
	RollNumber string `json:"roll_number"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// AttendanceRecord is a locally kept summary of one processed session.
// Estimated is set when the counts were guessed rather than reported.
// Results is empty unless a backend returns per-student rows.
type AttendanceRecord struct {
	ID              string          `json:"id"`
	ClassroomLabel  string          `json:"classroom_label"`
	Timestamp       time.Time       `json:"timestamp"`
	PhotoReferences []string        `json:"photo_references"`
	Results         []StudentResult `json:"results"`
	PresentCount    int             `json:"present_count"`
	AbsentCount     int             `json:"absent_count"`
	TotalCount      int             `json:"total_count"`
	Estimated       bool            `json:"estimated"`
}

// RegisterOptions tunes frame extraction on the backend.
type RegisterOptions struct {
	MinRequiredImages int `json:"min_required_images"`
	FrameInterval     int `json:"frame_interval"`
	MaxFrames         int `json:"max_frames"`
}

// DefaultRegisterOptions returns the backend's documented defaults.
func DefaultRegisterOptions() RegisterOptions {
	return RegisterOptions{MinRequiredImages: 5, FrameInterval: 30, MaxFrames: 100}
}

// WithDefaults fills zero fields from DefaultRegisterOptions.
func (o RegisterOptions) WithDefaults() RegisterOptions {
	d := DefaultRegisterOptions()
	if o.MinRequiredImages <= 0 {
		o.MinRequiredImages = d.MinRequiredImages
	}
	if o.FrameInterval <= 0 {
		o.FrameInterval = d.FrameInterval
	}
	if o.MaxFrames <= 0 {
		o.MaxFrames = d.MaxFrames
	}
	return o
}

// ProcessingInfo is the extended reply of a video registration.
type ProcessingInfo struct {
	Status            string          `json:"status"`
	Message           string          `json:"message"`
	VideoInfo         json.RawMessage `json:"video_info,omitempty"`
	ProcessingSummary json.RawMessage `json:"processing_summary,omitempty"`
}
