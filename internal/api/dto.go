package api

import (
	"time"

	"plantscan/internal/session"
)

// CaptureRequest is the JSON form of a capture: a photo already encoded on
// the device.
type CaptureRequest struct {
	Name        string `json:"name"`
	ImageBase64 string `json:"image_base64"`
}

// StartCaptureResponse acknowledges a capture whose identification is running.
type StartCaptureResponse struct {
	CaptureID string        `json:"capture_id"`
	State     session.State `json:"state"`
	Name      string        `json:"name"`
	MIMEType  string        `json:"mime_type"`
	Size      int           `json:"size"`
	TakenAt   time.Time     `json:"taken_at"`
}

// ConfigResponse describes the outbound identification settings. The API key
// is never exposed.
type ConfigResponse struct {
	Endpoint       string   `json:"endpoint"`
	Language       string   `json:"language"`
	Modifiers      []string `json:"modifiers"`
	Details        []string `json:"details"`
	MaxUploadBytes int64    `json:"max_upload_bytes"`
}

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Error string `json:"error"`
}
