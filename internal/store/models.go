package store

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"plantscan/internal/plantid"
)

// Capture statuses.
const (
	StatusLoading = "loading"
	StatusReady   = "ready"
	StatusFailed  = "failed"
)

// Capture is the live photo and its identification result. The table holds
// at most one row.
type Capture struct {
	ID               string `gorm:"primaryKey;size:36"`
	Name             string `gorm:"size:255"`
	MIMEType         string `gorm:"size:64"`
	Image            []byte
	Status           string `gorm:"size:16;index"`
	Error            string `gorm:"type:text"`
	ResponseJSON     string `gorm:"type:text"`
	ProcessingTimeMs int64
	TakenAt          time.Time
	FinishedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SetResponse stores the identification document as JSON.
func (c *Capture) SetResponse(resp *plantid.Response) error {
	if resp == nil {
		c.ResponseJSON = ""
		return nil
	}
	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	c.ResponseJSON = string(payload)
	return nil
}

// Response decodes the stored identification document.
func (c *Capture) Response() *plantid.Response {
	if strings.TrimSpace(c.ResponseJSON) == "" {
		return nil
	}
	var out plantid.Response
	if err := json.Unmarshal([]byte(c.ResponseJSON), &out); err != nil {
		logrus.WithError(err).WithField("capture", c.ID).Warn("decode stored response")
		return nil
	}
	return &out
}
