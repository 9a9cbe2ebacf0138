package capture

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// DefaultMaxBytes bounds how much image data a single capture may hold.
const DefaultMaxBytes = 10 << 20

var (
	// ErrEmptyImage is returned when the shutter produced no bytes.
	ErrEmptyImage = errors.New("captured image is empty")
	// ErrTooLarge is returned when the image exceeds the configured limit.
	ErrTooLarge = errors.New("captured image exceeds size limit")
	// ErrNotImage is returned when the payload is not a recognised image type.
	ErrNotImage = errors.New("captured payload is not an image")
)

// Photo is an image produced by the capture surface.
type Photo struct {
	ID       string
	Name     string
	MIMEType string
	Data     []byte
	TakenAt  time.Time
}

// Encode returns the standard base64 encoding of the photo bytes.
func (p Photo) Encode() string {
	return base64.StdEncoding.EncodeToString(p.Data)
}

// Size reports the raw byte length.
func (p Photo) Size() int {
	return len(p.Data)
}

// Source is a shutter: each call to Capture yields one photo.
type Source interface {
	Capture(ctx context.Context) (Photo, error)
}

// FromBytes builds a Photo from raw image bytes, detecting the image type.
func FromBytes(name string, data []byte) (Photo, error) {
	if len(data) == 0 {
		return Photo{}, ErrEmptyImage
	}
	mtype := mimetype.Detect(data)
	if !strings.HasPrefix(mtype.String(), "image/") {
		return Photo{}, fmt.Errorf("%w: detected %s", ErrNotImage, mtype.String())
	}
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "photo" + mtype.Extension()
	}
	return Photo{
		ID:       uuid.NewString(),
		Name:     name,
		MIMEType: mtype.String(),
		Data:     data,
		TakenAt:  time.Now().UTC(),
	}, nil
}

// FromReader reads at most maxBytes from r and builds a Photo.
func FromReader(name string, r io.Reader, maxBytes int64) (Photo, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	data, err := io.ReadAll(io.LimitReader(r, maxBytes+1))
	if err != nil {
		return Photo{}, fmt.Errorf("read image: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return Photo{}, ErrTooLarge
	}
	return FromBytes(name, data)
}

// FromBase64 decodes an already encoded image, as sent by clients that
// encode on-device.
func FromBase64(name, encoded string, maxBytes int64) (Photo, error) {
	encoded = strings.TrimSpace(encoded)
	if idx := strings.Index(encoded, ","); idx >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[idx+1:]
	}
	if encoded == "" {
		return Photo{}, ErrEmptyImage
	}
	return FromReader(name, base64.NewDecoder(base64.StdEncoding, strings.NewReader(encoded)), maxBytes)
}

// FileSource captures photos from a file on disk.
type FileSource struct {
	Path     string
	MaxBytes int64
}

// Capture reads the file and returns it as a photo.
func (s FileSource) Capture(ctx context.Context) (Photo, error) {
	if err := ctx.Err(); err != nil {
		return Photo{}, err
	}
	file, err := os.Open(s.Path)
	if err != nil {
		return Photo{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()
	return FromReader(s.Path, file, s.MaxBytes)
}
