package store

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"gorm.io/gorm"

	"plantscan/internal/plantid"
)

func openTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := Open(MemoryDSN(strings.ReplaceAll(t.Name(), "/", "_")), true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newCapture(id string) *Capture {
	return &Capture{
		ID:       id,
		Name:     id + ".jpg",
		MIMEType: "image/jpeg",
		Image:    []byte{0xff, 0xd8, 0xff},
		Status:   StatusLoading,
		TakenAt:  time.Now().UTC(),
	}
}

func TestReplaceCaptureKeepsOneRow(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.CurrentCapture(); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected empty store got %v", err)
	}

	for _, id := range []string{"first", "second", "third"} {
		if err := db.ReplaceCapture(newCapture(id)); err != nil {
			t.Fatalf("replace %s: %v", id, err)
		}
	}

	count, err := db.CountCaptures()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 live capture got %d", count)
	}
	current, err := db.CurrentCapture()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.ID != "third" || current.Status != StatusLoading {
		t.Fatalf("unexpected capture %+v", current)
	}
	if len(current.Image) != 3 {
		t.Fatalf("image bytes not stored")
	}
}

func TestCompleteAndFailCapture(t *testing.T) {
	db := openTestDB(t)
	if err := db.ReplaceCapture(newCapture("abc")); err != nil {
		t.Fatalf("replace: %v", err)
	}

	resp := &plantid.Response{Suggestions: []plantid.Suggestion{{PlantName: "Ficus"}}}
	row := Capture{}
	if err := row.SetResponse(resp); err != nil {
		t.Fatalf("set response: %v", err)
	}
	if err := db.CompleteCapture("abc", row.ResponseJSON, 120); err != nil {
		t.Fatalf("complete: %v", err)
	}

	current, err := db.CurrentCapture()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.Status != StatusReady || current.ProcessingTimeMs != 120 || current.FinishedAt == nil {
		t.Fatalf("unexpected capture %+v", current)
	}
	decoded := current.Response()
	if decoded == nil || len(decoded.Suggestions) != 1 || decoded.Suggestions[0].PlantName != "Ficus" {
		t.Fatalf("unexpected response %+v", decoded)
	}

	if err := db.FailCapture("abc", "late failure", 1); !errors.Is(err, ErrStale) {
		t.Fatalf("finished capture should not change again, got %v", err)
	}
}

func TestFinishStaleCapture(t *testing.T) {
	db := openTestDB(t)
	if err := db.ReplaceCapture(newCapture("old")); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := db.ReplaceCapture(newCapture("new")); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := db.CompleteCapture("old", "{}", 5); !errors.Is(err, ErrStale) {
		t.Fatalf("expected ErrStale got %v", err)
	}
	if err := db.FailCapture("new", "boom", 5); err != nil {
		t.Fatalf("fail: %v", err)
	}
	current, err := db.CurrentCapture()
	if err != nil {
		t.Fatalf("current: %v", err)
	}
	if current.Status != StatusFailed || current.Error != "boom" {
		t.Fatalf("unexpected capture %+v", current)
	}
}

func TestClearCaptures(t *testing.T) {
	db := openTestDB(t)
	if err := db.ReplaceCapture(newCapture("gone")); err != nil {
		t.Fatalf("replace: %v", err)
	}
	removed, err := db.ClearCaptures()
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected one row removed got %d", removed)
	}
	if _, err := db.CurrentCapture(); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected not found got %v", err)
	}
	removed, err = db.ClearCaptures()
	if err != nil {
		t.Fatalf("clearing an empty store should succeed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected nothing removed got %d", removed)
	}
}

func TestCaptureResponseHelpers(t *testing.T) {
	c := Capture{}
	if c.Response() != nil {
		t.Fatalf("expected nil response")
	}
	c.ResponseJSON = "not json"
	if c.Response() != nil {
		t.Fatalf("expected nil on bad json")
	}
	if err := c.SetResponse(nil); err != nil {
		t.Fatalf("set nil response: %v", err)
	}
	if c.ResponseJSON != "" {
		t.Fatalf("expected empty json")
	}
}

func TestSetResponseReportsEncodeError(t *testing.T) {
	nan := math.NaN()
	c := Capture{ResponseJSON: "{}"}
	err := c.SetResponse(&plantid.Response{Suggestions: []plantid.Suggestion{{PlantName: "Ficus", Probability: &nan}}})
	if err == nil {
		t.Fatalf("expected encode error for NaN probability")
	}
	if c.ResponseJSON != "{}" {
		t.Fatalf("failed encode must leave the column untouched, got %q", c.ResponseJSON)
	}
}
