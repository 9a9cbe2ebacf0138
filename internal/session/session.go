package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"plantscan/internal/capture"
	"plantscan/internal/plantid"
	"plantscan/internal/render"
	"plantscan/internal/store"
	"plantscan/internal/util"
)

// State is the render state of the identification view.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StateFailed  State = "failed"
)

var (
	// ErrBusy is returned when a capture is triggered while one is loading.
	ErrBusy = errors.New("identification already in progress")
	// ErrNoCapture is returned when the view is idle.
	ErrNoCapture = errors.New("no capture")
	// ErrNoLink is returned when a suggestion has nothing to read more about.
	ErrNoLink = errors.New("suggestion has no read more link")
)

// Event describes one state transition.
type Event struct {
	State       State         `json:"state"`
	CaptureID   string        `json:"capture_id,omitempty"`
	Message     string        `json:"message,omitempty"`
	Suggestions int           `json:"suggestions,omitempty"`
	Discarded   bool          `json:"discarded,omitempty"`
	Duration    time.Duration `json:"-"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Observer receives state transitions. It is called outside the session lock.
type Observer func(Event)

// CaptureInfo is the metadata of the live photo.
type CaptureInfo struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	MIMEType         string     `json:"mime_type"`
	Size             int        `json:"size"`
	TakenAt          time.Time  `json:"taken_at"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	ProcessingTimeMs int64      `json:"processing_time_ms,omitempty"`
}

// View is everything needed to draw the screen.
type View struct {
	State       State         `json:"state"`
	Capture     *CaptureInfo  `json:"capture,omitempty"`
	Cards       []render.Card `json:"cards,omitempty"`
	Error       string        `json:"error,omitempty"`
	LoadingText string        `json:"loading_text,omitempty"`
}

// Session owns the single live capture and drives it through identification.
type Session struct {
	db         *store.Database
	identifier plantid.Identifier

	mu        sync.Mutex
	inflight  string
	cancel    context.CancelFunc
	observers []Observer
	wg        sync.WaitGroup

	// emitMu is taken before mu is released so observers see transitions
	// in the order they were applied.
	emitMu sync.Mutex
}

// New wires a session to its capture store and identifier.
func New(db *store.Database, identifier plantid.Identifier) (*Session, error) {
	if db == nil {
		return nil, errors.New("session requires a database")
	}
	if identifier == nil {
		return nil, errors.New("session requires an identifier")
	}
	return &Session{db: db, identifier: identifier}, nil
}

// Subscribe registers an observer for state transitions.
func (s *Session) Subscribe(o Observer) {
	if o == nil {
		return
	}
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Start stores the photo and identifies it in the background. It returns as
// soon as the view is loading.
func (s *Session) Start(photo capture.Photo) error {
	ctx, err := s.begin(context.Background(), photo)
	if err != nil {
		return err
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		_ = s.run(ctx, photo)
	}()
	return nil
}

// Identify stores the photo and identifies it, blocking until the view is
// ready or failed.
func (s *Session) Identify(ctx context.Context, photo capture.Photo) (View, error) {
	runCtx, err := s.begin(ctx, photo)
	if err != nil {
		return View{}, err
	}
	runErr := s.run(runCtx, photo)
	view, err := s.View()
	if err != nil {
		return View{}, err
	}
	return view, runErr
}

func (s *Session) begin(parent context.Context, photo capture.Photo) (context.Context, error) {
	if len(photo.Data) == 0 {
		return nil, capture.ErrEmptyImage
	}

	s.mu.Lock()
	if s.inflight != "" {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	row := &store.Capture{
		ID:       photo.ID,
		Name:     photo.Name,
		MIMEType: photo.MIMEType,
		Image:    photo.Data,
		Status:   store.StatusLoading,
		TakenAt:  photo.TakenAt,
	}
	if err := s.db.ReplaceCapture(row); err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("store capture: %w", err)
	}
	ctx, cancel := context.WithCancel(parent)
	s.inflight = photo.ID
	s.cancel = cancel

	logrus.WithFields(logrus.Fields{
		"capture": photo.ID,
		"name":    photo.Name,
		"bytes":   photo.Size(),
	}).Info("capture taken, identifying")
	s.publishLocked(Event{State: StateLoading, CaptureID: photo.ID})
	return ctx, nil
}

func (s *Session) run(ctx context.Context, photo capture.Photo) error {
	timer := util.StartTimer()
	resp, idErr := s.identifier.Identify(ctx, photo.Encode())
	elapsed := timer.Elapsed()

	s.mu.Lock()
	if s.inflight != photo.ID {
		s.mu.Unlock()
		logrus.WithField("capture", photo.ID).Debug("dropping result for discarded capture")
		if idErr != nil {
			return idErr
		}
		return store.ErrStale
	}
	s.cancel()
	s.inflight = ""
	s.cancel = nil

	row := store.Capture{}
	if idErr == nil {
		if err := row.SetResponse(resp); err != nil {
			idErr = fmt.Errorf("store response: %w", err)
		}
	}

	event := Event{CaptureID: photo.ID, Duration: elapsed}
	var storeErr error
	if idErr != nil {
		event.State = StateFailed
		event.Message = idErr.Error()
		storeErr = s.db.FailCapture(photo.ID, idErr.Error(), elapsed.Milliseconds())
	} else {
		event.State = StateReady
		if resp != nil {
			event.Suggestions = len(resp.Suggestions)
		}
		storeErr = s.db.CompleteCapture(photo.ID, row.ResponseJSON, elapsed.Milliseconds())
	}

	fields := logrus.Fields{
		"capture":     photo.ID,
		"duration_ms": elapsed.Milliseconds(),
	}
	if storeErr != nil {
		logrus.WithError(storeErr).WithFields(fields).Error("record identification result")
	}
	if idErr != nil {
		logrus.WithError(idErr).WithFields(fields).Error("plant identification failed")
	} else {
		fields["suggestions"] = event.Suggestions
		logrus.WithFields(fields).Info("plant identification finished")
	}
	s.publishLocked(event)

	if idErr != nil {
		return idErr
	}
	return storeErr
}

// Discard drops the live capture, cancelling any identification in flight,
// and returns the view to capture-ready.
func (s *Session) Discard() error {
	s.mu.Lock()
	id := s.inflight
	if s.cancel != nil {
		s.cancel()
	}
	s.inflight = ""
	s.cancel = nil
	removed, err := s.db.ClearCaptures()
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("clear capture: %w", err)
	}

	if id != "" {
		logrus.WithField("capture", id).Info("discarded capture while loading")
	}
	s.publishLocked(Event{State: StateIdle, Discarded: removed > 0})
	return nil
}

// View snapshots the current screen.
func (s *Session) View() (View, error) {
	row, err := s.current()
	if errors.Is(err, ErrNoCapture) {
		return View{State: StateIdle}, nil
	}
	if err != nil {
		return View{}, err
	}

	view := View{
		Capture: &CaptureInfo{
			ID:               row.ID,
			Name:             row.Name,
			MIMEType:         row.MIMEType,
			Size:             len(row.Image),
			TakenAt:          row.TakenAt,
			FinishedAt:       row.FinishedAt,
			ProcessingTimeMs: row.ProcessingTimeMs,
		},
	}
	switch row.Status {
	case store.StatusReady:
		view.State = StateReady
		view.Cards = render.Cards(row.Response())
		if view.Cards == nil {
			view.Cards = []render.Card{}
		}
	case store.StatusFailed:
		view.State = StateFailed
		view.Error = row.Error
	default:
		view.State = StateLoading
		view.LoadingText = render.LoadingText
	}
	return view, nil
}

// Photo returns the live image bytes and their type.
func (s *Session) Photo() ([]byte, string, error) {
	row, err := s.current()
	if err != nil {
		return nil, "", err
	}
	return row.Image, row.MIMEType, nil
}

// ReadMore returns the external link of the card at index.
func (s *Session) ReadMore(index int) (string, error) {
	view, err := s.View()
	if err != nil {
		return "", err
	}
	if view.State != StateReady {
		return "", ErrNoCapture
	}
	if index < 0 || index >= len(view.Cards) || view.Cards[index].ReadMoreURL == "" {
		return "", ErrNoLink
	}
	return view.Cards[index].ReadMoreURL, nil
}

// Wait blocks until background identifications have finished.
func (s *Session) Wait() {
	s.wg.Wait()
}

// Close cancels any identification in flight and waits for it.
func (s *Session) Close() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) current() (*store.Capture, error) {
	row, err := s.db.CurrentCapture()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoCapture
	}
	if err != nil {
		return nil, fmt.Errorf("load capture: %w", err)
	}
	return row, nil
}

// publishLocked must be called with s.mu held and releases it. Observers run
// outside mu but under emitMu, so a later transition cannot overtake them.
func (s *Session) publishLocked(event Event) {
	event.Timestamp = time.Now().UTC()
	observers := append([]Observer(nil), s.observers...)
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()
	for _, o := range observers {
		o(event)
	}
}
