package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"plantscan/internal/session"
)

func TestCaptureStreamReplaysLastEvent(t *testing.T) {
	env := newTestEnv(t, okHandler)

	if rec := env.do(t, http.MethodPost, "/api/capture", jsonCapture(t), "application/json"); rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 got %d", rec.Code)
	}
	env.server.Session().Wait()

	httpSrv := httptest.NewServer(env.router)
	defer httpSrv.Close()

	wsURL := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/api/capture/stream"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var event session.Event
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("read event: %v", err)
	}
	if event.State != session.StateReady || event.Suggestions != 2 || event.CaptureID == "" {
		t.Fatalf("unexpected event %+v", event)
	}
}

func TestNotifierLastEvent(t *testing.T) {
	n := NewCaptureNotifier()
	if n.LastEvent() != nil {
		t.Fatalf("expected no event before broadcast")
	}
	n.Broadcast(session.Event{State: session.StateLoading, CaptureID: "a"})
	n.Broadcast(session.Event{State: session.StateIdle})

	last := n.LastEvent()
	if last == nil || last.State != session.StateIdle {
		t.Fatalf("unexpected last event %+v", last)
	}
	last.State = session.StateReady
	if n.LastEvent().State != session.StateIdle {
		t.Fatalf("LastEvent must return a copy")
	}
}
