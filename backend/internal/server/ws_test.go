package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"folio/backend/internal/server/dto"
)

func TestScriptSocketUnknownID(t *testing.T) {
	ts := startTestServer(t, testServer(t, &stubSender{}))
	conn, resp, err := dialWS(t, ts, "/api/v1/scripts/nope/ws")
	if err == nil {
		_ = conn.Close()
		t.Fatal("dial succeeded for unknown script")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Fatalf("resp = %+v, want 404", resp)
	}
	defer func() { _ = resp.Body.Close() }()
	if er := decodeErr(t, resp); er.Error.Code != dto.CodeNotFound {
		t.Errorf("code = %s", er.Error.Code)
	}
}

func TestScriptSocketRun(t *testing.T) {
	ts := startTestServer(t, testServer(t, &stubSender{}))
	conn, _, err := dialWS(t, ts, "/api/v1/scripts/echo/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if ev := readEvent(t, conn); ev.Type != dto.EventStatus || ev.Status != dto.StatusStarted || ev.Script != "echo" {
		t.Fatalf("first frame = %+v, want started", ev)
	}

	var out strings.Builder
	for {
		ev := readEvent(t, conn)
		if ev.Type == dto.EventOutput {
			if ev.Stream != "stdout" {
				t.Errorf("stream = %q", ev.Stream)
			}
			out.WriteString(ev.Data)
			continue
		}
		if ev.Type != dto.EventStatus || ev.Status != dto.StatusFinished {
			t.Fatalf("final frame = %+v, want finished", ev)
		}
		if ev.ReturnCode == nil || *ev.ReturnCode != 0 {
			t.Errorf("returncode = %v, want 0", ev.ReturnCode)
		}
		break
	}
	if out.String() != "hello\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestScriptSocketInput(t *testing.T) {
	ts := startTestServer(t, testServer(t, &stubSender{}))
	conn, _, err := dialWS(t, ts, "/api/v1/scripts/parrot/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if ev := readEvent(t, conn); ev.Status != dto.StatusStarted {
		t.Fatalf("first frame = %+v", ev)
	}
	action, _ := json.Marshal(dto.Action{Action: dto.ActionInput, Data: "polly\n"})
	if err := conn.WriteMessage(websocket.TextMessage, action); err != nil {
		t.Fatal(err)
	}

	var out strings.Builder
	for {
		ev := readEvent(t, conn)
		if ev.Type == dto.EventOutput {
			out.WriteString(ev.Data)
			continue
		}
		if ev.Status != dto.StatusFinished {
			t.Fatalf("final frame = %+v, want finished", ev)
		}
		break
	}
	if out.String() != "heard polly\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestScriptSocketInputNotRunning(t *testing.T) {
	// The "deaf" demo closes its stdin at startup, so forwarding input fails
	// the same way it does once a process has exited. The client must get an
	// error status frame, not silence.
	ts := startTestServer(t, testServer(t, &stubSender{}))
	conn, _, err := dialWS(t, ts, "/api/v1/scripts/deaf/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if ev := readEvent(t, conn); ev.Status != dto.StatusStarted {
		t.Fatalf("first frame = %+v", ev)
	}
	// "ready" is printed after the demo has closed its stdin; only send
	// input once it has arrived.
	var out strings.Builder
	for !strings.Contains(out.String(), "ready") {
		ev := readEvent(t, conn)
		if ev.Type != dto.EventOutput {
			t.Fatalf("frame = %+v, want output", ev)
		}
		out.WriteString(ev.Data)
	}
	action, _ := json.Marshal(dto.Action{Action: dto.ActionInput, Data: "hello\n"})
	if err := conn.WriteMessage(websocket.TextMessage, action); err != nil {
		t.Fatal(err)
	}

	for {
		ev := readEvent(t, conn)
		if ev.Type == dto.EventOutput {
			continue
		}
		if ev.Status != dto.StatusError {
			t.Fatalf("frame = %+v, want error status", ev)
		}
		if ev.Message != "script is not running" {
			t.Errorf("message = %q", ev.Message)
		}
		break
	}

	stop, _ := json.Marshal(dto.Action{Action: dto.ActionStop})
	if err := conn.WriteMessage(websocket.TextMessage, stop); err != nil {
		t.Fatal(err)
	}
	for {
		ev := readEvent(t, conn)
		if ev.Type == dto.EventOutput || ev.Status == dto.StatusError {
			continue
		}
		if ev.Status != dto.StatusStopped {
			t.Fatalf("final frame = %+v, want stopped", ev)
		}
		break
	}
}

func TestScriptSocketStop(t *testing.T) {
	ts := startTestServer(t, testServer(t, &stubSender{}))
	conn, _, err := dialWS(t, ts, "/api/v1/scripts/forever/ws")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = conn.Close() }()

	if ev := readEvent(t, conn); ev.Status != dto.StatusStarted {
		t.Fatalf("first frame = %+v", ev)
	}
	action, _ := json.Marshal(dto.Action{Action: dto.ActionStop})
	if err := conn.WriteMessage(websocket.TextMessage, action); err != nil {
		t.Fatal(err)
	}

	for {
		ev := readEvent(t, conn)
		if ev.Type == dto.EventOutput {
			continue
		}
		if ev.Status != dto.StatusStopped {
			t.Fatalf("final frame = %+v, want stopped", ev)
		}
		break
	}
}

func TestScriptSocketDisconnectKills(t *testing.T) {
	s := testServer(t, &stubSender{})
	ts := startTestServer(t, s)
	conn, _, err := dialWS(t, ts, "/api/v1/scripts/forever/ws")
	if err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, conn); ev.Status != dto.StatusStarted {
		t.Fatalf("first frame = %+v", ev)
	}
	// Abrupt client disconnect must tear the subprocess down; wait for the
	// active-session gauge to drop back to zero.
	_ = conn.Close()
	deadline := time.Now().Add(15 * time.Second)
	for time.Now().Before(deadline) {
		if gaugeValue(t, s.metrics.sessionsActive) == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("session still active after client disconnect")
}
