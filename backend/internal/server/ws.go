package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"folio/backend/internal/script"
	"folio/backend/internal/server/dto"
)

// writeWait bounds each WebSocket write so a stalled client cannot pin the
// session forever.
const writeWait = 10 * time.Second

// handleScriptSocket runs one demo subprocess per connection and streams its
// output as JSON frames. Unknown demo ids are refused with a plain 404 before
// the upgrade so non-WebSocket clients get a regular JSON error.
//
// The connection goroutine is the sole writer on the socket (gorilla permits
// one concurrent writer). A reader goroutine forwards client actions: "input"
// to the subprocess stdin, "stop" or disconnect to Session.Close.
func (s *Server) handleScriptSocket(w http.ResponseWriter, r *http.Request) {
	demo, ok := s.catalog.Get(r.PathValue("id"))
	if !ok {
		writeError(w, dto.NotFound("script"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		slog.Warn("websocket upgrade failed", "script", demo.ID, "err", err)
		return
	}
	defer func() { _ = conn.Close() }()

	// The session lives on the server context, not the request context: the
	// request context is cancelled when the handler returns, and the kill
	// path must survive until the reap completes.
	sess, err := script.NewSession(s.ctx, demo, s.cfg.ScriptsDir)
	if err != nil {
		slog.Error("failed to start demo", "script", demo.ID, "err", err)
		_ = writeEvent(conn, &dto.Event{Type: dto.EventStatus, Status: dto.StatusError, Script: demo.ID, Message: "failed to start script"})
		return
	}
	defer sess.Close()
	s.metrics.sessionStarted(demo.ID)
	defer s.metrics.sessionEnded()
	slog.Info("demo session started", "script", demo.ID, "session", sess.ID)

	// stopped records whether the client asked for termination; it picks the
	// final status frame (stopped vs finished).
	var stopped atomic.Bool

	// notices carries non-fatal error frames from the reader goroutine to
	// the connection writer. Dropped when full; they are advisory.
	notices := make(chan dto.Event, 4)

	// Reader: client actions until disconnect. Any read error, including a
	// normal close, tears the session down.
	go func() {
		defer sess.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var action dto.Action
			if err := json.Unmarshal(data, &action); err != nil {
				slog.Warn("bad action frame", "script", demo.ID, "err", err)
				continue
			}
			switch action.Action {
			case dto.ActionInput:
				if err := sess.Send(action.Data); err != nil {
					slog.Warn("stdin write failed", "script", demo.ID, "err", err)
					select {
					case notices <- dto.Event{Type: dto.EventStatus, Status: dto.StatusError, Script: demo.ID, Message: "script is not running"}:
					default:
					}
				}
			case dto.ActionStop:
				stopped.Store(true)
				sess.Close()
			default:
				slog.Warn("unknown action", "script", demo.ID, "action", action.Action)
			}
		}
	}()

	if err := writeEvent(conn, &dto.Event{Type: dto.EventStatus, Status: dto.StatusStarted, Script: demo.ID}); err != nil {
		return
	}

	// Drain output in production order, interleaving reader notices. The
	// output channel closes once the process exits and the pumps finish.
	out := sess.Output()
	for out != nil {
		var ev dto.Event
		select {
		case chunk, ok := <-out:
			if !ok {
				out = nil
				continue
			}
			ev = dto.Event{Type: dto.EventOutput, Stream: string(chunk.Stream), Data: chunk.Data}
		case ev = <-notices:
		}
		if err := writeEvent(conn, &ev); err != nil {
			slog.Info("client gone, killing demo", "script", demo.ID, "session", sess.ID)
			return
		}
	}

	code, waitErr := sess.Wait()
	final := dto.Event{Type: dto.EventStatus, Script: demo.ID, ReturnCode: &code}
	switch {
	case stopped.Load():
		final.Status = dto.StatusStopped
	case waitErr != nil && code < 0:
		final.Status = dto.StatusError
		final.Message = "script terminated abnormally"
	default:
		final.Status = dto.StatusFinished
	}
	_ = writeEvent(conn, &final)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
	slog.Info("demo session ended", "script", demo.ID, "session", sess.ID, "status", final.Status, "code", code)
}

// writeEvent sends one JSON frame with a write deadline.
func writeEvent(conn *websocket.Conn, ev *dto.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(ev)
}
