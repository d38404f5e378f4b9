package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"folio/backend/internal/mail"
	"folio/backend/internal/server/dto"
)

// submitContact relays one validated contact submission as email. One
// delivery attempt; the outcome maps directly to the HTTP status.
func (s *Server) submitContact(ctx context.Context, req *dto.ContactReq) (*dto.ContactResp, error) {
	if s.mailer == nil {
		s.metrics.observeContact("not_configured")
		return nil, dto.NotConfigured("contact form is not configured")
	}
	msg := mail.Compose(s.cfg, req.Name, req.Email, req.Message)
	sendCtx, cancel := context.WithTimeout(ctx, s.cfg.SendTimeout)
	defer cancel()
	if err := s.mailer.Send(sendCtx, msg); err != nil {
		slog.Warn("contact delivery failed", "err", err)
		s.metrics.observeContact("delivery_failed")
		return nil, dto.DeliveryFailed("unable to send message at this time").Wrap(err)
	}
	s.metrics.observeContact("sent")
	slog.Info("contact relayed", "recipients", len(msg.To))
	return &dto.ContactResp{Status: "sent"}, nil
}

// rateLimited rejects requests from clients that exceed the per-IP contact
// budget before the body is even read.
func (s *Server) rateLimited(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow(clientIP(r), time.Now()) {
			s.metrics.observeContact("rate_limited")
			writeError(w, dto.RateLimited("too many submissions, try again later"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP derives the limiter key for a request: the first hop of
// X-Forwarded-For when a reverse proxy set it, otherwise the peer address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(first)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
