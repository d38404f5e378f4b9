package dto

import (
	"errors"
	"net/http"
	"testing"
)

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		err    *Error
		status int
		code   Code
	}{
		{BadRequest("x"), http.StatusBadRequest, CodeInvalid},
		{Forbidden("x"), http.StatusForbidden, CodeForbidden},
		{NotFound("script"), http.StatusNotFound, CodeNotFound},
		{RateLimited("x"), http.StatusTooManyRequests, CodeRateLimited},
		{NotConfigured("x"), http.StatusServiceUnavailable, CodeNotConfigured},
		{DeliveryFailed("x"), http.StatusBadGateway, CodeDeliveryFailed},
		{InternalError("x"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		if tt.err.Status != tt.status {
			t.Errorf("%s: Status = %d, want %d", tt.code, tt.err.Status, tt.status)
		}
		if tt.err.Details.Code != tt.code {
			t.Errorf("Code = %s, want %s", tt.err.Details.Code, tt.code)
		}
	}
	if got := NotFound("script").Details.Message; got != "script not found" {
		t.Errorf("NotFound message = %q", got)
	}
}

func TestErrorWrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := DeliveryFailed("unable to send").Wrap(cause)
	if !errors.Is(err, cause) {
		t.Error("wrapped cause not reachable via errors.Is")
	}
	if err.Cause() != cause {
		t.Error("Cause() mismatch")
	}
	// The cause stays out of the serialized details.
	if len(err.Details.Details) != 0 {
		t.Errorf("Details = %v, want empty", err.Details.Details)
	}
}

func TestWithDetail(t *testing.T) {
	err := Invalid("email", "name")
	if got := err.Details.Details["fields"]; got != "email,name" {
		t.Errorf("fields detail = %q", got)
	}
	err.WithDetail("extra", "v")
	if got := err.Details.Details["extra"]; got != "v" {
		t.Errorf("extra detail = %q", got)
	}
}
