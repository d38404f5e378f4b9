// Exported request and response types for the folio API.
package dto

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Field limits for contact submissions.
const (
	MaxNameLen    = 100
	MaxMessageLen = 4000
)

// Validatable is implemented by request types that validate themselves after
// decoding.
type Validatable interface {
	Validate() error
}

// EmptyReq is used for endpoints that take no request body.
type EmptyReq struct{}

// Validate implements Validatable.
func (*EmptyReq) Validate() error { return nil }

// ContactReq is the request body for POST /api/v1/contact.
type ContactReq struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Message string `json:"message"`
}

// Validate checks the submission and returns an invalid_request error naming
// every offending field. Name and message must be non-empty after trimming;
// the email must be a plain, conventional address.
func (r *ContactReq) Validate() error {
	var fields []string
	if name := strings.TrimSpace(r.Name); name == "" || utf8.RuneCountInString(name) > MaxNameLen {
		fields = append(fields, "name")
	}
	if !validEmail(r.Email) {
		fields = append(fields, "email")
	}
	if msg := strings.TrimSpace(r.Message); msg == "" || utf8.RuneCountInString(msg) > MaxMessageLen {
		fields = append(fields, "message")
	}
	if len(fields) > 0 {
		return Invalid(fields...)
	}
	return nil
}

// validEmail reports whether s is a bare RFC 5322 address (no display name)
// with a dotted domain. mail.ParseAddress alone accepts "a@b", which no real
// mail provider delivers to.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at >= 0 && strings.Contains(s[at+1:], ".")
}

// ContactResp is the response for POST /api/v1/contact.
type ContactResp struct {
	Status string `json:"status"`
}

// ScriptJSON is the JSON representation of an available demo.
type ScriptJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StatusResp is a common response for simple endpoints.
type StatusResp struct {
	Status string `json:"status"`
}
