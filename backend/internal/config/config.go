// Package config builds the process configuration from environment variables.
//
// The configuration is read exactly once at startup into an immutable struct
// that is passed explicitly to the components that need it. Nothing reads the
// environment at request time.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"strconv"
	"strings"
	"time"
)

// Default SMTP ports per transport mode.
const (
	defaultPortSSL      = 465
	defaultPortStartTLS = 587
	defaultPortPlain    = 25
)

// Config holds all process-wide settings. Read-only after FromEnv returns.
type Config struct {
	// AllowedOrigins is the browser-origin allow-list for API requests.
	AllowedOrigins []string

	// Contact relay settings.
	EmailTo       []string // Recipient list for contact emails.
	EmailFrom     string   // Resolved sender address; empty when mail is disabled.
	SubjectPrefix string
	SMTPHost      string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	SMTPUseSSL    bool          // Implicit TLS (smtps).
	SMTPUseTLS    bool          // STARTTLS on a plaintext connection.
	SendTimeout   time.Duration // Bound on connect+auth+send per attempt.

	// ScriptsDir holds the demo programs and their manifest.
	ScriptsDir string
}

// MailEnabled reports whether the contact relay can attempt deliveries.
// When false the server still runs; the contact endpoint returns 503.
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != "" && len(c.EmailTo) > 0 && c.EmailFrom != ""
}

// FromEnv reads configuration from getenv (normally os.Getenv) and validates
// it. Inconsistent settings are hard errors; merely absent SMTP settings
// disable the contact relay instead of failing startup.
func FromEnv(getenv func(string) string) (*Config, error) {
	c := &Config{
		AllowedOrigins: splitList(getenv("ALLOWED_ORIGINS")),
		EmailTo:        splitList(getenv("CONTACT_EMAIL_TO")),
		SubjectPrefix:  strings.TrimSpace(getenv("CONTACT_EMAIL_SUBJECT_PREFIX")),
		SMTPHost:       strings.TrimSpace(getenv("SMTP_HOST")),
		SMTPUsername:   strings.TrimSpace(getenv("SMTP_USERNAME")),
		SMTPPassword:   getenv("SMTP_PASSWORD"),
		SendTimeout:    20 * time.Second,
		ScriptsDir:     strings.TrimSpace(getenv("SCRIPTS_DIR")),
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = "[Portfolio Contact]"
	}
	if c.ScriptsDir == "" {
		c.ScriptsDir = "scripts"
	}

	c.SMTPUseSSL = envBool(getenv("SMTP_USE_SSL"), false)
	c.SMTPUseTLS = envBool(getenv("SMTP_USE_TLS"), !c.SMTPUseSSL)
	c.SMTPPort = port(getenv("SMTP_PORT"), c.SMTPUseSSL, c.SMTPUseTLS)

	if c.SMTPUsername != "" && c.SMTPPassword == "" {
		return nil, errors.New("SMTP_USERNAME is set but SMTP_PASSWORD is empty")
	}

	from, err := resolveFrom(getenv("CONTACT_EMAIL_FROM"), c.SMTPUsername, c.EmailTo)
	if err != nil {
		return nil, err
	}
	c.EmailFrom = from
	return c, nil
}

// resolveFrom picks the sender address explicitly rather than inferring one
// at send time. Order: explicit CONTACT_EMAIL_FROM, then the SMTP username
// when it parses as an address, then the sole recipient. Multiple recipients
// with no resolvable sender is a configuration error, not a silent guess.
func resolveFrom(explicit, username string, to []string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if _, err := mail.ParseAddress(explicit); err != nil {
			return "", fmt.Errorf("CONTACT_EMAIL_FROM %q: %w", explicit, err)
		}
		return explicit, nil
	}
	if username != "" {
		if _, err := mail.ParseAddress(username); err == nil {
			return username, nil
		}
	}
	switch len(to) {
	case 0:
		return "", nil // Mail disabled; nothing to resolve.
	case 1:
		return to[0], nil
	}
	return "", errors.New("CONTACT_EMAIL_FROM is required when CONTACT_EMAIL_TO has multiple recipients")
}

// port parses the SMTP_PORT value, falling back to the conventional default
// for the selected transport on empty or unparseable input.
func port(raw string, ssl, tls bool) int {
	def := defaultPortPlain
	switch {
	case ssl:
		def = defaultPortSSL
	case tls:
		def = defaultPortStartTLS
	}
	p, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || p <= 0 || p > 65535 {
		return def
	}
	return p
}

// envBool interprets the usual truthy tokens; anything else is the default.
func envBool(raw string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

// splitList splits a comma-separated env value, trimming and dropping empties.
func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
