package script

import (
	"context"
	"strings"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// shDemo wraps a shell snippet in a Demo for tests.
func shDemo(id, snippet string) Demo {
	return Demo{ID: id, Title: id, Command: []string{"sh", "-c", snippet}}
}

// drain collects all output per stream until the channel closes.
func drain(s *Session) (stdout, stderr string) {
	var out, errOut strings.Builder
	for c := range s.Output() {
		switch c.Stream {
		case Stdout:
			out.WriteString(c.Data)
		case Stderr:
			errOut.WriteString(c.Data)
		}
	}
	return out.String(), errOut.String()
}

func TestSessionOutput(t *testing.T) {
	s, err := NewSession(t.Context(), shDemo("echo", "printf 'one\ntwo\n'; printf 'oops\n' >&2"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	stdout, stderr := drain(s)
	if stdout != "one\ntwo\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if stderr != "oops\n" {
		t.Errorf("stderr = %q", stderr)
	}
	code, err := s.Wait()
	if err != nil {
		t.Errorf("Wait() err = %v", err)
	}
	if code != 0 {
		t.Errorf("exit code = %d, want 0", code)
	}
}

func TestSessionStdin(t *testing.T) {
	s, err := NewSession(t.Context(), shDemo("cat", "read line; printf 'got %s\n' \"$line\""), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if err := s.Send("hello\n"); err != nil {
		t.Fatal(err)
	}
	stdout, _ := drain(s)
	if stdout != "got hello\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := s.Wait(); err != nil {
		t.Errorf("Wait() err = %v", err)
	}
}

func TestSessionExitCode(t *testing.T) {
	s, err := NewSession(t.Context(), shDemo("fail", "exit 3"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	drain(s)
	code, waitErr := s.Wait()
	if code != 3 {
		t.Errorf("exit code = %d, want 3", code)
	}
	if waitErr == nil {
		t.Error("Wait() err = nil, want ExitError for nonzero exit")
	}
}

func TestSessionClose(t *testing.T) {
	s, err := NewSession(t.Context(), shDemo("sleep", "sleep 60"), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	s.Close()
	s.Close() // Idempotent.

	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session not reaped after Close")
	}
	code, _ := s.Wait()
	if code >= 0 {
		t.Errorf("exit code = %d, want negative (killed by signal)", code)
	}
	if err := s.Send("x"); err == nil {
		t.Error("Send after exit should fail")
	}
}

func TestSessionContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(t.Context())
	s, err := NewSession(ctx, shDemo("sleep", "sleep 60"), t.TempDir())
	if err != nil {
		cancel()
		t.Fatal(err)
	}
	defer s.Close()

	cancel()
	select {
	case <-s.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("session not reaped after context cancel")
	}
}

func TestSessionBadCommand(t *testing.T) {
	d := Demo{ID: "missing", Command: []string{"/nonexistent/definitely-not-a-binary"}}
	if _, err := NewSession(t.Context(), d, t.TempDir()); err == nil {
		t.Fatal("want error starting a nonexistent binary")
	}
}
