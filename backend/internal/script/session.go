package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/maruel/ksid"
	"golang.org/x/sync/errgroup"
)

// termGrace is how long a terminated subprocess gets between SIGTERM and
// SIGKILL.
const termGrace = 5 * time.Second

// readChunk is the pipe read size. Small enough that interactive prompts
// reach the client promptly, large enough to not shred bulk output.
const readChunk = 1024

// Stream identifies which pipe a chunk came from.
type Stream string

// Subprocess output streams.
const (
	Stdout Stream = "stdout"
	Stderr Stream = "stderr"
)

// Chunk is one piece of subprocess output, in production order per stream.
type Chunk struct {
	Stream Stream
	Data   string
}

// Session is one live demo subprocess tied to one client connection.
//
// Lifecycle: created by NewSession, destroyed when the process exits or
// Close is called, whichever happens first. Output is delivered on a bounded
// channel; a reader that stops draining backpressures the pumps, which in
// turn backpressures the subprocess through its full pipes. There is no
// cross-session state.
type Session struct {
	ID   ksid.ID
	Demo Demo

	cmd    *exec.Cmd
	cancel context.CancelFunc

	mu    sync.Mutex // guards stdin writes and the write-once exit fields
	stdin io.WriteCloser

	out    chan Chunk
	closed chan struct{} // closed by Close; releases blocked pumps
	done   chan struct{} // closed after the process is fully reaped

	closeOnce sync.Once
	exitCode  int
	waitErr   error
}

// NewSession launches the demo subprocess with stdin/stdout/stderr pipes and
// starts the output pumps. The process is tied to ctx: cancelling it sends
// SIGTERM, then SIGKILL after the grace period.
func NewSession(ctx context.Context, demo Demo, dir string) (*Session, error) {
	ctx, cancel := context.WithCancel(ctx)
	cmd := exec.CommandContext(ctx, demo.Command[0], demo.Command[1:]...) //nolint:gosec // commands come from the server-side catalog, not the client.
	cmd.Dir = dir
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = termGrace

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start %s: %w", demo.ID, err)
	}

	s := &Session{
		ID:     ksid.NewID(),
		Demo:   demo,
		cmd:    cmd,
		cancel: cancel,
		stdin:  stdin,
		out:    make(chan Chunk, 64),
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}

	go func() {
		var g errgroup.Group
		g.Go(func() error { return s.pump(stdout, Stdout) })
		g.Go(func() error { return s.pump(stderr, Stderr) })
		pumpErr := g.Wait()
		waitErr := cmd.Wait()

		s.mu.Lock()
		s.exitCode = cmd.ProcessState.ExitCode()
		if waitErr != nil {
			s.waitErr = waitErr
		} else if pumpErr != nil {
			s.waitErr = pumpErr
		}
		s.mu.Unlock()

		cancel()
		close(s.out)
		close(s.done)
	}()
	return s, nil
}

// pump copies one pipe to the output channel in readChunk pieces. It returns
// when the pipe closes (process exit) or the session is closed.
func (s *Session) pump(r io.Reader, stream Stream) error {
	buf := make([]byte, readChunk)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			select {
			case s.out <- Chunk{Stream: stream, Data: string(buf[:n])}:
			case <-s.closed:
				return nil
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, fs.ErrClosed) {
				return nil
			}
			return err
		}
	}
}

// Output returns the ordered output channel. It is closed after the process
// exits and the pumps drain.
func (s *Session) Output() <-chan Chunk { return s.out }

// Done returns a channel closed once the process has been reaped.
func (s *Session) Done() <-chan struct{} { return s.done }

// Send forwards client input to the subprocess stdin.
func (s *Session) Send(data string) error {
	select {
	case <-s.done:
		return errors.New("process is not running")
	default:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, data)
	return err
}

// Close terminates the session: blocked pumps are released, the subprocess
// gets SIGTERM and — after the grace period — SIGKILL. Idempotent, safe from
// any goroutine, returns without waiting for the reap.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
		_ = s.stdin.Close()
		s.cancel()
	})
}

// Wait blocks until the process is reaped and returns its exit code and the
// first error seen by the pumps or by Wait itself. The exit code is -1 when
// the process was killed by a signal.
func (s *Session) Wait() (int, error) {
	<-s.done
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitCode, s.waitErr
}
