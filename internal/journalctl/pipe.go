package journalctl

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

const (
	// scannerInitBufSize is the initial line buffer (1 MB).
	scannerInitBufSize = 1024 * 1024
	// scannerMaxTokenSize bounds a single journal line (10 MB).
	scannerMaxTokenSize = 10 * 1024 * 1024
)

var (
	// ErrToolUnavailable means the log-query tool could not be located or
	// started; no output was read.
	ErrToolUnavailable = errors.New("journalctl: tool unavailable")

	// ErrToolFailure means the tool exited abnormally on its own, not because
	// the pipe terminated it.
	ErrToolFailure = errors.New("journalctl: tool exited abnormally")
)

// Pipe runs the log-query tool and yields its stdout line by line. The
// subprocess's stderr goes to the daemon's stderr, never to the client.
//
// Every Pipe must be finished with Close, which collects the exit status on
// all paths so the process is never leaked.
type Pipe struct {
	cmd     *exec.Cmd
	scanner *bufio.Scanner
	closed  bool
}

// Start spawns the tool with its stdout captured.
func Start(program string, args []string) (*Pipe, error) {
	cmd := exec.Command(program, args...)
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("journalctl: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolUnavailable, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, scannerInitBufSize), scannerMaxTokenSize)
	return &Pipe{cmd: cmd, scanner: scanner}, nil
}

// Scan advances to the next output line. In follow mode it blocks until the
// tool produces one.
func (p *Pipe) Scan() bool { return p.scanner.Scan() }

// Text returns the current line without its trailing newline.
func (p *Pipe) Text() string { return p.scanner.Text() }

// Err returns the first read error, if any.
func (p *Pipe) Err() error { return p.scanner.Err() }

// Close terminates the pipe and collects the tool's exit status. When
// terminated is true the caller stopped consuming deliberately (line ceiling,
// read or write failure), so the process is killed first and its non-success
// exit is expected and suppressed. Otherwise a non-success exit is reported
// as ErrToolFailure.
func (p *Pipe) Close(terminated bool) error {
	if p.closed {
		return nil
	}
	p.closed = true

	if terminated {
		_ = p.cmd.Process.Kill()
	}
	err := p.cmd.Wait()
	if err != nil && !terminated {
		return fmt.Errorf("%w: %v", ErrToolFailure, err)
	}
	return nil
}
