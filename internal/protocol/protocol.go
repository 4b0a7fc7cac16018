// Package protocol implements the newline-delimited JSON wire format spoken
// over the daemon socket: one Config request line in, one AnalyzeResponse or
// a StreamLine sequence out.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
)

// ErrMalformedRequest means the request line was not valid JSON or did not
// match the Config schema.
var ErrMalformedRequest = errors.New("protocol: malformed request")

// DefaultSocketPath returns the daemon socket path: the system location when
// running as root, the user's runtime directory otherwise.
func DefaultSocketPath() string {
	if os.Geteuid() != 0 {
		if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
			return filepath.Join(dir, "logtool.sock")
		}
	}
	return "/run/logtool.sock"
}

// DecodeRequest parses one request line into a Config.
func DecodeRequest(line []byte) (model.Config, error) {
	var cfg model.Config
	if err := json.Unmarshal(line, &cfg); err != nil {
		return model.Config{}, fmt.Errorf("%w: %v", ErrMalformedRequest, err)
	}
	return cfg, nil
}

// WriteLine serializes one value followed by a newline and flushes, so a
// stream consumer sees each message as soon as it is produced.
func WriteLine(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("protocol: marshal: %w", err)
	}
	payload = append(payload, '\n')
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("protocol: write: %w", err)
	}
	if f, ok := w.(interface{ Flush() error }); ok {
		if err := f.Flush(); err != nil {
			return fmt.Errorf("protocol: flush: %w", err)
		}
	}
	return nil
}

// WriteError sends a failure in the shape the client can interpret: a
// terminal StreamLine when the request mode is known to be stream, the
// analyze ErrorResponse shape otherwise (including before the mode is known).
func WriteError(w io.Writer, mode model.RunMode, message string) error {
	if mode == model.ModeStream {
		return WriteLine(w, model.StreamLine{Done: true, Error: message})
	}
	return WriteLine(w, model.ErrorResponse{Error: message})
}
