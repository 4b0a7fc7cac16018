package engine

import (
	"fmt"
	"io"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/event"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/journalctl"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/protocol"
)

// Stream relays filtered journal lines to w, one StreamLine per accepted
// line, written and flushed as soon as it arrives. It always finishes
// with a terminal done marker unless the client connection itself failed.
//
// A follow stream has no natural end: it runs until the ceiling is hit or the
// client disconnects, which surfaces as a write failure and triggers
// subprocess termination.
func (e *Engine) Stream(cfg model.Config, w io.Writer) error {
	pipe, err := e.start(journalctl.StreamArgs(cfg), cfg.ShowCommand)
	if err != nil {
		return err
	}

	written := 0
	var streamErr error

	for pipe.Scan() {
		line := pipe.Text()
		if !event.MatchesLine(line, cfg.GrepTerms) {
			continue
		}

		if err := protocol.WriteLine(w, model.StreamLine{Line: line}); err != nil {
			streamErr = err
			break
		}
		written++

		if reachedLimit(written, cfg.MaxLines) {
			break
		}
	}
	if streamErr == nil {
		if err := pipe.Err(); err != nil {
			streamErr = fmt.Errorf("engine: read journal output: %w", err)
		}
	}

	terminated := streamErr != nil || reachedLimit(written, cfg.MaxLines)
	closeErr := pipe.Close(terminated)
	if streamErr != nil {
		return streamErr
	}
	if closeErr != nil {
		return closeErr
	}

	return protocol.WriteLine(w, model.StreamLine{Done: true})
}
