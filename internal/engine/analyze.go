// Package engine runs the two request pipelines: a bounded analyze pass that
// aggregates and ranks suspect log sources, and a stream pass that forwards
// filtered lines as they arrive.
package engine

import (
	"fmt"
	"log"
	"strings"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/aggregate"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/event"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/journalctl"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/pkgresolve"
)

// Engine executes validated requests against the log-query tool.
type Engine struct {
	// Program is the log-query binary to spawn.
	Program string

	// resolve fills package attributions for the top suspects. Replaceable in
	// tests so runs stay hermetic on machines that have dpkg.
	resolve func(suspects []model.SourceStats, top int)
}

// New returns an engine driving the given log-query program; an empty name
// selects journalctl.
func New(program string) *Engine {
	if program == "" {
		program = journalctl.DefaultProgram
	}
	return &Engine{
		Program: program,
		resolve: func(suspects []model.SourceStats, top int) {
			pkgresolve.New().ResolveTop(suspects, top)
		},
	}
}

// Analyze consumes journal records, folds them into per-source statistics,
// and returns the ranked report. Reaching the max-lines ceiling is normal
// termination: the subprocess is killed and its exit status suppressed.
func (e *Engine) Analyze(cfg model.Config) (*model.AnalyzeResponse, error) {
	pipe, err := e.start(journalctl.AnalyzeArgs(cfg), cfg.ShowCommand)
	if err != nil {
		return nil, err
	}

	acc := aggregate.New()
	var metrics model.AnalyzeMetrics

	for pipe.Scan() {
		line := pipe.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		metrics.LinesRead++

		ev, err := event.Parse(line)
		if err != nil {
			// One unparseable record never fails the run; it is counted and skipped.
			metrics.ParseErrors++
			continue
		}
		metrics.ParsedOK++

		if !event.MatchesTerms(ev, cfg.GrepTerms) {
			continue
		}
		metrics.Matched++
		acc.Observe(ev)

		if reachedLimit(metrics.Matched, cfg.MaxLines) {
			break
		}
	}
	readErr := pipe.Err()

	terminated := readErr != nil || reachedLimit(metrics.Matched, cfg.MaxLines)
	closeErr := pipe.Close(terminated)
	if readErr != nil {
		return nil, fmt.Errorf("engine: read journal output: %w", readErr)
	}
	if closeErr != nil {
		return nil, closeErr
	}

	suspects := acc.Ranked()
	e.resolve(suspects, cfg.Top)

	return &model.AnalyzeResponse{
		Metrics:  metrics,
		Suspects: suspects,
		Top:      cfg.Top,
	}, nil
}

func (e *Engine) start(args []string, showCommand bool) (*journalctl.Pipe, error) {
	if showCommand {
		log.Printf("engine: running %s", journalctl.RenderCommand(e.Program, args))
	}
	return journalctl.Start(e.Program, args)
}

func reachedLimit(count, max int) bool {
	return max > 0 && count >= max
}
