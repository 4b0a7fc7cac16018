// Package journalctl builds journalctl invocations and exposes their output
// as a line sequence with guaranteed process cleanup.
package journalctl

import (
	"strings"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/event"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
)

// DefaultProgram is the log-query tool the daemon delegates all journal
// retrieval to.
const DefaultProgram = "journalctl"

// AnalyzeArgs builds the argument vector for an analyze request: structured
// JSON records restricted to the fields the parser consumes.
func AnalyzeArgs(cfg model.Config) []string {
	args := []string{"--no-pager"}
	args = append(args, queryArgs(cfg)...)
	args = append(args, "--output=json", "--output-fields="+event.Fields)
	return args
}

// StreamArgs builds the argument vector for a stream request: structured
// output only when the client asked for JSON pass-through, human-readable
// lines otherwise.
func StreamArgs(cfg model.Config) []string {
	args := []string{"--no-pager"}
	if cfg.Follow {
		args = append(args, "--follow")
	}
	args = append(args, queryArgs(cfg)...)
	if cfg.OutputJSON {
		args = append(args, "--output=json")
	} else {
		args = append(args, "--output=short-iso")
	}
	return args
}

// queryArgs encodes the filters shared by both modes.
func queryArgs(cfg model.Config) []string {
	var args []string

	if cfg.KernelOnly {
		args = append(args, "--dmesg")
	}
	if cfg.Since != "" {
		args = append(args, "--since", cfg.Since)
	}
	if cfg.Until != "" {
		args = append(args, "--until", cfg.Until)
	}
	for _, unit := range cfg.Units {
		args = append(args, "--unit", unit)
	}

	switch cfg.Boot.Kind {
	case model.BootCurrent:
		args = append(args, "--boot")
	case model.BootValue:
		args = append(args, "--boot", cfg.Boot.Value)
	}

	args = append(args, "--priority="+cfg.Priority)
	return args
}

// RenderCommand formats an invocation for operator diagnostics, quoting
// arguments that would not survive a shell.
func RenderCommand(program string, args []string) string {
	var b strings.Builder
	b.WriteString(program)
	for _, arg := range args {
		b.WriteByte(' ')
		b.WriteString(shellEscape(arg))
	}
	return b.String()
}

func shellEscape(value string) string {
	if value == "" {
		return "''"
	}
	plain := true
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '_', r == '-', r == '.', r == '/', r == ':', r == '+', r == '=', r == ',':
		default:
			plain = false
		}
		if !plain {
			break
		}
	}
	if plain {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'"'"'`) + "'"
}
