package event

import (
	"strings"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
)

// KernelIdentifier is the syslog identifier journald assigns to kernel
// messages.
const KernelIdentifier = "kernel"

// Classify maps an event to its (kind, source) attribution key. It is total:
// every event classifies to exactly one key. Kernel messages win regardless
// of other populated fields, then the most specific remaining field.
func Classify(ev model.JournalEvent) (model.SourceKind, string) {
	if ev.Identifier == KernelIdentifier {
		return model.KindKernel, KernelIdentifier
	}
	if ev.Unit != "" {
		return model.KindUnit, ev.Unit
	}
	if ev.Exe != "" {
		return model.KindExecutable, ev.Exe
	}
	if ev.Identifier != "" {
		return model.KindIdentifier, ev.Identifier
	}
	if ev.Comm != "" {
		return model.KindComm, ev.Comm
	}
	return model.KindUnknown, "unknown"
}

// MatchesTerms reports whether every grep term occurs in the event's
// searchable text (message plus attribution fields), case-insensitive.
// An empty term list matches everything.
func MatchesTerms(ev model.JournalEvent, terms []string) bool {
	if len(terms) == 0 {
		return true
	}

	text := ev.Message
	for _, part := range []string{ev.Unit, ev.Exe, ev.Comm, ev.Identifier} {
		if part != "" {
			text += " " + part
		}
	}
	return matchesAll(text, terms)
}

// MatchesLine is the raw-line variant used by the stream pipeline, where no
// structured event exists.
func MatchesLine(line string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	return matchesAll(line, terms)
}

func matchesAll(text string, terms []string) bool {
	lower := strings.ToLower(text)
	for _, term := range terms {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}
