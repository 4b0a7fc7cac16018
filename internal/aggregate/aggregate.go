// Package aggregate folds classified journal events into per-source
// statistics and ranks the result deterministically.
package aggregate

import (
	"sort"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/event"
	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
)

// SampleMessageLimit caps the retained sample message, in runes.
const SampleMessageLimit = 180

// leastSevere is the numerically largest syslog priority (debug). New entries
// start here so any observed priority can only improve the worst seen.
const leastSevere = 7

type key struct {
	kind   model.SourceKind
	source string
}

// Accumulator folds matched events into per-source statistics. It belongs to
// exactly one analyze run and is not safe for concurrent use.
type Accumulator struct {
	stats map[key]*model.SourceStats
}

func New() *Accumulator {
	return &Accumulator{stats: make(map[key]*model.SourceStats)}
}

// Observe folds one matched event into the statistics for its classification
// key. Count and worst-priority are order-independent; the sample message is
// last-write-wins and the sample unit/exe are first-write-wins.
func (a *Accumulator) Observe(ev model.JournalEvent) {
	kind, source := event.Classify(ev)
	k := key{kind: kind, source: source}

	entry, ok := a.stats[k]
	if !ok {
		entry = &model.SourceStats{
			Kind:          kind,
			Source:        source,
			WorstPriority: leastSevere,
		}
		a.stats[k] = entry
	}

	entry.Count++

	if ev.Priority != model.NoPriority && ev.Priority < entry.WorstPriority {
		entry.WorstPriority = ev.Priority
	}
	if ev.Message != "" {
		entry.SampleMessage = TruncateForDisplay(ev.Message, SampleMessageLimit)
	}
	if entry.SampleUnit == "" {
		entry.SampleUnit = ev.Unit
	}
	if entry.SampleExe == "" {
		entry.SampleExe = ev.Exe
	}
}

// Len returns the number of distinct sources seen so far.
func (a *Accumulator) Len() int { return len(a.stats) }

// Ranked returns all entries sorted by count descending, then worst priority
// ascending (more severe first), then source name ascending. The order is a
// total order, so identical input multisets always rank identically.
func (a *Accumulator) Ranked() []model.SourceStats {
	out := make([]model.SourceStats, 0, len(a.stats))
	for _, entry := range a.stats {
		out = append(out, *entry)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if out[i].WorstPriority != out[j].WorstPriority {
			return out[i].WorstPriority < out[j].WorstPriority
		}
		return out[i].Source < out[j].Source
	})
	return out
}

// TruncateForDisplay shortens text to limit runes, marking the cut with an
// ellipsis.
func TruncateForDisplay(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}
