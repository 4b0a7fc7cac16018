// Package pkgresolve maps log sources back to the packages that installed
// them, via dpkg-query and systemctl.
package pkgresolve

import (
	"os/exec"
	"strings"

	"github.com/etoilefixes/ubuntu-error-log-tool/internal/model"
)

// runner executes one lookup tool invocation and returns its stdout. A
// non-success exit is reported as an error; stderr is discarded.
type runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// Resolver memoizes the two external lookups (path→package and
// unit→fragment path) for the lifetime of one analyze run. Scoping the
// caches to the request keeps connections fully isolated.
type Resolver struct {
	dpkgAvailable      bool
	systemctlAvailable bool

	// Cached results keyed by the exact lookup input. An empty value records
	// a lookup that ran and found nothing, so it is never retried.
	pathCache map[string]string
	unitCache map[string]string

	run runner
}

// New probes the lookup tools once and returns a resolver. When dpkg-query is
// missing, every resolution is a no-op rather than a repeated failure.
func New() *Resolver {
	_, dpkgErr := exec.LookPath("dpkg-query")
	_, sysErr := exec.LookPath("systemctl")
	return newResolver(execRunner, dpkgErr == nil, sysErr == nil)
}

func newResolver(run runner, dpkgAvailable, systemctlAvailable bool) *Resolver {
	return &Resolver{
		dpkgAvailable:      dpkgAvailable,
		systemctlAvailable: systemctlAvailable,
		pathCache:          make(map[string]string),
		unitCache:          make(map[string]string),
		run:                run,
	}
}

// ResolveTop fills the Package field of the first top ranked suspects.
// Resolution is deliberately bounded to the displayed entries because each
// miss costs an external process.
func (r *Resolver) ResolveTop(suspects []model.SourceStats, top int) {
	limit := min(len(suspects), top)
	for i := range suspects[:limit] {
		suspects[i].Package = r.Resolve(&suspects[i])
	}
}

// Resolve attempts package attribution for one suspect: sample executable
// first, then the suspect's own path when it is an executable, then the
// sample unit, then the suspect's own unit name.
func (r *Resolver) Resolve(s *model.SourceStats) string {
	if !r.dpkgAvailable {
		return ""
	}

	if s.SampleExe != "" {
		if pkg := r.packageByPath(s.SampleExe); pkg != "" {
			return pkg
		}
	}
	if s.Kind == model.KindExecutable {
		if pkg := r.packageByPath(s.Source); pkg != "" {
			return pkg
		}
	}
	if s.SampleUnit != "" {
		return r.packageByUnit(s.SampleUnit)
	}
	if s.Kind == model.KindUnit {
		return r.packageByUnit(s.Source)
	}
	return ""
}

func (r *Resolver) packageByPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "/") {
		return ""
	}
	if cached, ok := r.pathCache[path]; ok {
		return cached
	}

	var resolved string
	if out, err := r.run("dpkg-query", "-S", path); err == nil {
		resolved = parseDpkgSearch(string(out))
	}
	r.pathCache[path] = resolved
	return resolved
}

func (r *Resolver) packageByUnit(unit string) string {
	if !r.systemctlAvailable {
		return ""
	}
	if cached, ok := r.unitCache[unit]; ok {
		return cached
	}

	var resolved string
	if out, err := r.run("systemctl", "show", "--property=FragmentPath", "--value", unit); err == nil {
		if path := strings.TrimSpace(string(out)); path != "" {
			resolved = r.packageByPath(path)
		}
	}
	r.unitCache[unit] = resolved
	return resolved
}

// parseDpkgSearch extracts the package name from dpkg-query -S output. The
// format is "name: path" per line; the first colon delimits the name.
func parseDpkgSearch(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, ":") {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimSpace(line), ":")
		return strings.TrimSpace(name)
	}
	return ""
}
