package model

// RunMode selects which pipeline a request executes.
type RunMode string

const (
	ModeAnalyze RunMode = "analyze"
	ModeStream  RunMode = "stream"
)

// BootKind tags the boot-selection variant of a request.
type BootKind string

const (
	// BootDisabled queries across all boot cycles.
	BootDisabled BootKind = "disabled"
	// BootCurrent restricts the query to the most recent boot.
	BootCurrent BootKind = "current"
	// BootValue restricts the query to an explicit boot id or offset.
	BootValue BootKind = "value"
)

// BootFilter is the tagged boot-selection variant. The zero value means
// disabled (all boots).
type BootFilter struct {
	Kind  BootKind `json:"kind,omitempty"`
	Value string   `json:"value,omitempty"`
}

// Config is one analysis or stream request as sent over the socket.
// It is produced by the CLI collaborator and consumed verbatim by the daemon.
type Config struct {
	Mode        RunMode    `json:"mode"`
	Since       string     `json:"since,omitempty"`
	Until       string     `json:"until,omitempty"`
	Units       []string   `json:"units,omitempty"`
	GrepTerms   []string   `json:"grep_terms,omitempty"`
	Boot        BootFilter `json:"boot"`
	Follow      bool       `json:"follow,omitempty"`
	KernelOnly  bool       `json:"kernel_only,omitempty"`
	OutputJSON  bool       `json:"output_json,omitempty"`
	MaxLines    int        `json:"max_lines,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	ShowCommand bool       `json:"show_command,omitempty"`
	Top         int        `json:"top,omitempty"`
}

// NoPriority marks a journal record that carried no PRIORITY field.
const NoPriority = -1

// JournalEvent is one parsed journal record. It lives only for the duration
// of processing a single line; absent string fields are empty.
type JournalEvent struct {
	Message    string
	Priority   int
	Unit       string
	Exe        string
	Comm       string
	Identifier string
}

// SourceKind classifies the attributed origin of journal events.
type SourceKind string

const (
	KindUnit       SourceKind = "unit"
	KindExecutable SourceKind = "executable"
	KindIdentifier SourceKind = "identifier"
	KindComm       SourceKind = "comm"
	KindKernel     SourceKind = "kernel"
	KindUnknown    SourceKind = "unknown"
)

// SourceStats is the aggregated state for one (kind, source) key.
type SourceStats struct {
	Kind          SourceKind `json:"kind"`
	Source        string     `json:"source"`
	Count         uint64     `json:"count"`
	WorstPriority int        `json:"worst_priority"`
	SampleMessage string     `json:"sample_message"`
	SampleUnit    string     `json:"sample_unit,omitempty"`
	SampleExe     string     `json:"sample_exe,omitempty"`
	Package       string     `json:"package,omitempty"`
}

// AnalyzeMetrics counts what one analyze run saw.
type AnalyzeMetrics struct {
	LinesRead   int `json:"lines_read"`
	ParsedOK    int `json:"parsed_ok"`
	Matched     int `json:"matched"`
	ParseErrors int `json:"parse_errors"`
}

// AnalyzeResponse is the single reply to an analyze request.
type AnalyzeResponse struct {
	Metrics  AnalyzeMetrics `json:"metrics"`
	Suspects []SourceStats  `json:"suspects"`
	Top      int            `json:"top"`
}

// StreamLine is one unit of the stream protocol. A stream response is zero or
// more of these followed by exactly one with Done set, which may carry an
// error message.
type StreamLine struct {
	Line  string `json:"line"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// ErrorResponse is the failure reply for the analyze shape, and for failures
// that occur before the request mode is known.
type ErrorResponse struct {
	Error string `json:"error"`
}
