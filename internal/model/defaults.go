package model

// Request defaults shared with the CLI collaborator. The daemon applies them
// again so a sparse request behaves the same as a fully populated one.
const (
	// DefaultSince bounds queries to the recent past unless the client asks
	// otherwise; unbounded scans of a large journal are rarely what anyone wants.
	DefaultSince = "2 hours ago"

	// DefaultPriority is the journalctl priority threshold ("3" = err).
	DefaultPriority = "3"

	// DefaultTop is how many ranked suspects a report shows.
	DefaultTop = 10

	// DefaultMaxLines caps matched lines per request.
	DefaultMaxLines = 1500
)

// DefaultConfig returns an analyze request with the standard defaults.
// Boot selection defaults to all boots so a crash-then-reboot is still visible.
func DefaultConfig() Config {
	return Config{
		Mode:     ModeAnalyze,
		Since:    DefaultSince,
		Boot:     BootFilter{Kind: BootDisabled},
		MaxLines: DefaultMaxLines,
		Priority: DefaultPriority,
		Top:      DefaultTop,
	}
}

// Normalize fills the gaps a sparse request leaves open. It never overrides
// an explicitly set field.
func (c *Config) Normalize() {
	if c.Mode == "" {
		c.Mode = ModeAnalyze
	}
	if c.Boot.Kind == "" {
		c.Boot.Kind = BootDisabled
	}
	if c.Priority == "" {
		c.Priority = DefaultPriority
	}
	if c.Top == 0 {
		c.Top = DefaultTop
	}
}
