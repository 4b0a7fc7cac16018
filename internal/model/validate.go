package model

import "fmt"

// Validate checks cross-field request rules. The daemon runs it on every
// decoded request before any subprocess is spawned; the CLI collaborator runs
// the same check client-side for earlier feedback.
func (c *Config) Validate() error {
	switch c.Mode {
	case ModeAnalyze, ModeStream:
	default:
		return fmt.Errorf("model: unknown mode %q", c.Mode)
	}

	if c.Follow && c.Mode == ModeAnalyze {
		return fmt.Errorf("model: follow is only valid in stream mode")
	}
	if c.OutputJSON && c.Mode == ModeAnalyze {
		return fmt.Errorf("model: output_json is only valid in stream mode")
	}

	switch c.Boot.Kind {
	case BootDisabled, BootCurrent:
		if c.Boot.Value != "" {
			return fmt.Errorf("model: boot value requires boot kind %q", BootValue)
		}
	case BootValue:
		if c.Boot.Value == "" {
			return fmt.Errorf("model: boot kind %q requires a value", BootValue)
		}
	default:
		return fmt.Errorf("model: unknown boot kind %q", c.Boot.Kind)
	}

	if c.MaxLines < 0 {
		return fmt.Errorf("model: max_lines must not be negative")
	}
	if c.Top <= 0 {
		return fmt.Errorf("model: top must be positive")
	}
	if c.Priority == "" {
		return fmt.Errorf("model: priority must not be empty")
	}
	return nil
}
