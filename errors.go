package portsched

import "fmt"

// ConfigError reports a configuration fault discovered before packets
// flow (spec.md §7: "Configuration faults ... fatal on data-path
// discovery ... must be caught by the config validator before packets
// flow"). Never panics — Configure/New/validateConfig return it as an
// ordinary error.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func configErrorf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}
