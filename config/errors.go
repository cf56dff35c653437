package config

import "fmt"

// Error is a configuration problem detected before any log is read
type Error struct {
	Path   string // config file, empty when only defaults were used
	Key    string // offending key like "main.report_size", may be empty
	Reason string
	Err    error
}

func (e *Error) Error() string {
	msg := "invalid configuration"
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Key != "" {
		msg += fmt.Sprintf(": %s", e.Key)
	}
	msg += ": " + e.Reason
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}
