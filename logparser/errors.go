package logparser

import "fmt"

// FormatError reports a log format template that cannot be turned into a grammar.
// It is a configuration error: nothing has been read when it is returned.
type FormatError struct {
	Template string
	Reason   string
	Err      error
}

func newFormatError(template, reason string, err error) *FormatError {
	return &FormatError{
		Template: template,
		Reason:   reason,
		Err:      err,
	}
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid log format %q: %s: %v", e.Template, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid log format %q: %s", e.Template, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}
