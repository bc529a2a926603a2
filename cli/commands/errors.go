package commands

import (
	"errors"
	"fmt"

	"github.com/petal-labs/oai/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitAPI        = 2
	ExitNetwork    = 3
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCodeFor maps the error kind to an exit code. Errors outside the
// taxonomy come from local input (unreadable files and the like).
func exitCodeFor(err error) int {
	var e *core.Error
	if !errors.As(err, &e) {
		return ExitValidation
	}
	switch e.Kind {
	case core.KindValidation:
		return ExitValidation
	case core.KindNetwork:
		return ExitNetwork
	default:
		return ExitAPI
	}
}

// fail reports err on stderr and attaches its exit code.
func (a *App) fail(err error) error {
	var ee *exitError
	if !errors.As(err, &ee) {
		ee = &exitError{code: exitCodeFor(err), err: err}
	}
	a.reportError(ee.err)
	return ee
}

func (a *App) reportError(err error) {
	var e *core.Error
	isAPI := errors.As(err, &e)

	if a.jsonOutput {
		body := map[string]any{"type": core.KindOf(err).String(), "message": err.Error()}
		if isAPI {
			body["message"] = e.Message
			if e.StatusCode != 0 {
				body["status"] = e.StatusCode
			}
			if e.Code != "" {
				body["code"] = e.Code
			}
			if e.RequestID != "" {
				body["request_id"] = e.RequestID
			}
		}
		_ = writeJSON(a.stderr, map[string]any{"error": body})
		return
	}

	if isAPI && e.Message != "" {
		fmt.Fprintf(a.stderr, "Error: %s\n", e.Message)
		if e.StatusCode != 0 || e.RequestID != "" {
			fmt.Fprintf(a.stderr, "  status: %d, request id: %s\n", e.StatusCode, e.RequestID)
		}
		return
	}
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
}
