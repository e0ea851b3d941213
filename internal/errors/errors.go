package errors

import (
	"errors"
	"fmt"
	"os"

	"github.com/julianstephens/ember/internal/constants"
	"github.com/julianstephens/ember/internal/logger"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a session and none exists
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrIdentityExchangeFailed is returned when the sync service rejects an identity token
	ErrIdentityExchangeFailed = errors.New("identity exchange failed")
	// ErrNotFound is the root of every "absent" condition reported by the sync service
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned when a value is rejected before any remote call
	ErrInvalidInput = errors.New("invalid input")
)

// RemoteFailure is any sync service error that is not a benign absence.
// It is surfaced to callers unchanged.
type RemoteFailure struct {
	Op      string
	Table   string
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *RemoteFailure) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Code != "" && e.Status != 0:
		return fmt.Sprintf("%s %s: %s (status %d, code %s)", e.Op, e.Table, msg, e.Status, e.Code)
	case e.Code != "":
		return fmt.Sprintf("%s %s: %s (code %s)", e.Op, e.Table, msg, e.Code)
	case e.Status != 0:
		return fmt.Sprintf("%s %s: %s (status %d)", e.Op, e.Table, msg, e.Status)
	default:
		return fmt.Sprintf("%s %s: %s", e.Op, e.Table, msg)
	}
}

func (e *RemoteFailure) Unwrap() error {
	return e.Err
}

// Invalid wraps ErrInvalidInput with a description of the rejected value
func Invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// Message returns the text recorded on a component's published state for err
func Message(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Format renders err for the terminal. Missing sessions get a login hint.
func Format(err error) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrNotAuthenticated) {
		return fmt.Sprintf("Error: %v (run '%s login' first)", err, constants.AppName)
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf is Format for a message built from format and args
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs err, prints it to stderr and exits with status 1. A nil err is ignored.
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf is Fatal for a message built from format and args
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
