package syncsvc

import (
	"errors"
	"fmt"

	apperrors "github.com/julianstephens/ember/internal/errors"
)

var (
	// ErrRelationNotFound means the table does not exist. Callers treat it as an empty result.
	ErrRelationNotFound = fmt.Errorf("relation not found: %w", apperrors.ErrNotFound)
	// ErrRowNotFound means a single-row selection matched nothing
	ErrRowNotFound = fmt.Errorf("row not found: %w", apperrors.ErrNotFound)
)

// RelationNotFound reports a missing table
func RelationNotFound(table string) error {
	return fmt.Errorf("%w: %s", ErrRelationNotFound, table)
}

// RowNotFound reports an empty single-row selection
func RowNotFound(table string) error {
	return fmt.Errorf("%w: %s", ErrRowNotFound, table)
}

// CheckSingle validates the row count of a single-row selection: no rows
// is a missing row, more than one is a remote failure
func CheckSingle(table string, n int) error {
	switch {
	case n == 0:
		return RowNotFound(table)
	case n > 1:
		return &apperrors.RemoteFailure{Op: "select", Table: table, Message: fmt.Sprintf("single row requested, %d rows returned", n)}
	}
	return nil
}

// IsAbsent reports whether err is a benign absence (missing row or table)
func IsAbsent(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}

// Remote builds the failure surfaced for every other backend error
func Remote(op, table string, err error) error {
	return &apperrors.RemoteFailure{Op: op, Table: table, Err: err}
}
