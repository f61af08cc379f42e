package assign

import (
	"errors"
	"fmt"
)

var (
	// ErrInfeasibleRow indicates a participant has no permissible recipient.
	ErrInfeasibleRow = errors.New("participant has no permissible recipient")

	// ErrAssignmentNotFound indicates the search budget ran out without a valid assignment.
	ErrAssignmentNotFound = errors.New("no valid assignment found")

	// ErrInvalidMatrix indicates the matrix does not match the participant list.
	ErrInvalidMatrix = errors.New("invalid compatibility matrix")
)

// InfeasibleRowError names the participant whose matrix row is empty.
type InfeasibleRowError struct {
	Index int
	Name  string
}

func (e *InfeasibleRowError) Error() string {
	return fmt.Sprintf("participant %s cannot give to anyone (empty row %d)", e.Name, e.Index)
}

func (e *InfeasibleRowError) Is(target error) bool {
	return target == ErrInfeasibleRow
}

// ShapeError reports a matrix whose dimensions do not match the participant count.
type ShapeError struct {
	Participants int
	Rows         int
	// Row is the first row with the wrong length, or -1 when the row count is wrong.
	Row     int
	Columns int
}

func (e *ShapeError) Error() string {
	if e.Row < 0 {
		return fmt.Sprintf("matrix has %d rows, want %d", e.Rows, e.Participants)
	}
	return fmt.Sprintf("matrix row %d has %d columns, want %d", e.Row, e.Columns, e.Participants)
}

func (e *ShapeError) Is(target error) bool {
	return target == ErrInvalidMatrix
}
