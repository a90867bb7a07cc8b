package scout

import (
	"errors"
	"fmt"

	"github.com/hazyhaar/toolscout/catalog"
)

var (
	// ErrDuplicateTool is returned when a URL is already in the catalog.
	ErrDuplicateTool = errors.New("scout: tool already exists")

	// ErrInvalidInput is returned for missing or malformed request fields.
	ErrInvalidInput = errors.New("scout: invalid input")

	// ErrNotFound is returned when a tool ID does not exist.
	ErrNotFound = catalog.ErrNotFound
)

// DuplicateError names the catalog entry that already owns a URL.
type DuplicateError struct {
	ExistingID   string
	ExistingName string
	// OnUpdate is set when the collision came from editing another tool.
	OnUpdate bool
}

func (e *DuplicateError) Error() string {
	if e.OnUpdate {
		return fmt.Sprintf("This URL is already used by %q", e.ExistingName)
	}
	return fmt.Sprintf("This tool already exists as %q", e.ExistingName)
}

func (e *DuplicateError) Unwrap() error { return ErrDuplicateTool }
