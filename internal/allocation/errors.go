package allocation

import (
	"errors"
	"fmt"

	"github.com/noah-isme/room-allocation-api/internal/models"
)

var (
	// ErrMissingReferenceData aborts a run when rooms, rules or preferences were never loaded.
	ErrMissingReferenceData = errors.New("allocation: missing reference data")
	// ErrInvalidReferenceData aborts a run on reference rows the engine cannot evaluate.
	ErrInvalidReferenceData = errors.New("allocation: invalid reference data")
	// ErrIndexCorruption aborts a run when a commit finds a slot occupied after a clean check.
	ErrIndexCorruption = errors.New("allocation: conflict index corruption")
)

// RunError reports an aborted run. Records holds the decision log produced
// before the abort so it can still be inspected.
type RunError struct {
	SemesterID string
	Processed  int
	Records    []models.AllocationRecord
	Err        error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("allocation run for semester %s aborted after %d demands: %v", e.SemesterID, e.Processed, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}
