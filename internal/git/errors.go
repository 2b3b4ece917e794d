package git

import "fmt"

// PreconditionError means the rewrite was refused before any mutation:
// dirty working tree, or a plan that no longer matches the live branch.
type PreconditionError struct {
	Reason string
}

func (e *PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

// ApplyError means the replay itself failed. The branch has been rolled
// back to its pre-run state; BackupRef names the recovery reference left
// in place for inspection.
type ApplyError struct {
	Step      string
	BackupRef string
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply failed at %s (branch restored, backup kept at %s): %v", e.Step, e.BackupRef, e.Err)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
