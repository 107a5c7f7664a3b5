package ghost

import "errors"

// The error taxonomy. Everything surfaces to the caller as a
// distinguishable error value; nothing is silently retried. A single
// bad frame degrades gracefully (skipped during blend) rather than
// aborting the burst.
var (
	// ErrPermissionDenied - capture or store access refused. Needs a
	// settings change by the user, so never retried automatically.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrCaptureFailed - the capture collaborator reported an error.
	// The burst is not auto-discarded; the user may retry the next shot.
	ErrCaptureFailed = errors.New("capture failed")

	// ErrDecodeFailed - a captured frame's bitmap is unusable. Skipped
	// during blend, the burst continues.
	ErrDecodeFailed = errors.New("frame decode failed")

	// ErrEncodingFailed - the final bitmap could not be serialized.
	ErrEncodingFailed = errors.New("bitmap encoding failed")

	// ErrStoreWriteFailed - the asset store reported a write failure.
	// The exposure set is kept so the user can retry the save without
	// re-shooting.
	ErrStoreWriteFailed = errors.New("asset store write failed")

	// ErrEmptyBurst - save was asked for with zero frames. Checked
	// before any collaborator call is made.
	ErrEmptyBurst = errors.New("exposure set is empty")

	// ErrSaveInProgress - a second save was attempted while one is
	// outstanding on the same set.
	ErrSaveInProgress = errors.New("save already in progress")

	// ErrSetFrozen - the set refuses appends and clears while a save is
	// in flight; mutability resumes once the save settles.
	ErrSetFrozen = errors.New("exposure set is frozen during save")
)
