package engine

import "errors"

var (
	// ErrNotFound covers unknown task, child, household, or assignment ids.
	ErrNotFound = errors.New("not found")

	// ErrInvalid covers rejected input: bad dates, windows out of bounds,
	// responses on the wrong task type.
	ErrInvalid = errors.New("invalid request")

	// ErrAlreadyClaimed is the loser's result when racing accepts on one
	// open slot. Retrying against the same slot keeps returning it.
	ErrAlreadyClaimed = errors.New("task already claimed")

	// ErrAlreadyExists rejects a manual assignment for a (task, date) that
	// already has one.
	ErrAlreadyExists = errors.New("assignment already exists for this task and date")

	// ErrNotCandidate rejects responses from children outside the
	// snapshotted pool.
	ErrNotCandidate = errors.New("child is not a candidate for this task")

	// ErrNotClaimant rejects a withdraw from a child who doesn't hold the
	// claim.
	ErrNotClaimant = errors.New("child does not hold the claim")

	// ErrCompleted guards operations that are illegal once a completion
	// exists: reassignment, responses, withdrawal, double completion.
	ErrCompleted = errors.New("assignment already completed")

	// ErrExpired rejects accepts after the task's deadline; expiry is
	// terminal.
	ErrExpired = errors.New("task deadline has passed")
)
