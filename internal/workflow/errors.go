package workflow

import "errors"

var (
	// ErrAlreadyExists is returned when a workflow start names an incident
	// id that already has a workflow.
	ErrAlreadyExists = errors.New("workflow already exists")

	// ErrInvalidStage is returned when an approval or override arrives
	// while the workflow is not in a stage that accepts it.
	ErrInvalidStage = errors.New("operation not valid in current stage")

	// ErrPolicySelectionRejected is returned when a candidate override
	// names an unknown candidate or one whose policy verdict is not ok.
	// The workflow state is left unchanged.
	ErrPolicySelectionRejected = errors.New("candidate selection rejected by policy")

	// ErrRetryLimitExceeded is returned when a gate is rejected more times
	// than the configured bound. The workflow is stopped, terminally.
	ErrRetryLimitExceeded = errors.New("gate retry limit exceeded")
)
