//nolint:revive // types is a standard Go package name pattern
package types

// RunStatus tracks a company ranking run or an umbrella job.
type RunStatus string

// Run status values. PartiallyCompleted marks a run halted by provider
// exhaustion: already-persisted results remain valid and the unprocessed
// count is recorded, so this is a success-with-caveats outcome, not a failure.
const (
	StatusPending            RunStatus = "pending"
	StatusRunning            RunStatus = "running"
	StatusCompleted          RunStatus = "completed"
	StatusPartiallyCompleted RunStatus = "partially_completed"
	StatusFailed             RunStatus = "failed"
)
