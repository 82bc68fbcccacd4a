package constants

// RunStatus is the canonical status for rows in extraction_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning RunStatus = "RUNNING" // in progress
	RunStatusOK      RunStatus = "OK"      // result written
	RunStatusFailed  RunStatus = "FAILED"  // terminal failure
)

func (s RunStatus) String() string { return string(s) }
