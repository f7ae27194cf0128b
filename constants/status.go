package constants

// RunStatus is the canonical status for rows in extraction_run.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusQueued  RunStatus = "QUEUED"  // queued for processing
	RunStatusRunning RunStatus = "RUNNING" // in progress
	RunStatusOK      RunStatus = "OK"      // extraction finished
	RunStatusFailed  RunStatus = "FAILED"  // terminal failure
)
