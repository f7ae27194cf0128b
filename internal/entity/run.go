package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExtractionRun is one persisted processing of a single flyer source.
type ExtractionRun struct {
	ID           uuid.UUID
	SourcePath   string
	Format       string // constants.IMAGE | constants.OCRJSON
	Status       string // constants.RunStatus values
	StartedAt    time.Time
	FinishedAt   *time.Time
	RecordCount  int
	ErrorMessage *string
}
