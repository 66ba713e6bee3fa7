package domain

import (
	"time"

	"github.com/google/uuid"
)

// Referrer is a named contact used as a selectable label on client and
// loan forms. No relational constraints beyond existing.
type Referrer struct {
	ID         uuid.UUID
	Name       string
	NationalID string
	Contact    string
	CreatedAt  time.Time
}
