package domain

import (
	"fmt"
	"time"
)

// AuditEntry is one line of the agent audit log.
type AuditEntry struct {
	Message   string    `json:"message"   db:"message"`
	Timestamp time.Time `json:"timestamp" db:"created_at"`
}

// String renders the entry the way the diagnostics view prints it.
func (e AuditEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Timestamp.UTC().Format(time.RFC3339Nano), e.Message)
}
