/*
store.go - Interface to the collaborator that keeps finalized records

PURPOSE:
  Completing a session produces a plain Record. The engine never persists
  anything itself; it hands the record to a Recorder supplied by the caller.
  Different implementations can use SQLite or in-memory storage.

APPEND-ONLY CONTRACT:
  - SaveRecord(): write a completed record once
  - NO Update() or Delete() methods exist
  Corrections belong to a new transaction, not an edit of an old one.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: SQLite
  - generic/store/memory.go: In-memory for tests and development

SEE ALSO:
  - record.go: The Record shape
  - session.go: Record() builds the value handed to SaveRecord
*/
package generic

import "context"

// =============================================================================
// RECORDER - Sink for completed transactions (append-only)
// =============================================================================

type Recorder interface {
	// SaveRecord persists a completed record. Duplicate IDs are an error.
	SaveRecord(ctx context.Context, rec Record) error

	// GetRecord returns ErrRecordNotFound for unknown IDs.
	GetRecord(ctx context.Context, id RecordID) (Record, error)

	// ListRecords returns records of the given kind, oldest first.
	// An empty kind lists everything.
	ListRecords(ctx context.Context, kind Kind) ([]Record, error)
}
