package exchange

import (
	"context"
	"errors"
	"time"
)

// State is the lifecycle state of an exchange record.
type State string

const (
	// StateInit marks the single in-flight exchange: accepting uploads,
	// awaiting import or export.
	StateInit State = "init"
	// StateDone is the terminal success state.
	StateDone State = "done"
	// StateAbort is the terminal failure state, reached on handler
	// errors or when another init pre-empts the session.
	StateAbort State = "abort"
)

// Counters is the per-session statistics ledger. Values accumulate in
// memory during one request and are flushed to the record at finish.
type Counters struct {
	Uploaded       int
	UploadedXML    int
	UploadedImages int

	ImportedClassifiers int
	ImportedCatalogues  int
	ImportedOfferPacks  int
	ImportedDocuments   int

	ExportedDocuments int
}

// Record is the durable ledger entry of one exchange session. It is
// created at session open, mutated while the session is in flight and
// never changes again once it reaches a terminal state.
type Record struct {
	ID        string
	User      string
	State     State
	StartedAt time.Time
	ActionAt  time.Time

	// Operation and FileName describe the step currently executing, so a
	// crash mid-step leaves a diagnosable trail.
	Operation string
	FileName  string

	Counters Counters
	Report   string
}

// ErrNotStarted is returned by Store.FindOpen when the user has no open
// session. It is a client protocol error: the 1C client must call init
// first.
var ErrNotStarted = errors.New("exchange session has not been started")

// Report texts recorded on records evicted by a new init.
const (
	ReportAbortedSameUser  = "Aborted by the same user"
	ReportAbortedOtherUser = "Aborted by another user"
)

// AbortReportFor returns the report text for a record owned by recordUser
// that is being evicted by byUser. A same-user eviction is a retry after a
// crash; another user's eviction is a conflicting session.
func AbortReportFor(recordUser, byUser string) string {
	if recordUser == byUser {
		return ReportAbortedSameUser
	}
	return ReportAbortedOtherUser + ": " + byUser
}

// Store persists exchange records. Implementations must make OpenNew and
// FindOpen indivisible with respect to concurrent calls touching the same
// records: the single-active-session invariant depends on it.
type Store interface {
	// OpenNew atomically aborts every record still in StateInit, writing
	// the report AbortReportFor produces, and creates a fresh StateInit
	// record owned by user.
	OpenNew(ctx context.Context, user string) (*Record, error)

	// FindOpen returns the StateInit record owned by user, or
	// ErrNotStarted when there is none.
	FindOpen(ctx context.Context, user string) (*Record, error)

	// SetOperation immediately persists the step currently executing.
	SetOperation(ctx context.Context, id, operation, fileName string) error

	// Finish flushes the record's state, counters and report in one
	// atomic update.
	Finish(ctx context.Context, rec *Record) error
}
