package exchange

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Session is one exchange step's view of its durable record. It buffers
// counter increments in memory and flushes them, together with the final
// state and report, in a single Finish call.
type Session struct {
	store Store
	log   *slog.Logger

	rec  *Record
	done bool

	// Counters accumulates this session's statistics. Resumed sessions
	// start from the values persisted by earlier steps.
	Counters Counters
}

// OpenNew starts a fresh session for user, aborting any exchange still
// in flight.
func OpenNew(ctx context.Context, store Store, user string, log *slog.Logger) (*Session, error) {
	rec, err := store.OpenNew(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("opening exchange session: %w", err)
	}
	log.Info("exchange session opened",
		slog.String("session_id", rec.ID),
		slog.String("user", user))
	return &Session{store: store, log: log, rec: rec, Counters: rec.Counters}, nil
}

// Resume attaches to the user's open session. Returns ErrNotStarted when
// the client skipped init.
func Resume(ctx context.Context, store Store, user string, log *slog.Logger) (*Session, error) {
	rec, err := store.FindOpen(ctx, user)
	if err != nil {
		return nil, err
	}
	return &Session{store: store, log: log, rec: rec, Counters: rec.Counters}, nil
}

// Record returns the session's ledger entry.
func (s *Session) Record() *Record { return s.rec }

// SetOperation persists the step about to execute, so a crash mid-step
// leaves the operation and file name on record.
func (s *Session) SetOperation(ctx context.Context, operation, fileName string) error {
	s.rec.Operation = operation
	s.rec.FileName = fileName
	s.rec.ActionAt = time.Now()
	if err := s.store.SetOperation(ctx, s.rec.ID, operation, fileName); err != nil {
		return fmt.Errorf("recording operation %s: %w", operation, err)
	}
	return nil
}

// MarkDone schedules the transition to StateDone at the next Finish.
func (s *Session) MarkDone() { s.done = true }

// Finish flushes the session to the store. A non-nil stepErr aborts the
// session and records the error text as the report; otherwise the record
// either completes (after MarkDone) or stays open for the next step, and
// report supplies the session summary. A failing report callback degrades
// the report text only.
func (s *Session) Finish(ctx context.Context, stepErr error, report func() (string, error)) error {
	rec := s.rec
	rec.Counters = s.Counters
	rec.ActionAt = time.Now()

	switch {
	case stepErr != nil:
		rec.State = StateAbort
		rec.Report = stepErr.Error()
	default:
		if s.done {
			rec.State = StateDone
		}
		if report != nil {
			text, err := report()
			if err != nil {
				s.log.Error("report callback failed",
					slog.String("session_id", rec.ID),
					slog.String("error", err.Error()))
				text = "report unavailable: " + err.Error()
			}
			rec.Report = text
		}
	}

	if err := s.store.Finish(ctx, rec); err != nil {
		return fmt.Errorf("finishing exchange session %s: %w", rec.ID, err)
	}
	s.log.Info("exchange session flushed",
		slog.String("session_id", rec.ID),
		slog.String("state", string(rec.State)),
		slog.Int("uploaded", rec.Counters.Uploaded),
		slog.Int("imported_docs", rec.Counters.ImportedDocuments),
		slog.Int("exported_docs", rec.Counters.ExportedDocuments))
	return nil
}
