package exchange

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func findByState(t *testing.T, store *MemoryStore, state State) []*Record {
	t.Helper()
	var out []*Record
	for _, rec := range store.Records() {
		if rec.State == state {
			out = append(out, rec)
		}
	}
	return out
}

func TestOpenNewEvictsSameUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)
	_, err = OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)

	open := findByState(t, store, StateInit)
	require.Len(t, open, 1, "exactly one open session after re-init")
	assert.NotEqual(t, first.Record().ID, open[0].ID)

	aborted := findByState(t, store, StateAbort)
	require.Len(t, aborted, 1)
	assert.Equal(t, ReportAbortedSameUser, aborted[0].Report)
}

func TestOpenNewEvictsOtherUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := OpenNew(ctx, store, "alice", testLogger())
	require.NoError(t, err)
	_, err = OpenNew(ctx, store, "bob", testLogger())
	require.NoError(t, err)

	aborted := findByState(t, store, StateAbort)
	require.Len(t, aborted, 1)
	assert.Equal(t, "alice", aborted[0].User)
	assert.Equal(t, "Aborted by another user: bob", aborted[0].Report)
}

func TestResumeRequiresInit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := Resume(ctx, store, "onec", testLogger())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestResumeIsPerUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := OpenNew(ctx, store, "alice", testLogger())
	require.NoError(t, err)

	_, err = Resume(ctx, store, "bob", testLogger())
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestFinishFlushesCountersAndReport(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)
	sess.Counters.Uploaded = 3
	sess.Counters.UploadedXML = 2

	err = sess.Finish(ctx, nil, func() (string, error) { return "3 files received", nil })
	require.NoError(t, err)

	rec, err := store.FindOpen(ctx, "onec")
	require.NoError(t, err, "session stays open without MarkDone")
	assert.Equal(t, 3, rec.Counters.Uploaded)
	assert.Equal(t, 2, rec.Counters.UploadedXML)
	assert.Equal(t, "3 files received", rec.Report)

	// A resumed session continues from the flushed counters.
	resumed, err := Resume(ctx, store, "onec", testLogger())
	require.NoError(t, err)
	assert.Equal(t, 3, resumed.Counters.Uploaded)
}

func TestFinishDone(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)
	sess.MarkDone()
	require.NoError(t, sess.Finish(ctx, nil, nil))

	done := findByState(t, store, StateDone)
	require.Len(t, done, 1)

	_, err = store.FindOpen(ctx, "onec")
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestFinishAbortsOnStepError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)

	stepErr := errors.New("parsing import.xml: bad element")
	require.NoError(t, sess.Finish(ctx, stepErr, func() (string, error) {
		t.Fatal("report callback must not run on abort")
		return "", nil
	}))

	aborted := findByState(t, store, StateAbort)
	require.Len(t, aborted, 1)
	assert.Equal(t, stepErr.Error(), aborted[0].Report)
}

func TestFinishDegradesReportOnCallbackError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)
	sess.MarkDone()

	err = sess.Finish(ctx, nil, func() (string, error) {
		return "", errors.New("shop database offline")
	})
	require.NoError(t, err, "report failure must not fail the exchange")

	done := findByState(t, store, StateDone)
	require.Len(t, done, 1)
	assert.Contains(t, done[0].Report, "report unavailable")
	assert.Contains(t, done[0].Report, "shop database offline")
}

func TestSetOperationPersists(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	sess, err := OpenNew(ctx, store, "onec", testLogger())
	require.NoError(t, err)
	require.NoError(t, sess.SetOperation(ctx, "catalog_file", "import.xml"))

	rec, err := store.FindOpen(ctx, "onec")
	require.NoError(t, err)
	assert.Equal(t, "catalog_file", rec.Operation)
	assert.Equal(t, "import.xml", rec.FileName)
}
