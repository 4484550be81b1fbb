// SPDX-FileCopyrightText: 2025 Jon Thor Kristinsson
// SPDX-License-Identifier: Apache-2.0

package eventlog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLog(t *testing.T) *Log {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "events.db")
	l, err := Open(context.Background(), dsn, nil)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

type allocPayload struct {
	Priority uint32 `json:"priority"`
}

func TestOpen_CreatesSchemaIdempotently(t *testing.T) {
	ctx := context.Background()
	dsn := filepath.Join(t.TempDir(), "events.db")
	l1, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	require.NoError(t, l1.Close())

	l2, err := Open(ctx, dsn, nil)
	require.NoError(t, err)
	defer l2.Close()
}

func TestPost_InsertsCommittedRow(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Post(ctx, 42, "alloc", allocPayload{Priority: 16}))

	row := l.db.QueryRowContext(ctx, `SELECT job_id, name, committed FROM events WHERE job_id = ?`, 42)
	var jobID uint64
	var name string
	var committed bool
	require.NoError(t, row.Scan(&jobID, &name, &committed))
	assert.Equal(t, uint64(42), jobID)
	assert.Equal(t, "alloc", name)
	assert.True(t, committed)
}

func TestPostNoCommit_InsertsUncommittedRow(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.PostNoCommit(ctx, 7, "annotations-clear", nil))

	row := l.db.QueryRowContext(ctx, `SELECT committed FROM events WHERE job_id = ?`, 7)
	var committed bool
	require.NoError(t, row.Scan(&committed))
	assert.False(t, committed)
}

func TestPost_ExceptionNoteStoredVerbatim(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Post(ctx, 1, "exception", map[string]string{
		"note":     "No matching resources available",
		"severity": "error",
	}))

	row := l.db.QueryRowContext(ctx, `SELECT payload FROM events WHERE job_id = ? AND name = 'exception'`, 1)
	var payload string
	require.NoError(t, row.Scan(&payload))
	assert.Contains(t, payload, "No matching resources available")
	assert.Contains(t, payload, "\"severity\":\"error\"")
}

func TestPost_ExceptionNotePopulatesFoldedComparisonKey(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Post(ctx, 1, "exception", map[string]string{"note": "No Matching Resources"}))

	row := l.db.QueryRowContext(ctx, `SELECT note_fold FROM events WHERE job_id = ? AND name = 'exception'`, 1)
	var fold string
	require.NoError(t, row.Scan(&fold))
	assert.Equal(t, caseFold.String("no matching resources"), fold)
	assert.Equal(t, caseFold.String("NO MATCHING RESOURCES"), fold)
}

func TestPost_NonExceptionPayloadPassesThroughUnmodified(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Post(ctx, 3, "alloc", map[string]string{"note": "lowercase stays lowercase"}))

	row := l.db.QueryRowContext(ctx, `SELECT payload FROM events WHERE job_id = ? AND name = 'alloc'`, 3)
	var payload string
	require.NoError(t, row.Scan(&payload))
	assert.Contains(t, payload, "lowercase stays lowercase")
}

func TestPost_NilPayloadStoresNull(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Post(ctx, 5, "free", nil))

	row := l.db.QueryRowContext(ctx, `SELECT payload FROM events WHERE job_id = ? AND name = 'free'`, 5)
	var payload *string
	require.NoError(t, row.Scan(&payload))
	assert.Nil(t, payload)
}

func TestPost_MultipleEventsPreserveInsertionOrder(t *testing.T) {
	l := openTestLog(t)
	ctx := context.Background()

	require.NoError(t, l.Post(ctx, 9, "alloc", nil))
	require.NoError(t, l.Post(ctx, 9, "free", nil))

	rows, err := l.db.QueryContext(ctx, `SELECT name FROM events WHERE job_id = ? ORDER BY id ASC`, 9)
	require.NoError(t, err)
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		names = append(names, name)
	}
	assert.Equal(t, []string{"alloc", "free"}, names)
}
