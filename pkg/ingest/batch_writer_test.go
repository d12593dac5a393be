package ingest

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pierrefittel/okura/pkg/db"
)

func setupTable(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_, err = conn.Exec("CREATE TABLE test (id INTEGER PRIMARY KEY, val TEXT)")
	require.NoError(t, err)
	return conn
}

func insert(val string) WriteFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "INSERT INTO test (val) VALUES (?)", val)
		return err
	}
}

func countRows(t *testing.T, conn *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, conn.QueryRow("SELECT COUNT(*) FROM test").Scan(&n))
	return n
}

func TestBatchWriterTransactions(t *testing.T) {
	conn := setupTable(t)

	bw := NewBatchWriter(conn, 2, 0)
	var commits atomic.Int32
	bw.OnCommit = func() { commits.Add(1) }
	require.NoError(t, bw.Submit(insert("A")))
	require.NoError(t, bw.Submit(insert("B")))
	require.NoError(t, bw.Submit(insert("C")))

	done := make(chan error, 1)
	go func() { done <- bw.Close() }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for batch commit/close")
	}

	assert.Equal(t, 3, countRows(t, conn))
	assert.Equal(t, int32(2), commits.Load())
}

func TestBatchWriterRollback(t *testing.T) {
	conn := setupTable(t)

	bw := NewBatchWriter(conn, 2, 0)
	errCh := make(chan error, 1)
	bw.OnError = func(e error) { errCh <- e }
	bw.OnCommit = func() { t.Error("failed batch reported as committed") }

	// The second write fails, so the whole batch rolls back.
	boom := errors.New("intentional error")
	require.NoError(t, bw.Submit(insert("C")))
	require.NoError(t, bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return boom }))

	err := bw.Close()
	assert.ErrorIs(t, err, boom)

	select {
	case e := <-errCh:
		assert.ErrorIs(t, e, boom)
	default:
		t.Fatal("expected OnError to be called")
	}
	assert.Equal(t, 0, countRows(t, conn))
}

func TestBatchWriterFlushesBySize(t *testing.T) {
	bw := NewBatchWriter(nil, 5, 0)
	var mu sync.Mutex
	called := 0
	for i := 0; i < 12; i++ {
		err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
			mu.Lock()
			called++
			mu.Unlock()
			return nil
		})
		require.NoError(t, err)
	}
	require.NoError(t, bw.Close())
	assert.Equal(t, 12, called)
}

func TestBatchWriterFlushesOnInterval(t *testing.T) {
	bw := NewBatchWriter(nil, 10, 20*time.Millisecond)
	flushed := make(chan struct{})
	err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(flushed)
		return nil
	})
	require.NoError(t, err)

	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("buffered write was not flushed by the ticker")
	}
	require.NoError(t, bw.Close())
}

func TestBatchWriterSubmitAfterClose(t *testing.T) {
	bw := NewBatchWriter(nil, 2, 0)
	require.NoError(t, bw.Close())

	err := bw.Submit(func(ctx context.Context, tx *sql.Tx) error { return nil })
	assert.ErrorIs(t, err, ErrBatchWriterClosed)
	assert.ErrorIs(t, bw.Close(), ErrBatchWriterClosed)
}

func TestBatchWriterDropsBatchOnCancel(t *testing.T) {
	bw := NewBatchWriter(nil, 1, 0)

	started := make(chan struct{})
	blocker := make(chan struct{})
	require.NoError(t, bw.Submit(func(ctx context.Context, tx *sql.Tx) error {
		close(started)
		<-blocker
		return nil
	}))
	<-started

	// The committer is busy, so these two fill the commit queue.
	noop := func(ctx context.Context, tx *sql.Tx) error { return nil }
	require.NoError(t, bw.Submit(noop))
	require.NoError(t, bw.Submit(noop))

	bw.cancel()

	// With the queue full and the writer canceled this batch is dropped.
	require.NoError(t, bw.Submit(noop))

	close(blocker)
	err := bw.Close()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dropping batch")
}
