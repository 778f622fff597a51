package storage

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/structure"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func newTestStore(t *testing.T) *BadgerStore {
	t.Helper()
	store, err := NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newRecord(name, markdown string) *models.DocumentRecord {
	id := utils.CalculateStringSHA256(markdown)
	doc := structure.ParseMarkdownDocument(markdown)
	return &models.DocumentRecord{
		ID:          id,
		Name:        name,
		Source:      name + ".md",
		ContentHash: id,
		Markdown:    markdown,
		Document:    doc,
		Stats:       models.ComputeStats(doc, 0),
		Report:      structure.Inspect(markdown),
	}
}

// fixedClock returns a clock that advances one second per call
func fixedClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	current := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		current = current.Add(time.Second)
		return current
	}
}

func TestNewBadgerStore(t *testing.T) {
	t.Run("fresh store has zero count", func(t *testing.T) {
		store := newTestStore(t)
		count, err := store.Count()
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})

	t.Run("reopen preserves data and count", func(t *testing.T) {
		dir := t.TempDir()
		logger := testLogger()

		store1, err := NewBadgerStore(dir, logger)
		require.NoError(t, err)
		_, err = store1.PutDocument(newRecord("a", "# A\nbody"))
		require.NoError(t, err)
		require.NoError(t, store1.Close())

		store2, err := NewBadgerStore(dir, logger)
		require.NoError(t, err)
		t.Cleanup(func() { store2.Close() })

		count, err := store2.Count()
		require.NoError(t, err)
		assert.Equal(t, 1, count)
	})
}

func TestPutAndGetDocument(t *testing.T) {
	store := newTestStore(t)
	record := newRecord("guide", "# Guide\nintro\n### Install\nsteps")

	created, err := store.PutDocument(record)
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, record.CreatedAt.IsZero())

	status, got, err := store.GetDocument(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFound, status)
	require.NotNil(t, got)
	assert.Equal(t, record.Name, got.Name)
	assert.Equal(t, record.Document, got.Document)
	assert.Equal(t, record.Stats, got.Stats)
	assert.True(t, record.CreatedAt.Equal(got.CreatedAt))
}

func TestGetDocument_NotFound(t *testing.T) {
	store := newTestStore(t)

	status, got, err := store.GetDocument("missing")
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusNotFound, status)
	assert.Nil(t, got)
}

func TestPutDocument_RePutKeepsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	store.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	first := newRecord("doc", "# Doc\ntext")
	created, err := store.PutDocument(first)
	require.NoError(t, err)
	require.True(t, created)

	second := newRecord("doc", "# Doc\ntext")
	created, err = store.PutDocument(second)
	require.NoError(t, err)
	assert.False(t, created)

	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	count, _ := store.Count()
	assert.Equal(t, 1, count)
}

func TestPutDocument_RequiresID(t *testing.T) {
	store := newTestStore(t)

	_, err := store.PutDocument(&models.DocumentRecord{Name: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, utils.ErrDatabase)

	_, err = store.PutDocument(nil)
	assert.Error(t, err)
}

func TestPutDocument_OverwritesCorruptRecord(t *testing.T) {
	store := newTestStore(t)
	record := newRecord("doc", "# Doc\ntext")

	require.NoError(t, store.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(docKeyPrefix+record.ID), []byte("{not json"))
	}))

	status, _, err := store.GetDocument(record.ID)
	assert.Equal(t, models.DocumentStatusDBError, status)
	assert.ErrorIs(t, err, utils.ErrParsing)

	created, err := store.PutDocument(record)
	require.NoError(t, err)
	assert.False(t, created)

	status, _, err = store.GetDocument(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFound, status)
}

func TestResolveID(t *testing.T) {
	store := newTestStore(t)
	record := newRecord("api-spec", "# API\nendpoints")
	_, err := store.PutDocument(record)
	require.NoError(t, err)

	tests := []struct {
		name string
		ref  string
	}{
		{"full id", record.ID},
		{"name", "api-spec"},
		{"id prefix", record.ID[:10]},
		{"padded name", "  api-spec "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := store.ResolveID(tt.ref)
			require.NoError(t, err)
			assert.Equal(t, record.ID, id)
		})
	}
}

func TestResolveID_NotFound(t *testing.T) {
	store := newTestStore(t)
	_, err := store.PutDocument(newRecord("a", "# A\nx"))
	require.NoError(t, err)

	for _, ref := range []string{"", "nope", "abc"} {
		_, err := store.ResolveID(ref)
		assert.ErrorIs(t, err, utils.ErrNotFound, "ref %q", ref)
	}
}

func TestPutDocument_RenameMovesNameIndex(t *testing.T) {
	store := newTestStore(t)
	record := newRecord("old-name", "# Doc\ntext")
	_, err := store.PutDocument(record)
	require.NoError(t, err)

	renamed := newRecord("new-name", "# Doc\ntext")
	_, err = store.PutDocument(renamed)
	require.NoError(t, err)

	_, err = store.ResolveID("old-name")
	assert.ErrorIs(t, err, utils.ErrNotFound)
	id, err := store.ResolveID("new-name")
	require.NoError(t, err)
	assert.Equal(t, record.ID, id)
}

func TestListDocuments(t *testing.T) {
	store := newTestStore(t)
	store.now = fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	older := newRecord("older", "# Older\nx")
	newer := newRecord("newer", "# Newer\ny\n# Newer\nz")
	_, err := store.PutDocument(older)
	require.NoError(t, err)
	_, err = store.PutDocument(newer)
	require.NoError(t, err)

	summaries, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, summaries, 2)

	assert.Equal(t, "newer", summaries[0].Name)
	assert.Equal(t, "older", summaries[1].Name)
	assert.Equal(t, 1, summaries[0].Warnings) // duplicate id "newer"
	assert.Equal(t, 2, summaries[0].Stats.SectionCount)
}

func TestListDocuments_Empty(t *testing.T) {
	store := newTestStore(t)

	summaries, err := store.ListDocuments(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, summaries)
	assert.Empty(t, summaries)
}

func TestListDocuments_Canceled(t *testing.T) {
	store := newTestStore(t)
	_, err := store.PutDocument(newRecord("a", "# A\nx"))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = store.ListDocuments(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDeleteDocument(t *testing.T) {
	store := newTestStore(t)
	record := newRecord("doc", "# Doc\ntext")
	_, err := store.PutDocument(record)
	require.NoError(t, err)

	deleted, err := store.DeleteDocument(record.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	status, _, err := store.GetDocument(record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusNotFound, status)

	_, err = store.ResolveID("doc")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	count, _ := store.Count()
	assert.Equal(t, 0, count)

	deleted, err = store.DeleteDocument(record.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestConcurrentPuts(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Half the writers share content, so ids collide
			md := fmt.Sprintf("# Doc %d\ntext", i%10)
			_, err := store.PutDocument(newRecord(fmt.Sprintf("doc-%d", i%10), md))
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	count, _ := store.Count()
	assert.Equal(t, 10, count)
}

func TestRunGC_StopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		store.RunGC(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RunGC did not stop after context cancellation")
	}
}

func TestClose_Idempotent(t *testing.T) {
	store, err := NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

var _ DocumentStore = (*BadgerStore)(nil)
