package orchestrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/process"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

const guide = "# Guide\nintro\n## Install\nsteps\n### Linux\napt\n# Guide\nagain\n"

func TestProcess_WithoutStore(t *testing.T) {
	rec := newCountingRecorder()
	s := NewStructurer(Options{Recorder: rec}, testLogger())

	record, created, err := s.Process(context.Background(), "", "docs/guide.md", guide)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, utils.CalculateStringSHA256(guide), record.ID)
	assert.Equal(t, record.ID, record.ContentHash)
	assert.Equal(t, "guide", record.Name)
	assert.Equal(t, "docs/guide.md", record.Source)
	assert.Equal(t, 4, record.Stats.HeadingCount)
	assert.Equal(t, 3, record.Stats.SectionCount)
	assert.Equal(t, 2, record.Stats.TOCRoots)
	assert.Greater(t, record.Stats.TokenCount, 0)

	require.Len(t, record.Report.DuplicateIDs, 1)
	assert.Equal(t, "guide", record.Report.DuplicateIDs[0].ID)
	assert.Equal(t, []int{3}, rec.sections)
}

func TestProcess_StoresAndDetectsUnchanged(t *testing.T) {
	store := newTestStore(t)
	s := NewStructurer(Options{Store: store}, testLogger())
	ctx := context.Background()

	first, created, err := s.Process(ctx, "guide", "guide.md", guide)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := s.Process(ctx, "guide", "guide.md", guide)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	status, stored, err := store.GetDocument(first.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocumentStatusFound, status)
	assert.Equal(t, first.Document, stored.Document)

	count, err := store.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestProcess_CancelledContext(t *testing.T) {
	s := NewStructurer(Options{}, testLogger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := s.Process(ctx, "x", "x.md", "# X\ny")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcess_EmptyMarkdown(t *testing.T) {
	s := NewStructurer(Options{}, testLogger())

	record, _, err := s.Process(context.Background(), "empty", "-", "")
	require.NoError(t, err)
	assert.Empty(t, record.Document.Sections)
	assert.Empty(t, record.Document.TOC)
	assert.Equal(t, models.DocumentStats{}, record.Stats)
}

func TestChunk_RecordsChunkCount(t *testing.T) {
	rec := newCountingRecorder()
	s := NewStructurer(Options{
		Recorder: rec,
		Chunking: process.ChunkerConfig{MaxChunkSize: 512, ChunkOverlap: 0},
	}, testLogger())

	record, _, err := s.Process(context.Background(), "g", "g.md", guide)
	require.NoError(t, err)

	chunks, err := s.Chunk(record.Document.Sections)
	require.NoError(t, err)
	assert.Len(t, chunks, len(record.Document.Sections))
	assert.Equal(t, len(chunks), rec.chunks)
	assert.Equal(t, "guide", chunks[0].SectionID)
}
