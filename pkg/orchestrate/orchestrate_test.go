package orchestrate

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/metrics"
	"github.com/Sriram-PR/specdoc/pkg/storage"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

// countingRecorder records calls for assertions
type countingRecorder struct {
	metrics.NoopRecorder
	mu       sync.Mutex
	results  map[metrics.ResultLabel]int
	errors   map[string]int
	sections []int
	chunks   int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{
		results: make(map[metrics.ResultLabel]int),
		errors:  make(map[string]int),
	}
}

func (r *countingRecorder) IncDocumentResult(result metrics.ResultLabel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[result]++
}

func (r *countingRecorder) IncSourceError(category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors[category]++
}

func (r *countingRecorder) ObserveSections(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sections = append(r.sections, n)
}

func (r *countingRecorder) AddChunks(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks += n
}

func newTestStore(t *testing.T) *storage.BadgerStore {
	t.Helper()
	store, err := storage.NewBadgerStore(t.TempDir(), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}
