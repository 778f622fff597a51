package watch

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/config"
	"github.com/Sriram-PR/specdoc/pkg/ingest"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
	"github.com/Sriram-PR/specdoc/pkg/storage"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"1h", time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"7d", 7 * 24 * time.Hour, false},
		{"1d12h", 36 * time.Hour, false},
		{"invalid", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseInterval(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFormatInterval(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{30 * time.Second, "30s"},
		{5 * time.Minute, "5m"},
		{time.Hour, "1h"},
		{90 * time.Minute, "1h30m"},
		{24 * time.Hour, "1d"},
		{36 * time.Hour, "1d12h"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatInterval(tt.input))
		})
	}
}

func TestStateManager_RoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	sm := NewStateManager(tmpDir)
	require.NoError(t, sm.Load())

	assert.True(t, sm.ShouldRun("docs", time.Hour))

	sm.UpdateTargetState("docs", TargetState{LastRunSuccess: true, Sources: 3, Changed: 2, Unchanged: 1})
	assert.False(t, sm.ShouldRun("docs", time.Hour))
	assert.True(t, sm.ShouldRun("docs", 0))

	require.NoError(t, sm.Save())
	assert.FileExists(t, filepath.Join(tmpDir, stateFileName))

	sm2 := NewStateManager(tmpDir)
	require.NoError(t, sm2.Load())
	state, ok := sm2.TargetState("docs")
	require.True(t, ok)
	assert.Equal(t, 3, state.Sources)
	assert.Equal(t, 2, state.Changed)
	assert.False(t, state.LastRunTime.IsZero())
}

func TestStateManager_CorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, stateFileName), []byte("{not json"), 0644))

	err := NewStateManager(tmpDir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON")
}

func TestStateManager_NextRunTime(t *testing.T) {
	sm := NewStateManager(t.TempDir())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	sm.now = func() time.Time { return fixed }

	assert.Equal(t, fixed, sm.NextRunTime("new", time.Hour))

	sm.UpdateTargetState("old", TargetState{})
	assert.Equal(t, fixed.Add(time.Hour), sm.NextRunTime("old", time.Hour))
	assert.Len(t, sm.AllTargetStates(), 1)
}

func newTestScheduler(t *testing.T, targets []string) (*Scheduler, string) {
	t.Helper()
	stateDir := t.TempDir()
	store, err := storage.NewBadgerStore(stateDir, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := config.Default()
	loader := ingest.NewLoader(nil, cfg.MaxInputBytes, "", testLogger())
	structurer := orchestrate.NewStructurer(orchestrate.Options{Store: store, Loader: loader, NumWorkers: 2}, testLogger())
	return NewScheduler(structurer, cfg.Batch, stateDir, targets, time.Hour, testLogger()), stateDir
}

func TestScheduler_RunDue(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.md"), []byte("# A\nalpha\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.md"), []byte("# B\nbeta\n"), 0644))
	missing := filepath.Join(docs, "missing.md")

	s, stateDir := newTestScheduler(t, []string{docs, missing})

	ran := s.RunDue(context.Background())
	assert.Equal(t, []string{docs, missing}, ran)

	status := s.Status()
	assert.False(t, status[docs].NeverRun)
	assert.True(t, status[docs].State.LastRunSuccess)
	assert.Equal(t, 2, status[docs].State.Changed)
	assert.False(t, status[missing].State.LastRunSuccess)
	assert.Equal(t, 1, status[missing].State.Failed)
	assert.FileExists(t, filepath.Join(stateDir, stateFileName))

	// Nothing is due again within the interval
	assert.Empty(t, s.RunDue(context.Background()))
}

func TestScheduler_UnchangedContentIsSkipped(t *testing.T) {
	docs := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(docs, "a.md"), []byte("# A\nalpha\n"), 0644))

	s, _ := newTestScheduler(t, []string{docs})
	s.interval = 0

	s.RunDue(context.Background())
	require.NoError(t, os.WriteFile(filepath.Join(docs, "b.md"), []byte("# B\nnew\n"), 0644))
	s.RunDue(context.Background())

	state, ok := s.state.TargetState(docs)
	require.True(t, ok)
	assert.Equal(t, 2, state.Sources)
	assert.Equal(t, 1, state.Changed)
	assert.Equal(t, 1, state.Unchanged)
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	s, _ := newTestScheduler(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestCalculateTickInterval(t *testing.T) {
	s := &Scheduler{interval: 5 * time.Minute}
	assert.Equal(t, time.Minute, s.calculateTickInterval())
	s.interval = 30 * time.Minute
	assert.Equal(t, 3*time.Minute, s.calculateTickInterval())
	s.interval = 24 * time.Hour
	assert.Equal(t, 10*time.Minute, s.calculateTickInterval())
}
