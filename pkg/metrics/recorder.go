// Package metrics records structuring activity. Components take a Recorder and
// default to NoopRecorder; the Prometheus implementation is swapped in when a
// metrics address is configured.
package metrics

import "time"

// ResultLabel enumerates per-source outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailure ResultLabel = "failure"
	ResultSkipped ResultLabel = "skipped"
)

// Recorder defines observability hooks for structuring runs.
type Recorder interface {
	ObserveStageDuration(stage string, d time.Duration) // stage: load|parse|inspect|store|export
	IncDocumentResult(result ResultLabel)
	IncSourceError(category string) // category from utils.CategorizeError
	ObserveSections(n int)
	AddChunks(n int)
	SetBatchConcurrency(n int)
}

// NoopRecorder is a Recorder that does nothing (default when metrics not configured).
type NoopRecorder struct{}

func (NoopRecorder) ObserveStageDuration(string, time.Duration) {}
func (NoopRecorder) IncDocumentResult(ResultLabel)              {}
func (NoopRecorder) IncSourceError(string)                      {}
func (NoopRecorder) ObserveSections(int)                        {}
func (NoopRecorder) AddChunks(int)                              {}
func (NoopRecorder) SetBatchConcurrency(int)                    {}
