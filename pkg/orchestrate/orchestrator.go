package orchestrate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Sriram-PR/specdoc/pkg/metrics"
	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// Result contains the outcome of structuring a single source
type Result struct {
	Source        string               `json:"source"`
	Name          string               `json:"name,omitempty"`
	Status        models.ResultStatus  `json:"status"`
	ID            string               `json:"id,omitempty"`
	Stats         models.DocumentStats `json:"stats"`
	Warnings      int                  `json:"warnings"`
	Error         string               `json:"error,omitempty"`
	ErrorCategory string               `json:"error_category,omitempty"`
	Duration      time.Duration        `json:"duration"`
	Err           error                `json:"-"`
}

// ProcessSource loads src and structures it
func (s *Structurer) ProcessSource(ctx context.Context, src string) Result {
	startTime := time.Now()
	result := Result{Source: src}

	if s.loader == nil {
		return s.fail(result, fmt.Errorf("%w: no loader configured", utils.ErrUnsupportedSource), startTime)
	}

	loadStart := time.Now()
	loaded, err := s.loader.Load(ctx, src)
	s.recorder.ObserveStageDuration("load", time.Since(loadStart))
	if err != nil {
		return s.fail(result, err, startTime)
	}
	result.Name = loaded.Name

	record, created, err := s.Process(ctx, loaded.Name, loaded.Source, loaded.Markdown)
	if err != nil {
		return s.fail(result, err, startTime)
	}

	result.ID = record.ID
	result.Stats = record.Stats
	result.Warnings = len(record.Report.Warnings())
	result.Status = models.ResultStatusSuccess
	if !created {
		result.Status = models.ResultStatusSkipped
	}
	result.Duration = time.Since(startTime)
	s.recorder.IncDocumentResult(metrics.ResultLabel(result.Status))
	return result
}

func (s *Structurer) fail(result Result, err error, startTime time.Time) Result {
	result.Status = models.ResultStatusFailure
	result.Err = err
	result.Error = err.Error()
	result.ErrorCategory = utils.CategorizeError(err)
	result.Duration = time.Since(startTime)
	s.recorder.IncDocumentResult(metrics.ResultFailure)
	s.recorder.IncSourceError(result.ErrorCategory)
	s.log.WithFields(logrus.Fields{"source": result.Source, "category": result.ErrorCategory}).Errorf("Failed to structure source: %v", err)
	return result
}

// ProgressFunc is called once per finished source with the number finished so far.
// It runs on worker goroutines.
type ProgressFunc func(done int, result Result)

// ProcessSources structures every source concurrently, at most NumWorkers at a
// time. One failing source never aborts the others. Results keep input order.
func (s *Structurer) ProcessSources(ctx context.Context, sources []string) []Result {
	return s.ProcessSourcesWithProgress(ctx, sources, nil)
}

// ProcessSourcesWithProgress is ProcessSources reporting each finished source to progress.
func (s *Structurer) ProcessSourcesWithProgress(ctx context.Context, sources []string, progress ProgressFunc) []Result {
	startTime := time.Now()
	results := make([]Result, len(sources))
	if len(sources) == 0 {
		return results
	}
	s.log.Infof("Structuring %d sources with %d workers", len(sources), s.numWorkers)
	s.recorder.SetBatchConcurrency(s.numWorkers)

	sem := semaphore.NewWeighted(int64(s.numWorkers))
	var wg sync.WaitGroup
	var done atomic.Int64
	report := func(r Result) {
		n := done.Add(1)
		if progress != nil {
			progress(int(n), r)
		}
	}

	for i, src := range sources {
		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(sources); j++ {
				results[j] = s.fail(Result{Source: sources[j]}, err, time.Now())
				report(results[j])
			}
			break
		}
		wg.Add(1)
		go func(idx int, source string) {
			defer wg.Done()
			defer sem.Release(1)
			results[idx] = s.ProcessSource(ctx, source)
			report(results[idx])
		}(i, src)
	}

	wg.Wait()
	s.logSummary(results, time.Since(startTime))
	return results
}

// Summarize counts results per status
func Summarize(results []Result) (success, skipped, failed int) {
	for _, r := range results {
		switch r.Status {
		case models.ResultStatusSuccess:
			success++
		case models.ResultStatusSkipped:
			skipped++
		default:
			failed++
		}
	}
	return success, skipped, failed
}

// logSummary logs a summary of all batch results
func (s *Structurer) logSummary(results []Result, totalDuration time.Duration) {
	s.log.Info("============================================")
	s.log.Infof("Batch completed in %v", totalDuration)

	for _, r := range results {
		s.log.Debugf("  %s: %s (%d sections) in %v", r.Source, r.Status, r.Stats.SectionCount, r.Duration)
		if r.Err != nil {
			s.log.Infof("  %s: %s [%s] %v", r.Source, r.Status, r.ErrorCategory, r.Err)
		}
	}

	success, skipped, failed := Summarize(results)
	s.log.Info("--------------------------------------------")
	s.log.Infof("Total: %d sources (%d success, %d unchanged, %d failed)", len(results), success, skipped, failed)
	s.log.Info("============================================")
}
