// Package watch re-structures directories and sources on an interval.
// Unchanged content is skipped by the store, so a pass only rewrites what changed.
package watch

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/config"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
)

// Scheduler runs a batch over each target whenever its interval has elapsed
type Scheduler struct {
	structurer *orchestrate.Structurer
	batch      config.BatchConfig
	targets    []string
	interval   time.Duration
	log        *logrus.Entry
	state      *StateManager
}

// NewScheduler creates a scheduler. State is kept in stateDir.
func NewScheduler(structurer *orchestrate.Structurer, batch config.BatchConfig, stateDir string, targets []string, interval time.Duration, log *logrus.Entry) *Scheduler {
	return &Scheduler{
		structurer: structurer,
		batch:      batch,
		targets:    targets,
		interval:   interval,
		log:        log,
		state:      NewStateManager(stateDir),
	}
}

// LoadState reads the saved run times
func (s *Scheduler) LoadState() error {
	return s.state.Load()
}

// Run loads saved state, runs due targets, then checks again on every tick
// until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	if err := s.LoadState(); err != nil {
		s.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}

	s.log.Infof("Starting watch mode for %d targets with interval %v", len(s.targets), FormatInterval(s.interval))
	s.logSchedule()
	s.RunDue(ctx)

	ticker := time.NewTicker(s.calculateTickInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Watch scheduler shutting down...")
			return nil
		case <-ticker.C:
			s.RunDue(ctx)
		}
	}
}

// RunDue structures every target that is due, saves state and returns the
// targets that ran. Targets run one after another; sources within a target
// run concurrently.
func (s *Scheduler) RunDue(ctx context.Context) []string {
	due := s.dueTargets()
	if len(due) == 0 {
		s.logNextRun()
		return nil
	}

	s.log.Infof("Running %d due targets: %v", len(due), due)
	for _, target := range due {
		if ctx.Err() != nil {
			break
		}
		s.state.UpdateTargetState(target, s.runTarget(ctx, target))
	}

	if err := s.state.Save(); err != nil {
		s.log.Errorf("Failed to save watch state: %v", err)
	}
	s.logNextRun()
	return due
}

func (s *Scheduler) runTarget(ctx context.Context, target string) TargetState {
	targetLog := s.log.WithField("target", target)

	sources, err := s.sourcesFor(target)
	if err != nil {
		targetLog.Errorf("Cannot list sources: %v", err)
		return TargetState{ErrorMessage: err.Error()}
	}

	results := s.structurer.ProcessSources(ctx, sources)
	changed, unchanged, failed := orchestrate.Summarize(results)
	state := TargetState{
		LastRunSuccess: failed == 0,
		Sources:        len(sources),
		Changed:        changed,
		Unchanged:      unchanged,
		Failed:         failed,
	}
	if failed > 0 {
		state.ErrorMessage = fmt.Sprintf("%d of %d sources failed", failed, len(sources))
	}
	targetLog.Infof("Pass finished: %d changed, %d unchanged, %d failed", changed, unchanged, failed)
	return state
}

// sourcesFor walks a directory target, or returns a single source as is
func (s *Scheduler) sourcesFor(target string) ([]string, error) {
	if info, err := os.Stat(target); err == nil && info.IsDir() {
		return orchestrate.CollectSources(target, s.batch)
	}
	return []string{target}, nil
}

func (s *Scheduler) dueTargets() []string {
	var due []string
	for _, target := range s.targets {
		if s.state.ShouldRun(target, s.interval) {
			due = append(due, target)
		}
	}
	return due
}

// calculateTickInterval checks every tenth of the interval, clamped to [1m, 10m]
func (s *Scheduler) calculateTickInterval() time.Duration {
	checkInterval := s.interval / 10
	if checkInterval < time.Minute {
		checkInterval = time.Minute
	}
	if checkInterval > 10*time.Minute {
		checkInterval = 10 * time.Minute
	}
	return checkInterval
}

func (s *Scheduler) logSchedule() {
	s.log.Info("Watch schedule:")
	for _, target := range s.targets {
		state, exists := s.state.TargetState(target)
		if !exists {
			s.log.Infof("  %s: never run, will run immediately", target)
			continue
		}
		status := "success"
		if !state.LastRunSuccess {
			status = "failed"
		}
		s.log.Infof("  %s: last run %v (%s, %d sources), next run %v",
			target,
			state.LastRunTime.Format(time.RFC3339),
			status,
			state.Sources,
			s.state.NextRunTime(target, s.interval).Format(time.RFC3339))
	}
}

func (s *Scheduler) logNextRun() {
	if len(s.targets) == 0 {
		return
	}
	targets := append([]string(nil), s.targets...)
	sort.Slice(targets, func(i, j int) bool {
		return s.state.NextRunTime(targets[i], s.interval).Before(s.state.NextRunTime(targets[j], s.interval))
	})

	next := s.state.NextRunTime(targets[0], s.interval)
	until := time.Until(next)
	if until < 0 {
		until = 0
	}
	s.log.Infof("Next pass: %s in %v (at %s)", targets[0], until.Round(time.Second), next.Format("15:04:05"))
}

// TargetStatus is the reported status of a watched target
type TargetStatus struct {
	Target      string
	State       TargetState
	NextRunTime time.Time
	NeverRun    bool
}

// Status returns the status of every watched target
func (s *Scheduler) Status() map[string]TargetStatus {
	status := make(map[string]TargetStatus, len(s.targets))
	for _, target := range s.targets {
		state, exists := s.state.TargetState(target)
		status[target] = TargetStatus{
			Target:      target,
			State:       state,
			NextRunTime: s.state.NextRunTime(target, s.interval),
			NeverRun:    !exists,
		}
	}
	return status
}

// FormatInterval formats a duration for display
func FormatInterval(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins > 0 {
			return fmt.Sprintf("%dh%dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	if hours > 0 {
		return fmt.Sprintf("%dd%dh", days, hours)
	}
	return fmt.Sprintf("%dd", days)
}

// ParseInterval parses a duration, also accepting a leading day count ("7d", "1d12h")
func ParseInterval(s string) (time.Duration, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}

	var days int
	var remaining string
	n, _ := fmt.Sscanf(s, "%dd%s", &days, &remaining)
	if n >= 1 {
		d := time.Duration(days) * 24 * time.Hour
		if remaining != "" {
			extra, err := time.ParseDuration(remaining)
			if err != nil {
				return 0, fmt.Errorf("invalid interval format: %s", s)
			}
			d += extra
		}
		return d, nil
	}

	return 0, fmt.Errorf("invalid interval format: %s (examples: 30m, 1h, 24h, 7d)", s)
}
