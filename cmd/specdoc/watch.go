package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/Sriram-PR/specdoc/pkg/watch"
)

func runWatch(args []string) int {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	opts := addGlobalFlags(fs)
	interval := fs.String("interval", "1h", "How often to re-structure each target (e.g. 30m, 24h, 7d)")
	once := fs.Bool("once", false, "Run due targets once, print their status and exit")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: specdoc watch [options] <directory | source...>

Re-structure each target into the store whenever the interval has elapsed.
Unchanged documents are skipped. Last run times are kept in state_dir, so
a restarted watcher only runs targets that are due.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}
	return doWatch(opts, fs.Args(), *interval, *once, os.Stdout, os.Stderr)
}

// doWatch is the testable implementation of the watch command
func doWatch(opts *globalOptions, targets []string, intervalStr string, once bool, stdout, stderr io.Writer) int {
	interval, err := watch.ParseInterval(intervalStr)
	if err != nil || interval <= 0 {
		fmt.Fprintf(stderr, "Error: invalid -interval '%s'\n", intervalStr)
		return 2
	}

	env, err := newEnv(opts, nil, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	recorder, stopMetrics := env.startMetrics()
	defer stopMetrics()

	store, err := env.openStore()
	if err != nil {
		return printError(stderr, err)
	}
	defer store.Close()

	ctx, stop := signalContext(env.log)
	defer stop()

	scheduler := watch.NewScheduler(env.structurer(store, recorder), env.cfg.Batch, env.cfg.StateDir,
		targets, interval, env.component("watch"))

	if !once {
		go store.RunGC(ctx, env.cfg.GCInterval)
		if err := scheduler.Run(ctx); err != nil {
			return printError(stderr, err)
		}
		return 0
	}

	if err := scheduler.LoadState(); err != nil {
		env.log.Warnf("Failed to load watch state: %v (starting fresh)", err)
	}
	scheduler.RunDue(ctx)
	return writeWatchStatus(stdout, scheduler.Status())
}

func writeWatchStatus(w io.Writer, status map[string]watch.TargetStatus) int {
	targets := make([]string, 0, len(status))
	for t := range status {
		targets = append(targets, t)
	}
	sort.Strings(targets)

	exitCode := 0
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tLAST RUN\tSOURCES\tCHANGED\tUNCHANGED\tFAILED\tNEXT RUN")
	for _, t := range targets {
		st := status[t]
		lastRun := "never"
		if !st.NeverRun {
			lastRun = st.State.LastRunTime.Format(time.RFC3339)
			if !st.State.LastRunSuccess {
				exitCode = 1
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n", t, lastRun, st.State.Sources, st.State.Changed,
			st.State.Unchanged, st.State.Failed, st.NextRunTime.Format(time.RFC3339))
	}
	_ = tw.Flush()
	return exitCode
}
