package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Sriram-PR/specdoc/pkg/ingest"
	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
	"github.com/Sriram-PR/specdoc/pkg/render"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// batchOptions holds the batch flags
type batchOptions struct {
	Export bool
	Chunks bool
	Format string
}

func runBatch(args []string) int {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	opts := addGlobalFlags(fs)
	bopts := batchOptions{}
	fs.BoolVar(&bopts.Export, "export", false, "Also export every structured document below output_base_dir")
	fs.BoolVar(&bopts.Chunks, "chunks", false, "With -export, also write chunks.jsonl")
	fs.StringVar(&bopts.Format, "format", "text", "Result output format: text or json")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: specdoc batch [options] <directory | source...>

Structure many sources concurrently (num_workers at a time) and save them in the store.
A single directory argument is walked for files matching batch.include_extensions,
skipping paths that match batch.exclude_patterns. Unchanged documents are reported
as skipped.

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
	return doBatch(opts, fs.Args(), bopts, os.Stdout, os.Stderr)
}

// doBatch is the testable implementation of the batch command.
// Returns 1 when any source failed.
func doBatch(opts *globalOptions, targets []string, bopts batchOptions, stdout, stderr io.Writer) int {
	if bopts.Format != "text" && bopts.Format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: text, json)\n", bopts.Format)
		return 2
	}
	env, err := newEnv(opts, nil, stderr)
	if err != nil {
		return printError(stderr, err)
	}

	sources := ingest.DedupeSources(targets)
	if len(targets) == 1 {
		if info, statErr := os.Stat(targets[0]); statErr == nil && info.IsDir() {
			sources, err = orchestrate.CollectSources(targets[0], env.cfg.Batch)
			if err != nil {
				return printError(stderr, err)
			}
			env.log.Infof("Found %d sources in %s", len(sources), targets[0])
		}
	}
	if len(sources) == 0 {
		fmt.Fprintln(stdout, "No sources to structure.")
		return 0
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

	s := env.structurer(store, recorder)
	results := s.ProcessSources(ctx, sources)

	if bopts.Export {
		exporter := render.NewExporter(env.cfg.OutputBaseDir, env.component("export"))
		if bopts.Chunks {
			exporter.WithChunks(s.Chunk)
		}
		for i, r := range results {
			if r.Status == models.ResultStatusFailure {
				continue
			}
			record, err := lookupRecord(store, r.ID)
			if err == nil {
				_, err = exporter.Export(record)
			}
			if err != nil {
				results[i].Status = models.ResultStatusFailure
				results[i].Err = err
				results[i].Error = err.Error()
				results[i].ErrorCategory = utils.CategorizeError(err)
			}
		}
	}

	if err := writeBatchResults(stdout, bopts.Format, results); err != nil {
		return printError(stderr, err)
	}

	if _, _, failed := orchestrate.Summarize(results); failed > 0 {
		return 1
	}
	return 0
}

func writeBatchResults(w io.Writer, format string, results []orchestrate.Result) error {
	if format == "json" {
		return writeValue(w, "json", results)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STATUS\tSOURCE\tID\tSECTIONS\tWARNINGS\tERROR")
	for _, r := range results {
		errText := ""
		if r.Error != "" {
			errText = fmt.Sprintf("[%s] %s", r.ErrorCategory, r.Error)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", r.Status, r.Source, utils.ShortHash(r.ID, 12),
			r.Stats.SectionCount, r.Warnings, errText)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	success, skipped, failed := orchestrate.Summarize(results)
	_, err := fmt.Fprintf(w, "\n%d sources: %d structured, %d unchanged, %d failed\n", len(results), success, skipped, failed)
	return err
}
