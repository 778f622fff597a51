package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/Sriram-PR/specdoc/pkg/metrics"
	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/render"
	"github.com/Sriram-PR/specdoc/pkg/storage"
	"github.com/Sriram-PR/specdoc/pkg/structure"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

func runExport(args []string) int {
	c := newSourceCommand("export", "Write a per-document export directory: one file per section plus\nsections.jsonl, toc.txt, anchored.md and metadata.yaml.")
	name := c.fs.String("name", "", "Document name (defaults to one derived from the source)")
	outputDir := c.fs.String("output", "", "Base output directory (defaults to output_base_dir from config)")
	persist := c.fs.Bool("store", false, "Also save the document in the store")
	withChunks := c.fs.Bool("chunks", false, "Also write chunks.jsonl")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doExport(c.opts, src, *name, *outputDir, *persist, *withChunks, os.Stdin, os.Stdout, os.Stderr)
}

func doExport(opts *globalOptions, src, name, outputDir string, persist, withChunks bool, stdin io.Reader, stdout, stderr io.Writer) int {
	env, err := newEnv(opts, stdin, stderr)
	if err != nil {
		return printError(stderr, err)
	}

	var store storage.DocumentStore
	if persist {
		badgerStore, err := env.openStore()
		if err != nil {
			return printError(stderr, err)
		}
		defer badgerStore.Close()
		store = badgerStore
	}

	s := env.structurer(store, metrics.NoopRecorder{})
	ctx := context.Background()
	loaded, err := s.Loader().Load(ctx, src)
	if err != nil {
		return printError(stderr, err)
	}
	if name == "" {
		name = loaded.Name
	}
	record, _, err := s.Process(ctx, name, loaded.Source, loaded.Markdown)
	if err != nil {
		return printError(stderr, err)
	}

	if outputDir == "" {
		outputDir = env.cfg.OutputBaseDir
	}
	exporter := render.NewExporter(outputDir, env.component("export"))
	if withChunks {
		exporter.WithChunks(s.Chunk)
	}
	result, err := exporter.Export(record)
	if err != nil {
		return printError(stderr, err)
	}

	fmt.Fprintf(stdout, "Exported %s (%s) to %s\n", record.Name, utils.ShortHash(record.ID, 12), result.Dir)
	for _, f := range result.Files {
		fmt.Fprintf(stdout, "  %s\n", f)
	}
	return 0
}

func runStore(args []string) int {
	if len(args) == 0 {
		printStoreUsage(os.Stderr)
		return 2
	}
	switch args[0] {
	case "put":
		return runStorePut(args[1:])
	case "list":
		return runStoreList(args[1:])
	case "get":
		return runStoreGet(args[1:])
	case "delete":
		return runStoreDelete(args[1:])
	case "-h", "--help", "help":
		printStoreUsage(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown store command: %s\n\n", args[0])
		printStoreUsage(os.Stderr)
		return 2
	}
}

func printStoreUsage(w io.Writer) {
	fmt.Fprintln(w, `Usage: specdoc store <command> [options]

Commands:
  put <source>    Structure a source and save it
  list            List stored documents
  get <ref>       Show a stored document
  delete <ref>    Delete a stored document

A ref is a full document id, a unique id prefix, or a document name.`)
}

// storeFlagSet returns a flag set with the global flags and a usage line
func storeFlagSet(name, usage string) (*flag.FlagSet, *globalOptions) {
	fs := flag.NewFlagSet("store "+name, flag.ExitOnError)
	opts := addGlobalFlags(fs)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: specdoc store %s\n\nOptions:\n", usage)
		fs.PrintDefaults()
	}
	return fs, opts
}

// openEnvStore builds the environment and opens the store. The caller closes it.
func openEnvStore(opts *globalOptions, stdin io.Reader, stderr io.Writer) (*appEnv, *storage.BadgerStore, error) {
	env, err := newEnv(opts, stdin, stderr)
	if err != nil {
		return nil, nil, err
	}
	store, err := env.openStore()
	if err != nil {
		return nil, nil, err
	}
	return env, store, nil
}

// lookupRecord resolves ref and reads the record
func lookupRecord(store storage.DocumentReader, ref string) (*models.DocumentRecord, error) {
	id, err := store.ResolveID(ref)
	if err != nil {
		return nil, err
	}
	status, record, err := store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	if status != models.DocumentStatusFound || record == nil {
		return nil, fmt.Errorf("%w: document '%s'", utils.ErrNotFound, ref)
	}
	return record, nil
}

func runStorePut(args []string) int {
	fs, opts := storeFlagSet("put", "put [options] [source]")
	name := fs.String("name", "", "Document name (defaults to one derived from the source)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	src, ok := sourceArg(fs, os.Stderr)
	if !ok {
		return 2
	}
	return doStorePut(opts, src, *name, os.Stdin, os.Stdout, os.Stderr)
}

func doStorePut(opts *globalOptions, src, name string, stdin io.Reader, stdout, stderr io.Writer) int {
	env, store, err := openEnvStore(opts, stdin, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer store.Close()

	s := env.structurer(store, metrics.NoopRecorder{})
	ctx := context.Background()
	loaded, err := s.Loader().Load(ctx, src)
	if err != nil {
		return printError(stderr, err)
	}
	if name == "" {
		name = loaded.Name
	}
	record, created, err := s.Process(ctx, name, loaded.Source, loaded.Markdown)
	if err != nil {
		return printError(stderr, err)
	}

	verb := "Stored"
	if !created {
		verb = "Unchanged"
	}
	fmt.Fprintf(stdout, "%s %s %s (headings=%d sections=%d tokens=%d warnings=%d)\n",
		verb, record.ID, record.Name, record.Stats.HeadingCount, record.Stats.SectionCount,
		record.Stats.TokenCount, len(record.Report.Warnings()))
	return 0
}

func runStoreList(args []string) int {
	fs, opts := storeFlagSet("list", "list [options]")
	format := fs.String("format", "text", "Output format: text, json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	return doStoreList(opts, *format, os.Stdout, os.Stderr)
}

func doStoreList(opts *globalOptions, format string, stdout, stderr io.Writer) int {
	_, store, err := openEnvStore(opts, nil, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer store.Close()

	docs, err := store.ListDocuments(context.Background())
	if err != nil {
		return printError(stderr, err)
	}

	switch format {
	case "text", "":
		if len(docs) == 0 {
			fmt.Fprintln(stdout, "No documents stored.")
			return 0
		}
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tSECTIONS\tTOKENS\tWARNINGS\tUPDATED")
		for _, d := range docs {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", utils.ShortHash(d.ID, 12), d.Name,
				d.Stats.SectionCount, d.Stats.TokenCount, d.Warnings, d.UpdatedAt.Format(time.RFC3339))
		}
		if err := tw.Flush(); err != nil {
			return printError(stderr, err)
		}
	case "json", "yaml":
		if docs == nil {
			docs = []models.DocumentSummary{}
		}
		if err := writeValue(stdout, format, docs); err != nil {
			return printError(stderr, err)
		}
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: text, json, yaml)\n", format)
		return 2
	}
	return 0
}

func runStoreGet(args []string) int {
	fs, opts := storeFlagSet("get", "get [options] <ref>")
	include := fs.String("include", "summary", "What to show: summary, toc, sections, markdown, anchored or all")
	format := fs.String("format", "json", "Output format for summary, sections and all: json or yaml")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	return doStoreGet(opts, fs.Arg(0), *include, *format, os.Stdout, os.Stderr)
}

func doStoreGet(opts *globalOptions, ref, include, format string, stdout, stderr io.Writer) int {
	_, store, err := openEnvStore(opts, nil, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer store.Close()

	record, err := lookupRecord(store, ref)
	if err != nil {
		return printError(stderr, err)
	}

	switch include {
	case "summary", "":
		err = writeValue(stdout, format, map[string]interface{}{
			"summary":  record.Summary(),
			"warnings": record.Report.Warnings(),
		})
	case "toc":
		err = render.WriteTOCTree(stdout, record.Name, record.Document.TOC)
	case "sections":
		err = writeValue(stdout, format, record.Document.Sections)
	case "markdown":
		_, err = io.WriteString(stdout, record.Markdown)
	case "anchored":
		_, err = io.WriteString(stdout, structure.AddHeadingIDs(record.Markdown))
	case "all":
		err = writeValue(stdout, format, record)
	default:
		fmt.Fprintf(stderr, "Error: unknown include '%s' (supported: summary, toc, sections, markdown, anchored, all)\n", include)
		return 2
	}
	if err != nil {
		return printError(stderr, err)
	}
	return 0
}

func runStoreDelete(args []string) int {
	fs, opts := storeFlagSet("delete", "delete [options] <ref>")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	return doStoreDelete(opts, fs.Arg(0), os.Stdout, os.Stderr)
}

func doStoreDelete(opts *globalOptions, ref string, stdout, stderr io.Writer) int {
	_, store, err := openEnvStore(opts, nil, stderr)
	if err != nil {
		return printError(stderr, err)
	}
	defer store.Close()

	id, err := store.ResolveID(ref)
	if err != nil {
		return printError(stderr, err)
	}
	deleted, err := store.DeleteDocument(id)
	if err != nil {
		return printError(stderr, err)
	}
	if !deleted {
		return printError(stderr, fmt.Errorf("%w: document '%s'", utils.ErrNotFound, ref))
	}
	fmt.Fprintf(stdout, "Deleted %s\n", id)
	return 0
}
