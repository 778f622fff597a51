package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/Sriram-PR/specdoc/pkg/ingest"
	"github.com/Sriram-PR/specdoc/pkg/process"
	"github.com/Sriram-PR/specdoc/pkg/render"
	"github.com/Sriram-PR/specdoc/pkg/structure"
)

// sourceCommand is the flag set shared by commands that read one source
type sourceCommand struct {
	fs   *flag.FlagSet
	opts *globalOptions
}

func newSourceCommand(name, summary string) *sourceCommand {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &sourceCommand{fs: fs, opts: addGlobalFlags(fs)}
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: specdoc %s [options] [source]\n\n%s\nSource defaults to stdin.\n\nOptions:\n", name, summary)
		fs.PrintDefaults()
	}
	return c
}

// parse parses args and returns the source, or a non-zero exit code
func (c *sourceCommand) parse(args []string) (string, int) {
	if err := c.fs.Parse(args); err != nil {
		return "", 2
	}
	src, ok := sourceArg(c.fs, os.Stderr)
	if !ok {
		c.fs.Usage()
		return "", 2
	}
	return src, 0
}

// loadSource builds the environment and loads src as Markdown
func loadSource(opts *globalOptions, src string, stdin io.Reader, stderr io.Writer) (*appEnv, *ingest.Loaded, int) {
	env, err := newEnv(opts, stdin, stderr)
	if err != nil {
		return nil, nil, printError(stderr, err)
	}
	loaded, err := env.loader().Load(context.Background(), src)
	if err != nil {
		return nil, nil, printError(stderr, err)
	}
	return env, loaded, 0
}

func runParse(args []string) int {
	c := newSourceCommand("parse", "Print the table of contents, sections and headings of a document.")
	format := c.fs.String("format", "json", "Output format: json or yaml")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doParse(c.opts, src, *format, os.Stdin, os.Stdout, os.Stderr)
}

func doParse(opts *globalOptions, src, format string, stdin io.Reader, stdout, stderr io.Writer) int {
	_, loaded, code := loadSource(opts, src, stdin, stderr)
	if code != 0 {
		return code
	}
	if err := writeValue(stdout, format, structure.ParseMarkdownDocument(loaded.Markdown)); err != nil {
		return printError(stderr, err)
	}
	return 0
}

func runTOC(args []string) int {
	c := newSourceCommand("toc", "Print the table of contents of a document.")
	format := c.fs.String("format", "tree", "Output format: tree, markdown, json or flat (json list in document order)")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doTOC(c.opts, src, *format, os.Stdin, os.Stdout, os.Stderr)
}

func doTOC(opts *globalOptions, src, format string, stdin io.Reader, stdout, stderr io.Writer) int {
	_, loaded, code := loadSource(opts, src, stdin, stderr)
	if code != 0 {
		return code
	}
	toc := structure.BuildTOC(structure.ExtractHeadings(loaded.Markdown))

	var err error
	switch format {
	case "tree", "":
		err = render.WriteTOCTree(stdout, loaded.Name, toc)
	case "markdown", "md":
		err = render.WriteTOCMarkdown(stdout, toc)
	case "json":
		err = writeValue(stdout, "json", toc)
	case "flat":
		err = writeValue(stdout, "json", structure.FlattenTOC(toc))
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: tree, markdown, json, flat)\n", format)
		return 2
	}
	if err != nil {
		return printError(stderr, err)
	}
	return 0
}

func runSections(args []string) int {
	c := newSourceCommand("sections", "Print the sections of a document.")
	format := c.fs.String("format", "text", "Output format: text, json or jsonl")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doSections(c.opts, src, *format, os.Stdin, os.Stdout, os.Stderr)
}

func doSections(opts *globalOptions, src, format string, stdin io.Reader, stdout, stderr io.Writer) int {
	env, loaded, code := loadSource(opts, src, stdin, stderr)
	if code != 0 {
		return code
	}
	sections := structure.SplitIntoSections(loaded.Markdown)

	var err error
	switch format {
	case "text", "":
		counter := env.tokenCounter()
		tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "#\tLEVEL\tID\tTITLE\tTOKENS")
		for i, s := range sections {
			fmt.Fprintf(tw, "%d\tH%d\t%s\t%s\t%d\n", i+1, s.Level, s.ID, s.Title, counter.Count(s.Content))
		}
		err = tw.Flush()
	case "json":
		err = writeValue(stdout, "json", sections)
	case "jsonl":
		err = writeJSONLines(stdout, sections)
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: text, json, jsonl)\n", format)
		return 2
	}
	if err != nil {
		return printError(stderr, err)
	}
	return 0
}

func runAnchors(args []string) int {
	c := newSourceCommand("anchors", "Print the document with a {#id} anchor appended to every heading.")
	output := c.fs.String("o", "", "Write to this file instead of stdout")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doAnchors(c.opts, src, *output, os.Stdin, os.Stdout, os.Stderr)
}

func doAnchors(opts *globalOptions, src, output string, stdin io.Reader, stdout, stderr io.Writer) int {
	env, loaded, code := loadSource(opts, src, stdin, stderr)
	if code != 0 {
		return code
	}
	anchored := structure.AddHeadingIDs(loaded.Markdown)
	if output == "" {
		fmt.Fprint(stdout, anchored)
		return 0
	}
	if err := os.WriteFile(output, []byte(anchored), 0644); err != nil {
		return printError(stderr, err)
	}
	env.log.Infof("Wrote anchored Markdown to %s", output)
	return 0
}

func runInspect(args []string) int {
	c := newSourceCommand("inspect", "Report duplicate ids, empty ids and headings the line rule disagrees with CommonMark on.")
	format := c.fs.String("format", "text", "Output format: text, json or yaml")
	strict := c.fs.Bool("strict", false, "Exit with status 1 when any issue is found")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doInspect(c.opts, src, *format, *strict, os.Stdin, os.Stdout, os.Stderr)
}

func doInspect(opts *globalOptions, src, format string, strict bool, stdin io.Reader, stdout, stderr io.Writer) int {
	_, loaded, code := loadSource(opts, src, stdin, stderr)
	if code != 0 {
		return code
	}
	report := structure.Inspect(loaded.Markdown)

	switch format {
	case "text", "":
		warnings := report.Warnings()
		for _, w := range warnings {
			fmt.Fprintf(stdout, "WARN: %s\n", w)
		}
		if len(warnings) == 0 {
			fmt.Fprintln(stdout, "OK: no heading issues found")
		}
	case "json", "yaml":
		if err := writeValue(stdout, format, report); err != nil {
			return printError(stderr, err)
		}
	default:
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: text, json, yaml)\n", format)
		return 2
	}

	if strict && !report.Clean() {
		return 1
	}
	return 0
}

func runChunk(args []string) int {
	c := newSourceCommand("chunk", "Split the sections of a document into token-bounded chunks.")
	maxTokens := c.fs.Int("max-tokens", 0, "Maximum chunk size in tokens (0 = chunking.max_chunk_size from config)")
	overlap := c.fs.Int("overlap", -1, "Overlap between chunks in tokens (-1 = chunking.chunk_overlap from config)")
	format := c.fs.String("format", "jsonl", "Output format: jsonl or json")
	src, code := c.parse(args)
	if code != 0 {
		return code
	}
	return doChunk(c.opts, src, *maxTokens, *overlap, *format, os.Stdin, os.Stdout, os.Stderr)
}

func doChunk(opts *globalOptions, src string, maxTokens, overlap int, format string, stdin io.Reader, stdout, stderr io.Writer) int {
	if format != "jsonl" && format != "json" {
		fmt.Fprintf(stderr, "Error: unknown format '%s' (supported: jsonl, json)\n", format)
		return 2
	}
	env, loaded, code := loadSource(opts, src, stdin, stderr)
	if code != 0 {
		return code
	}

	cfg := process.ChunkerConfig{
		MaxChunkSize: env.cfg.Chunking.MaxChunkSize,
		ChunkOverlap: env.cfg.Chunking.ChunkOverlap,
	}
	if maxTokens > 0 {
		cfg.MaxChunkSize = maxTokens
	}
	if overlap >= 0 {
		cfg.ChunkOverlap = overlap
	}

	chunks, err := process.ChunkSections(structure.SplitIntoSections(loaded.Markdown), cfg, env.tokenCounter())
	if err != nil {
		return printError(stderr, err)
	}
	if chunks == nil {
		chunks = []process.Chunk{}
	}
	env.log.Infof("Produced %d chunks", len(chunks))

	if format == "json" {
		err = writeValue(stdout, "json", chunks)
	} else {
		err = writeJSONLines(stdout, chunks)
	}
	if err != nil {
		return printError(stderr, err)
	}
	return 0
}
