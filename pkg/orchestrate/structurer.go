package orchestrate

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/ingest"
	"github.com/Sriram-PR/specdoc/pkg/metrics"
	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/process"
	"github.com/Sriram-PR/specdoc/pkg/storage"
	"github.com/Sriram-PR/specdoc/pkg/structure"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// Options wires the optional collaborators of a Structurer
type Options struct {
	Store      storage.DocumentStore // nil = records are returned but not persisted
	Loader     *ingest.Loader        // Required by ProcessSource/ProcessSources
	Counter    *process.TokenCounter // nil = length estimate
	Recorder   metrics.Recorder      // nil = NoopRecorder
	Chunking   process.ChunkerConfig
	NumWorkers int
}

// Structurer turns Markdown into stored DocumentRecords
type Structurer struct {
	store      storage.DocumentStore
	loader     *ingest.Loader
	counter    *process.TokenCounter
	recorder   metrics.Recorder
	chunking   process.ChunkerConfig
	numWorkers int
	log        *logrus.Entry
	now        func() time.Time
}

// NewStructurer creates a Structurer from opts
func NewStructurer(opts Options, log *logrus.Entry) *Structurer {
	s := &Structurer{
		store:      opts.Store,
		loader:     opts.Loader,
		counter:    opts.Counter,
		recorder:   opts.Recorder,
		chunking:   opts.Chunking,
		numWorkers: opts.NumWorkers,
		log:        log,
		now:        time.Now,
	}
	if s.counter == nil {
		s.counter = process.EstimatingCounter()
	}
	if s.recorder == nil {
		s.recorder = metrics.NoopRecorder{}
	}
	if s.chunking.MaxChunkSize <= 0 {
		s.chunking = process.DefaultChunkerConfig()
	}
	if s.numWorkers <= 0 {
		s.numWorkers = 1
	}
	return s
}

// Store returns the configured store, or nil
func (s *Structurer) Store() storage.DocumentStore {
	return s.store
}

// Loader returns the configured loader, or nil
func (s *Structurer) Loader() *ingest.Loader {
	return s.loader
}

// Process parses markdown, inspects its headings, counts tokens and persists the
// record when a store is configured. created is false when the content was already
// stored; without a store it is always true.
func (s *Structurer) Process(ctx context.Context, name, source, markdown string) (record *models.DocumentRecord, created bool, err error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if name == "" {
		name = utils.DocumentName(source)
	}
	docLog := s.log.WithFields(logrus.Fields{"document": name, "source": source})

	start := time.Now()
	doc := structure.ParseMarkdownDocument(markdown)
	s.recorder.ObserveStageDuration("parse", time.Since(start))

	start = time.Now()
	report := structure.Inspect(markdown)
	s.recorder.ObserveStageDuration("inspect", time.Since(start))
	for _, w := range report.Warnings() {
		docLog.Warn(w)
	}

	id := utils.CalculateStringSHA256(markdown)
	now := s.now()
	record = &models.DocumentRecord{
		ID:          id,
		Name:        name,
		Source:      source,
		ContentHash: id,
		Markdown:    markdown,
		CreatedAt:   now,
		UpdatedAt:   now,
		Document:    doc,
		Stats:       models.ComputeStats(doc, s.counter.Count(markdown)),
		Report:      report,
	}
	s.recorder.ObserveSections(len(doc.Sections))

	created = true
	if s.store != nil {
		start = time.Now()
		created, err = s.store.PutDocument(record)
		s.recorder.ObserveStageDuration("store", time.Since(start))
		if err != nil {
			return nil, false, err
		}
	}

	docLog.WithFields(logrus.Fields{
		"id":       utils.ShortHash(id, 12),
		"headings": record.Stats.HeadingCount,
		"sections": record.Stats.SectionCount,
		"tokens":   record.Stats.TokenCount,
		"created":  created,
	}).Debug("Structured document")
	return record, created, nil
}

// Chunk splits sections into retrieval chunks using the configured chunking limits
func (s *Structurer) Chunk(sections []structure.MarkdownSection) ([]process.Chunk, error) {
	chunks, err := process.ChunkSections(sections, s.chunking, s.counter)
	if err != nil {
		return nil, err
	}
	s.recorder.AddChunks(len(chunks))
	return chunks, nil
}
