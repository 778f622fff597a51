package storage

import (
	"context"
	"time"

	"github.com/Sriram-PR/specdoc/pkg/models"
)

// DocumentReader looks up structured documents
type DocumentReader interface {
	// GetDocument retrieves a record by its exact id.
	// Returns status (DocumentStatusFound, DocumentStatusNotFound, DocumentStatusDBError),
	// the record if found and decoded, and any error
	GetDocument(id string) (status models.DocumentStatus, record *models.DocumentRecord, err error)

	// ResolveID maps a reference (full id, document name, or unique id prefix) to an id.
	// Returns an error wrapping utils.ErrNotFound when nothing matches
	ResolveID(ref string) (string, error)

	// ListDocuments returns summaries of all stored documents, most recently updated first
	ListDocuments(ctx context.Context) ([]models.DocumentSummary, error)
}

// DocumentWriter persists structured documents
type DocumentWriter interface {
	// PutDocument stores the record under record.ID.
	// Returns true if the id was new. Re-putting an id keeps CreatedAt
	PutDocument(record *models.DocumentRecord) (created bool, err error)

	// DeleteDocument removes the record. Returns false if it did not exist
	DeleteDocument(id string) (bool, error)
}

// StoreAdmin handles lifecycle and administrative operations
type StoreAdmin interface {
	// Count returns the cached number of stored documents
	Count() (int, error)

	// RunGC runs periodic garbage collection. Should be run in a goroutine
	RunGC(ctx context.Context, interval time.Duration)

	// Close cleanly closes the database connection
	Close() error
}

// DocumentStore combines all store interfaces for components that need full access
type DocumentStore interface {
	DocumentReader
	DocumentWriter
	StoreAdmin
}
