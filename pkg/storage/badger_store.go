package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/log"
	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

const (
	docKeyPrefix    = "doc:"         // Prefix for document records, keyed by id
	nameKeyPrefix   = "name:"        // Prefix for the name -> id index
	documentsDBDir  = "documents_db" // Subdirectory name within stateDir for Badger DB files
	minPrefixLength = 6              // Shortest id prefix ResolveID accepts
)

// BadgerStore implements the DocumentStore interface using BadgerDB
type BadgerStore struct {
	db       *badger.DB
	log      *logrus.Entry
	keyCount atomic.Int64 // Cached document count for O(1) Count
	now      func() time.Time
}

// NewBadgerStore opens (or creates) the document database under stateDir
func NewBadgerStore(stateDir string, logger *logrus.Entry) (*BadgerStore, error) {
	store := &BadgerStore{
		log: logger,
		now: func() time.Time { return time.Now().UTC() },
	}

	dbPath := filepath.Join(stateDir, documentsDBDir)
	logger.Infof("Opening document database at: %s", dbPath)

	if err := os.MkdirAll(dbPath, 0755); err != nil {
		return nil, fmt.Errorf("%w: cannot create state directory %s: %w", utils.ErrFilesystem, dbPath, err)
	}

	badgerLogger := log.NewBadgerLogrusAdapter(logger.WithField("component", "badgerdb"))
	opts := badger.DefaultOptions(dbPath).
		WithLogger(badgerLogger).
		WithNumVersionsToKeep(1) // Only the latest revision of a record matters

	var err error
	store.db, err = badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open badger database at %s: %w", utils.ErrDatabase, dbPath, err)
	}

	count, err := store.countDocuments()
	if err != nil {
		logger.Warnf("Failed to count existing documents: %v", err)
	} else {
		store.keyCount.Store(int64(count))
	}

	logger.Infof("Document database ready (%d documents).", count)
	return store, nil
}

// countDocuments performs a one-time key scan (used only during initialization).
func (s *BadgerStore) countDocuments() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(docKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

const maxConflictRetries = 10

// dbUpdate wraps db.Update with a retry loop for BadgerDB transaction conflicts.
// Concurrent MVCC transactions on overlapping keys can return badger.ErrConflict;
// these resolve in microseconds, so a tight retry loop is sufficient.
func (s *BadgerStore) dbUpdate(fn func(txn *badger.Txn) error) error {
	for i := range maxConflictRetries {
		err := s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		s.log.Debugf("BadgerDB transaction conflict (attempt %d/%d), retrying", i+1, maxConflictRetries)
	}
	return fmt.Errorf("%w: transaction conflict not resolved after %d retries", utils.ErrDatabase, maxConflictRetries)
}

// readRecord decodes the record under key inside txn. Returns nil, nil when absent.
func readRecord(txn *badger.Txn, key []byte) (*models.DocumentRecord, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record models.DocumentRecord
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &record)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: JSON decode of '%s': %w", utils.ErrParsing, string(key), err)
	}
	return &record, nil
}

// PutDocument implements the DocumentStore interface
func (s *BadgerStore) PutDocument(record *models.DocumentRecord) (bool, error) {
	if s.db == nil {
		return false, fmt.Errorf("%w: document DB not initialized", utils.ErrDatabase)
	}
	if record == nil || record.ID == "" {
		return false, fmt.Errorf("%w: record has no id", utils.ErrDatabase)
	}
	key := []byte(docKeyPrefix + record.ID)
	now := s.now()

	created := false
	err := s.dbUpdate(func(txn *badger.Txn) error {
		created = false
		existing, err := readRecord(txn, key)
		corrupt := errors.Is(err, utils.ErrParsing)
		if err != nil && !corrupt {
			return err
		}
		switch {
		case existing != nil:
			record.CreatedAt = existing.CreatedAt
			if existing.Name != record.Name {
				if err := s.dropNameIfOwned(txn, existing.Name, record.ID); err != nil {
					return err
				}
			}
		case corrupt:
			s.log.Warnf("Overwriting undecodable record '%s': %v", string(key), err)
			record.CreatedAt = now
		default:
			created = true
			record.CreatedAt = now
		}
		record.UpdatedAt = now

		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("%w: JSON encode of record '%s': %w", utils.ErrParsing, record.ID, err)
		}
		if err := txn.SetEntry(badger.NewEntry(key, data)); err != nil {
			return err
		}
		if record.Name != "" {
			return txn.Set([]byte(nameKeyPrefix+record.Name), []byte(record.ID))
		}
		return nil
	})

	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in PutDocument: %v", err)
		if errors.Is(err, utils.ErrParsing) || errors.Is(err, utils.ErrDatabase) {
			return false, err
		}
		return false, fmt.Errorf("%w: storing document '%s': %w", utils.ErrDatabase, record.ID, err)
	}
	if created {
		s.keyCount.Add(1)
	}

	s.log.Debugf("Stored document '%s' (%s, created=%v)", record.ID, record.Name, created)
	return created, nil
}

// dropNameIfOwned removes name -> id when it still points at id.
func (s *BadgerStore) dropNameIfOwned(txn *badger.Txn, name, id string) error {
	if name == "" {
		return nil
	}
	nameKey := []byte(nameKeyPrefix + name)
	item, err := txn.Get(nameKey)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	owner, err := item.ValueCopy(nil)
	if err != nil {
		return err
	}
	if string(owner) != id {
		return nil
	}
	return txn.Delete(nameKey)
}

// GetDocument implements the DocumentStore interface
func (s *BadgerStore) GetDocument(id string) (models.DocumentStatus, *models.DocumentRecord, error) {
	key := []byte(docKeyPrefix + id)
	var record *models.DocumentRecord

	err := s.db.View(func(txn *badger.Txn) error {
		var errRead error
		record, errRead = readRecord(txn, key)
		return errRead
	})
	if err != nil {
		s.log.Errorf("DB View error in GetDocument for key '%s': %v", string(key), err)
		if !errors.Is(err, utils.ErrParsing) {
			err = fmt.Errorf("%w: reading document '%s': %w", utils.ErrDatabase, id, err)
		}
		return models.DocumentStatusDBError, nil, err
	}
	if record == nil {
		return models.DocumentStatusNotFound, nil, nil
	}
	return models.DocumentStatusFound, record, nil
}

// ResolveID implements the DocumentStore interface
func (s *BadgerStore) ResolveID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty document reference", utils.ErrNotFound)
	}

	var resolved string
	var ambiguous []string
	err := s.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(docKeyPrefix + ref)); err == nil {
			resolved = ref
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if item, err := txn.Get([]byte(nameKeyPrefix + ref)); err == nil {
			id, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			resolved = string(id)
			return nil
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if len(ref) < minPrefixLength {
			return nil
		}
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		prefix := []byte(docKeyPrefix + ref)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			ambiguous = append(ambiguous, strings.TrimPrefix(string(it.Item().Key()), docKeyPrefix))
		}
		if len(ambiguous) == 1 {
			resolved = ambiguous[0]
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: resolving '%s': %w", utils.ErrDatabase, ref, err)
	}
	if resolved != "" {
		return resolved, nil
	}
	if len(ambiguous) > 1 {
		return "", fmt.Errorf("%w: id prefix '%s' is ambiguous (%d matches)", utils.ErrNotFound, ref, len(ambiguous))
	}
	return "", fmt.Errorf("%w: no document matches '%s'", utils.ErrNotFound, ref)
}

// ListDocuments implements the DocumentStore interface
func (s *BadgerStore) ListDocuments(ctx context.Context) ([]models.DocumentSummary, error) {
	summaries := []models.DocumentSummary{}
	decodeErrors := 0

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(docKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			errValue := item.Value(func(val []byte) error {
				var record models.DocumentRecord
				if errJson := json.Unmarshal(val, &record); errJson != nil {
					s.log.Warnf("Skipping undecodable record '%s': %v", string(item.Key()), errJson)
					decodeErrors++
					return nil
				}
				summaries = append(summaries, record.Summary())
				return nil
			})
			if errValue != nil {
				return errValue
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: listing documents: %w", utils.ErrDatabase, err)
	}

	slices.SortFunc(summaries, func(a, b models.DocumentSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
	if decodeErrors > 0 {
		s.log.Warnf("Listed %d documents, skipped %d undecodable records", len(summaries), decodeErrors)
	}
	return summaries, nil
}

// DeleteDocument implements the DocumentStore interface
func (s *BadgerStore) DeleteDocument(id string) (bool, error) {
	key := []byte(docKeyPrefix + id)
	deleted := false

	err := s.dbUpdate(func(txn *badger.Txn) error {
		deleted = false
		existing, err := readRecord(txn, key)
		if err != nil && !errors.Is(err, utils.ErrParsing) {
			return err
		}
		if existing == nil && err == nil {
			return nil
		}
		if existing != nil {
			if err := s.dropNameIfOwned(txn, existing.Name, id); err != nil {
				return err
			}
		}
		deleted = true
		return txn.Delete(key)
	})
	if err != nil {
		s.log.WithField("key", string(key)).Errorf("DB Update error in DeleteDocument: %v", err)
		return false, fmt.Errorf("%w: deleting document '%s': %w", utils.ErrDatabase, id, err)
	}
	if deleted {
		s.keyCount.Add(-1)
		s.log.Debugf("Deleted document '%s'", id)
	}
	return deleted, nil
}

// Count implements the DocumentStore interface.
// Returns the cached count (O(1)) maintained by atomic updates on writes.
func (s *BadgerStore) Count() (int, error) {
	return int(s.keyCount.Load()), nil
}

// RunGC runs BadgerDB's garbage collection periodically
func (s *BadgerStore) RunGC(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Debug("BadgerDB GC goroutine started.")

	for {
		select {
		case <-ticker.C:
			s.runValueLogGC()
		case <-ctx.Done():
			s.log.Debugf("Stopping BadgerDB garbage collection goroutine: %v", ctx.Err())
			return
		}
	}
}

// runValueLogGC loops GC until badger reports nothing left to rewrite.
func (s *BadgerStore) runValueLogGC() {
	if s.db == nil || s.db.IsClosed() {
		s.log.Debug("DB GC: Database is nil or closed, skipping GC cycle.")
		return
	}

	var err error
	for {
		// Run GC if log is at least 50% reclaimable space
		if err = s.db.RunValueLogGC(0.5); err != nil {
			break
		}
		s.log.Debug("BadgerDB GC cycle completed.")
	}

	if errors.Is(err, badger.ErrNoRewrite) {
		s.log.Debug("BadgerDB GC finished (no rewrite needed).")
	} else {
		s.log.Errorf("BadgerDB GC error: %v", err)
	}
}

// Close implements the DocumentStore interface
func (s *BadgerStore) Close() error {
	if s.db != nil && !s.db.IsClosed() {
		err := s.db.Close()
		if err != nil {
			s.log.Errorf("Error closing document DB: %v", err)
			return fmt.Errorf("%w: closing document DB: %w", utils.ErrDatabase, err)
		}
		s.log.Debug("Document DB closed.")
		return nil
	}
	return nil
}
