// Package journal records vkadd runs in an embedded BadgerDB store.
//
// Each run is stored under a key that sorts by start time, so the most
// recent runs can be listed with a single reverse prefix scan:
//
//	run:<big-endian unix nanos>:<run id>
//
// Values are gob-encoded Entry structs.
//
// Example:
//
//	j, err := journal.Open(journal.Options{Dir: "./data/journal"})
//	if err != nil {
//		return err
//	}
//	defer j.Close()
//
//	if err := j.Record(entry); err != nil {
//		return err
//	}
//	recent, err := j.Recent(10)
package journal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

var (
	// ErrClosed is returned by operations on a closed journal.
	ErrClosed = errors.New("journal: closed")

	// ErrInvalidEntry is returned when an entry has no ID or start time.
	ErrInvalidEntry = errors.New("journal: entry requires ID and Started")
)

var runPrefix = []byte("run:")

// Entry is one recorded run.
type Entry struct {
	ID         string
	Started    time.Time
	Duration   time.Duration
	Device     string
	Length     int
	KernelPath string
	State      string
	FailedStep string
	Error      string
	Mismatches int
	// Sum of all output elements, a cheap fingerprint of the result.
	Sum float32
}

// Succeeded reports whether the run completed without error.
func (e Entry) Succeeded() bool {
	return e.Error == ""
}

// Options configures the journal store.
type Options struct {
	// Dir is the BadgerDB directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in RAM; used by tests.
	InMemory bool

	// SyncWrites fsyncs after every write.
	SyncWrites bool

	// Logger receives badger's internal logging. Nil silences it.
	// *logrus.Entry satisfies badger.Logger.
	Logger badger.Logger
}

// Journal is a BadgerDB-backed run log. Safe for concurrent use.
type Journal struct {
	db     *badger.DB
	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the journal described by opts.
func Open(opts Options) (*Journal, error) {
	dir := opts.Dir
	if opts.InMemory {
		dir = ""
	}
	badgerOpts := badger.DefaultOptions(dir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}

	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}

	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	// A journal holds a handful of small entries; keep the footprint low.
	badgerOpts = badgerOpts.
		WithMemTableSize(8 << 20).
		WithValueLogFileSize(16 << 20).
		WithNumMemtables(1).
		WithBlockCacheSize(8 << 20).
		WithIndexCacheSize(4 << 20)

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return &Journal{db: db}, nil
}

// OpenInMemory opens a journal that lives only in RAM.
func OpenInMemory() (*Journal, error) {
	return Open(Options{InMemory: true})
}

// Record stores e. Recording the same ID and start time twice overwrites.
func (j *Journal) Record(e Entry) error {
	if e.ID == "" || e.Started.IsZero() {
		return ErrInvalidEntry
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrClosed
	}

	data, err := encodeEntry(e)
	if err != nil {
		return err
	}
	return j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(entryKey(e), data)
	})
}

// Recent returns up to limit entries, newest first. A limit <= 0 returns
// every entry.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	var entries []Entry
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = runPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the last key <= seek.
		seek := append(append([]byte{}, runPrefix...), 0xff)
		for it.Seek(seek); it.ValidForPrefix(runPrefix); it.Next() {
			var e Entry
			if err := it.Item().Value(func(val []byte) error {
				decoded, err := decodeEntry(val)
				if err != nil {
					return err
				}
				e = decoded
				return nil
			}); err != nil {
				return err
			}
			entries = append(entries, e)
			if limit > 0 && len(entries) >= limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Count returns the number of recorded runs.
func (j *Journal) Count() (int, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}

	count := 0
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(runPrefix); it.ValidForPrefix(runPrefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

// Close closes the underlying store. Calling Close more than once is safe.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}

func entryKey(e Entry) []byte {
	key := make([]byte, 0, len(runPrefix)+8+1+len(e.ID))
	key = append(key, runPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(e.Started.UnixNano()))
	key = append(key, ':')
	key = append(key, e.ID...)
	return key
}

// encodeEntry serializes an Entry with gob.
func encodeEntry(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(e); err != nil {
		return nil, fmt.Errorf("failed to encode entry: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeEntry deserializes an Entry from gob.
func decodeEntry(data []byte) (Entry, error) {
	var e Entry
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&e); err != nil {
		return Entry{}, fmt.Errorf("failed to decode entry: %w", err)
	}
	return e, nil
}
