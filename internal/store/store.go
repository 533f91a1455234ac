package store

/*
Store wraps a memory-mapped ordered key/value database (bbolt) behind
short-lived read/write transactions.

Responsibilities
- Own the on-disk directory and the database file inside it
- Hand out transactions, tables and cursors
- Grow allocation headroom ahead of bulk loads
- Tear down data files when the owner does not persist

Durability is coarse: the database is opened with NoSync, so commits
reach the OS page cache only. A crash may lose the last committed
batch, which the owner tolerates because the schedule can be rebuilt
from the page database.

bbolt iterates keys in raw byte order and has no pluggable comparator;
tables that need a custom total order must encode it into their keys
(see internal/schedule).
*/

import (
	"errors"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/rohmanhakim/recrawler/pkg/fileutil"
)

const dataFileName = "data.db"

// Options controls how the database file is opened.
type Options struct {
	// MapSize is the initial mmap size hint in bytes.
	MapSize int
	// LockTimeout bounds how long Open waits on the file lock before
	// reporting a retryable busy error. Zero waits forever.
	LockTimeout time.Duration
}

func DefaultOptions() Options {
	return Options{
		MapSize:     1 << 30,
		LockTimeout: time.Second,
	}
}

type Store struct {
	db   *bolt.DB
	dir  string
	path string
}

// Open creates dir if absent and opens the database file inside it.
// A held file lock surfaces as a busy (retryable) error.
func Open(dir string, opts Options) (*Store, error) {
	if err := fileutil.EnsureDir(dir); err != nil {
		return nil, &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInvalidPath,
			Path:    dir,
		}
	}

	path := filepath.Join(dir, dataFileName)
	db, err := bolt.Open(path, 0664, &bolt.Options{
		Timeout:         opts.LockTimeout,
		NoSync:          true,
		InitialMmapSize: opts.MapSize,
	})
	if err != nil {
		cause := ErrCauseInternal
		retryable := false
		if errors.Is(err, bolt.ErrTimeout) {
			cause = ErrCauseBusy
			retryable = true
		}
		return nil, &StoreError{
			Message:   err.Error(),
			Cause:     cause,
			Retryable: retryable,
			Path:      path,
		}
	}

	return &Store{
		db:   db,
		dir:  dir,
		path: path,
	}, nil
}

// BeginRead starts a read-only transaction on a consistent snapshot.
func (s *Store) BeginRead() (*Txn, error) {
	btx, err := s.db.Begin(false)
	if err != nil {
		return nil, beginError(err)
	}
	return &Txn{btx: btx}, nil
}

// BeginWrite starts the single write transaction. bbolt serializes
// writers internally; the call blocks until the writer lock is free.
func (s *Store) BeginWrite() (*Txn, error) {
	btx, err := s.db.Begin(true)
	if err != nil {
		return nil, beginError(err)
	}
	return &Txn{btx: btx}, nil
}

// Expand guarantees that the next file growth gains at least extra
// bytes of headroom. bbolt grows its mmap on demand; raising the
// allocation step keeps a bulk load from remapping once per page run.
func (s *Store) Expand(extra int64) {
	if extra <= 0 {
		return
	}
	if int(extra) > s.db.AllocSize {
		s.db.AllocSize = int(extra)
	}
}

// Dir returns the directory owned by the store.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInternal,
			Path:    s.path,
		}
	}
	return nil
}

// RemoveFiles deletes the database file and the owning directory.
// Called after Close when the owner was opened with persist=false.
func (s *Store) RemoveFiles() error {
	if err := fileutil.RemoveIfExists(s.path); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInvalidPath,
			Path:    s.path,
		}
	}
	if err := fileutil.RemoveIfExists(s.dir); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInvalidPath,
			Path:    s.dir,
		}
	}
	return nil
}

func beginError(err error) *StoreError {
	return &StoreError{
		Message: err.Error(),
		Cause:   ErrCauseInternal,
	}
}
