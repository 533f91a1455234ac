package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rohmanhakim/recrawler/internal/metadata"
	"github.com/rohmanhakim/recrawler/internal/pagedb"
	"github.com/rohmanhakim/recrawler/internal/schedule"
	"github.com/rohmanhakim/recrawler/internal/store"
	"github.com/rohmanhakim/recrawler/pkg/failure"
	"github.com/rohmanhakim/recrawler/pkg/retry"
	"github.com/rohmanhakim/recrawler/pkg/timeutil"
)

/*
 FreqScheduler is the sole authority over the recrawl schedule.

 Determinism and mutation guarantees:
 - The scheduler is the ONLY component allowed to mutate the schedule
   index. Loaders insert, Request advances or retires; nothing else
   writes.
 - Every mutating operation runs inside one write transaction: either
   the whole batch commits or none of it is observable.
 - The page database is consulted as an oracle (last crawl, crawl
   count) and written through Add; it never reaches back into the
   schedule.
 - Metadata emission is observational only and MUST NOT influence
   scheduling.

 Scheduling model: single writer. One logical caller at a time issues
 Request, Load* or Add; an internal exclusive lock serializes them.
 Dump runs on a read snapshot and may overlap.
*/

type FreqScheduler struct {
	mu     sync.Mutex
	pageDB pagedb.PageDB
	st     *store.Store
	opts   Options
	clock  timeutil.Clock
	sink   metadata.MetadataSink
	path   string

	// errMu guards lastErr separately so the read-only Dump can record
	// a failure while a writer holds mu.
	errMu   sync.Mutex
	lastErr *SchedulerError
}

// storeOpenRetry bounds how long Open waits out a competing holder of
// the schedule directory's file lock.
func storeOpenRetry() retry.RetryParam {
	return retry.NewRetryParam(
		0,
		50*time.Millisecond,
		time.Now().UnixNano(),
		3,
		timeutil.NewBackoffParam(100*time.Millisecond, 2.0, time.Second),
	)
}

// Open creates (if needed) the schedule directory and opens the store
// inside it. An empty path derives `<pageDBPath>_freqs`.
func Open(db pagedb.PageDB, path string, opts Options, sink metadata.MetadataSink) (*FreqScheduler, error) {
	return OpenWithDeps(db, path, opts, sink, timeutil.NewRealClock())
}

// OpenWithDeps creates a FreqScheduler with an injected clock. Tests
// use it to drive the throttle deterministically.
func OpenWithDeps(
	db pagedb.PageDB,
	path string,
	opts Options,
	sink metadata.MetadataSink,
	clock timeutil.Clock,
) (*FreqScheduler, error) {
	if path == "" {
		path = db.Path() + "_freqs"
	}

	result := retry.Retry(storeOpenRetry(), func() (*store.Store, failure.ClassifiedError) {
		st, err := store.Open(path, store.Options{
			MapSize:     opts.MapSize,
			LockTimeout: time.Second,
		})
		if err == nil {
			return st, nil
		}
		if cerr, ok := err.(failure.ClassifiedError); ok {
			return nil, cerr
		}
		return nil, &SchedulerError{Message: err.Error(), Cause: ErrCauseInternal}
	})
	if result.Err() != nil {
		cause := ErrCauseInternal
		var serr *store.StoreError
		if errors.As(result.Err(), &serr) && serr.Cause == store.ErrCauseInvalidPath {
			cause = ErrCauseInvalidPath
		}
		opened := newSchedulerError(cause, "opening schedule store", result.Err().Error())
		if sink != nil {
			sink.RecordError(time.Now(), "scheduler", "Open", metadata.CauseStoreFailure,
				opened.Error(), []metadata.Attribute{
					metadata.NewAttr(metadata.AttrPath, path),
				})
		}
		return nil, opened
	}

	if sink == nil {
		sink = &metadata.NoopSink{}
	}
	return &FreqScheduler{
		pageDB: db,
		st:     result.Value(),
		opts:   opts,
		clock:  clock,
		sink:   sink,
		path:   path,
	}, nil
}

// Close shuts the store down. With Persist=false the data file and the
// directory are removed afterwards. Close never mutates the schedule.
func (s *FreqScheduler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.st.Close(); err != nil {
		return s.fail("Close", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "closing schedule store", err.Error()))
	}
	if !s.opts.Persist {
		if err := s.st.RemoveFiles(); err != nil {
			return s.fail("Close", metadata.CauseStoreFailure,
				newSchedulerError(ErrCauseInvalidPath, "removing schedule files", err.Error()))
		}
	}
	return nil
}

// Path returns the schedule directory.
func (s *FreqScheduler) Path() string {
	return s.path
}

// LastError returns the error record of the most recent failed
// operation, or nil. It is overwritten by every operation.
func (s *FreqScheduler) LastError() *SchedulerError {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.lastErr
}

func (s *FreqScheduler) setLastError(err *SchedulerError) {
	s.errMu.Lock()
	s.lastErr = err
	s.errMu.Unlock()
}

// Request pops up to max due pages off the schedule head and returns
// their URLs, advancing each popped entry by one virtual period
// (score += 1/freq). The whole batch is one write transaction.
//
// The batch stops early when the schedule runs empty, or when the head
// is not yet due by wall clock (Margin >= 0): every other entry has a
// larger score, so in virtual time none of them is due sooner.
func (s *FreqScheduler) Request(max int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLastError(nil)

	txn, err := s.st.BeginWrite()
	if err != nil {
		return nil, s.fail("Request", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "starting transaction", err.Error()))
	}

	index, err := schedule.OpenIndex(txn, true)
	if err != nil {
		txn.Abort()
		return nil, s.fail("Request", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "opening schedule", err.Error()))
	}

	urls := make([]string, 0, max)
	// Emissions inside this batch count toward the crawl cap: the page
	// database only learns about them at the caller's next Add, but a
	// page must never be handed out more often than its cap allows.
	var batchEmits map[uint64]uint64
	if s.opts.MaxNCrawls > 0 {
		batchEmits = make(map[uint64]uint64)
	}
	interrupt := false
	for len(urls) < max && !interrupt {
		entry, ok, err := index.Head()
		if err != nil {
			txn.Abort()
			return nil, s.fail("Request", metadata.CauseInvariantViolation,
				newSchedulerError(ErrCauseInternal, "getting head of schedule", err.Error()))
		}
		if !ok {
			// No more pages left.
			break
		}

		pi, err := s.pageDB.GetInfo(entry.Key.Hash)
		if err != nil {
			txn.Abort()
			return nil, s.fail("Request", metadata.CausePageDBFailure,
				newSchedulerError(ErrCauseInternal, "retrieving PageInfo from PageDB", err.Error()))
		}

		crawl := false
		if pi != nil {
			if s.opts.Margin >= 0 {
				elapsed := s.clock.NowSeconds() - pi.LastCrawl
				if elapsed < 1.0/(float64(entry.Freq)*(1.0+s.opts.Margin)) {
					interrupt = true
				}
			}
			crawl = s.opts.MaxNCrawls == 0 ||
				pi.NCrawls+batchEmits[entry.Key.Hash] < s.opts.MaxNCrawls
		}
		if interrupt {
			break
		}

		if err := index.Delete(entry.Key); err != nil {
			txn.Abort()
			return nil, s.fail("Request", metadata.CauseStoreFailure,
				newSchedulerError(ErrCauseInternal, "deleting head of schedule", err.Error()))
		}
		if crawl {
			urls = append(urls, pi.URL)
			if batchEmits != nil {
				batchEmits[entry.Key.Hash]++
			}
			next := schedule.Key{
				Score: entry.Key.Score + 1.0/float64(entry.Freq),
				Hash:  entry.Key.Hash,
			}
			if err := index.Put(next, entry.Freq); err != nil {
				txn.Abort()
				return nil, s.fail("Request", metadata.CauseStoreFailure,
					newSchedulerError(ErrCauseInternal, "moving element inside schedule", err.Error()))
			}
		} else {
			s.sink.RecordEvent("page_retired", []metadata.Attribute{
				metadata.NewAttr(metadata.AttrHash, fmt.Sprintf("%016x", entry.Key.Hash)),
			})
		}
	}

	if err := txn.Commit(); err != nil {
		txn.Abort()
		return nil, s.fail("Request", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "committing schedule transaction", err.Error()))
	}

	s.sink.RecordEvent("request_batch", []metadata.Attribute{
		metadata.NewAttr(metadata.AttrMaxReqs, fmt.Sprintf("%d", max)),
		metadata.NewAttr(metadata.AttrCount, fmt.Sprintf("%d", len(urls))),
	})
	return urls, nil
}

// Add forwards one crawled page into the page database. The schedule
// itself is untouched; the next Request observes the refreshed
// last-crawl timestamp and crawl count.
func (s *FreqScheduler) Add(page *pagedb.CrawledPage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLastError(nil)

	if err := s.pageDB.Add(page); err != nil {
		return s.fail("Add", metadata.CausePageDBFailure,
			newSchedulerError(ErrCauseInternal, "adding crawled page", err.Error()))
	}
	return nil
}

// fail stores the error record, reports it to the sink, and returns it.
func (s *FreqScheduler) fail(action string, cause metadata.ErrorCause, err *SchedulerError) *SchedulerError {
	s.setLastError(err)
	s.sink.RecordError(time.Now(), "scheduler", action, cause, err.Error(), nil)
	return err
}
