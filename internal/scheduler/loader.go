package scheduler

import (
	"fmt"
	"math"

	"github.com/rohmanhakim/recrawler/internal/metadata"
	"github.com/rohmanhakim/recrawler/internal/schedule"
)

// LoadFromPageDB populates the schedule from the page database's own
// crawl history. Every page that has been crawled at least once, is
// below the crawl cap, and is not a seed gets an entry at score 0.
//
// The frequency is freqScale times the page's observed crawl rate when
// both are positive, otherwise freqDefault. Non-positive frequencies
// keep the page unscheduled. Seeds and un-crawled pages are skipped
// because no rate estimate exists for them.
//
// The whole load is one write transaction: on any failure nothing of
// it is observable.
func (s *FreqScheduler) LoadFromPageDB(freqDefault, freqScale float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLastError(nil)

	stream, err := s.pageDB.HashInfoStream()
	if err != nil {
		return s.fail("LoadFromPageDB", metadata.CausePageDBFailure,
			newSchedulerError(ErrCauseInternal, "creating stream", err.Error()))
	}
	defer stream.Close()

	txn, err := s.st.BeginWrite()
	if err != nil {
		return s.fail("LoadFromPageDB", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "starting transaction", err.Error()))
	}
	index, err := schedule.OpenIndex(txn, true)
	if err != nil {
		txn.Abort()
		return s.fail("LoadFromPageDB", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "opening schedule", err.Error()))
	}

	loaded := 0
	for {
		hash, pi, ok, err := stream.Next()
		if err != nil {
			txn.Abort()
			return s.fail("LoadFromPageDB", metadata.CausePageDBFailure,
				newSchedulerError(ErrCauseInternal, "incorrect stream state", err.Error()))
		}
		if !ok {
			break
		}

		if pi.NCrawls == 0 || pi.IsSeed {
			continue
		}
		if s.opts.MaxNCrawls != 0 && pi.NCrawls >= s.opts.MaxNCrawls {
			continue
		}

		freq := freqDefault
		if freqScale > 0 {
			if rate := pi.Rate(); rate > 0 {
				freq = freqScale * float32(rate)
			}
		}
		if freq <= 0 {
			continue
		}

		if err := index.Put(schedule.Key{Score: 0, Hash: hash}, freq); err != nil {
			txn.Abort()
			return s.fail("LoadFromPageDB", metadata.CauseStoreFailure,
				newSchedulerError(ErrCauseInternal, "adding page to schedule", err.Error()))
		}
		loaded++
	}

	if err := txn.Commit(); err != nil {
		txn.Abort()
		return s.fail("LoadFromPageDB", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "committing schedule transaction", err.Error()))
	}

	s.sink.RecordEvent("schedule_loaded", []metadata.Attribute{
		metadata.NewAttr(metadata.AttrCount, fmt.Sprintf("%d", loaded)),
	})
	return nil
}

// LoadFromArray inserts externally supplied (hash, frequency) pairs.
// Each entry starts at score 1/freq, spacing its first turn one period
// from virtual t=0. The store is grown by twice the incoming payload
// before the transaction so a bulk load doesn't thrash the map.
//
// Every frequency must be positive and finite; a bad element rejects
// the whole call before anything is written.
func (s *FreqScheduler) LoadFromArray(freqs []PageFreq) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setLastError(nil)

	for _, f := range freqs {
		if math.IsNaN(float64(f.Freq)) || math.IsInf(float64(f.Freq), 0) || f.Freq <= 0 {
			return s.fail("LoadFromArray", metadata.CauseContentInvalid,
				newSchedulerError(ErrCauseInvalidArgument,
					fmt.Sprintf("frequency must be positive and finite, got %v for hash %016x", f.Freq, f.Hash)))
		}
	}

	s.st.Expand(2 * int64(len(freqs)) * schedule.EntrySize)

	txn, err := s.st.BeginWrite()
	if err != nil {
		return s.fail("LoadFromArray", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "starting transaction", err.Error()))
	}
	index, err := schedule.OpenIndex(txn, true)
	if err != nil {
		txn.Abort()
		return s.fail("LoadFromArray", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "opening schedule", err.Error()))
	}

	for _, f := range freqs {
		key := schedule.Key{
			Score: 1.0 / float64(f.Freq),
			Hash:  f.Hash,
		}
		if err := index.Put(key, f.Freq); err != nil {
			txn.Abort()
			return s.fail("LoadFromArray", metadata.CauseStoreFailure,
				newSchedulerError(ErrCauseInternal, "adding page to schedule", err.Error()))
		}
	}

	if err := txn.Commit(); err != nil {
		txn.Abort()
		return s.fail("LoadFromArray", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "committing schedule transaction", err.Error()))
	}

	s.sink.RecordEvent("schedule_loaded", []metadata.Attribute{
		metadata.NewAttr(metadata.AttrCount, fmt.Sprintf("%d", len(freqs))),
	})
	return nil
}
