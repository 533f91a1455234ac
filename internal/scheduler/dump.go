package scheduler

import (
	"fmt"
	"io"

	"github.com/rohmanhakim/recrawler/internal/metadata"
	"github.com/rohmanhakim/recrawler/internal/schedule"
)

// Dump writes every schedule entry to w in ascending key order, one
// line per entry: `<score> <hash> <freq>` with %.2e scores and
// frequencies and the hash as 16 hex digits. Read-only; runs on a
// consistent snapshot and may overlap a writer.
func (s *FreqScheduler) Dump(w io.Writer) error {
	txn, err := s.st.BeginRead()
	if err != nil {
		return s.fail("Dump", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "starting transaction", err.Error()))
	}
	defer txn.Abort()

	index, ok, err := schedule.OpenIndexIfExists(txn)
	if err != nil {
		return s.fail("Dump", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "opening schedule", err.Error()))
	}
	if !ok {
		// Nothing scheduled yet.
		return nil
	}

	if err := index.Walk(func(e schedule.Entry) error {
		_, werr := fmt.Fprintf(w, "%.2e %016x %.2e\n", e.Key.Score, e.Key.Hash, e.Freq)
		return werr
	}); err != nil {
		return s.fail("Dump", metadata.CauseStoreFailure,
			newSchedulerError(ErrCauseInternal, "iterating over database", err.Error()))
	}
	return nil
}
