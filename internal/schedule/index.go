package schedule

/*
Index Responsibilities
- Maintain the ordered schedule table: Key → frequency
- Expose head (minimum key), point writes and ordered iteration
- Knows nothing about:
	- page metadata
	- throttling
	- crawl caps

It is a data structure module, not a decision maker. Admission and
retirement stay with the scheduler.
*/

import (
	"errors"

	"github.com/rohmanhakim/recrawler/internal/store"
)

// TableName is the single table holding the schedule.
var TableName = []byte("schedule")

// Entry is one scheduled page: its priority key and target frequency.
// The frequency rides along with the key so a pop can reinsert without
// a second lookup.
type Entry struct {
	Key  Key
	Freq float32
}

type Index struct {
	table *store.Table
}

// OpenIndex binds the schedule table inside the given transaction.
func OpenIndex(txn *store.Txn, create bool) (Index, error) {
	tbl, err := txn.Table(TableName, create)
	if err != nil {
		return Index{}, &ScheduleError{
			Message: "opening schedule table: " + err.Error(),
			Cause:   ErrCauseStore,
		}
	}
	return Index{table: tbl}, nil
}

// OpenIndexIfExists binds the schedule table inside a read-only
// transaction. ok is false when nothing has been scheduled yet.
func OpenIndexIfExists(txn *store.Txn) (Index, bool, error) {
	tbl, err := txn.Table(TableName, false)
	if err != nil {
		var serr *store.StoreError
		if errors.As(err, &serr) && serr.Cause == store.ErrCauseNotFound {
			return Index{}, false, nil
		}
		return Index{}, false, &ScheduleError{
			Message: "opening schedule table: " + err.Error(),
			Cause:   ErrCauseStore,
		}
	}
	return Index{table: tbl}, true, nil
}

// Put inserts or overwrites the entry for key.
func (ix Index) Put(key Key, freq float32) error {
	kb, err := key.Encode()
	if err != nil {
		return err
	}
	if err := ix.table.Put(kb, EncodeFreq(freq)); err != nil {
		return &ScheduleError{
			Message: "adding page to schedule: " + err.Error(),
			Cause:   ErrCauseStore,
		}
	}
	return nil
}

// Head returns the entry with the smallest key. ok is false on an
// empty schedule.
func (ix Index) Head() (entry Entry, ok bool, err error) {
	kb, vb := ix.table.Cursor().First()
	if kb == nil {
		return Entry{}, false, nil
	}
	key, err := DecodeKey(kb)
	if err != nil {
		return Entry{}, false, err
	}
	freq, err := DecodeFreq(vb)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Key: key, Freq: freq}, true, nil
}

// Delete removes the entry for key. Deleting an absent key is a no-op.
func (ix Index) Delete(key Key) error {
	kb, err := key.Encode()
	if err != nil {
		return err
	}
	if err := ix.table.Delete(kb); err != nil {
		return &ScheduleError{
			Message: "deleting schedule entry: " + err.Error(),
			Cause:   ErrCauseStore,
		}
	}
	return nil
}

// Walk visits every entry in ascending key order. The callback must
// not mutate the index.
func (ix Index) Walk(fn func(Entry) error) error {
	c := ix.table.Cursor()
	for kb, vb := c.First(); kb != nil; kb, vb = c.Next() {
		key, err := DecodeKey(kb)
		if err != nil {
			return err
		}
		freq, err := DecodeFreq(vb)
		if err != nil {
			return err
		}
		if err := fn(Entry{Key: key, Freq: freq}); err != nil {
			return err
		}
	}
	return nil
}
