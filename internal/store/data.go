package store

import (
	bolt "go.etcd.io/bbolt"
)

// Txn is a short-lived transaction. Write transactions must end in
// exactly one Commit or Abort; read transactions end in Abort.
type Txn struct {
	btx *bolt.Tx
}

// Table opens the named table, creating it when create is set and the
// transaction is writable.
func (t *Txn) Table(name []byte, create bool) (*Table, error) {
	if create && t.btx.Writable() {
		b, err := t.btx.CreateBucketIfNotExists(name)
		if err != nil {
			return nil, &StoreError{
				Message: err.Error(),
				Cause:   ErrCauseInternal,
			}
		}
		return &Table{bucket: b}, nil
	}
	b := t.btx.Bucket(name)
	if b == nil {
		return nil, &StoreError{
			Message: "table not found: " + string(name),
			Cause:   ErrCauseNotFound,
		}
	}
	return &Table{bucket: b}, nil
}

// Commit makes every mutation of the transaction durable at once.
// A failed commit leaves the store unchanged.
func (t *Txn) Commit() error {
	if err := t.btx.Commit(); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInternal,
		}
	}
	return nil
}

// Abort discards the transaction. Never fails; a rollback error on an
// already-finished transaction is ignored.
func (t *Txn) Abort() {
	_ = t.btx.Rollback()
}

// Table is one ordered key space inside a transaction.
type Table struct {
	bucket *bolt.Bucket
}

func (tb *Table) Get(key []byte) []byte {
	return tb.bucket.Get(key)
}

func (tb *Table) Put(key, value []byte) error {
	if err := tb.bucket.Put(key, value); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInternal,
		}
	}
	return nil
}

func (tb *Table) Delete(key []byte) error {
	if err := tb.bucket.Delete(key); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInternal,
		}
	}
	return nil
}

// Cursor positions over the table in ascending key byte order.
// Mutating the table invalidates open cursors; callers re-acquire one
// after every Put or Delete.
func (tb *Table) Cursor() *Cursor {
	return &Cursor{c: tb.bucket.Cursor()}
}

type Cursor struct {
	c *bolt.Cursor
}

// First positions at the minimum key. Returns nils on an empty table.
func (c *Cursor) First() (key, value []byte) {
	return c.c.First()
}

func (c *Cursor) Next() (key, value []byte) {
	return c.c.Next()
}

// Seek positions at the given key, or the next greater one.
func (c *Cursor) Seek(key []byte) (k, v []byte) {
	return c.c.Seek(key)
}

// Delete removes the entry under the cursor.
func (c *Cursor) Delete() error {
	if err := c.c.Delete(); err != nil {
		return &StoreError{
			Message: err.Error(),
			Cause:   ErrCauseInternal,
		}
	}
	return nil
}
