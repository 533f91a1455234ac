package pagedb

/*
LocalPageDB is the bbolt-backed adapter of the PageDB port.

Layout: one table "pages", keyed by the big-endian 64-bit page hash,
holding a JSON-encoded record per page. Values never leave the host,
so the encoding only needs to be stable for this process family.

Page identity is content-address style: the BLAKE3 prefix of the URL
bytes, see HashURL. Two calls with the same URL always address the
same record.
*/

import (
	"encoding/binary"
	"encoding/json"

	"github.com/rohmanhakim/recrawler/internal/store"
	"github.com/rohmanhakim/recrawler/pkg/hashutil"
)

var pagesTable = []byte("pages")

var _ PageDB = (*LocalPageDB)(nil)

// HashURL derives the 64-bit page identity from a raw URL string.
func HashURL(rawURL string) uint64 {
	return hashutil.Hash64([]byte(rawURL))
}

type pageRecord struct {
	URL         string  `json:"url"`
	FirstCrawl  float64 `json:"first_crawl"`
	LastCrawl   float64 `json:"last_crawl"`
	NCrawls     uint64  `json:"n_crawls"`
	IsSeed      bool    `json:"is_seed"`
	ContentHash string  `json:"content_hash,omitempty"`
}

type LocalPageDB struct {
	st  *store.Store
	dir string
}

// Open creates (if needed) and opens the page database directory.
func Open(dir string, opts store.Options) (*LocalPageDB, error) {
	st, err := store.Open(dir, opts)
	if err != nil {
		return nil, &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
		}
	}
	return &LocalPageDB{st: st, dir: dir}, nil
}

func (db *LocalPageDB) Path() string {
	return db.dir
}

func (db *LocalPageDB) Close() error {
	if err := db.st.Close(); err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
		}
	}
	return nil
}

// GetInfo returns the page record for hash, or (nil, nil) when the
// page is unknown.
func (db *LocalPageDB) GetInfo(hash uint64) (*PageInfo, error) {
	txn, err := db.st.BeginRead()
	if err != nil {
		return nil, &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
		}
	}
	defer txn.Abort()

	tbl, err := txn.Table(pagesTable, false)
	if err != nil {
		// No table yet means no pages yet.
		return nil, nil
	}
	raw := tbl.Get(hashKey(hash))
	if raw == nil {
		return nil, nil
	}
	return decodeRecord(raw)
}

// Add records one crawl outcome. A page seen for the first time gets a
// fresh record; an existing page advances its crawl count and
// timestamps.
func (db *LocalPageDB) Add(page *CrawledPage) error {
	if page == nil || page.URL == "" {
		return &PageDBError{
			Message: "crawled page has no URL",
			Cause:   ErrCauseInvalidPage,
		}
	}
	hash := HashURL(page.URL)

	txn, err := db.st.BeginWrite()
	if err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     page.URL,
		}
	}
	tbl, err := txn.Table(pagesTable, true)
	if err != nil {
		txn.Abort()
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     page.URL,
		}
	}

	rec := pageRecord{
		URL:         page.URL,
		FirstCrawl:  page.Time,
		LastCrawl:   page.Time,
		NCrawls:     1,
		ContentHash: page.ContentHash,
	}
	if raw := tbl.Get(hashKey(hash)); raw != nil {
		var prev pageRecord
		if err := json.Unmarshal(raw, &prev); err != nil {
			txn.Abort()
			return &PageDBError{
				Message: err.Error(),
				Cause:   ErrCauseEncodeFailed,
				URL:     page.URL,
			}
		}
		rec.FirstCrawl = prev.FirstCrawl
		rec.NCrawls = prev.NCrawls + 1
		rec.IsSeed = prev.IsSeed
		if prev.NCrawls == 0 {
			// First real crawl of a seeded page.
			rec.FirstCrawl = page.Time
		}
	}

	if err := putRecord(tbl, hash, rec); err != nil {
		txn.Abort()
		return err
	}
	if err := txn.Commit(); err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     page.URL,
		}
	}
	return nil
}

// AddSeed registers a starting URL. Seeds carry no crawl history until
// their first Add and are skipped by frequency loaders.
func (db *LocalPageDB) AddSeed(rawURL string) error {
	if rawURL == "" {
		return &PageDBError{
			Message: "seed has no URL",
			Cause:   ErrCauseInvalidPage,
		}
	}
	hash := HashURL(rawURL)

	txn, err := db.st.BeginWrite()
	if err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     rawURL,
		}
	}
	tbl, err := txn.Table(pagesTable, true)
	if err != nil {
		txn.Abort()
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     rawURL,
		}
	}

	if raw := tbl.Get(hashKey(hash)); raw != nil {
		// Already known; seeding again must not erase history.
		var prev pageRecord
		if err := json.Unmarshal(raw, &prev); err != nil {
			txn.Abort()
			return &PageDBError{
				Message: err.Error(),
				Cause:   ErrCauseEncodeFailed,
				URL:     rawURL,
			}
		}
		prev.IsSeed = true
		if err := putRecord(tbl, hash, prev); err != nil {
			txn.Abort()
			return err
		}
	} else {
		rec := pageRecord{URL: rawURL, IsSeed: true}
		if err := putRecord(tbl, hash, rec); err != nil {
			txn.Abort()
			return err
		}
	}

	if err := txn.Commit(); err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     rawURL,
		}
	}
	return nil
}

// HashInfoStream opens an ordered iteration over every page record on
// a consistent snapshot.
func (db *LocalPageDB) HashInfoStream() (Stream, error) {
	txn, err := db.st.BeginRead()
	if err != nil {
		return nil, &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
		}
	}
	tbl, err := txn.Table(pagesTable, false)
	if err != nil {
		// Empty database: a stream that ends immediately.
		return &boltStream{txn: txn, done: true}, nil
	}
	return &boltStream{txn: txn, cursor: tbl.Cursor()}, nil
}

type boltStream struct {
	txn     *store.Txn
	cursor  *store.Cursor
	started bool
	done    bool
}

func (s *boltStream) Next() (uint64, *PageInfo, bool, error) {
	if s.done {
		return 0, nil, false, nil
	}
	var kb, vb []byte
	if !s.started {
		kb, vb = s.cursor.First()
		s.started = true
	} else {
		kb, vb = s.cursor.Next()
	}
	if kb == nil {
		s.done = true
		return 0, nil, false, nil
	}
	if len(kb) != 8 {
		return 0, nil, false, &PageDBError{
			Message: "malformed page hash key",
			Cause:   ErrCauseStoreFailure,
		}
	}
	info, err := decodeRecord(vb)
	if err != nil {
		return 0, nil, false, err
	}
	return binary.BigEndian.Uint64(kb), info, true, nil
}

func (s *boltStream) Close() {
	s.txn.Abort()
}

func hashKey(hash uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, hash)
	return buf
}

func putRecord(tbl *store.Table, hash uint64, rec pageRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseEncodeFailed,
			URL:     rec.URL,
		}
	}
	if err := tbl.Put(hashKey(hash), raw); err != nil {
		return &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseStoreFailure,
			URL:     rec.URL,
		}
	}
	return nil
}

func decodeRecord(raw []byte) (*PageInfo, error) {
	var rec pageRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, &PageDBError{
			Message: err.Error(),
			Cause:   ErrCauseEncodeFailed,
		}
	}
	return &PageInfo{
		URL:         rec.URL,
		FirstCrawl:  rec.FirstCrawl,
		LastCrawl:   rec.LastCrawl,
		NCrawls:     rec.NCrawls,
		IsSeed:      rec.IsSeed,
		ContentHash: rec.ContentHash,
	}, nil
}
