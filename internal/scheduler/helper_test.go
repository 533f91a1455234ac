package scheduler_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/recrawler/internal/metadata"
	"github.com/rohmanhakim/recrawler/internal/pagedb"
	"github.com/rohmanhakim/recrawler/internal/scheduler"
)

// fakePageDB is an in-memory PageDB used to drive the engine without a
// real page database on disk.
type fakePageDB struct {
	mu     sync.Mutex
	pages  map[uint64]pagedb.PageInfo
	path   string
	addErr error
	getErr error
}

func newFakePageDB(t *testing.T) *fakePageDB {
	t.Helper()
	return &fakePageDB{
		pages: make(map[uint64]pagedb.PageInfo),
		path:  filepath.Join(t.TempDir(), "pages"),
	}
}

func (db *fakePageDB) put(hash uint64, info pagedb.PageInfo) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.pages[hash] = info
}

func (db *fakePageDB) GetInfo(hash uint64) (*pagedb.PageInfo, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.getErr != nil {
		return nil, db.getErr
	}
	info, ok := db.pages[hash]
	if !ok {
		return nil, nil
	}
	copied := info
	return &copied, nil
}

func (db *fakePageDB) Add(page *pagedb.CrawledPage) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.addErr != nil {
		return db.addErr
	}
	hash := pagedb.HashURL(page.URL)
	info, ok := db.pages[hash]
	if !ok {
		info = pagedb.PageInfo{URL: page.URL, FirstCrawl: page.Time}
	}
	info.NCrawls++
	info.LastCrawl = page.Time
	db.pages[hash] = info
	return nil
}

// addForHash advances crawl history for a page keyed by an explicit
// hash, the way tests register pages (hashes there are hand-picked,
// not derived from the URL).
func (db *fakePageDB) addForHash(hash uint64, when float64) {
	db.mu.Lock()
	defer db.mu.Unlock()
	info := db.pages[hash]
	info.NCrawls++
	info.LastCrawl = when
	if info.FirstCrawl == 0 {
		info.FirstCrawl = when
	}
	db.pages[hash] = info
}

func (db *fakePageDB) HashInfoStream() (pagedb.Stream, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	pairs := make([]fakePair, 0, len(db.pages))
	for hash, info := range db.pages {
		pairs = append(pairs, fakePair{hash: hash, info: info})
	}
	return &fakeStream{pairs: pairs}, nil
}

func (db *fakePageDB) Path() string {
	return db.path
}

type fakePair struct {
	hash uint64
	info pagedb.PageInfo
}

type fakeStream struct {
	pairs []fakePair
	pos   int
}

func (s *fakeStream) Next() (uint64, *pagedb.PageInfo, bool, error) {
	if s.pos >= len(s.pairs) {
		return 0, nil, false, nil
	}
	pair := s.pairs[s.pos]
	s.pos++
	copied := pair.info
	return pair.hash, &copied, true, nil
}

func (s *fakeStream) Close() {}

// fakeClock is a settable clock for deterministic throttle checks.
type fakeClock struct {
	mu  sync.Mutex
	now float64
}

func newFakeClock(now float64) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) set(now float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Unix(0, int64(c.now*float64(time.Second)))
}

func (c *fakeClock) NowSeconds() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// newTestScheduler opens a scheduler over the fake page DB in a fresh
// temp directory.
func newTestScheduler(
	t *testing.T,
	db *fakePageDB,
	opts scheduler.Options,
	clock *fakeClock,
) *scheduler.FreqScheduler {
	t.Helper()
	opts.MapSize = 1 << 20
	sch, err := scheduler.OpenWithDeps(
		db,
		filepath.Join(t.TempDir(), "freqs"),
		opts,
		&metadata.NoopSink{},
		clock,
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sch.Close() })
	return sch
}

// registerPage adds a crawlable page to the fake DB under an explicit
// hash.
func registerPage(db *fakePageDB, hash uint64, url string, lastCrawl float64, nCrawls uint64) {
	db.put(hash, pagedb.PageInfo{
		URL:        url,
		FirstCrawl: lastCrawl,
		LastCrawl:  lastCrawl,
		NCrawls:    nCrawls,
	})
}

// pageWithRate builds a page whose Rate() follows from its crawl span.
func pageWithRate(url string, nCrawls uint64, firstCrawl, lastCrawl float64) pagedb.PageInfo {
	return pagedb.PageInfo{
		URL:        url,
		FirstCrawl: firstCrawl,
		LastCrawl:  lastCrawl,
		NCrawls:    nCrawls,
	}
}

// requestAll drains the scheduler in batches until it stops emitting,
// or total emissions reach limit.
func requestAll(t *testing.T, sch *scheduler.FreqScheduler, batch, limit int) []string {
	t.Helper()
	var all []string
	for len(all) < limit {
		n := batch
		if limit-len(all) < n {
			n = limit - len(all)
		}
		urls, err := sch.Request(n)
		require.NoError(t, err)
		if len(urls) == 0 {
			break
		}
		all = append(all, urls...)
	}
	return all
}

func dumpLines(t *testing.T, sch *scheduler.FreqScheduler) []string {
	t.Helper()
	var buf stringsBuilder
	require.NoError(t, sch.Dump(&buf))
	return buf.lines()
}

// stringsBuilder collects dump output and splits it into lines.
type stringsBuilder struct {
	data []byte
}

func (b *stringsBuilder) Write(p []byte) (int, error) {
	b.data = append(b.data, p...)
	return len(p), nil
}

func (b *stringsBuilder) lines() []string {
	var out []string
	start := 0
	for i, c := range b.data {
		if c == '\n' {
			out = append(out, string(b.data[start:i]))
			start = i + 1
		}
	}
	if start < len(b.data) {
		out = append(out, string(b.data[start:]))
	}
	return out
}

func hashHex(hash uint64) string {
	return fmt.Sprintf("%016x", hash)
}
