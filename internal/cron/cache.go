package cron

import (
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// historyCacheTTL bounds how long a reconstructed run-history page is
// reused before the next cron.runs call re-scans the system log. Log
// scanning is the most expensive Run-History Reader path (journalctl
// subprocess + full reverse scan), so short-lived reuse matters under a
// chatty dashboard polling cron.runs per job.
const historyCacheTTL = 10 * time.Second

// CachedHistoryReader memoizes ReadRunHistory per (jobID, limit) pair.
type CachedHistoryReader struct {
	cache *lru.LRU[string, []RunLogEntry]
}

// NewCachedHistoryReader returns a reader caching up to size distinct
// (jobID, limit) pages.
func NewCachedHistoryReader(size int) *CachedHistoryReader {
	return &CachedHistoryReader{cache: lru.NewLRU[string, []RunLogEntry](size, nil, historyCacheTTL)}
}

func (c *CachedHistoryReader) Read(jobID string, limit int) []RunLogEntry {
	key := jobID + "|" + strconv.Itoa(limit)
	if v, ok := c.cache.Get(key); ok {
		return v
	}
	entries := ReadRunHistory(jobID, limit)
	c.cache.Add(key, entries)
	return entries
}
