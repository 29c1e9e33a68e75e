package docstore

import (
	"context"
	"errors"
	"sort"
	"time"
)

const (
	// MaxDocuments is the truncation target when a backing store rejects a
	// write for lack of space.
	MaxDocuments = 50

	// perDocSizeEstimate is a fixed per-document size estimate. Status
	// reports an approximation, not a measured byte count.
	perDocSizeEstimate = 5 * 1024

	// DefaultMaxAge is the sync age past which the cache reports stale.
	DefaultMaxAge = 24 * time.Hour
)

// ErrQuotaExceeded is returned by backing writes that ran out of space.
// Adapters translate it into the truncate-and-retry policy; it never
// reaches callers of Store.
var ErrQuotaExceeded = errors.New("docstore: quota exceeded")

// ReferenceDocument is one cached unit of backend knowledge. Documents are
// immutable once stored and replaced wholesale on re-sync.
type ReferenceDocument struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CacheStatus summarizes the cache for degradation decisions.
type CacheStatus struct {
	DocumentCount   int        `json:"document_count"`
	LastSyncAt      *time.Time `json:"last_sync_at,omitempty"`
	ApproxSizeBytes int        `json:"approx_size_bytes"`
	IsStale         bool       `json:"is_stale"`
}

// Store persists a bounded set of reference documents plus sync metadata.
//
// Store replaces the whole corpus atomically from the caller's point of
// view. Implementations absorb backend write failures: on a quota
// rejection they truncate to the newest MaxDocuments and retry once, and
// swallow anything past that. Caching is advisory; a failed write must not
// break the caller.
type Store interface {
	Store(ctx context.Context, docs []ReferenceDocument) error
	Retrieve(ctx context.Context) ([]ReferenceDocument, error)
	LastSync(ctx context.Context) (*time.Time, error)
	Clear(ctx context.Context) error
	Status(ctx context.Context) (CacheStatus, error)
}

// TruncateNewest returns at most n documents, keeping the most recently
// updated ones. The input slice is not modified.
func TruncateNewest(docs []ReferenceDocument, n int) []ReferenceDocument {
	if len(docs) <= n {
		return docs
	}
	sorted := make([]ReferenceDocument, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})
	return sorted[:n]
}

// buildStatus derives a CacheStatus from raw counters. A nil lastSync means
// the cache has never synced; its age is treated as infinite.
func buildStatus(count int, lastSync *time.Time, maxAge time.Duration, now time.Time) CacheStatus {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	stale := true
	if lastSync != nil {
		stale = now.Sub(*lastSync) > maxAge
	}
	return CacheStatus{
		DocumentCount:   count,
		LastSyncAt:      lastSync,
		ApproxSizeBytes: count * perDocSizeEstimate,
		IsStale:         stale,
	}
}
