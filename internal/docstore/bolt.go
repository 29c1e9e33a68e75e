package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"
)

var (
	bucketDocuments = []byte("documents")
	bucketMeta      = []byte("meta")
	keyLastSync     = []byte("last_sync")
)

// BoltStore is the durable embedded adapter, the default for single-host
// CLI and gateway deployments.
type BoltStore struct {
	db     *bbolt.DB
	log    *slog.Logger
	maxAge time.Duration
}

func NewBoltStore(path string, log *slog.Logger, maxAge time.Duration) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketDocuments, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &BoltStore{db: db, log: log, maxAge: maxAge}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Store(_ context.Context, docs []ReferenceDocument) error {
	if err := s.put(docs); err != nil {
		s.log.Warn("cache write rejected; truncating and retrying once", "err", err, "docs", len(docs))
		docs = TruncateNewest(docs, MaxDocuments)
		if err := s.put(docs); err != nil {
			s.log.Warn("cache write failed after truncation; dropping update", "err", err)
		}
	}
	return nil
}

// put replaces the corpus in a single transaction so readers never observe
// a partially written set.
func (s *BoltStore) put(docs []ReferenceDocument) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocuments); err != nil {
			return err
		}
		b, err := tx.CreateBucket(bucketDocuments)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			data, err := json.Marshal(doc)
			if err != nil {
				return err
			}
			if err := b.Put([]byte(doc.ID), data); err != nil {
				return err
			}
		}
		now, err := time.Now().MarshalBinary()
		if err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyLastSync, now)
	})
}

func (s *BoltStore) Retrieve(_ context.Context) ([]ReferenceDocument, error) {
	var docs []ReferenceDocument
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocuments).ForEach(func(k, v []byte) error {
			var doc ReferenceDocument
			if err := json.Unmarshal(v, &doc); err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})
	return docs, err
}

func (s *BoltStore) LastSync(_ context.Context) (*time.Time, error) {
	var ts *time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyLastSync)
		if data == nil {
			return nil
		}
		var t time.Time
		if err := t.UnmarshalBinary(data); err != nil {
			return err
		}
		ts = &t
		return nil
	})
	return ts, err
}

func (s *BoltStore) Clear(_ context.Context) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketDocuments); err != nil {
			return err
		}
		if _, err := tx.CreateBucket(bucketDocuments); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Delete(keyLastSync)
	})
}

func (s *BoltStore) Status(_ context.Context) (CacheStatus, error) {
	var count int
	var ts *time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketDocuments).Stats().KeyN
		data := tx.Bucket(bucketMeta).Get(keyLastSync)
		if data == nil {
			return nil
		}
		var t time.Time
		if err := t.UnmarshalBinary(data); err != nil {
			return err
		}
		ts = &t
		return nil
	})
	if err != nil {
		return CacheStatus{}, err
	}
	return buildStatus(count, ts, s.maxAge, time.Now()), nil
}
