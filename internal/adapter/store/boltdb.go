package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"minirag/internal/domain"
	"minirag/internal/port"
)

var (
	bucketDocs    = []byte("docs")
	bucketCache   = []byte("cache")
	bucketHistory = []byte("history")
	bucketMeta    = []byte("meta")
)

// BoltStore keeps documents, the query cache and the conversation history in
// a single bbolt file. bbolt allows one writer at a time and commits with
// fsync, which gives the durability and write serialization the document
// store needs.
type BoltStore struct {
	db *bbolt.DB
}

var _ port.Store = (*BoltStore)(nil)

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, domain.NewStorageError("open", fmt.Errorf("failed to open bolt db: %w", err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		buckets := [][]byte{bucketDocs, bucketCache, bucketHistory, bucketMeta}
		for _, b := range buckets {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, domain.NewStorageError("open", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) DB() *bbolt.DB {
	return s.db
}

type storedDoc struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	Dim       int    `json:"dim"`
	Embedding []byte `json:"embedding"`
}

type storedCache struct {
	Dim       int    `json:"dim"`
	Embedding []byte `json:"embedding"`
}

type storedHistory struct {
	Timestamp int64  `json:"ts"`
	Role      string `json:"role"`
	Text      string `json:"text"`
}

func (s *BoltStore) SaveDocument(ctx context.Context, title, text string, embedding []float32) (int64, error) {
	blob, err := EncodeEmbedding(embedding)
	if err != nil {
		return 0, domain.NewStorageError("save document", err)
	}

	var id int64
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketDocs)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		data, err := json.Marshal(storedDoc{
			Title:     title,
			Text:      text,
			Dim:       len(embedding),
			Embedding: blob,
		})
		if err != nil {
			return err
		}
		if err := b.Put(itob(seq), data); err != nil {
			return err
		}
		id = int64(seq)
		return nil
	})
	if err != nil {
		return 0, domain.NewStorageError("save document", err)
	}
	return id, nil
}

func (s *BoltStore) LoadDocuments(ctx context.Context) ([]domain.Document, error) {
	var docs []domain.Document
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketDocs).ForEach(func(k, v []byte) error {
			id := int64(binary.BigEndian.Uint64(k))
			var sd storedDoc
			if err := json.Unmarshal(v, &sd); err != nil {
				return fmt.Errorf("document %d: %w", id, err)
			}
			emb, err := DecodeEmbedding(sd.Embedding, sd.Dim)
			if err != nil {
				return fmt.Errorf("document %d: %w", id, err)
			}
			docs = append(docs, domain.Document{
				ID:        id,
				Title:     sd.Title,
				Text:      sd.Text,
				Embedding: emb,
				Dim:       sd.Dim,
			})
			return nil
		})
	})
	if err != nil {
		return nil, domain.NewStorageError("load documents", err)
	}
	return docs, nil
}

func (s *BoltStore) CountDocuments(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketDocs).Stats().KeyN
		return nil
	})
	return n, domain.NewStorageError("count documents", err)
}

func (s *BoltStore) GetEmbedding(ctx context.Context, key string) ([]float32, bool, error) {
	var emb []float32
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCache).Get(cacheKey(key))
		if data == nil {
			return nil
		}
		var sc storedCache
		if err := json.Unmarshal(data, &sc); err != nil {
			return err
		}
		v, err := DecodeEmbedding(sc.Embedding, sc.Dim)
		if err != nil {
			return err
		}
		emb = v
		return nil
	})
	if err != nil {
		return nil, false, domain.NewStorageError("cache get", err)
	}
	return emb, emb != nil, nil
}

func (s *BoltStore) SetEmbedding(ctx context.Context, key string, embedding []float32) error {
	blob, err := EncodeEmbedding(embedding)
	if err != nil {
		return domain.NewStorageError("cache set", err)
	}
	data, err := json.Marshal(storedCache{Dim: len(embedding), Embedding: blob})
	if err != nil {
		return domain.NewStorageError("cache set", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketCache).Put(cacheKey(key), data)
	})
	return domain.NewStorageError("cache set", err)
}

func (s *BoltStore) ClearCache(ctx context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketCache); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		_, err := tx.CreateBucket(bucketCache)
		return err
	})
	return domain.NewStorageError("cache clear", err)
}

func (s *BoltStore) CountCacheEntries(ctx context.Context) (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketCache).Stats().KeyN
		return nil
	})
	return n, domain.NewStorageError("count cache", err)
}

func (s *BoltStore) AppendHistory(ctx context.Context, entry domain.HistoryEntry) error {
	if entry.UserID == "" {
		return domain.NewStorageError("append history", fmt.Errorf("empty user id"))
	}
	data, err := json.Marshal(storedHistory{
		Timestamp: entry.Timestamp.UnixNano(),
		Role:      entry.Role,
		Text:      entry.Text,
	})
	if err != nil {
		return domain.NewStorageError("append history", err)
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		user, err := tx.Bucket(bucketHistory).CreateBucketIfNotExists([]byte(entry.UserID))
		if err != nil {
			return err
		}
		seq, err := user.NextSequence()
		if err != nil {
			return err
		}
		return user.Put(historyKey(entry.Timestamp, seq), data)
	})
	return domain.NewStorageError("append history", err)
}

func (s *BoltStore) RecentHistory(ctx context.Context, userID string, limit int) ([]domain.HistoryEntry, error) {
	entries := []domain.HistoryEntry{}
	if userID == "" || limit <= 0 {
		return entries, nil
	}
	err := s.db.View(func(tx *bbolt.Tx) error {
		user := tx.Bucket(bucketHistory).Bucket([]byte(userID))
		if user == nil {
			return nil
		}
		c := user.Cursor()
		for k, v := c.Last(); k != nil && len(entries) < limit; k, v = c.Prev() {
			var sh storedHistory
			if err := json.Unmarshal(v, &sh); err != nil {
				return err
			}
			entries = append(entries, domain.HistoryEntry{
				UserID:    userID,
				Timestamp: time.Unix(0, sh.Timestamp),
				Role:      sh.Role,
				Text:      sh.Text,
			})
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStorageError("recent history", err)
	}
	return entries, nil
}

func (s *BoltStore) Meta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.View(func(tx *bbolt.Tx) error {
		value = string(tx.Bucket(bucketMeta).Get([]byte(key)))
		return nil
	})
	return value, domain.NewStorageError("meta get", err)
}

func (s *BoltStore) SetMeta(ctx context.Context, key, value string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketMeta).Put([]byte(key), []byte(value))
	})
	return domain.NewStorageError("meta set", err)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

// cacheKey prefixes the raw query so that the empty query is still a valid
// bolt key. The query text itself is never normalized.
func cacheKey(query string) []byte {
	return append([]byte{'q'}, query...)
}

// historyKey orders entries by timestamp, with the per-user sequence breaking
// ties between entries recorded in the same nanosecond.
func historyKey(ts time.Time, seq uint64) []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[:8], uint64(ts.UnixNano()))
	binary.BigEndian.PutUint64(b[8:], seq)
	return b
}
