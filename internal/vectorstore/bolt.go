package vectorstore

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/cloo-solutions/paddock/internal/domain"
)

var bucketCollections = []byte("collections")

type boltMeta struct {
	Dimension int           `json:"dimension"`
	Metric    domain.Metric `json:"metric"`
	CreatedAt time.Time     `json:"created_at"`
}

type boltRecord struct {
	Text      string    `json:"text"`
	SourceURL string    `json:"source_url,omitempty"`
	Vector    []float32 `json:"vector"`
}

// BoltStore keeps collections in a single bbolt file and searches them by
// exhaustive scan. Suited to development and small corpora.
type BoltStore struct {
	db   *bbolt.DB
	name string
}

// OpenBolt opens (or creates) the database at path bound to one collection.
func OpenBolt(path, collection string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, domain.StoreUnavailable(fmt.Errorf("failed to open %s: %w", path, err))
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketCollections)
		return err
	})
	if err != nil {
		db.Close()
		return nil, domain.StoreUnavailable(err)
	}

	return &BoltStore{db: db, name: collection}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func recordsBucket(name string) []byte {
	return []byte("records:" + name)
}

func (s *BoltStore) CreateCollection(ctx context.Context, name string, dimension int, metric domain.Metric) (bool, error) {
	if dimension <= 0 {
		return false, domain.NewDomainError(domain.ErrCodeInvalidRequest, "dimension must be positive")
	}

	var created bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		reg := tx.Bucket(bucketCollections)
		if raw := reg.Get([]byte(name)); raw != nil {
			var existing boltMeta
			if err := json.Unmarshal(raw, &existing); err != nil {
				return fmt.Errorf("corrupt metadata for %q: %w", name, err)
			}
			if existing.Dimension != dimension {
				return domain.DimensionMismatch(existing.Dimension, dimension)
			}
			if existing.Metric != metric {
				return domain.NewDomainError(domain.ErrCodeDimensionMismatch,
					fmt.Sprintf("collection %q already exists with metric %s, requested %s", name, existing.Metric, metric))
			}
			return nil
		}

		data, err := json.Marshal(boltMeta{Dimension: dimension, Metric: metric, CreatedAt: time.Now().UTC()})
		if err != nil {
			return err
		}
		if err := reg.Put([]byte(name), data); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(recordsBucket(name)); err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return false, storeErr(err)
	}

	if created {
		log.Printf("collection %q created (dimension %d, metric %s)", name, dimension, metric)
	} else {
		log.Printf("collection %q may already exist: keeping existing (dimension %d, metric %s)", name, dimension, metric)
	}
	return created, nil
}

func (s *BoltStore) meta(tx *bbolt.Tx) (boltMeta, *bbolt.Bucket, error) {
	var m boltMeta
	raw := tx.Bucket(bucketCollections).Get([]byte(s.name))
	records := tx.Bucket(recordsBucket(s.name))
	if raw == nil || records == nil {
		return m, nil, domain.StoreUnavailable(fmt.Errorf("collection %q does not exist", s.name))
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return m, nil, domain.StoreUnavailable(fmt.Errorf("corrupt metadata for %q: %w", s.name, err))
	}
	return m, records, nil
}

// Insert appends rec under the next sequence number of the collection.
func (s *BoltStore) Insert(ctx context.Context, rec domain.StoredRecord) error {
	return storeErr(s.db.Update(func(tx *bbolt.Tx) error {
		m, records, err := s.meta(tx)
		if err != nil {
			return err
		}
		if len(rec.Vector) != m.Dimension {
			return domain.DimensionMismatch(m.Dimension, len(rec.Vector))
		}

		seq, err := records.NextSequence()
		if err != nil {
			return domain.StoreUnavailable(err)
		}
		data, err := json.Marshal(boltRecord{Text: rec.Text, SourceURL: rec.SourceURL, Vector: rec.Vector})
		if err != nil {
			return err
		}

		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return records.Put(key, data)
	}))
}

// Search scores every record and returns the k best. Records with equal
// scores keep insertion order.
func (s *BoltStore) Search(ctx context.Context, vector []float32, k int) ([]domain.SearchHit, error) {
	hits := []domain.SearchHit{}
	err := s.db.View(func(tx *bbolt.Tx) error {
		m, records, err := s.meta(tx)
		if err != nil {
			return err
		}
		if len(vector) != m.Dimension {
			return domain.DimensionMismatch(m.Dimension, len(vector))
		}

		return records.ForEach(func(key, value []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var r boltRecord
			if err := json.Unmarshal(value, &r); err != nil {
				return fmt.Errorf("corrupt record %x: %w", key, err)
			}
			hits = append(hits, domain.SearchHit{
				Record: domain.StoredRecord{
					ID:        fmt.Sprintf("%d", binary.BigEndian.Uint64(key)),
					Vector:    r.Vector,
					Text:      r.Text,
					SourceURL: r.SourceURL,
				},
				Score: Score(m.Metric, vector, r.Vector),
			})
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if k < 0 {
		k = 0
	}
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (s *BoltStore) Info(ctx context.Context) (domain.CollectionInfo, error) {
	var info domain.CollectionInfo
	err := s.db.View(func(tx *bbolt.Tx) error {
		m, records, err := s.meta(tx)
		if err != nil {
			return err
		}
		info = domain.CollectionInfo{
			Name:      s.name,
			Dimension: m.Dimension,
			Metric:    m.Metric,
			Count:     int64(records.Stats().KeyN),
		}
		return nil
	})
	return info, storeErr(err)
}

// Ping checks the database file is still open.
func (s *BoltStore) Ping(ctx context.Context) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket(bucketCollections) == nil {
			return fmt.Errorf("registry bucket missing")
		}
		return nil
	})
	if err != nil {
		return domain.StoreUnavailable(err)
	}
	return nil
}

// storeErr passes domain errors through and wraps anything else as
// STORE_UNAVAILABLE.
func storeErr(err error) error {
	if err == nil {
		return nil
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return err
	}
	return domain.StoreUnavailable(err)
}
