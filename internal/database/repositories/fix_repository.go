package repositories

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/CairBin/sc2replay-autofix/internal/database"
	"github.com/CairBin/sc2replay-autofix/pkg/models"
	bolt "go.etcd.io/bbolt"
)

const (
	// keyTimeFormat is fixed width so keys sort chronologically
	keyTimeFormat = "2006-01-02T15:04:05.000000000Z"

	// MetaKeyLastFix holds the time of the most recent successful fix
	MetaKeyLastFix = "last_fix"
)

// Summary aggregates the stored fix history
type Summary struct {
	Total     int                    `json:"total"`
	ByOutcome map[models.Outcome]int `json:"by_outcome"`
	First     time.Time              `json:"first,omitempty"`
	Last      time.Time              `json:"last,omitempty"`
	LastFix   time.Time              `json:"last_fix,omitempty"`
}

// FixRepository stores fix outcomes in the database
type FixRepository struct {
	db *database.Manager
}

// NewFixRepository creates a new fix repository
func NewFixRepository(db *database.Manager) *FixRepository {
	return &FixRepository{db: db}
}

func recordKey(rec *models.FixRecord) []byte {
	return []byte(rec.Timestamp.UTC().Format(keyTimeFormat) + "-" + rec.ID)
}

// Record stores rec. It is safe for concurrent use.
func (r *FixRepository) Record(rec *models.FixRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal fix record: %w", err)
	}

	return r.db.Transaction(true, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(database.BucketFixes))
		if b == nil {
			return fmt.Errorf("bucket %s not found", database.BucketFixes)
		}
		if err := b.Put(recordKey(rec), data); err != nil {
			return err
		}

		if rec.Outcome != models.OutcomeFixed {
			return nil
		}
		meta := tx.Bucket([]byte(database.BucketMetadata))
		if meta == nil {
			return fmt.Errorf("bucket %s not found", database.BucketMetadata)
		}
		stamp, err := rec.Timestamp.UTC().MarshalText()
		if err != nil {
			return err
		}
		return meta.Put([]byte(MetaKeyLastFix), stamp)
	})
}

// List returns up to limit records, newest first. A limit <= 0 returns all
// records; a non-empty outcome filters on it.
func (r *FixRepository) List(limit int, outcome models.Outcome) ([]*models.FixRecord, error) {
	var records []*models.FixRecord

	err := r.db.Transaction(false, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(database.BucketFixes))
		if b == nil {
			return fmt.Errorf("bucket %s not found", database.BucketFixes)
		}

		c := b.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var rec models.FixRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode fix record %s: %w", k, err)
			}
			if outcome != "" && rec.Outcome != outcome {
				continue
			}

			records = append(records, &rec)
			if limit > 0 && len(records) >= limit {
				break
			}
		}
		return nil
	})

	return records, err
}

// Summary counts the stored records per outcome
func (r *FixRepository) Summary() (*Summary, error) {
	summary := &Summary{ByOutcome: make(map[models.Outcome]int)}

	err := r.db.Transaction(false, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(database.BucketFixes))
		if b == nil {
			return fmt.Errorf("bucket %s not found", database.BucketFixes)
		}

		err := b.ForEach(func(k, v []byte) error {
			var rec models.FixRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode fix record %s: %w", k, err)
			}

			summary.Total++
			summary.ByOutcome[rec.Outcome]++
			if summary.First.IsZero() {
				summary.First = rec.Timestamp
			}
			summary.Last = rec.Timestamp
			return nil
		})
		if err != nil {
			return err
		}

		if meta := tx.Bucket([]byte(database.BucketMetadata)); meta != nil {
			if stamp := meta.Get([]byte(MetaKeyLastFix)); stamp != nil {
				return summary.LastFix.UnmarshalText(stamp)
			}
		}
		return nil
	})

	return summary, err
}

// Prune deletes every record older than before and returns how many were
// removed.
func (r *FixRepository) Prune(before time.Time) (int, error) {
	removed := 0
	limit := []byte(before.UTC().Format(keyTimeFormat))

	err := r.db.Transaction(true, func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(database.BucketFixes))
		if b == nil {
			return fmt.Errorf("bucket %s not found", database.BucketFixes)
		}

		var stale [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil && string(k) < string(limit); k, _ = c.Next() {
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			removed++
		}
		return nil
	})

	return removed, err
}

// IsEmpty reports whether nothing has been recorded yet
func (r *FixRepository) IsEmpty() (bool, error) {
	n, err := r.db.Count(database.BucketFixes)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
