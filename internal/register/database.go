package register

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/zombor/caixa/internal/ledger"
)

const (
	sessionBucketName  = "session"
	closeOutBucketName = "closeouts"
)

var currentSessionKey = []byte("current")

// DB defines the interface for durable storage of the register
type DB interface {
	// SaveSession replaces the persisted session snapshot
	SaveSession(session *ledger.Session) error

	// LoadSession returns the persisted session, or nil when none was saved
	LoadSession() (*ledger.Session, error)

	// SaveCloseOut archives a confirmed close-out report
	SaveCloseOut(report *Report) error

	// GetCloseOut retrieves an archived close-out by ID
	GetCloseOut(id string) (*Report, error)

	// ListCloseOuts returns every archived close-out, oldest first
	ListCloseOuts() ([]*Report, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(sessionBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(closeOutBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveSession stores the session as a JSON snapshot
func (b *BoltDB) SaveSession(session *ledger.Session) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshaling session: %w", err)
		}
		return bucket.Put(currentSessionKey, data)
	})
}

// LoadSession reads the JSON snapshot back
func (b *BoltDB) LoadSession() (*ledger.Session, error) {
	var session *ledger.Session
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(sessionBucketName))
		data := bucket.Get(currentSessionKey)
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &session); err != nil {
			return fmt.Errorf("unmarshaling session: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// SaveCloseOut archives a close-out report under its ID
func (b *BoltDB) SaveCloseOut(report *Report) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(closeOutBucketName))
		data, err := json.Marshal(report)
		if err != nil {
			return fmt.Errorf("marshaling close-out: %w", err)
		}
		return bucket.Put([]byte(report.ID), data)
	})
}

// GetCloseOut retrieves an archived close-out by ID
func (b *BoltDB) GetCloseOut(id string) (*Report, error) {
	var report *Report
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(closeOutBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrNoReport, id)
		}
		if err := json.Unmarshal(data, &report); err != nil {
			return fmt.Errorf("unmarshaling close-out: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// ListCloseOuts returns all archived close-outs ordered by generation time
func (b *BoltDB) ListCloseOuts() ([]*Report, error) {
	reports := make([]*Report, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(closeOutBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var report Report
			if err := json.Unmarshal(v, &report); err != nil {
				return fmt.Errorf("unmarshaling close-out: %w", err)
			}
			reports = append(reports, &report)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sortReports(reports)
	return reports, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
