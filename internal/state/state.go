// Package state persists the session journal: one record per item that
// was durably stored remotely. The journal survives restarts so a new
// session can recover remote identifiers, and the resync task uses the
// recorded content hashes to detect upstream changes in externally
// imported documents.
package state

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	// journalDirPerm is the permission mode for the journal directory.
	journalDirPerm = fs.FileMode(0o700)

	// journalFilePerm is the permission mode for the journal database file.
	journalFilePerm = fs.FileMode(0o600)

	// journalOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	journalOpenTimeout = 5 * time.Second
)

var uploadedBucket = []byte("uploaded")

// UploadedItem is the journal record for one durably stored item.
// SourceRef and SectionID are set only for externally imported items;
// ContentHash is the SHA-256 hex digest of the uploaded payload.
type UploadedItem struct {
	Token       string `json:"token"`
	RemoteID    string `json:"remote_id"`
	Name        string `json:"name"`
	SourceRef   string `json:"source_ref,omitempty"`
	SectionID   string `json:"section_id,omitempty"`
	ContentHash string `json:"content_hash"`
	UploadedAt  int64  `json:"uploaded_at"`
}

// Journal wraps a bbolt database holding uploaded item records.
type Journal struct {
	db *bolt.DB
}

// Open opens (or creates) the journal database at the given path.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), journalDirPerm); err != nil {
		return nil, fmt.Errorf("creating journal directory: %w", err)
	}

	db, err := bolt.Open(path, journalFilePerm, &bolt.Options{Timeout: journalOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("opening journal db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(uploadedBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing journal db: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Put persists an uploaded item record keyed by its token.
func (j *Journal) Put(item UploadedItem) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(item)
		if err != nil {
			return err
		}

		return tx.Bucket(uploadedBucket).Put([]byte(item.Token), data)
	})
}

// Get returns the record for a token, or nil if none exists.
func (j *Journal) Get(token string) (*UploadedItem, error) {
	var item *UploadedItem

	err := j.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(uploadedBucket).Get([]byte(token))
		if v == nil {
			return nil
		}

		item = &UploadedItem{}

		return json.Unmarshal(v, item)
	})

	return item, err
}

// Delete removes the record for a token. Deleting an absent token is
// not an error.
func (j *Journal) Delete(token string) error {
	return j.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(uploadedBucket).Delete([]byte(token))
	})
}

// All returns every journal record in token order.
func (j *Journal) All() ([]UploadedItem, error) {
	var items []UploadedItem

	err := j.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(uploadedBucket).ForEach(func(_, v []byte) error {
			var item UploadedItem
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}

			items = append(items, item)

			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// External returns the journal records that originated from an external
// source import, the population the resync task re-checks.
func (j *Journal) External() ([]UploadedItem, error) {
	all, err := j.All()
	if err != nil {
		return nil, err
	}

	var external []UploadedItem

	for _, item := range all {
		if item.SourceRef != "" {
			external = append(external, item)
		}
	}

	return external, nil
}
