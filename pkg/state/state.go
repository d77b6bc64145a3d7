package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	bolt "go.etcd.io/bbolt"
)

var installsBucket = []byte("installs")

// Record is what the ledger remembers about one installed manifest:
// which version was installed, and which files the install produced.
type Record struct {
	Name        string    `json:"name"`
	Version     string    `json:"version"`
	Files       []string  `json:"files"`
	InstalledAt time.Time `json:"installedAt"`
}

// Ledger tracks installed manifests in a small bolt database. It is
// purely advisory: versions are always discovered by running the
// installed binaries, the ledger only remembers which files an install
// produced so that upgrades and removals can clean up files a previous
// manifest version installed.
type Ledger struct {
	db *bolt.DB
}

// Open opens the ledger at the given path, creating it when necessary.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, eris.Wrapf(err, "Failed to create data directory %s", filepath.Dir(path))
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to open install ledger %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(installsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, eris.Wrapf(err, "Failed to prepare install ledger %s", path)
	}

	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

// Put records an install, replacing any previous record with the same
// name.
func (l *Ledger) Put(record Record) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return eris.Wrapf(err, "Failed to encode install record for %s", record.Name)
	}

	err = l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(installsBucket).Put([]byte(record.Name), encoded)
	})
	if err != nil {
		return eris.Wrapf(err, "Failed to store install record for %s", record.Name)
	}
	return nil
}

// Get returns the record for the named manifest, or nil if there is
// none.
func (l *Ledger) Get(name string) (*Record, error) {
	var record *Record
	err := l.db.View(func(tx *bolt.Tx) error {
		item := tx.Bucket(installsBucket).Get([]byte(name))
		if item == nil {
			return nil
		}

		record = new(Record)
		return json.Unmarshal(item, record)
	})
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to read install record for %s", name)
	}
	return record, nil
}

// All returns every record, sorted by name.
func (l *Ledger) All() ([]Record, error) {
	var records []Record
	err := l.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(installsBucket).ForEach(func(key, value []byte) error {
			var record Record
			if err := json.Unmarshal(value, &record); err != nil {
				return eris.Wrapf(err, "Failed to decode install record for %s", key)
			}

			records = append(records, record)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Delete drops the record for the named manifest. Deleting a record that
// doesn't exist is fine.
func (l *Ledger) Delete(name string) error {
	err := l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(installsBucket).Delete([]byte(name))
	})
	if err != nil {
		return eris.Wrapf(err, "Failed to delete install record for %s", name)
	}
	return nil
}
