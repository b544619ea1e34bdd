// Package boltdb implements an IRI store on a bolt database file.
package boltdb

import (
	"time"

	"github.com/boltdb/bolt"
	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
)

var iriBucket = []byte("iris")

// Store keeps one bucket per resource class, mapping ids to IRIs.
type Store struct {
	Db *bolt.DB
}

// NewStore opens or creates the bolt file filename.
func NewStore(filename string) (bs *Store, err error) {
	bs = &Store{}
	bs.Db, err = bolt.Open(filename, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, dspxml.IOError(err, "opening db file "+filename)
	}
	bs.Db.MaxBatchDelay = 400 * time.Microsecond
	err = bs.Db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(iriBucket)
		return errors.Wrap(err, "creating iri bucket")
	})
	if err != nil {
		bs.Db.Close()
		return nil, dspxml.IOError(err, "ensuring bucket existence")
	}
	return bs, nil
}

// Close syncs and closes the database.
func (bs *Store) Close() error {
	err := bs.Db.Sync()
	if err != nil {
		return dspxml.IOError(err, "syncing db")
	}
	return dspxml.IOError(bs.Db.Close(), "closing db")
}

// Put stores iri for id under resource.
func (bs *Store) Put(resource, id, iri string) error {
	err := bs.Db.Batch(func(tx *bolt.Tx) error {
		rb, err := tx.Bucket(iriBucket).CreateBucketIfNotExists([]byte(resource))
		if err != nil {
			return errors.Wrap(err, "adding "+resource+" to iri bucket")
		}
		return errors.Wrap(rb.Put([]byte(id), []byte(iri)), "inserting into "+resource)
	})
	return dspxml.IOError(err, "storing iri")
}

// PutAll stores every id → IRI pair of m under resource in one
// transaction.
func (bs *Store) PutAll(resource string, m map[string]string) error {
	err := bs.Db.Update(func(tx *bolt.Tx) error {
		rb, err := tx.Bucket(iriBucket).CreateBucketIfNotExists([]byte(resource))
		if err != nil {
			return errors.Wrap(err, "adding "+resource+" to iri bucket")
		}
		for id, iri := range m {
			if err := rb.Put([]byte(id), []byte(iri)); err != nil {
				return errors.Wrap(err, "inserting into "+resource)
			}
		}
		return nil
	})
	return dspxml.IOError(err, "storing iris")
}

// HasResource reports whether the bucket of resource holds any IRI.
func (bs *Store) HasResource(resource string) (has bool, err error) {
	err = bs.Db.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(iriBucket).Bucket([]byte(resource))
		if rb == nil {
			return nil
		}
		k, _ := rb.Cursor().First()
		has = k != nil
		return nil
	})
	return has, dspxml.IOError(err, "reading iri bucket")
}

// Lookup returns the IRI stored for id under resource.
func (bs *Store) Lookup(resource, id string) (iri string, ok bool, err error) {
	err = bs.Db.View(func(tx *bolt.Tx) error {
		rb := tx.Bucket(iriBucket).Bucket([]byte(resource))
		if rb == nil {
			return nil
		}
		// the value is only valid during the transaction
		if v := rb.Get([]byte(id)); v != nil {
			iri, ok = string(v), true
		}
		return nil
	})
	return iri, ok, dspxml.IOError(err, "reading iri bucket")
}
