// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

// Package leveldb implements an IRI store with one leveldb per resource
// class.
package leveldb

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pilosa/dspxml"
	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
)

// Store keeps the databases of every resource class under one directory.
type Store struct {
	lock      sync.RWMutex
	dirname   string
	resources map[string]*leveldb.DB
}

type errorList []error

func (errs errorList) Error() string {
	errstrings := make([]string, len(errs))
	for i, err := range errs {
		errstrings[i] = err.Error()
	}
	return strings.Join(errstrings, "; ")
}

// NewStore opens the store in dirname, creating the directory if needed.
// Databases which exist from an earlier run are opened lazily.
func NewStore(dirname string) (*Store, error) {
	if err := os.MkdirAll(dirname, 0700); err != nil {
		return nil, dspxml.IOError(err, "making directory")
	}
	return &Store{
		dirname:   dirname,
		resources: make(map[string]*leveldb.DB),
	}, nil
}

// Close closes all of the underlying leveldb instances.
func (ls *Store) Close() error {
	ls.lock.Lock()
	defer ls.lock.Unlock()
	errs := make(errorList, 0)
	for r, db := range ls.resources {
		if err := db.Close(); err != nil {
			errs = append(errs, errors.Wrapf(err, "resource : %v", r))
		}
	}
	ls.resources = make(map[string]*leveldb.DB)
	if len(errs) > 0 {
		return dspxml.IOError(errs, "closing iri store")
	}
	return nil
}

func (ls *Store) path(resource string) string {
	return filepath.Join(ls.dirname, resource+"-iri")
}

// getDB retrieves or opens the database of resource. Unless create is set,
// a database which does not exist yet is not created and getDB returns nil.
func (ls *Store) getDB(resource string, create bool) (*leveldb.DB, error) {
	ls.lock.RLock()
	if db, ok := ls.resources[resource]; ok {
		ls.lock.RUnlock()
		return db, nil
	}
	ls.lock.RUnlock()
	ls.lock.Lock()
	defer ls.lock.Unlock()
	if db, ok := ls.resources[resource]; ok {
		return db, nil
	}
	if _, err := os.Stat(ls.path(resource)); !create && os.IsNotExist(err) {
		return nil, nil
	}
	db, err := leveldb.OpenFile(ls.path(resource), &opt.Options{ErrorIfMissing: !create})
	if err != nil {
		if !create && os.IsNotExist(err) {
			return nil, nil
		}
		return nil, dspxml.IOError(err, "opening leveldb at "+ls.path(resource))
	}
	ls.resources[resource] = db
	return db, nil
}

// Put stores iri for id under resource.
func (ls *Store) Put(resource, id, iri string) error {
	db, err := ls.getDB(resource, true)
	if err != nil {
		return err
	}
	return dspxml.IOError(db.Put([]byte(id), []byte(iri), &opt.WriteOptions{}), "putting iri")
}

// HasResource reports whether resource has a database holding any IRI.
func (ls *Store) HasResource(resource string) (bool, error) {
	db, err := ls.getDB(resource, false)
	if err != nil || db == nil {
		return false, err
	}
	it := db.NewIterator(nil, nil)
	defer it.Release()
	has := it.First()
	return has, dspxml.IOError(it.Error(), "iterating "+resource)
}

// Lookup returns the IRI stored for id under resource.
func (ls *Store) Lookup(resource, id string) (string, bool, error) {
	db, err := ls.getDB(resource, false)
	if err != nil || db == nil {
		return "", false, err
	}
	data, err := db.Get([]byte(id), nil)
	if err == leveldb.ErrNotFound {
		return "", false, nil
	} else if err != nil {
		return "", false, dspxml.IOError(err, "reading iri")
	}
	return string(data), true, nil
}
