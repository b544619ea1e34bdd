// Package iristore keeps the IRIs of resources which already exist on the
// server, keyed by resource class and id, so that update_with_server can
// resolve references without the sheets defining them.
package iristore

import (
	"encoding/json"
	"io"
	"sort"
	"sync"

	"github.com/pilosa/dspxml"
	"github.com/pilosa/dspxml/boltdb"
	"github.com/pilosa/dspxml/leveldb"
	"github.com/pkg/errors"
)

// Store maps (resource class, id) to an IRI. Implementations are safe for
// concurrent use.
type Store interface {
	Put(resource, id, iri string) error
	HasResource(resource string) (bool, error)
	Lookup(resource, id string) (iri string, ok bool, err error)
	Close() error
}

// Open opens the store of the given kind: "memory", "bolt" (path is a
// file) or "leveldb" (path is a directory).
func Open(kind, path string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMapStore(), nil
	case "bolt":
		if path == "" {
			return nil, dspxml.InputErrorf("the bolt IRI store needs a path")
		}
		bs, err := boltdb.NewStore(path)
		if err != nil {
			return nil, err
		}
		return bs, nil
	case "leveldb":
		if path == "" {
			return nil, dspxml.InputErrorf("the leveldb IRI store needs a path")
		}
		ls, err := leveldb.NewStore(path)
		if err != nil {
			return nil, err
		}
		return ls, nil
	}
	return nil, dspxml.InputErrorf("unknown IRI store %q, expected memory, bolt or leveldb", kind)
}

// ImportID2IRI reads a JSON object mapping ids to IRIs and stores each pair
// under resource. It returns the number of pairs.
func ImportID2IRI(s Store, resource string, r io.Reader) (int, error) {
	if resource == "" {
		return 0, dspxml.InputErrorf("an id2iri mapping needs a resource class")
	}
	var m map[string]string
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return 0, dspxml.InputErrorf("decoding id2iri mapping: %v", err)
	}
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := s.Put(resource, id, m[id]); err != nil {
			return 0, errors.Wrapf(err, "storing %s %s", resource, id)
		}
	}
	return len(ids), nil
}

// MapStore is an in-memory Store.
type MapStore struct {
	lock      sync.RWMutex
	resources map[string]*resourceMap
}

type resourceMap struct {
	m sync.Map
	n int
	l sync.Mutex
}

// NewMapStore creates an empty MapStore.
func NewMapStore() *MapStore {
	return &MapStore{resources: make(map[string]*resourceMap)}
}

func (s *MapStore) getResourceMap(resource string, create bool) *resourceMap {
	s.lock.RLock()
	if rm, ok := s.resources[resource]; ok {
		s.lock.RUnlock()
		return rm
	}
	s.lock.RUnlock()
	if !create {
		return nil
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	if rm, ok := s.resources[resource]; ok {
		return rm
	}
	s.resources[resource] = &resourceMap{}
	return s.resources[resource]
}

// Put stores iri for id; a later Put for the same id replaces it.
func (s *MapStore) Put(resource, id, iri string) error {
	rm := s.getResourceMap(resource, true)
	rm.l.Lock()
	if _, loaded := rm.m.Load(id); !loaded {
		rm.n++
	}
	rm.m.Store(id, iri)
	rm.l.Unlock()
	return nil
}

// HasResource reports whether any IRI is stored for resource.
func (s *MapStore) HasResource(resource string) (bool, error) {
	rm := s.getResourceMap(resource, false)
	if rm == nil {
		return false, nil
	}
	rm.l.Lock()
	defer rm.l.Unlock()
	return rm.n > 0, nil
}

// Lookup returns the IRI of id.
func (s *MapStore) Lookup(resource, id string) (string, bool, error) {
	rm := s.getResourceMap(resource, false)
	if rm == nil {
		return "", false, nil
	}
	v, ok := rm.m.Load(id)
	if !ok {
		return "", false, nil
	}
	iri, ok := v.(string)
	if !ok {
		return "", false, errors.Errorf("got non string value back from MapStore: %v", v)
	}
	return iri, true, nil
}

// Close does nothing.
func (s *MapStore) Close() error { return nil }
