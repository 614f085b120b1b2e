// Package catalog owns the in-memory set of tracked orbital objects.
//
// A Catalog is an immutable snapshot: the detector and cache always operate
// on a single Get() result, so a concurrent reseed can never be observed as
// a torn update mid-scan.
package catalog

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sentinel/orbitgo/internal/orbit"
)

// Catalog is one immutable generation of the tracked-object set.
type Catalog struct {
	Source   string
	Seed     int64
	SeededAt time.Time
	Objects  []orbit.Object
}

// Satellites returns the satellites in catalog order.
func (c *Catalog) Satellites() []orbit.Object {
	return c.byType(orbit.TypeSatellite)
}

// Debris returns the debris objects in catalog order.
func (c *Catalog) Debris() []orbit.Object {
	return c.byType(orbit.TypeDebris)
}

func (c *Catalog) byType(t orbit.ObjectType) []orbit.Object {
	out := make([]orbit.Object, 0, len(c.Objects))
	for _, o := range c.Objects {
		if o.Type == t {
			out = append(out, o)
		}
	}
	return out
}

// Lookup returns the object with the given id, or false.
func (c *Catalog) Lookup(id string) (orbit.Object, bool) {
	for _, o := range c.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return orbit.Object{}, false
}

// Store provides thread-safe access to the current catalog generation.
type Store struct {
	catalog atomic.Pointer[Catalog]
	mu      sync.Mutex // serializes reseed operations
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current catalog, or nil if none has been seeded.
func (s *Store) Get() *Catalog {
	return s.catalog.Load()
}

// Set atomically replaces the current catalog.
func (s *Store) Set(c *Catalog) {
	s.catalog.Store(c)
}

// AgeSeconds returns the age of the current catalog in seconds.
// Returns -1 if no catalog is loaded.
func (s *Store) AgeSeconds() float64 {
	c := s.catalog.Load()
	if c == nil {
		return -1
	}
	return time.Since(c.SeededAt).Seconds()
}

// Lock acquires the reseed mutex for serializing catalog replacement.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the reseed mutex.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
