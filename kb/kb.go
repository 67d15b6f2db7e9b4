package kb

import (
	"fmt"
	"sync"

	"github.com/mopilskog/NICER-Pointing/model"
)

// EventType indicates what kind of change happened in the store.
type EventType int

const (
	EventCatalogLoaded EventType = iota
	EventInstrumentRegistered
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type       EventType
	CatalogKey string
	Instrument string
}

// Store is an in-memory, thread-safe registry for the data a pointing
// run needs: the loaded survey catalogs, the instruments, and the
// auxiliary tables (detection chain, spectral fits, master joins).
type Store struct {
	mu sync.RWMutex

	catalogs    map[string]*model.SourceTable
	instruments map[string]*model.Instrument

	detections []model.DR11Row
	fits       []model.SpectralFitRow
	master     []model.MasterJoin

	subs []func(Event)
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{
		catalogs:    make(map[string]*model.SourceTable),
		instruments: make(map[string]*model.Instrument),
	}
}

// AddCatalog registers a loaded catalog under its schema key. It
// returns an error if the key is already taken.
func (s *Store) AddCatalog(table *model.SourceTable) error {
	if table == nil || table.Schema == nil {
		return fmt.Errorf("catalog table without schema")
	}
	key := table.Schema.Key

	s.mu.Lock()
	if _, exists := s.catalogs[key]; exists {
		s.mu.Unlock()
		return fmt.Errorf("catalog with key %q already loaded", key)
	}
	s.catalogs[key] = table
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	event := Event{Type: EventCatalogLoaded, CatalogKey: key}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Catalog returns the catalog with the given key, or nil if not loaded.
func (s *Store) Catalog(key string) *model.SourceTable {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalogs[key]
}

// CatalogKeys returns the keys of all loaded catalogs.
func (s *Store) CatalogKeys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.catalogs))
	for k := range s.catalogs {
		keys = append(keys, k)
	}
	return keys
}

// AddInstrument registers an instrument description. It returns an
// error if the name is already taken.
func (s *Store) AddInstrument(inst *model.Instrument) error {
	s.mu.Lock()
	if _, exists := s.instruments[inst.Name]; exists {
		s.mu.Unlock()
		return fmt.Errorf("instrument %q already registered", inst.Name)
	}
	s.instruments[inst.Name] = inst
	subs := append([]func(Event){}, s.subs...)
	s.mu.Unlock()

	event := Event{Type: EventInstrumentRegistered, Instrument: inst.Name}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// Instrument returns the instrument with the given name, or nil.
func (s *Store) Instrument(name string) *model.Instrument {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.instruments[name]
}

// SetAuxiliary replaces the auxiliary spectral tables in one shot.
// Loading them together keeps the name→detection→fit chain consistent.
func (s *Store) SetAuxiliary(detections []model.DR11Row, fits []model.SpectralFitRow, master []model.MasterJoin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections = detections
	s.fits = fits
	s.master = master
}

// Auxiliary returns the auxiliary tables. The slices are shared; they
// are treated as immutable once set.
func (s *Store) Auxiliary() (detections []model.DR11Row, fits []model.SpectralFitRow, master []model.MasterJoin) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detections, s.fits, s.master
}

// Subscribe registers a callback for store events. It returns an
// unsubscribe function.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
	idx := len(s.subs) - 1

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if idx < 0 || idx >= len(s.subs) {
			return
		}
		s.subs = append(s.subs[:idx], s.subs[idx+1:]...)
		idx = -1
	}
}
