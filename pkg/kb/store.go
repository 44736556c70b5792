package kb

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
)

// Snapshot is an immutable, ordered view of the KB. Readers hold on to a
// snapshot for the duration of a query and never observe partial updates.
type Snapshot struct {
	entries    []Entry
	candidates []candidateSet
	index      map[string]int
	version    uint64
	loadedAt   time.Time
}

func newSnapshot(entries []Entry, version uint64) *Snapshot {
	s := &Snapshot{
		entries:    entries,
		candidates: make([]candidateSet, len(entries)),
		index:      make(map[string]int, len(entries)),
		version:    version,
		loadedAt:   time.Now(),
	}
	for i, e := range entries {
		s.candidates[i] = buildCandidates(e)
		s.index[e.ID] = i
	}
	return s
}

// Entries returns a copy of the ordered entry list.
func (s *Snapshot) Entries() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Snapshot) Len() int { return len(s.entries) }

func (s *Snapshot) Version() uint64 { return s.version }

func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

func (s *Snapshot) Get(id string) (Entry, bool) {
	i, ok := s.index[id]
	if !ok {
		return Entry{}, false
	}
	return s.entries[i], true
}

// Search is a case-insensitive substring search over id, category and
// answer. It also reaches entries that have no match rules.
func (s *Snapshot) Search(query string) []Entry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}
	var out []Entry
	for _, e := range s.entries {
		if strings.Contains(strings.ToLower(e.ID), q) ||
			strings.Contains(strings.ToLower(e.Category), q) ||
			strings.Contains(strings.ToLower(e.Answer), q) {
			out = append(out, e)
		}
	}
	return out
}

// Store owns the current snapshot. Mutations build a new snapshot and swap
// it in with a single atomic store.
type Store struct {
	mu      sync.Mutex
	current atomic.Pointer[Snapshot]
}

func NewStore(entries []Entry) (*Store, error) {
	s := &Store{}
	if err := s.Set(entries); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSeededStore builds a store from the built-in seed list.
func NewSeededStore() *Store {
	s := &Store{}
	s.current.Store(newSnapshot(DefaultEntries(), 1))
	return s
}

func (s *Store) Snapshot() *Snapshot {
	snap := s.current.Load()
	if snap == nil {
		return newSnapshot(nil, 0)
	}
	return snap
}

// Set replaces the whole KB.
func (s *Store) Set(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	cp := make([]Entry, len(entries))
	copy(cp, entries)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.swap(cp)
	return nil
}

// Create appends a new entry. The id must not exist yet.
func (s *Store) Create(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	if _, ok := cur.index[e.ID]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, e.ID)
	}
	next := append(cur.Entries(), e)
	s.swap(next)
	return nil
}

// Update replaces an existing entry in place, keeping its position.
func (s *Store) Update(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	i, ok := cur.index[e.ID]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, e.ID)
	}
	next := cur.Entries()
	next[i] = e
	s.swap(next)
	return nil
}

// Upsert updates the entry when it exists and appends it otherwise.
func (s *Store) Upsert(e Entry) (created bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	next := cur.Entries()
	if i, ok := cur.index[e.ID]; ok {
		next[i] = e
	} else {
		next = append(next, e)
		created = true
	}
	s.swap(next)
	return created
}

func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := s.Snapshot()
	i, ok := cur.index[id]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	next := make([]Entry, 0, cur.Len()-1)
	next = append(next, cur.entries[:i]...)
	next = append(next, cur.entries[i+1:]...)
	s.swap(next)
	return nil
}

// LoadFile reloads the KB from a JSON file. On any error the active
// snapshot is left untouched.
func (s *Store) LoadFile(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %v", ErrMalformedSource, path, err)
	}
	defer f.Close()
	return s.Load(f)
}

// Load reloads the KB from a JSON document.
func (s *Store) Load(r io.Reader) (int, error) {
	sources, err := DecodeSources(r)
	if err != nil {
		return 0, err
	}
	entries, err := CompileAll(sources)
	if err != nil {
		return 0, err
	}
	if err := s.Set(entries); err != nil {
		return 0, err
	}
	return len(entries), nil
}

// swap must be called with mu held.
func (s *Store) swap(entries []Entry) {
	var version uint64 = 1
	if cur := s.current.Load(); cur != nil {
		version = cur.version + 1
	}
	s.current.Store(newSnapshot(entries, version))
}

var sourceValidator = validator.New()

// DecodeSources parses and validates a KB JSON document.
func DecodeSources(r io.Reader) ([]Source, error) {
	var sources []Source
	dec := json.NewDecoder(r)
	if err := dec.Decode(&sources); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSource, err)
	}
	for i, src := range sources {
		if err := sourceValidator.Struct(src); err != nil {
			return nil, fmt.Errorf("%w: entry %d: %v", ErrMalformedSource, i, err)
		}
	}
	return sources, nil
}
