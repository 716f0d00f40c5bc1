// Package dataset holds the session's movement collection.
//
// The collection is flat and keeps insertion order. Writers never modify
// a published slice: every change builds a new slice and bumps the
// version, so readers can keep using what Rows returned. Concurrent edits
// are last-write-wins.
package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

var (
	ErrNotFound     = errors.New("movement not found")
	ErrInvalidPatch = errors.New("invalid patch")
)

// Patch lists the fields to change. Nil fields are left untouched.
type Patch struct {
	Type        *string          `json:"type,omitempty"`
	Entity      *string          `json:"entity,omitempty"`
	Group       *string          `json:"group,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Subcategory *string          `json:"subcategory,omitempty"`
	Detail      *string          `json:"detail,omitempty"`
	Code        *string          `json:"code,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Period      *string          `json:"period,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Type == nil && p.Entity == nil && p.Group == nil && p.Category == nil &&
		p.Subcategory == nil && p.Detail == nil && p.Code == nil && p.Amount == nil && p.Period == nil
}

// Store is the in-memory movement collection.
type Store struct {
	mu           sync.RWMutex
	rows         []core.Movement
	index        map[string]int
	version      uint64
	parser       core.PeriodParser
	placeholders core.Placeholders
}

// NewStore creates an empty store. The parser reads period tokens given in
// patches; placeholders fill labels cleared by a patch.
func NewStore(parser core.PeriodParser, placeholders core.Placeholders) *Store {
	return &Store{
		index:        map[string]int{},
		parser:       parser,
		placeholders: placeholders,
	}
}

// Rows returns the current collection. The slice must not be modified.
func (s *Store) Rows() []core.Movement {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows
}

// Snapshot returns the collection together with its version.
func (s *Store) Snapshot() ([]core.Movement, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rows, s.version
}

// Version increases on every change.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Len is the number of movements.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Get returns the movement with the given id.
func (s *Store) Get(id string) (core.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return core.Movement{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.rows[i], nil
}

// Replace swaps the whole collection, assigning ids where missing.
func (s *Store) Replace(rows []core.Movement) uint64 {
	next := make([]core.Movement, len(rows))
	copy(next, rows)
	assignIDs(next)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(next)
	return s.version
}

// Append adds movements at the end and returns them with their ids.
func (s *Store) Append(rows ...core.Movement) ([]core.Movement, error) {
	added := make([]core.Movement, len(rows))
	for i, m := range rows {
		m = s.placeholders.Apply(m)
		m.Type = strings.TrimSpace(m.Type)
		if err := m.Validate(); err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", ErrInvalidPatch, i, err)
		}
		added[i] = m
	}
	assignIDs(added)

	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]core.Movement, 0, len(s.rows)+len(added))
	next = append(next, s.rows...)
	next = append(next, added...)
	s.publish(next)
	return added, nil
}

// Update applies p to one movement. Changing the period re-derives the
// period key from the new token.
func (s *Store) Update(id string, p Patch) (core.Movement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return core.Movement{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	m, err := s.apply(s.rows[i], p)
	if err != nil {
		return core.Movement{}, err
	}
	next := make([]core.Movement, len(s.rows))
	copy(next, s.rows)
	next[i] = m
	s.publish(next)
	return m, nil
}

// BulkUpdate applies p to every listed movement and returns how many were
// changed. Unknown ids are skipped.
func (s *Store) BulkUpdate(ids []string, p Patch) (int, error) {
	if p.IsEmpty() {
		return 0, fmt.Errorf("%w: no fields to change", ErrInvalidPatch)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make([]core.Movement, len(s.rows))
	copy(next, s.rows)
	count := 0
	for _, id := range ids {
		i, ok := s.index[id]
		if !ok {
			continue
		}
		m, err := s.apply(next[i], p)
		if err != nil {
			return 0, err
		}
		next[i] = m
		count++
	}
	if count > 0 {
		s.publish(next)
	}
	return count, nil
}

// Clear removes every movement.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publish(nil)
}

// UniqueValues returns the sorted distinct non-empty values of f.
func (s *Store) UniqueValues(f core.Field) []string {
	return UniqueValues(s.Rows(), f)
}

// UniqueValues returns the sorted distinct non-empty values of f in rows.
func UniqueValues(rows []core.Movement, f core.Field) []string {
	seen := map[string]struct{}{}
	for _, r := range rows {
		if v := f.Value(r); v != "" {
			seen[v] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for v := range seen {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *Store) apply(m core.Movement, p Patch) (core.Movement, error) {
	if p.Type != nil {
		t := strings.TrimSpace(*p.Type)
		if t == "" {
			return m, fmt.Errorf("%w: type cannot be empty", ErrInvalidPatch)
		}
		m.Type = t
	}
	set := func(dst *string, v *string) {
		if v != nil {
			*dst = strings.TrimSpace(*v)
		}
	}
	set(&m.Entity, p.Entity)
	set(&m.Group, p.Group)
	set(&m.Category, p.Category)
	set(&m.Subcategory, p.Subcategory)
	set(&m.Detail, p.Detail)
	set(&m.Code, p.Code)
	if p.Amount != nil {
		m.Amount = *p.Amount
	}
	if p.Period != nil {
		token := strings.TrimSpace(*p.Period)
		period, err := s.parser.Parse(token)
		if err != nil {
			return m, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
		}
		m.Period = period
		m.RawPeriod = token
	}
	return s.placeholders.Apply(m), nil
}

// publish must be called with the write lock held.
func (s *Store) publish(rows []core.Movement) {
	index := make(map[string]int, len(rows))
	for i, m := range rows {
		index[m.ID] = i
	}
	s.rows = rows
	s.index = index
	s.version++
}

func assignIDs(rows []core.Movement) {
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
	}
}
