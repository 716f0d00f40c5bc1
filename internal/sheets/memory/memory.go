// Package memory is an in-process spreadsheet used when no Google
// credentials are configured and in tests.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	ports "flujo/internal/sheets"
)

var (
	_ ports.RowReader    = (*Store)(nil)
	_ ports.MirrorWriter = (*Store)(nil)
)

// Store keeps whole sheets by name. Ranges are resolved to their sheet;
// the cell part of a range is ignored.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
	writes int
}

func New(seed map[string][][]string) *Store {
	s := &Store{sheets: map[string][][]string{}}
	for name, values := range seed {
		s.sheets[name] = clone(values)
	}
	return s
}

func (s *Store) ReadRange(_ context.Context, rng string) ([][]string, error) {
	name := sheetName(rng)
	s.mu.Lock()
	defer s.mu.Unlock()
	values, ok := s.sheets[name]
	if !ok {
		return nil, fmt.Errorf("read %s: sheet %q not found", rng, name)
	}
	return clone(values), nil
}

func (s *Store) ReplaceSheet(_ context.Context, sheet string, values [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet] = clone(values)
	s.writes++
	return nil
}

// Sheet returns a copy of the named sheet.
func (s *Store) Sheet(name string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.sheets[name])
}

// Writes counts ReplaceSheet calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func sheetName(rng string) string {
	name, _, _ := strings.Cut(rng, "!")
	return strings.Trim(strings.TrimSpace(name), "'")
}

func clone(values [][]string) [][]string {
	if values == nil {
		return nil
	}
	out := make([][]string, len(values))
	for i, row := range values {
		out[i] = append([]string(nil), row...)
	}
	return out
}
