// Package filter selects movements matching a set of criteria.
//
// Every active criterion must hold (logical AND). Filtering is stable and
// idempotent: the result keeps the input order and re-applying the same
// criteria to it changes nothing.
package filter

import (
	"strings"

	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

// AllEntities is the entity value meaning "no entity restriction".
const AllEntities = core.AllEntities

// Criteria holds the optional predicates. Zero values are inactive.
type Criteria struct {
	Entity    string                `json:"entity,omitempty"`
	From      core.PeriodKey        `json:"from,omitempty"`
	To        core.PeriodKey        `json:"to,omitempty"`
	Exact     map[core.Field]string `json:"exact,omitempty"`
	Contains  map[core.Field]string `json:"contains,omitempty"`
	AmountMin *decimal.Decimal      `json:"amount_min,omitempty"`
	AmountMax *decimal.Decimal      `json:"amount_max,omitempty"`
	Search    string                `json:"search,omitempty"`
}

// IsEmpty reports whether no criterion is active.
func (c Criteria) IsEmpty() bool {
	return !c.entityActive() && c.From == 0 && c.To == 0 &&
		len(c.activeExact()) == 0 && len(c.activeContains()) == 0 &&
		c.AmountMin == nil && c.AmountMax == nil &&
		strings.TrimSpace(c.Search) == ""
}

// Apply returns the movements matching c, in input order. Empty criteria
// return rows unchanged.
func Apply(rows []core.Movement, c Criteria) []core.Movement {
	if c.IsEmpty() {
		return rows
	}
	m := c.matcher()
	out := make([]core.Movement, 0, len(rows))
	for _, r := range rows {
		if m(r) {
			out = append(out, r)
		}
	}
	return out
}

func (c Criteria) matcher() func(core.Movement) bool {
	exact := c.activeExact()
	contains := c.activeContains()
	search := strings.ToLower(strings.TrimSpace(c.Search))
	entity := c.entityActive()

	return func(r core.Movement) bool {
		if entity && r.Entity != c.Entity {
			return false
		}
		key := r.PeriodKey()
		if c.From != 0 && key < c.From {
			return false
		}
		if c.To != 0 && key > c.To {
			return false
		}
		for f, v := range exact {
			if f.Value(r) != v {
				return false
			}
		}
		for f, v := range contains {
			if !strings.Contains(strings.ToLower(f.Value(r)), v) {
				return false
			}
		}
		if c.AmountMin != nil && r.Amount.LessThan(*c.AmountMin) {
			return false
		}
		if c.AmountMax != nil && r.Amount.GreaterThan(*c.AmountMax) {
			return false
		}
		if search != "" && !strings.Contains(SearchText(r), search) {
			return false
		}
		return true
	}
}

func (c Criteria) entityActive() bool {
	return !core.Consolidated(c.Entity)
}

func (c Criteria) activeExact() map[core.Field]string {
	out := make(map[core.Field]string, len(c.Exact))
	for f, v := range c.Exact {
		if v != "" {
			out[f] = v
		}
	}
	return out
}

func (c Criteria) activeContains() map[core.Field]string {
	out := make(map[core.Field]string, len(c.Contains))
	for f, v := range c.Contains {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			out[f] = v
		}
	}
	return out
}

// SearchText is the lower-cased concatenation of every visible text field.
func SearchText(r core.Movement) string {
	parts := make([]string, 0, len(core.Fields))
	for _, f := range core.Fields {
		parts = append(parts, f.Value(r))
	}
	return strings.ToLower(strings.Join(parts, " "))
}
