// Package aggregate sums movements per type and period and derives the
// net and running-balance series.
//
// Every series returned here is aligned 1:1 with the period columns the
// caller passes in.
package aggregate

import (
	"sort"

	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

// Scope decides whether internal transfers count as real money movement.
type Scope int

const (
	// Consolidated nets income and expense only; transfers between
	// entities cancel out.
	Consolidated Scope = iota
	// SingleEntity also nets transfers, which move money in or out of
	// that entity.
	SingleEntity
)

// ScopeFor returns the scope implied by an entity filter value.
func ScopeFor(entity string) Scope {
	if core.Consolidated(entity) {
		return Consolidated
	}
	return SingleEntity
}

func (s Scope) String() string {
	if s == SingleEntity {
		return "single"
	}
	return "consolidated"
}

// Options configure an aggregation pass.
type Options struct {
	Types core.TypeSet
	Scope Scope
	// Where restricts the rows counted, nil counts all.
	Where func(core.Movement) bool
}

// Series is the per-period result of Aggregate.
type Series struct {
	Columns    []core.PeriodKey             `json:"columns"`
	ByType     map[string][]decimal.Decimal `json:"by_type"`
	Opening    []decimal.Decimal            `json:"opening"`
	Income     []decimal.Decimal            `json:"income"`
	Expense    []decimal.Decimal            `json:"expense"`
	Transfer   []decimal.Decimal            `json:"transfer"`
	Net        []decimal.Decimal            `json:"net"`
	Cumulative []decimal.Decimal            `json:"cumulative"`
}

// Len is the number of period columns.
func (s Series) Len() int {
	return len(s.Columns)
}

// Axis returns the sorted distinct period keys present in rows.
func Axis(rows []core.Movement) []core.PeriodKey {
	seen := make(map[core.PeriodKey]struct{})
	for _, r := range rows {
		seen[r.PeriodKey()] = struct{}{}
	}
	out := make([]core.PeriodKey, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Window keeps the axis keys within [from, to]. A zero bound is open.
func Window(axis []core.PeriodKey, from, to core.PeriodKey) []core.PeriodKey {
	out := make([]core.PeriodKey, 0, len(axis))
	for _, k := range axis {
		if from != 0 && k < from {
			continue
		}
		if to != 0 && k > to {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Range lists every month from first to last inclusive, for deployments
// that use a fixed calendar axis instead of the observed one.
func Range(first, last core.PeriodKey) []core.PeriodKey {
	if !first.Valid() || !last.Valid() || first > last {
		return nil
	}
	var out []core.PeriodKey
	p := first.Period()
	for k := first; k <= last; k = p.Key() {
		out = append(out, k)
		p.Month++
		if p.Month > 12 {
			p.Month = 1
			p.Year++
		}
	}
	return out
}

// SumByTypeAndPeriod adds the amounts of rows with the given type in the
// given period.
func SumByTypeAndPeriod(rows []core.Movement, typ string, key core.PeriodKey) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.Type == typ && r.PeriodKey() == key {
			total = total.Add(r.Amount)
		}
	}
	return total
}

// Totals sums rows per column regardless of type.
func Totals(rows []core.Movement, columns []core.PeriodKey) []decimal.Decimal {
	index := columnIndex(columns)
	out := zeros(len(columns))
	for _, r := range rows {
		if i, ok := index[r.PeriodKey()]; ok {
			out[i] = out[i].Add(r.Amount)
		}
	}
	return out
}

// Aggregate buckets rows once and builds every series.
//
// Net is income + expense, plus transfers under SingleEntity scope.
// Cumulative starts at opening[0] + net[0] and then adds net; opening
// balances of later periods are not re-added.
func Aggregate(rows []core.Movement, columns []core.PeriodKey, opts Options) Series {
	index := columnIndex(columns)
	s := Series{
		Columns: columns,
		ByType:  make(map[string][]decimal.Decimal),
	}
	for _, r := range rows {
		if opts.Where != nil && !opts.Where(r) {
			continue
		}
		i, ok := index[r.PeriodKey()]
		if !ok {
			continue
		}
		bucket, ok := s.ByType[r.Type]
		if !ok {
			bucket = zeros(len(columns))
			s.ByType[r.Type] = bucket
		}
		bucket[i] = bucket[i].Add(r.Amount)
	}

	s.Opening = s.typeSeries(opts.Types.Opening)
	s.Income = s.typeSeries(opts.Types.Income)
	s.Expense = s.typeSeries(opts.Types.Expense)
	s.Transfer = s.typeSeries(opts.Types.Transfer)

	s.Net = zeros(len(columns))
	s.Cumulative = zeros(len(columns))
	acc := decimal.Zero
	for i := range columns {
		net := s.Income[i].Add(s.Expense[i])
		if opts.Scope == SingleEntity {
			net = net.Add(s.Transfer[i])
		}
		s.Net[i] = net
		if i == 0 {
			acc = s.Opening[0].Add(net)
		} else {
			acc = acc.Add(net)
		}
		s.Cumulative[i] = acc
	}
	return s
}

func (s Series) typeSeries(typ string) []decimal.Decimal {
	if v, ok := s.ByType[typ]; ok {
		out := make([]decimal.Decimal, len(v))
		copy(out, v)
		return out
	}
	return zeros(len(s.Columns))
}

func columnIndex(columns []core.PeriodKey) map[core.PeriodKey]int {
	index := make(map[core.PeriodKey]int, len(columns))
	for i, k := range columns {
		index[k] = i
	}
	return index
}

func zeros(n int) []decimal.Decimal {
	out := make([]decimal.Decimal, n)
	for i := range out {
		out[i] = decimal.Zero
	}
	return out
}
