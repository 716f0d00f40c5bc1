// Package analysis derives KPIs, period comparisons, trend, projection and
// alerts from an aggregated series.
//
// Ratios that would divide by zero are reported as nil.
package analysis

import (
	"github.com/shopspring/decimal"

	"flujo/internal/aggregate"
	"flujo/internal/core"
)

var hundred = decimal.NewFromInt(100)

// KPIs summarize a series.
type KPIs struct {
	HasData         bool             `json:"has_data"`
	Months          int              `json:"months"`
	ActualMonths    int              `json:"actual_months"`
	ProjectedMonths int              `json:"projected_months"`
	NegativeMonths  int              `json:"negative_months"`
	TotalIncome     decimal.Decimal  `json:"total_income"`
	TotalExpense    decimal.Decimal  `json:"total_expense"`
	Net             decimal.Decimal  `json:"net"`
	AvgIncome       decimal.Decimal  `json:"avg_income"`
	AvgExpense      decimal.Decimal  `json:"avg_expense"`
	AvgNet          decimal.Decimal  `json:"avg_net"`
	OpeningBalance  decimal.Decimal  `json:"opening_balance"`
	FinalBalance    decimal.Decimal  `json:"final_balance"`
	Coverage        *decimal.Decimal `json:"coverage"`
}

// ComputeKPIs totals a series. TotalExpense and AvgExpense are magnitudes.
// Coverage is income over |expense|, nil when there is no expense.
// When current is one of the columns, months up to it count as actual and
// the rest as projected.
func ComputeKPIs(s aggregate.Series, current core.PeriodKey) KPIs {
	k := KPIs{
		TotalIncome:    decimal.Zero,
		TotalExpense:   decimal.Zero,
		Net:            decimal.Zero,
		AvgIncome:      decimal.Zero,
		AvgExpense:     decimal.Zero,
		AvgNet:         decimal.Zero,
		OpeningBalance: decimal.Zero,
		FinalBalance:   decimal.Zero,
	}
	n := s.Len()
	if n == 0 {
		return k
	}
	k.HasData = true
	k.Months = n
	k.ActualMonths = n

	k.TotalIncome = core.Sum(s.Income)
	k.TotalExpense = core.Sum(s.Expense).Abs()
	k.Net = core.Sum(s.Net)
	months := decimal.NewFromInt(int64(n))
	k.AvgIncome = k.TotalIncome.Div(months)
	k.AvgExpense = k.TotalExpense.Div(months)
	k.AvgNet = k.Net.Div(months)
	k.OpeningBalance = s.Opening[0]
	k.FinalBalance = s.Cumulative[n-1]
	k.Coverage = core.Ratio(k.TotalIncome, k.TotalExpense)

	for _, v := range s.Net {
		if v.IsNegative() {
			k.NegativeMonths++
		}
	}
	for i, col := range s.Columns {
		if current != 0 && col == current {
			k.ActualMonths = i + 1
			k.ProjectedMonths = n - k.ActualMonths
			break
		}
	}
	return k
}

// Delta compares one value across two consecutive periods. Pct is the
// change relative to |previous| in percent, zero when previous is zero.
type Delta struct {
	Previous decimal.Decimal `json:"previous"`
	Current  decimal.Decimal `json:"current"`
	Change   decimal.Decimal `json:"change"`
	Pct      decimal.Decimal `json:"pct"`
}

func delta(prev, cur decimal.Decimal) Delta {
	d := Delta{Previous: prev, Current: cur, Change: cur.Sub(prev), Pct: decimal.Zero}
	if !prev.IsZero() {
		d.Pct = d.Change.Div(prev.Abs()).Mul(hundred)
	}
	return d
}

// Change is the month-over-month comparison of two consecutive columns.
type Change struct {
	From    core.PeriodKey `json:"from"`
	To      core.PeriodKey `json:"to"`
	Income  Delta          `json:"income"`
	Expense Delta          `json:"expense"`
	Net     Delta          `json:"net"`
}

// Compare returns one Change per consecutive column pair. Fewer than two
// columns yield nothing.
func Compare(s aggregate.Series) []Change {
	if s.Len() < 2 {
		return nil
	}
	out := make([]Change, 0, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		out = append(out, Change{
			From:    s.Columns[i-1],
			To:      s.Columns[i],
			Income:  delta(s.Income[i-1], s.Income[i]),
			Expense: delta(s.Expense[i-1], s.Expense[i]),
			Net:     delta(s.Net[i-1], s.Net[i]),
		})
	}
	return out
}

// AverageVariation is the mean net Pct across changes, zero when empty.
func AverageVariation(changes []Change) decimal.Decimal {
	if len(changes) == 0 {
		return decimal.Zero
	}
	total := decimal.Zero
	for _, c := range changes {
		total = total.Add(c.Net.Pct)
	}
	return total.Div(decimal.NewFromInt(int64(len(changes))))
}

// Direction of a trend.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

// TrendWindow is the number of periods averaged at each end.
const TrendWindow = 3

// Trend compares the average net of the first and last TrendWindow
// periods. It needs at least 2*TrendWindow periods to be Sufficient.
type Trend struct {
	Sufficient bool            `json:"sufficient"`
	Direction  Direction       `json:"direction,omitempty"`
	FirstAvg   decimal.Decimal `json:"first_avg"`
	LastAvg    decimal.Decimal `json:"last_avg"`
	AvgNet     decimal.Decimal `json:"avg_net"`
	AvgIncome  decimal.Decimal `json:"avg_income"`
	AvgExpense decimal.Decimal `json:"avg_expense"`
}

// ComputeTrend averages the series and, given enough periods, labels the
// direction.
func ComputeTrend(s aggregate.Series) Trend {
	t := Trend{
		FirstAvg: decimal.Zero, LastAvg: decimal.Zero,
		AvgNet: decimal.Zero, AvgIncome: decimal.Zero, AvgExpense: decimal.Zero,
	}
	n := s.Len()
	if n == 0 {
		return t
	}
	t.AvgNet = mean(s.Net)
	t.AvgIncome = mean(s.Income)
	t.AvgExpense = mean(s.Expense).Abs()
	if n < 2*TrendWindow {
		return t
	}
	t.Sufficient = true
	t.FirstAvg = mean(s.Net[:TrendWindow])
	t.LastAvg = mean(s.Net[n-TrendWindow:])
	switch t.LastAvg.Cmp(t.FirstAvg) {
	case 1:
		t.Direction = Up
	case -1:
		t.Direction = Down
	default:
		t.Direction = Flat
	}
	return t
}

// DefaultHorizon is the number of periods projected.
const DefaultHorizon = 3

// ProjectedPoint is the expected balance a number of periods ahead.
type ProjectedPoint struct {
	Offset  int             `json:"offset"`
	Period  core.PeriodKey  `json:"period"`
	Balance decimal.Decimal `json:"balance"`
}

// Projection extends the final balance linearly by the average net.
type Projection struct {
	LastBalance decimal.Decimal  `json:"last_balance"`
	AvgNet      decimal.Decimal  `json:"avg_net"`
	Points      []ProjectedPoint `json:"points"`
	// MonthsToDepletion is set when the balance is positive and shrinking.
	MonthsToDepletion *int `json:"months_to_depletion,omitempty"`
}

// Project computes horizon future balances: last + avgNet*i.
func Project(s aggregate.Series, horizon int) Projection {
	p := Projection{LastBalance: decimal.Zero, AvgNet: decimal.Zero}
	n := s.Len()
	if n == 0 {
		return p
	}
	p.LastBalance = s.Cumulative[n-1]
	p.AvgNet = mean(s.Net)

	next := s.Columns[n-1].Period()
	for i := 1; i <= horizon; i++ {
		next.Month++
		if next.Month > 12 {
			next.Month = 1
			next.Year++
		}
		p.Points = append(p.Points, ProjectedPoint{
			Offset:  i,
			Period:  next.Key(),
			Balance: p.LastBalance.Add(p.AvgNet.Mul(decimal.NewFromInt(int64(i)))),
		})
	}
	if p.AvgNet.IsNegative() && p.LastBalance.IsPositive() {
		months := int(p.LastBalance.Div(p.AvgNet.Abs()).Ceil().IntPart())
		p.MonthsToDepletion = &months
	}
	return p
}

func mean(values []decimal.Decimal) decimal.Decimal {
	if len(values) == 0 {
		return decimal.Zero
	}
	return core.Sum(values).Div(decimal.NewFromInt(int64(len(values))))
}
