package analysis

import (
	"testing"

	"github.com/shopspring/decimal"

	"flujo/internal/aggregate"
	"flujo/internal/core"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func series(opening int64, income, expense []int64) aggregate.Series {
	cols := make([]core.PeriodKey, len(income))
	var rows []core.Movement
	for i := range income {
		p := core.PeriodKey(202501 + i).Period()
		cols[i] = p.Key()
		rows = append(rows,
			core.Movement{Type: core.TypeIncome, Amount: d(income[i]), Period: p},
			core.Movement{Type: core.TypeExpense, Amount: d(expense[i]), Period: p},
		)
	}
	if len(cols) > 0 {
		rows = append(rows, core.Movement{Type: core.TypeOpening, Amount: d(opening), Period: cols[0].Period()})
	}
	return aggregate.Aggregate(rows, cols, aggregate.Options{Types: core.DefaultTypes()})
}

func TestComputeKPIs(t *testing.T) {
	s := series(1000, []int64{300, 200, 100}, []int64{-100, -200, -300})
	k := ComputeKPIs(s, 202502)
	if !k.HasData || k.Months != 3 || k.ActualMonths != 2 || k.ProjectedMonths != 1 {
		t.Fatalf("unexpected month counts %+v", k)
	}
	if !k.TotalIncome.Equal(d(600)) || !k.TotalExpense.Equal(d(600)) || !k.Net.IsZero() {
		t.Fatalf("unexpected totals %+v", k)
	}
	if !k.AvgIncome.Equal(d(200)) || !k.AvgExpense.Equal(d(200)) {
		t.Fatalf("unexpected averages %+v", k)
	}
	if k.Coverage == nil || !k.Coverage.Equal(d(1)) {
		t.Fatalf("expected coverage 1, got %v", k.Coverage)
	}
	if !k.OpeningBalance.Equal(d(1000)) || !k.FinalBalance.Equal(d(1000)) || k.NegativeMonths != 1 {
		t.Fatalf("unexpected balances %+v", k)
	}

	if k := ComputeKPIs(s, 202512); k.ActualMonths != 3 || k.ProjectedMonths != 0 {
		t.Fatalf("current outside columns should count every month as actual: %+v", k)
	}
}

func TestComputeKPIsGuards(t *testing.T) {
	k := ComputeKPIs(aggregate.Series{}, 0)
	if k.HasData || k.Coverage != nil || !k.FinalBalance.IsZero() {
		t.Fatalf("expected empty KPIs, got %+v", k)
	}
	k = ComputeKPIs(series(0, []int64{100}, []int64{0}), 0)
	if k.Coverage != nil {
		t.Fatalf("coverage must be undefined without expenses, got %s", k.Coverage)
	}
}

func TestCompare(t *testing.T) {
	s := series(0, []int64{100, 150, 150}, []int64{-50, -50, -200})
	changes := Compare(s)
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	// net: 50, 100, -50
	if !changes[0].Net.Change.Equal(d(50)) || !changes[0].Net.Pct.Equal(d(100)) {
		t.Fatalf("unexpected first net change %+v", changes[0].Net)
	}
	if !changes[1].Net.Change.Equal(d(-150)) || !changes[1].Net.Pct.Equal(d(-150)) {
		t.Fatalf("unexpected second net change %+v", changes[1].Net)
	}
	if changes[0].From != 202501 || changes[0].To != 202502 {
		t.Fatalf("unexpected columns %+v", changes[0])
	}
	if avg := AverageVariation(changes); !avg.Equal(d(-25)) {
		t.Fatalf("expected -25, got %s", avg)
	}

	zero := Compare(series(0, []int64{0, 10}, []int64{0, 0}))
	if !zero[0].Net.Pct.IsZero() {
		t.Fatalf("pct from a zero previous value must be 0, got %s", zero[0].Net.Pct)
	}
	if Compare(series(0, []int64{1}, []int64{0})) != nil {
		t.Fatalf("a single column has nothing to compare")
	}
}

func TestComputeTrend(t *testing.T) {
	short := ComputeTrend(series(0, []int64{10, 20, 30, 40, 50}, []int64{0, 0, 0, 0, 0}))
	if short.Sufficient || short.Direction != "" || !short.AvgNet.Equal(d(30)) {
		t.Fatalf("five periods are not enough: %+v", short)
	}
	up := ComputeTrend(series(0, []int64{10, 20, 30, 40, 50, 60}, []int64{0, 0, 0, 0, 0, 0}))
	if !up.Sufficient || up.Direction != Up || !up.FirstAvg.Equal(d(20)) || !up.LastAvg.Equal(d(50)) {
		t.Fatalf("unexpected trend %+v", up)
	}
	flat := ComputeTrend(series(0, []int64{5, 5, 5, 5, 5, 5}, []int64{0, 0, 0, 0, 0, 0}))
	if flat.Direction != Flat {
		t.Fatalf("expected flat, got %s", flat.Direction)
	}
	down := ComputeTrend(series(0, []int64{60, 50, 40, 30, 20, 10}, []int64{-1, -1, -1, -1, -1, -1}))
	if down.Direction != Down || !down.AvgExpense.Equal(d(1)) {
		t.Fatalf("unexpected trend %+v", down)
	}
}

func TestProject(t *testing.T) {
	s := series(1000, []int64{0, 0}, []int64{-300, -100})
	p := Project(s, DefaultHorizon)
	if !p.LastBalance.Equal(d(600)) || !p.AvgNet.Equal(d(-200)) {
		t.Fatalf("unexpected base %+v", p)
	}
	want := []int64{400, 200, 0}
	for i, pt := range p.Points {
		if !pt.Balance.Equal(d(want[i])) || pt.Offset != i+1 {
			t.Fatalf("point %d: expected %d, got %+v", i, want[i], pt)
		}
	}
	if p.Points[0].Period != 202503 {
		t.Fatalf("unexpected first projected period %d", p.Points[0].Period)
	}
	if p.MonthsToDepletion == nil || *p.MonthsToDepletion != 3 {
		t.Fatalf("expected depletion in 3 months, got %v", p.MonthsToDepletion)
	}

	dec := Project(series(0, []int64{100}, []int64{0}), 3)
	if dec.MonthsToDepletion != nil {
		t.Fatalf("growing balance never depletes")
	}
	if Project(aggregate.Series{}, 3).Points != nil {
		t.Fatalf("empty series has no projection")
	}
}

func TestProjectYearRollover(t *testing.T) {
	s := aggregate.Aggregate(nil, []core.PeriodKey{202511, 202512}, aggregate.Options{Types: core.DefaultTypes()})
	p := Project(s, 2)
	if p.Points[0].Period != 202601 || p.Points[1].Period != 202602 {
		t.Fatalf("unexpected periods %+v", p.Points)
	}
}
