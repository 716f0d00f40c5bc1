package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

func row(typ, entity string, amount int64, month time.Month) core.Movement {
	return core.Movement{Type: typ, Entity: entity, Amount: decimal.NewFromInt(amount), Period: core.Period{Year: 2025, Month: month}}
}

func eq(t *testing.T, name string, got []decimal.Decimal, want ...int64) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("%s: expected %d values, got %d", name, len(want), len(got))
	}
	for i := range want {
		if !got[i].Equal(decimal.NewFromInt(want[i])) {
			t.Fatalf("%s[%d]: expected %d, got %s", name, i, want[i], got[i])
		}
	}
}

func TestNetScopeRule(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeIncome, "A", 100, time.March),
		row(core.TypeExpense, "A", -40, time.March),
		row(core.TypeTransfer, "A", 10, time.March),
	}
	cols := []core.PeriodKey{202503}

	consolidated := Aggregate(rows, cols, Options{Types: core.DefaultTypes(), Scope: Consolidated})
	eq(t, "consolidated net", consolidated.Net, 60)

	single := Aggregate(rows, cols, Options{Types: core.DefaultTypes(), Scope: SingleEntity})
	eq(t, "single net", single.Net, 70)
}

func TestCumulativeAddsOpeningOnce(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeOpening, "A", 1000, time.March),
		row(core.TypeIncome, "A", 200, time.March),
		row(core.TypeExpense, "A", -50, time.March),
		row(core.TypeOpening, "A", 999, time.April),
		row(core.TypeExpense, "A", -300, time.April),
		row(core.TypeIncome, "A", 100, time.May),
	}
	cols := []core.PeriodKey{202503, 202504, 202505}
	s := Aggregate(rows, cols, Options{Types: core.DefaultTypes()})

	eq(t, "opening", s.Opening, 1000, 999, 0)
	eq(t, "income", s.Income, 200, 0, 100)
	eq(t, "expense", s.Expense, -50, -300, 0)
	eq(t, "net", s.Net, 150, -300, 100)
	eq(t, "cumulative", s.Cumulative, 1150, 850, 950)
}

func TestAggregateAlignsWithColumns(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeIncome, "A", 100, time.January),
		row(core.TypeIncome, "A", 100, time.June),
		row("99_Otro", "A", 7, time.March),
	}
	cols := []core.PeriodKey{202503, 202504}
	s := Aggregate(rows, cols, Options{Types: core.DefaultTypes()})
	for name, series := range map[string][]decimal.Decimal{
		"opening": s.Opening, "income": s.Income, "expense": s.Expense,
		"transfer": s.Transfer, "net": s.Net, "cumulative": s.Cumulative,
	} {
		if len(series) != len(cols) {
			t.Fatalf("%s has %d values for %d columns", name, len(series), len(cols))
		}
	}
	eq(t, "other type", s.ByType["99_Otro"], 7, 0)
	eq(t, "income outside window", s.Income, 0, 0)
}

func TestAggregateEmpty(t *testing.T) {
	s := Aggregate(nil, nil, Options{Types: core.DefaultTypes()})
	if s.Len() != 0 || len(s.Net) != 0 || len(s.Cumulative) != 0 {
		t.Fatalf("expected empty series, got %+v", s)
	}
	if steps := Waterfall(s); steps != nil {
		t.Fatalf("expected no waterfall steps, got %v", steps)
	}
}

func TestAggregateWhere(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeIncome, "A", 100, time.March),
		row(core.TypeIncome, "B", 50, time.March),
	}
	s := Aggregate(rows, []core.PeriodKey{202503}, Options{
		Types: core.DefaultTypes(),
		Where: func(m core.Movement) bool { return m.Entity == "B" },
	})
	eq(t, "income", s.Income, 50)
}

func TestSumByTypeAndPeriod(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeExpense, "A", -40, time.March),
		row(core.TypeExpense, "B", -60, time.March),
		row(core.TypeExpense, "A", -5, time.April),
		row(core.TypeIncome, "A", 10, time.March),
	}
	if got := SumByTypeAndPeriod(rows, core.TypeExpense, 202503); !got.Equal(decimal.NewFromInt(-100)) {
		t.Fatalf("expected -100, got %s", got)
	}
	if got := SumByTypeAndPeriod(rows, core.TypeOpening, 202503); !got.IsZero() {
		t.Fatalf("expected 0, got %s", got)
	}
	eq(t, "totals", Totals(rows, []core.PeriodKey{202503, 202504}), -90, -5)
}

func TestAxisAndWindow(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeIncome, "A", 1, time.May),
		row(core.TypeIncome, "A", 1, time.March),
		row(core.TypeIncome, "A", 1, time.May),
		{Type: core.TypeIncome, Period: core.Period{Year: 2024, Month: time.December}},
	}
	axis := Axis(rows)
	if want := []core.PeriodKey{202412, 202503, 202505}; !reflect.DeepEqual(axis, want) {
		t.Fatalf("expected %v, got %v", want, axis)
	}
	if got := Window(axis, 202501, 0); !reflect.DeepEqual(got, []core.PeriodKey{202503, 202505}) {
		t.Fatalf("unexpected window %v", got)
	}
	if got := Window(axis, 0, 202503); !reflect.DeepEqual(got, []core.PeriodKey{202412, 202503}) {
		t.Fatalf("unexpected window %v", got)
	}
}

func TestRange(t *testing.T) {
	got := Range(202511, 202602)
	if want := []core.PeriodKey{202511, 202512, 202601, 202602}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if Range(202602, 202511) != nil {
		t.Fatalf("expected nil for inverted range")
	}
}

func TestWaterfall(t *testing.T) {
	rows := []core.Movement{
		row(core.TypeOpening, "A", 100, time.March),
		row(core.TypeIncome, "A", 50, time.March),
		row(core.TypeExpense, "A", -80, time.April),
	}
	s := Aggregate(rows, []core.PeriodKey{202503, 202504}, Options{Types: core.DefaultTypes()})
	steps := Waterfall(s)
	if len(steps) != 4 {
		t.Fatalf("expected 4 steps, got %d", len(steps))
	}
	if steps[1].Label != "mar-25" || !steps[1].Start.Equal(decimal.NewFromInt(100)) || !steps[1].End.Equal(decimal.NewFromInt(150)) {
		t.Fatalf("unexpected first flow: %+v", steps[1])
	}
	last := steps[len(steps)-1]
	if last.Kind != StepClosing || !last.End.Equal(decimal.NewFromInt(70)) || !steps[2].End.Equal(last.End) {
		t.Fatalf("closing should equal final balance: %+v", last)
	}
}

func TestScopeFor(t *testing.T) {
	if ScopeFor("") != Consolidated || ScopeFor("all") != Consolidated || ScopeFor("ACME") != SingleEntity {
		t.Fatalf("unexpected scope mapping")
	}
}
