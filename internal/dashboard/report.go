// Package dashboard turns the movement collection and a view State into
// the figures the dashboard shows.
//
// Compute is pure: the same rows and state always give the same Report.
// Service adds caching, persistence and change notification around it.
package dashboard

import (
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"flujo/internal/aggregate"
	"flujo/internal/analysis"
	"flujo/internal/core"
	"flujo/internal/filter"
	"flujo/internal/hierarchy"
	"flujo/internal/pareto"
)

const (
	topExpenseCount  = 8
	topCategoryCount = 5
)

// Options configure Compute.
type Options struct {
	Types    core.TypeSet
	Language language.Tag
	// Horizon is the number of projected periods.
	Horizon int
	// Now resolves the default current month. Defaults to time.Now.
	Now func() time.Time
	// ParetoThreshold replaces the default threshold of new states when
	// positive.
	ParetoThreshold decimal.Decimal
	// Axis is a fixed period axis. Empty uses the periods present in the
	// rows.
	Axis []core.PeriodKey
}

func (o Options) axis(rows []core.Movement) []core.PeriodKey {
	if len(o.Axis) > 0 {
		return o.Axis
	}
	return aggregate.Axis(rows)
}

// DefaultOptions uses the workbook type labels and Spanish ordering.
func DefaultOptions() Options {
	return Options{
		Types:    core.DefaultTypes(),
		Language: language.Spanish,
		Horizon:  analysis.DefaultHorizon,
		Now:      time.Now,
	}
}

// Column describes one period of the summary axis.
type Column struct {
	Key       core.PeriodKey `json:"key"`
	Label     string         `json:"label"`
	LongLabel string         `json:"long_label"`
	Current   bool           `json:"current"`
	Projected bool           `json:"projected"`
}

// ParetoView is the ranked expense categories and the prefix covering
// the threshold.
type ParetoView struct {
	Threshold decimal.Decimal `json:"threshold"`
	Total     decimal.Decimal `json:"total"`
	Items     []pareto.Item   `json:"items"`
	// Categories is the number of ranked categories before the cut.
	Categories int `json:"categories"`
}

// LineChart plots income, |expense| and the running balance.
type LineChart struct {
	Labels       []string          `json:"labels"`
	Income       []decimal.Decimal `json:"income"`
	Expense      []decimal.Decimal `json:"expense"`
	Cumulative   []decimal.Decimal `json:"cumulative"`
	CurrentIndex int               `json:"current_index"`
}

// BarChart is one labelled value per bar.
type BarChart struct {
	Labels []string          `json:"labels"`
	Values []decimal.Decimal `json:"values"`
}

type Charts struct {
	Line             LineChart        `json:"line"`
	NetFlow          BarChart         `json:"net_flow"`
	IncomeByCategory []pareto.Item    `json:"income_by_category"`
	TopExpenses      []pareto.Item    `json:"top_expenses"`
	Waterfall        []aggregate.Step `json:"waterfall"`
}

// Report is the computed dashboard.
type Report struct {
	State     State            `json:"state"`
	Axis      []core.PeriodKey `json:"axis"`
	Columns   []Column         `json:"columns"`
	Movements int              `json:"movements"`
	Filtered  int              `json:"filtered"`

	Summary      aggregate.Series `json:"summary"`
	ShowTransfer bool             `json:"show_transfer"`
	Rows         []hierarchy.Row  `json:"rows"`

	KPIs          analysis.KPIs       `json:"kpis"`
	Comparison    []analysis.Change   `json:"comparison"`
	AvgVariation  decimal.Decimal     `json:"avg_variation"`
	Trend         analysis.Trend      `json:"trend"`
	Projection    analysis.Projection `json:"projection"`
	Alerts        []analysis.Alert    `json:"alerts"`
	AlertCount    int                 `json:"alert_count"`
	Pareto        ParetoView          `json:"pareto"`
	TopCategories []pareto.Item       `json:"top_categories"`
	Charts        Charts              `json:"charts"`
}

// Compute builds the report for state over rows.
func Compute(rows []core.Movement, state State, opts Options) Report {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Horizon <= 0 {
		opts.Horizon = analysis.DefaultHorizon
	}

	axis := opts.axis(rows)
	state = state.Resolve(axis, opts.Now())
	scope := aggregate.ScopeFor(state.Entity)
	aggOpts := aggregate.Options{Types: opts.Types, Scope: scope}

	filtered := filter.Apply(rows, state.Criteria())
	cols := aggregate.Window(axis, state.From, state.To)
	summary := aggregate.Aggregate(filtered, cols, aggOpts)

	r := Report{
		State:        state,
		Axis:         axis,
		Columns:      columns(cols, state.Current),
		Movements:    len(rows),
		Filtered:     len(filtered),
		Summary:      summary,
		ShowTransfer: scope == aggregate.SingleEntity,
	}

	tree := hierarchy.Build(filtered, cols, hierarchy.Options{Language: opts.Language})
	r.Rows = hierarchy.Flatten(tree, state.Levels, state.View())

	// Full-range figures use every period up to Current for the entity.
	kpiRows, kpiSeries := filtered, summary
	if state.KPIFullRange {
		kpiRows = filter.Apply(rows, state.KPICriteria())
		kpiSeries = aggregate.Aggregate(kpiRows, aggregate.Window(axis, 0, state.Current), aggOpts)
	}
	if len(kpiRows) == 0 {
		kpiSeries = aggregate.Series{}
	}
	r.KPIs = analysis.ComputeKPIs(kpiSeries, state.Current)
	r.Alerts = analysis.Alerts(r.KPIs, analysis.AverageVariation(analysis.Compare(kpiSeries)))
	r.AlertCount = analysis.Critical(r.Alerts)

	r.Comparison = analysis.Compare(summary)
	r.AvgVariation = analysis.AverageVariation(r.Comparison)
	r.Trend = analysis.ComputeTrend(summary)
	r.Projection = analysis.Project(summary, opts.Horizon)

	byCategory := pareto.Options{StripPrefix: true}
	expenses := pareto.Rank(ofType(kpiRows, opts.Types.Expense), core.FieldCategory, byCategory)
	r.Pareto = ParetoView{
		Threshold:  state.ParetoThreshold,
		Total:      expenses.Total,
		Items:      expenses.Coverage(state.ParetoThreshold),
		Categories: len(expenses.Items),
	}
	r.TopCategories = pareto.Rank(ofType(filtered, opts.Types.Expense), core.FieldCategory, byCategory).Top(topCategoryCount)

	r.Charts = Charts{
		Line:             lineChart(summary, state.Current),
		NetFlow:          BarChart{Labels: labels(cols), Values: summary.Net},
		IncomeByCategory: pareto.Rank(ofType(filtered, opts.Types.Income), core.FieldCategory, byCategory).Items,
		TopExpenses:      expenses.Top(topExpenseCount),
		Waterfall:        aggregate.Waterfall(summary),
	}
	return r
}

func columns(keys []core.PeriodKey, current core.PeriodKey) []Column {
	out := make([]Column, len(keys))
	for i, k := range keys {
		p := k.Period()
		out[i] = Column{
			Key:       k,
			Label:     p.Format(core.ShortLabel),
			LongLabel: p.Format(core.LongLabel),
			Current:   current != 0 && k == current,
			Projected: current != 0 && k > current,
		}
	}
	return out
}

func labels(keys []core.PeriodKey) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.Period().Format(core.ShortLabel)
	}
	return out
}

func lineChart(s aggregate.Series, current core.PeriodKey) LineChart {
	c := LineChart{
		Labels:       labels(s.Columns),
		Income:       s.Income,
		Expense:      make([]decimal.Decimal, s.Len()),
		Cumulative:   s.Cumulative,
		CurrentIndex: -1,
	}
	for i, v := range s.Expense {
		c.Expense[i] = v.Abs()
	}
	for i, k := range s.Columns {
		if k == current {
			c.CurrentIndex = i
		}
	}
	return c
}

func ofType(rows []core.Movement, typ string) []core.Movement {
	out := make([]core.Movement, 0, len(rows))
	for _, r := range rows {
		if r.Type == typ {
			out = append(out, r)
		}
	}
	return out
}
