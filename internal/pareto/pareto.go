// Package pareto ranks dimension labels by absolute amount and finds the
// prefix covering a share of the total.
package pareto

import (
	"regexp"
	"sort"

	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

// DefaultThreshold is the coverage fraction used when none is configured.
var DefaultThreshold = decimal.RequireFromString("0.8")

var sortPrefix = regexp.MustCompile(`^\d{2}_`)

// StripPrefix removes a leading "NN_" ordering prefix from a label.
func StripPrefix(label string) string {
	return sortPrefix.ReplaceAllString(label, "")
}

// Item is one ranked label. Share and CumulativeShare are fractions of the
// ranking total.
type Item struct {
	Label           string          `json:"label"`
	Value           decimal.Decimal `json:"value"`
	Share           decimal.Decimal `json:"share"`
	CumulativeShare decimal.Decimal `json:"cumulative_share"`
}

// Ranking is the full ordered result of Rank.
type Ranking struct {
	Items []Item          `json:"items"`
	Total decimal.Decimal `json:"total"`
}

// Options configure Rank.
type Options struct {
	// StripPrefix drops "NN_" prefixes from item labels. Grouping and tie
	// order use the raw label, so "01_Sueldos" and "Sueldos" stay apart.
	StripPrefix bool
}

// Rank sums |amount| per label of dim and orders labels by that sum,
// largest first, ties by label. A zero total yields an empty ranking.
func Rank(rows []core.Movement, dim core.Field, opts Options) Ranking {
	sums := make(map[string]decimal.Decimal)
	var labels []string
	for _, r := range rows {
		label := dim.Value(r)
		v, ok := sums[label]
		if !ok {
			labels = append(labels, label)
		}
		sums[label] = v.Add(r.Amount.Abs())
	}

	total := decimal.Zero
	for _, l := range labels {
		total = total.Add(sums[l])
	}
	if total.IsZero() {
		return Ranking{Total: decimal.Zero}
	}

	sort.SliceStable(labels, func(i, j int) bool {
		a, b := sums[labels[i]], sums[labels[j]]
		if c := a.Cmp(b); c != 0 {
			return c > 0
		}
		return labels[i] < labels[j]
	})

	items := make([]Item, len(labels))
	running := decimal.Zero
	for i, l := range labels {
		v := sums[l]
		running = running.Add(v)
		if opts.StripPrefix {
			l = StripPrefix(l)
		}
		items[i] = Item{
			Label:           l,
			Value:           v,
			Share:           v.Div(total),
			CumulativeShare: running.Div(total),
		}
	}
	return Ranking{Items: items, Total: total}
}

// Coverage returns the shortest prefix whose running sum reaches
// threshold*total. The item that crosses the threshold is included.
// Changing the threshold never reorders the ranking.
func (r Ranking) Coverage(threshold decimal.Decimal) []Item {
	limit := r.Total.Mul(threshold)
	running := decimal.Zero
	var out []Item
	for _, it := range r.Items {
		if !running.LessThan(limit) {
			break
		}
		out = append(out, it)
		running = running.Add(it.Value)
	}
	return out
}

// Top returns at most n leading items.
func (r Ranking) Top(n int) []Item {
	if n < 0 || n >= len(r.Items) {
		return r.Items
	}
	return r.Items[:n]
}
