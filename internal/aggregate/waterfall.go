package aggregate

import (
	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

// StepKind classifies a waterfall bar.
type StepKind string

const (
	StepOpening StepKind = "opening"
	StepFlow    StepKind = "flow"
	StepClosing StepKind = "closing"
)

// Step is one waterfall bar, floating from Start to End.
type Step struct {
	Label string          `json:"label"`
	Kind  StepKind        `json:"kind"`
	Value decimal.Decimal `json:"value"`
	Start decimal.Decimal `json:"start"`
	End   decimal.Decimal `json:"end"`
}

// Waterfall turns a series into an opening bar, one bar per period net
// and a closing bar equal to the final cumulative balance.
func Waterfall(s Series) []Step {
	if s.Len() == 0 {
		return nil
	}
	opening := s.Opening[0]
	steps := make([]Step, 0, s.Len()+2)
	steps = append(steps, Step{Label: "Saldo inicial", Kind: StepOpening, Value: opening, Start: decimal.Zero, End: opening})

	level := opening
	for i, k := range s.Columns {
		next := level.Add(s.Net[i])
		steps = append(steps, Step{
			Label: k.Period().Format(core.ShortLabel),
			Kind:  StepFlow,
			Value: s.Net[i],
			Start: level,
			End:   next,
		})
		level = next
	}
	closing := s.Cumulative[s.Len()-1]
	steps = append(steps, Step{Label: "Saldo final", Kind: StepClosing, Value: closing, Start: decimal.Zero, End: closing})
	return steps
}
