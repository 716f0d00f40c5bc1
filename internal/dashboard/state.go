package dashboard

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"flujo/internal/core"
	"flujo/internal/dataset"
	"flujo/internal/filter"
	"flujo/internal/hierarchy"
	"flujo/internal/pareto"
)

// State is everything the dashboard view depends on. It is plain data and
// round-trips through JSON.
type State struct {
	Entity  string         `json:"entity"`
	From    core.PeriodKey `json:"from,omitempty"`
	To      core.PeriodKey `json:"to,omitempty"`
	Current core.PeriodKey `json:"current,omitempty"`

	Levels          hierarchy.Levels `json:"levels"`
	ParetoThreshold decimal.Decimal  `json:"pareto_threshold"`
	// KPIFullRange computes KPIs, top expenses and Pareto from the first
	// period up to Current instead of the selected range.
	KPIFullRange bool `json:"kpi_full_range"`
	// Collapsed is the pivot view state; nil applies the default view.
	Collapsed map[string]bool `json:"collapsed,omitempty"`

	DB DBView `json:"db"`
}

// DBView is the state of the movement listing.
type DBView struct {
	Search    string           `json:"search,omitempty"`
	Entity    string           `json:"entity,omitempty"`
	Type      string           `json:"type,omitempty"`
	Group     string           `json:"group,omitempty"`
	Category  string           `json:"category,omitempty"`
	Period    string           `json:"period,omitempty"`
	Detail    string           `json:"detail,omitempty"`
	Sub       string           `json:"subcategory,omitempty"`
	Code      string           `json:"code,omitempty"`
	AmountMin *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax *decimal.Decimal `json:"amount_max,omitempty"`
	Page      int              `json:"page"`
	// Size is the page size; 0 shows every row.
	Size     int      `json:"size"`
	Selected []string `json:"selected,omitempty"`
}

// DefaultState is the view shown after an import.
func DefaultState() State {
	return State{
		Entity:          filter.AllEntities,
		Levels:          hierarchy.AllLevels(),
		ParetoThreshold: pareto.DefaultThreshold,
		KPIFullRange:    true,
		DB:              DBView{Page: 1, Size: dataset.DefaultPageSize},
	}
}

// ParseState decodes a JSON state over the defaults.
func ParseState(data []byte) (State, error) {
	return ParseStateOver(DefaultState(), data)
}

// ParseStateOver decodes a JSON state over base.
func ParseStateOver(base State, data []byte) (State, error) {
	s := base
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("decode state: %w", err)
	}
	return s, s.Validate()
}

// Validate rejects states no view can represent.
func (s State) Validate() error {
	if s.From != 0 && !s.From.Valid() {
		return fmt.Errorf("invalid from period %d", s.From)
	}
	if s.To != 0 && !s.To.Valid() {
		return fmt.Errorf("invalid to period %d", s.To)
	}
	if s.From != 0 && s.To != 0 && s.From > s.To {
		return fmt.Errorf("from %d is after to %d", s.From, s.To)
	}
	if s.Current != 0 && !s.Current.Valid() {
		return fmt.Errorf("invalid current period %d", s.Current)
	}
	if !s.ParetoThreshold.IsPositive() || s.ParetoThreshold.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("pareto threshold %s must be in (0, 1]", s.ParetoThreshold)
	}
	if s.DB.Size < 0 {
		return fmt.Errorf("invalid page size %d", s.DB.Size)
	}
	return nil
}

// Criteria selects the dashboard rows: entity and period range.
func (s State) Criteria() filter.Criteria {
	return filter.Criteria{Entity: s.Entity, From: s.From, To: s.To}
}

// KPICriteria selects the rows behind the full-range figures: the entity
// and everything up to Current.
func (s State) KPICriteria() filter.Criteria {
	return filter.Criteria{Entity: s.Entity, To: s.Current}
}

// DBCriteria selects the movement listing rows. Detail, subcategory and
// code match by substring; the other columns exactly.
func (s State) DBCriteria() filter.Criteria {
	return filter.Criteria{
		Exact: map[core.Field]string{
			core.FieldEntity:   s.DB.Entity,
			core.FieldType:     s.DB.Type,
			core.FieldGroup:    s.DB.Group,
			core.FieldCategory: s.DB.Category,
			core.FieldPeriod:   s.DB.Period,
		},
		Contains: map[core.Field]string{
			core.FieldDetail:      s.DB.Detail,
			core.FieldSubcategory: s.DB.Sub,
			core.FieldCode:        s.DB.Code,
		},
		AmountMin: s.DB.AmountMin,
		AmountMax: s.DB.AmountMax,
		Search:    s.DB.Search,
	}
}

// View returns the pivot view state.
func (s State) View() *hierarchy.ViewState {
	if s.Collapsed == nil {
		return nil
	}
	return &hierarchy.ViewState{Collapsed: s.Collapsed}
}

// DefaultCurrent picks the reference month on axis: the latest period not
// after now, or the last period when all of them are in the future.
func DefaultCurrent(axis []core.PeriodKey, now time.Time) core.PeriodKey {
	if len(axis) == 0 {
		return 0
	}
	today := core.Period{Year: now.Year(), Month: now.Month()}.Key()
	for i := len(axis) - 1; i >= 0; i-- {
		if axis[i] <= today {
			return axis[i]
		}
	}
	return axis[len(axis)-1]
}

// Resolve fills the defaults that depend on the data.
func (s State) Resolve(axis []core.PeriodKey, now time.Time) State {
	if s.Entity == "" {
		s.Entity = filter.AllEntities
	}
	if s.Current == 0 {
		s.Current = DefaultCurrent(axis, now)
	}
	if s.ParetoThreshold.IsZero() {
		s.ParetoThreshold = pareto.DefaultThreshold
	}
	if s.DB.Page < 1 {
		s.DB.Page = 1
	}
	return s
}
