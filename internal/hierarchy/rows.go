package hierarchy

import (
	"github.com/shopspring/decimal"
)

// Row is one line of the flattened pivot table.
//
// Labels holds the Type, Group, Category and Subcategory columns. A row
// fills its own column plus the columns of hidden levels between it and
// its nearest shown ancestor, so no label is lost when a level is hidden.
type Row struct {
	ID          string            `json:"id"`
	ParentID    string            `json:"parent_id,omitempty"`
	Depth       int               `json:"depth"`
	Level       Level             `json:"level"`
	Labels      [4]string         `json:"labels"`
	Totals      []decimal.Decimal `json:"totals"`
	HasChildren bool              `json:"has_children"`
	Collapsed   bool              `json:"collapsed"`
	Hidden      bool              `json:"hidden"`
}

// ViewState is the set of collapsed row ids. It is session state kept
// outside the tree.
type ViewState struct {
	Collapsed map[string]bool `json:"collapsed,omitempty"`
}

// DefaultDepth is the depth whose rows start collapsed: depth 0 is
// expanded and rows below depth 1 therefore start hidden.
const DefaultDepth = 1

// DefaultView collapses every row at DefaultDepth that has children.
func DefaultView(rows []Row) ViewState {
	v := ViewState{Collapsed: make(map[string]bool)}
	for _, r := range rows {
		if r.Depth == DefaultDepth && r.HasChildren {
			v.Collapsed[r.ID] = true
		}
	}
	return v
}

// Toggle flips the collapsed state of id.
func (v *ViewState) Toggle(id string) {
	if v.Collapsed == nil {
		v.Collapsed = make(map[string]bool)
	}
	if v.Collapsed[id] {
		delete(v.Collapsed, id)
		return
	}
	v.Collapsed[id] = true
}

// ExpandAll clears every collapsed row.
func (v *ViewState) ExpandAll() {
	v.Collapsed = make(map[string]bool)
}

// CollapseAll collapses every row with children.
func (v *ViewState) CollapseAll(rows []Row) {
	v.Collapsed = make(map[string]bool)
	for _, r := range rows {
		if r.HasChildren {
			v.Collapsed[r.ID] = true
		}
	}
}

// Flatten emits the shown rows of the tree in display order. A nil view
// applies DefaultView. A row is hidden when any shown ancestor is
// collapsed or hidden.
func Flatten(nodes []*Node, levels Levels, view *ViewState) []Row {
	var rows []Row
	var walk func(ns []*Node, parentID string, depth int, pending [4]string)
	walk = func(ns []*Node, parentID string, depth int, pending [4]string) {
		for _, n := range ns {
			labels := pending
			labels[n.Level] = n.Label
			if !levels.Enabled(n.Level) {
				walk(n.Children, parentID, depth, labels)
				continue
			}
			rows = append(rows, Row{
				ID:       n.ID,
				ParentID: parentID,
				Depth:    depth,
				Level:    n.Level,
				Labels:   labels,
				Totals:   n.Totals,
			})
			idx := len(rows) - 1
			walk(n.Children, n.ID, depth+1, [4]string{})
			rows[idx].HasChildren = len(rows)-1 > idx
		}
	}
	walk(nodes, "", 0, [4]string{})

	v := view
	if v == nil {
		def := DefaultView(rows)
		v = &def
	}
	applyView(rows, v)
	return rows
}

func applyView(rows []Row, v *ViewState) {
	// ids whose descendants are not visible
	closed := make(map[string]bool, len(rows))
	for i := range rows {
		r := &rows[i]
		r.Hidden = r.ParentID != "" && closed[r.ParentID]
		r.Collapsed = r.HasChildren && v.Collapsed[r.ID]
		if r.Hidden || r.Collapsed {
			closed[r.ID] = true
		}
	}
}
