// Package hierarchy builds the Type → Group → Category → Subcategory
// pivot tree with per-period totals.
//
// The tree is always built down to the subcategory leaves. Hiding levels
// and collapsing rows are presentation steps applied to the finished tree,
// so a parent's totals always equal the sum of its children's totals.
package hierarchy

import (
	"net/url"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"flujo/internal/aggregate"
	"flujo/internal/core"
)

// Level is a depth of the full tree.
type Level int

const (
	LevelType Level = iota
	LevelGroup
	LevelCategory
	LevelSubcategory
)

var levelNames = [...]string{"type", "group", "category", "subcategory"}

func (l Level) String() string {
	if l < LevelType || l > LevelSubcategory {
		return "unknown"
	}
	return levelNames[l]
}

func (l Level) field() core.Field {
	switch l {
	case LevelType:
		return core.FieldType
	case LevelGroup:
		return core.FieldGroup
	case LevelCategory:
		return core.FieldCategory
	}
	return core.FieldSubcategory
}

// Node is one pivot row. Totals align with the period columns the tree
// was built for.
type Node struct {
	ID          string            `json:"id"`
	Level       Level             `json:"level"`
	Label       string            `json:"label"`
	Totals      []decimal.Decimal `json:"totals"`
	Children    []*Node           `json:"children,omitempty"`
	HasChildren bool              `json:"has_children"`
	Count       int               `json:"count"`
}

// Options configure Build.
type Options struct {
	// Language drives label ordering. Defaults to Spanish.
	Language language.Tag
}

// Build groups rows into the full four-level tree. Siblings are sorted by
// label with locale-aware collation.
func Build(rows []core.Movement, columns []core.PeriodKey, opts Options) []*Node {
	tag := opts.Language
	if tag == language.Und {
		tag = language.Spanish
	}
	b := builder{
		columns: columns,
		col:     collate.New(tag),
	}
	return b.level(rows, LevelType, "")
}

type builder struct {
	columns []core.PeriodKey
	col     *collate.Collator
}

func (b *builder) level(rows []core.Movement, lvl Level, parentID string) []*Node {
	if len(rows) == 0 {
		return nil
	}
	f := lvl.field()
	groups := make(map[string][]core.Movement)
	var labels []string
	for _, r := range rows {
		label := f.Value(r)
		if _, ok := groups[label]; !ok {
			labels = append(labels, label)
		}
		groups[label] = append(groups[label], r)
	}
	b.col.SortStrings(labels)

	nodes := make([]*Node, 0, len(labels))
	for _, label := range labels {
		members := groups[label]
		n := &Node{
			ID:     nodeID(parentID, label),
			Level:  lvl,
			Label:  label,
			Totals: aggregate.Totals(members, b.columns),
			Count:  len(members),
		}
		if lvl < LevelSubcategory {
			n.Children = b.level(members, lvl+1, n.ID)
		}
		n.HasChildren = len(n.Children) > 0
		nodes = append(nodes, n)
	}
	return nodes
}

// nodeID derives a stable id from the label path, so view state keyed by
// id survives rebuilds.
func nodeID(parentID, label string) string {
	seg := url.PathEscape(label)
	if seg == "" {
		seg = "_"
	}
	if parentID == "" {
		return seg
	}
	return parentID + "/" + seg
}

// Levels selects which of the three collapsible levels are shown.
// Subcategory leaves are always shown.
type Levels struct {
	Type     bool `json:"type"`
	Group    bool `json:"group"`
	Category bool `json:"category"`
}

// AllLevels shows every level.
func AllLevels() Levels {
	return Levels{Type: true, Group: true, Category: true}
}

// Enabled reports whether rows of level l are emitted.
func (lv Levels) Enabled(l Level) bool {
	switch l {
	case LevelType:
		return lv.Type
	case LevelGroup:
		return lv.Group
	case LevelCategory:
		return lv.Category
	}
	return true
}
