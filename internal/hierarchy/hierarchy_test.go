package hierarchy

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"flujo/internal/core"
)

var cols = []core.PeriodKey{202503, 202504}

func mv(typ, group, cat, sub string, amount int64, month time.Month) core.Movement {
	return core.Movement{
		Type: typ, Group: group, Category: cat, Subcategory: sub,
		Amount: decimal.NewFromInt(amount), Period: core.Period{Year: 2025, Month: month},
	}
}

func sample() []core.Movement {
	return []core.Movement{
		mv(core.TypeExpense, "Operación", "Energía", "Luz", -100, time.March),
		mv(core.TypeExpense, "Operación", "Energía", "Gas", -50, time.April),
		mv(core.TypeExpense, "Operación", "Agua", "-", -20, time.March),
		mv(core.TypeExpense, "Administración", "Sueldos", "Planta", -300, time.March),
		mv(core.TypeIncome, "Ventas", "Clientes", "Nacional", 800, time.March),
		mv(core.TypeIncome, "Ventas", "Clientes", "Nacional", 200, time.April),
		mv(core.TypeIncome, "Ventas", "Clientes", "Export", 50, time.April),
	}
}

func labels(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.Label
	}
	return out
}

func TestBuildStructure(t *testing.T) {
	tree := Build(sample(), cols, Options{})
	if got := labels(tree); !reflect.DeepEqual(got, []string{core.TypeIncome, core.TypeExpense}) {
		t.Fatalf("unexpected types %v", got)
	}
	expense := tree[1]
	if got := labels(expense.Children); !reflect.DeepEqual(got, []string{"Administración", "Operación"}) {
		t.Fatalf("unexpected groups %v", got)
	}
	op := expense.Children[1]
	if got := labels(op.Children); !reflect.DeepEqual(got, []string{"Agua", "Energía"}) {
		t.Fatalf("unexpected categories %v", got)
	}
	energy := op.Children[1]
	if got := labels(energy.Children); !reflect.DeepEqual(got, []string{"Gas", "Luz"}) {
		t.Fatalf("unexpected subcategories %v", got)
	}
	leaf := energy.Children[0]
	if leaf.HasChildren || leaf.Level != LevelSubcategory || len(leaf.Children) != 0 {
		t.Fatalf("subcategory must be a leaf: %+v", leaf)
	}
	if !energy.HasChildren || energy.Count != 2 {
		t.Fatalf("unexpected category node: %+v", energy)
	}
	if leaf.ID != "02_Egreso/Operaci%C3%B3n/Energ%C3%ADa/Gas" {
		t.Fatalf("unexpected id %q", leaf.ID)
	}
}

func TestBuildLocaleOrder(t *testing.T) {
	rows := []core.Movement{
		mv("T", "zeta", "c", "s", 1, time.March),
		mv("T", "Ñandú", "c", "s", 1, time.March),
		mv("T", "ópalo", "c", "s", 1, time.March),
		mv("T", "Nube", "c", "s", 1, time.March),
		mv("T", "árbol", "c", "s", 1, time.March),
		mv("T", "Banco", "c", "s", 1, time.March),
	}
	tree := Build(rows, cols, Options{})
	want := []string{"árbol", "Banco", "Nube", "Ñandú", "ópalo", "zeta"}
	if got := labels(tree[0].Children); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestParentTotalsEqualChildSums(t *testing.T) {
	tree := Build(sample(), cols, Options{})
	var check func(n *Node)
	check = func(n *Node) {
		for _, c := range n.Children {
			check(c)
		}
		if len(n.Totals) != len(cols) {
			t.Fatalf("%s: %d totals for %d columns", n.ID, len(n.Totals), len(cols))
		}
		if !n.HasChildren {
			return
		}
		for i := range cols {
			sum := decimal.Zero
			for _, c := range n.Children {
				sum = sum.Add(c.Totals[i])
			}
			if !sum.Equal(n.Totals[i]) {
				t.Fatalf("%s[%d]: node %s, children %s", n.ID, i, n.Totals[i], sum)
			}
		}
	}
	for _, n := range tree {
		check(n)
	}
	income := tree[0]
	if !income.Totals[0].Equal(decimal.NewFromInt(800)) || !income.Totals[1].Equal(decimal.NewFromInt(250)) {
		t.Fatalf("unexpected income totals %v", income.Totals)
	}
}

func TestBuildEmpty(t *testing.T) {
	if tree := Build(nil, cols, Options{}); len(tree) != 0 {
		t.Fatalf("expected empty tree, got %d nodes", len(tree))
	}
	if rows := Flatten(nil, AllLevels(), nil); len(rows) != 0 {
		t.Fatalf("expected no rows")
	}
}

func TestFlattenDefaultView(t *testing.T) {
	rows := Flatten(Build(sample(), cols, Options{}), AllLevels(), nil)
	if len(rows) != 15 {
		t.Fatalf("expected 15 rows, got %d", len(rows))
	}
	for _, r := range rows {
		switch r.Depth {
		case 0:
			if r.Hidden || r.Collapsed {
				t.Fatalf("depth 0 row should be expanded and visible: %+v", r)
			}
		case 1:
			if r.Hidden || !r.Collapsed {
				t.Fatalf("depth 1 row should be visible and collapsed: %+v", r)
			}
		default:
			if !r.Hidden {
				t.Fatalf("deeper row should start hidden: %+v", r)
			}
		}
	}
	if rows[0].Labels != [4]string{core.TypeIncome, "", "", ""} {
		t.Fatalf("unexpected labels %v", rows[0].Labels)
	}
	if rows[1].ParentID != rows[0].ID || rows[1].Labels[1] != "Ventas" {
		t.Fatalf("unexpected group row %+v", rows[1])
	}
}

func TestFlattenHiddenLevels(t *testing.T) {
	tree := Build(sample(), cols, Options{})
	rows := Flatten(tree, Levels{Type: false, Group: true, Category: false}, nil)
	// groups at depth 0, subcategories at depth 1
	var depth0, depth1 int
	for _, r := range rows {
		switch r.Level {
		case LevelGroup:
			depth0++
			if r.Depth != 0 || r.ParentID != "" || r.Labels[LevelType] == "" {
				t.Fatalf("group row must be a root carrying its type: %+v", r)
			}
		case LevelSubcategory:
			depth1++
			if r.Depth != 1 || r.Labels[LevelCategory] == "" || r.Labels[LevelType] != "" {
				t.Fatalf("leaf must carry its hidden category only: %+v", r)
			}
		default:
			t.Fatalf("disabled level emitted: %+v", r)
		}
	}
	if depth0 != 3 || depth1 != 6 {
		t.Fatalf("expected 3 groups and 6 leaves, got %d/%d", depth0, depth1)
	}
}

func TestViewStateToggle(t *testing.T) {
	tree := Build(sample(), cols, Options{})
	rows := Flatten(tree, AllLevels(), nil)
	view := DefaultView(rows)

	ventas := rows[1].ID
	view.Toggle(ventas)
	rows = Flatten(tree, AllLevels(), &view)
	if rows[1].Collapsed || rows[2].Hidden {
		t.Fatalf("expanding a group should reveal its categories: %+v %+v", rows[1], rows[2])
	}
	if rows[2].Collapsed || rows[3].Hidden {
		t.Fatalf("categories start expanded once revealed: %+v %+v", rows[2], rows[3])
	}

	view.Toggle(rows[0].ID)
	rows = Flatten(tree, AllLevels(), &view)
	if !rows[0].Collapsed || !rows[1].Hidden || !rows[2].Hidden {
		t.Fatalf("collapsing a type should hide every descendant")
	}

	view.ExpandAll()
	for _, r := range Flatten(tree, AllLevels(), &view) {
		if r.Hidden || r.Collapsed {
			t.Fatalf("expand all left %+v closed", r)
		}
	}
	view.CollapseAll(rows)
	for _, r := range Flatten(tree, AllLevels(), &view) {
		if r.Depth > 0 && !r.Hidden {
			t.Fatalf("collapse all left %+v visible", r)
		}
	}
}
