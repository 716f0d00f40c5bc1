package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMovementValidate(t *testing.T) {
	good := Movement{
		Type:   TypeIncome,
		Amount: decimal.NewFromInt(100),
		Period: Period{Year: 2025, Month: time.March},
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.PeriodKey() != 202503 {
		t.Fatalf("expected key 202503, got %d", good.PeriodKey())
	}

	bads := []Movement{
		{Type: " ", Period: Period{Year: 2025, Month: time.March}},
		{Type: TypeIncome},
		{Type: TypeIncome, Period: Period{Year: 2025, Month: 13}},
	}
	for i, m := range bads {
		if err := m.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestPlaceholdersApply(t *testing.T) {
	m := DefaultPlaceholders().Apply(Movement{Group: "  ", Category: "", Subcategory: " Luz "})
	if m.Group != DefaultGroup || m.Category != DefaultCategory || m.Subcategory != "Luz" {
		t.Fatalf("unexpected labels: %+v", m)
	}
}

func TestFieldValue(t *testing.T) {
	m := Movement{
		Type: TypeExpense, Entity: "ACME", Group: "G", Category: "C", Subcategory: "S",
		Detail: "D", Code: "X1", Period: Period{Year: 2025, Month: time.April},
	}
	cases := map[Field]string{
		FieldType:        TypeExpense,
		FieldEntity:      "ACME",
		FieldGroup:       "G",
		FieldCategory:    "C",
		FieldSubcategory: "S",
		FieldDetail:      "D",
		FieldCode:        "X1",
		FieldPeriod:      "04-25",
	}
	for f, want := range cases {
		if got := f.Value(m); got != want {
			t.Errorf("%s: expected %q, got %q", f, want, got)
		}
	}
	m.RawPeriod = "45748"
	if got := FieldPeriod.Value(m); got != "45748" {
		t.Fatalf("expected raw period token, got %q", got)
	}
	if _, err := ParseField("Categoria"); err == nil {
		t.Fatalf("expected unknown field error")
	}
	if f, err := ParseField(" Category "); err != nil || f != FieldCategory {
		t.Fatalf("expected category, got %q (%v)", f, err)
	}
}

func TestConsolidated(t *testing.T) {
	for entity, want := range map[string]bool{"": true, AllEntities: true, "ACME": false, "All": false} {
		if got := Consolidated(entity); got != want {
			t.Errorf("Consolidated(%q) = %v, want %v", entity, got, want)
		}
	}
}
