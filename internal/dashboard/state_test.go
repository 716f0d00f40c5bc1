package dashboard

import (
	"encoding/json"
	"testing"
	"time"

	"flujo/internal/core"
	"flujo/internal/filter"
)

func TestParseState(t *testing.T) {
	s, err := ParseState(nil)
	if err != nil || s.Entity != filter.AllEntities || !s.KPIFullRange || s.DB.Size != 50 {
		t.Fatalf("unexpected defaults %+v (%v)", s, err)
	}

	s, err = ParseState([]byte(`{"entity":"A","from":202502,"pareto_threshold":"0.9","db":{"page":2,"size":0}}`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.Entity != "A" || s.From != 202502 || s.ParetoThreshold.String() != "0.9" || s.DB.Size != 0 || !s.Levels.Type {
		t.Fatalf("unexpected state %+v", s)
	}

	bad := []string{
		`{"from":202513}`,
		`{"from":202505,"to":202501}`,
		`{"pareto_threshold":1.5}`,
		`{"db":{"size":-1}}`,
		`{"entity":`,
	}
	for _, in := range bad {
		if _, err := ParseState([]byte(in)); err == nil {
			t.Errorf("expected an error for %s", in)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	s := DefaultState()
	s.Collapsed = map[string]bool{"01_Ingreso/Ventas": true}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := ParseState(data)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if !got.Collapsed["01_Ingreso/Ventas"] || !got.ParetoThreshold.Equal(s.ParetoThreshold) {
		t.Fatalf("round trip lost fields: %+v", got)
	}
}

func TestDefaultCurrent(t *testing.T) {
	axis := []core.PeriodKey{202509, 202510, 202511, 202512}
	tests := []struct {
		now  time.Time
		want core.PeriodKey
	}{
		{time.Date(2025, 11, 20, 0, 0, 0, 0, time.UTC), 202511},
		{time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), 202512},
		{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 202512},
	}
	for _, tt := range tests {
		if got := DefaultCurrent(axis, tt.now); got != tt.want {
			t.Errorf("DefaultCurrent(%s) = %d, want %d", tt.now.Format("2006-01"), got, tt.want)
		}
	}
	if DefaultCurrent(nil, time.Now()) != 0 {
		t.Error("empty axis has no current month")
	}
}

func TestDBCriteria(t *testing.T) {
	s := DefaultState()
	s.DB.Type = core.TypeExpense
	s.DB.Code = "b2"
	s.DB.Period = "03-25"
	rows := []core.Movement{
		{Type: core.TypeExpense, Code: "B2", RawPeriod: "03-25"},
		{Type: core.TypeExpense, Code: "B2", RawPeriod: "04-25"},
		{Type: core.TypeIncome, Code: "B2", RawPeriod: "03-25"},
		{Type: core.TypeExpense, Code: "C3", RawPeriod: "03-25"},
	}
	if got := filter.Apply(rows, s.DBCriteria()); len(got) != 1 {
		t.Fatalf("expected one match, got %+v", got)
	}
}
