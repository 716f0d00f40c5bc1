// Package ingest turns raw spreadsheet rows into movements and back.
//
// A FieldMapping describes one workbook layout: which header feeds which
// movement field, how the period column is encoded and which placeholders
// fill empty dimension labels. Every layout shares the same normalizer.
package ingest

import (
	"fmt"
	"strings"

	"flujo/internal/core"
)

// Mapping names.
const (
	MappingCashFlow   = "cashflow"
	MappingCostCenter = "costcenter"
)

type (
	// Column binds a header to a movement field.
	Column struct {
		Header string     `json:"header"`
		Field  core.Field `json:"field"`
	}

	// FieldMapping configures the normalizer for one workbook layout.
	// Columns are listed in export order.
	FieldMapping struct {
		Name         string
		Columns      []Column
		Parser       core.PeriodParser
		Placeholders core.Placeholders
	}
)

// CashFlowMapping is the "Abonos;Empresa;...;Mes;Valor" layout with MM-YY periods.
func CashFlowMapping() FieldMapping {
	return FieldMapping{
		Name: MappingCashFlow,
		Columns: []Column{
			{"Abonos", core.FieldDetail},
			{"Empresa", core.FieldEntity},
			{"Tipo de movimiento", core.FieldType},
			{"Grupo", core.FieldGroup},
			{"Categoría", core.FieldCategory},
			{"Subcategoría", core.FieldSubcategory},
			{"Codigo", core.FieldCode},
			{"Mes", core.FieldPeriod},
			{"Valor", core.FieldAmount},
		},
		Parser:       core.DefaultPeriodParser(),
		Placeholders: core.DefaultPlaceholders(),
	}
}

// CostCenterMapping is the "Centro de costos;...;Item;...;Fecha;Monto"
// layout with Excel serial dates.
func CostCenterMapping() FieldMapping {
	return FieldMapping{
		Name: MappingCostCenter,
		Columns: []Column{
			{"Centro de costos", core.FieldEntity},
			{"Tipo de movimiento", core.FieldType},
			{"Item", core.FieldGroup},
			{"Categoría", core.FieldCategory},
			{"Subcategoría", core.FieldSubcategory},
			{"Detalle", core.FieldDetail},
			{"Fecha", core.FieldPeriod},
			{"Monto", core.FieldAmount},
		},
		Parser: core.PeriodParser{
			Format:           core.FormatExcelSerial,
			SerialCorrection: core.DefaultSerialCorrection,
		},
		Placeholders: core.DefaultPlaceholders(),
	}
}

// MappingByName returns a preset layout.
func MappingByName(name string) (FieldMapping, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case MappingCashFlow, "":
		return CashFlowMapping(), nil
	case MappingCostCenter:
		return CostCenterMapping(), nil
	}
	return FieldMapping{}, fmt.Errorf("unknown field mapping %q", name)
}

// Headers returns the header row in export order.
func (fm FieldMapping) Headers() []string {
	out := make([]string, len(fm.Columns))
	for i, c := range fm.Columns {
		out[i] = c.Header
	}
	return out
}

// Header returns the header bound to f, or "" when the layout lacks it.
func (fm FieldMapping) Header(f core.Field) string {
	for _, c := range fm.Columns {
		if c.Field == f {
			return c.Header
		}
	}
	return ""
}

// Record renders m as one row in export order.
func (fm FieldMapping) Record(m core.Movement) []string {
	out := make([]string, len(fm.Columns))
	for i, c := range fm.Columns {
		out[i] = c.Field.Value(m)
	}
	return out
}

// Validate checks that the layout can produce movements.
func (fm FieldMapping) Validate() error {
	if fm.Header(core.FieldType) == "" {
		return fmt.Errorf("mapping %q: no column for %s", fm.Name, core.FieldType)
	}
	if fm.Header(core.FieldPeriod) == "" {
		return fmt.Errorf("mapping %q: no column for %s", fm.Name, core.FieldPeriod)
	}
	return nil
}

// Table renders rows as a header row followed by one record per movement.
func (fm FieldMapping) Table(rows []core.Movement) [][]string {
	out := make([][]string, 0, len(rows)+1)
	out = append(out, fm.Headers())
	for _, m := range rows {
		out = append(out, fm.Record(m))
	}
	return out
}
