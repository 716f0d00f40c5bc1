package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"flujo/internal/analysis"
	"flujo/internal/core"
	"flujo/internal/dashboard"
	"flujo/internal/hierarchy"
	"flujo/internal/pareto"
)

// Markdown renders report sections.
type Markdown struct {
	Format Formatter
}

func NewMarkdown(f Formatter) *Markdown {
	return &Markdown{Format: f}
}

type summaryLine struct {
	label  string
	values []decimal.Decimal
	// total adds a row total; running balances have none.
	total bool
}

// Summary writes the per-period summary table.
func (m *Markdown) Summary(w io.Writer, r dashboard.Report) {
	fmt.Fprintf(w, "# Flujo de caja: %s\n\n", scopeTitle(r.State.Entity))
	if r.Summary.Len() == 0 {
		fmt.Fprintln(w, "Sin datos para el período seleccionado.")
		return
	}
	header := []string{"Concepto"}
	for _, c := range r.Columns {
		label := c.Label
		if c.Current {
			label = "**" + label + "**"
		}
		header = append(header, label)
	}
	header = append(header, "Total")

	s := r.Summary
	lines := []summaryLine{
		{"Saldo inicial", s.Opening, true},
		{"Ingresos", s.Income, true},
		{"Egresos", s.Expense, true},
	}
	if r.ShowTransfer {
		lines = append(lines, summaryLine{"Movimientos internos", s.Transfer, true})
	}
	lines = append(lines,
		summaryLine{"Flujo neto", s.Net, true},
		summaryLine{"Saldo acumulado", s.Cumulative, false},
	)

	rows := make([][]string, 0, len(lines))
	for _, l := range lines {
		row := append([]string{l.label}, m.amounts(l.values)...)
		if l.total {
			row = append(row, m.Format.Amount(core.Sum(l.values)))
		} else {
			row = append(row, "")
		}
		rows = append(rows, row)
	}
	table(w, header, rows)
}

// Tree writes the visible pivot rows.
func (m *Markdown) Tree(w io.Writer, r dashboard.Report) {
	fmt.Fprintln(w, "## Detalle")
	fmt.Fprintln(w)
	header := []string{"Cuenta"}
	for _, c := range r.Columns {
		header = append(header, c.Label)
	}
	header = append(header, "Total")

	var rows [][]string
	for _, row := range r.Rows {
		if row.Hidden {
			continue
		}
		label := strings.Repeat("  ", row.Depth) + rowLabel(row)
		if row.Depth == 0 {
			label = "**" + label + "**"
		}
		line := append([]string{label}, m.amounts(row.Totals)...)
		line = append(line, m.Format.Amount(core.Sum(row.Totals)))
		rows = append(rows, line)
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "Sin movimientos.")
		return
	}
	table(w, header, rows)
}

// Pareto writes the expense categories covering the threshold.
func (m *Markdown) Pareto(w io.Writer, r dashboard.Report) {
	p := r.Pareto
	fmt.Fprintf(w, "## Pareto de egresos (%s)\n\n", m.Format.Percent(p.Threshold))
	if len(p.Items) == 0 {
		fmt.Fprintln(w, "Sin egresos.")
		return
	}
	table(w, []string{"#", "Categoría", "Monto", "%", "% acumulado"}, m.items(p.Items))
	fmt.Fprintf(w, "\n%d de %d categorías concentran el %s del egreso total (%s).\n",
		len(p.Items), p.Categories, m.Format.Percent(p.Items[len(p.Items)-1].CumulativeShare), m.Format.Amount(p.Total))
}

// KPIs writes the indicator list and the alerts.
func (m *Markdown) KPIs(w io.Writer, r dashboard.Report) {
	k := r.KPIs
	fmt.Fprintln(w, "## Indicadores")
	fmt.Fprintln(w)
	if !k.HasData {
		fmt.Fprintln(w, "Sin datos para el período seleccionado.")
		return
	}
	f := m.Format
	table(w, []string{"Indicador", "Valor"}, [][]string{
		{"Ingresos totales", f.Amount(k.TotalIncome)},
		{"Egresos totales", f.Amount(k.TotalExpense)},
		{"Flujo neto", f.Amount(k.Net)},
		{"Ingreso promedio", f.Amount(k.AvgIncome)},
		{"Egreso promedio", f.Amount(k.AvgExpense)},
		{"Cobertura", f.Ratio(k.Coverage)},
		{"Saldo final", f.Amount(k.FinalBalance)},
		{"Meses", fmt.Sprintf("%d (%d reales, %d proyectados)", k.Months, k.ActualMonths, k.ProjectedMonths)},
		{"Meses negativos", fmt.Sprint(k.NegativeMonths)},
		{"Alertas activas", fmt.Sprint(r.AlertCount)},
	})
	fmt.Fprintln(w)
	fmt.Fprintln(w, "### Alertas")
	fmt.Fprintln(w)
	for _, a := range r.Alerts {
		fmt.Fprintf(w, "- %s %s\n", severityIcon(a.Severity), a.Message)
	}
}

// Report writes every section.
func (m *Markdown) Report(w io.Writer, r dashboard.Report) {
	m.Summary(w, r)
	fmt.Fprintln(w)
	m.KPIs(w, r)
	fmt.Fprintln(w)
	m.Pareto(w, r)
	fmt.Fprintln(w)
	m.Tree(w, r)
}

func (m *Markdown) amounts(values []decimal.Decimal) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = m.Format.Amount(v)
	}
	return out
}

func (m *Markdown) items(items []pareto.Item) [][]string {
	rows := make([][]string, len(items))
	for i, it := range items {
		rows[i] = []string{
			fmt.Sprint(i + 1),
			it.Label,
			m.Format.Amount(it.Value),
			m.Format.Percent(it.Share),
			m.Format.Percent(it.CumulativeShare),
		}
	}
	return rows
}

func rowLabel(r hierarchy.Row) string {
	var parts []string
	for _, l := range r.Labels {
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, " / ")
}

func scopeTitle(entity string) string {
	if core.Consolidated(entity) {
		return "Consolidado"
	}
	return entity
}

func severityIcon(s analysis.Severity) string {
	switch s {
	case analysis.Danger:
		return "🔴"
	case analysis.Warning:
		return "🟡"
	case analysis.Success:
		return "🟢"
	default:
		return "ℹ️"
	}
}

// table writes a pipe table. Cells are escaped; the first column is left
// aligned and the rest right aligned.
func table(w io.Writer, header []string, rows [][]string) {
	writeRow(w, header)
	align := make([]string, len(header))
	for i := range align {
		align[i] = "---:"
		if i == 0 {
			align[i] = ":---"
		}
	}
	writeRow(w, align)
	for _, r := range rows {
		writeRow(w, r)
	}
}

func writeRow(w io.Writer, cells []string) {
	esc := make([]string, len(cells))
	for i, c := range cells {
		esc[i] = strings.ReplaceAll(c, "|", `\|`)
	}
	fmt.Fprintf(w, "| %s |\n", strings.Join(esc, " | "))
}
