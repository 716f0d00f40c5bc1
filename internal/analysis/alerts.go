package analysis

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Severity of an alert.
type Severity string

const (
	Danger  Severity = "danger"
	Warning Severity = "warning"
	Success Severity = "success"
	Info    Severity = "info"
)

// Alert is one dashboard notice.
type Alert struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
}

var (
	coverageCritical = decimal.NewFromInt(1)
	coverageTight    = decimal.RequireFromString("1.1")
	coverageHealthy  = decimal.RequireFromString("1.2")
	variationFloor   = decimal.NewFromInt(-10)
)

// Alerts evaluates the dashboard rules. avgVariation is the mean net
// month-over-month change in percent. When no rule fires a single info
// alert is returned.
func Alerts(k KPIs, avgVariation decimal.Decimal) []Alert {
	var out []Alert
	if !k.HasData {
		return []Alert{{Severity: Info, Code: "no_data", Message: "Sin datos para el período seleccionado"}}
	}

	if k.Coverage != nil {
		switch {
		case k.Coverage.LessThan(coverageCritical):
			out = append(out, Alert{Danger, "coverage_critical",
				fmt.Sprintf("Cobertura crítica: los egresos superan a los ingresos (%sx)", k.Coverage.StringFixed(2))})
		case k.Coverage.LessThan(coverageTight):
			out = append(out, Alert{Warning, "coverage_tight",
				fmt.Sprintf("Cobertura ajustada: margen estrecho entre ingresos y egresos (%sx)", k.Coverage.StringFixed(2))})
		}
	}

	if k.FinalBalance.IsNegative() {
		out = append(out, Alert{Danger, "negative_balance",
			fmt.Sprintf("Saldo acumulado negativo: %s", k.FinalBalance.StringFixed(0))})
	}

	if avgVariation.LessThan(variationFloor) {
		out = append(out, Alert{Warning, "negative_trend",
			fmt.Sprintf("Tendencia negativa: variación promedio de %s%%", avgVariation.StringFixed(1))})
	}

	if k.NegativeMonths*2 > k.Months {
		out = append(out, Alert{Warning, "negative_months",
			fmt.Sprintf("%d de %d meses con flujo negativo", k.NegativeMonths, k.Months)})
	}

	if k.Coverage != nil && !k.Coverage.LessThan(coverageHealthy) && !avgVariation.IsNegative() {
		out = append(out, Alert{Success, "healthy",
			fmt.Sprintf("Flujo saludable con cobertura de %sx", k.Coverage.StringFixed(2))})
	}

	if len(out) == 0 {
		out = append(out, Alert{Info, "no_alerts", "Sin alertas críticas en el período analizado"})
	}
	return out
}

// Critical counts danger and warning alerts.
func Critical(alerts []Alert) int {
	n := 0
	for _, a := range alerts {
		if a.Severity == Danger || a.Severity == Warning {
			n++
		}
	}
	return n
}
