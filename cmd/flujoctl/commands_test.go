package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"

	"flujo/internal/ingest"
)

const workbook = "Abonos;Empresa;Tipo de movimiento;Grupo;Categoría;Subcategoría;Codigo;Mes;Valor\n" +
	"Saldo;ACME;00_Saldos;-;-;-;;01-25;1000\n" +
	"Venta;ACME;01_Ingreso;Ventas;01_Clientes;Nacional;A1;01-25;500\n" +
	"Luz;ACME;02_Egreso;Operación;03_Energía;Luz;;01-25;-200\n" +
	"Venta;BETA;01_Ingreso;Ventas;01_Clientes;Nacional;A2;02-25;300\n" +
	"Sueldo;BETA;02_Egreso;Personal;04_Sueldos;Planta;;02-25;-400\n" +
	"Roto;BETA;;Ventas;X;Y;;02-25;10\n"

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "flujo.csv")
	if err := os.WriteFile(path, []byte(workbook), 0o644); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return path
}

func run(t *testing.T, args ...string) (subcommands.ExitStatus, string) {
	t.Helper()
	var out bytes.Buffer
	fs := flag.NewFlagSet("flujoctl", flag.ContinueOnError)
	c := subcommands.NewCommander(fs, "flujoctl")
	c.Output = &out
	c.Error = &out
	register(c, &out)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse: %v", err)
	}
	return c.Execute(context.Background()), out.String()
}

func TestReportCommands(t *testing.T) {
	file := writeWorkbook(t)

	tests := []struct {
		name string
		args []string
		want []string
	}{
		{
			name: "summary",
			args: []string{"summary", "-file", file, "-raw", "-current", "02-25"},
			want: []string{"# Flujo de caja: Consolidado", "ene-25", "**feb-25**", "Ingresos"},
		},
		{
			name: "entity summary",
			args: []string{"summary", "-file", file, "-raw", "-entity", "ACME"},
			want: []string{"# Flujo de caja: ACME"},
		},
		{
			name: "pareto",
			args: []string{"pareto", "-file", file, "-raw", "-threshold", "0.5"},
			want: []string{"Pareto de egresos (50,0%)", "Sueldos"},
		},
		{
			name: "kpis",
			args: []string{"kpis", "-file", file, "-raw"},
			want: []string{"### Alertas"},
		},
		{
			name: "tree",
			args: []string{"tree", "-file", file, "-raw"},
			want: []string{"01_Ingreso", "02_Egreso"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := run(t, tt.args...)
			if status != subcommands.ExitSuccess {
				t.Fatalf("exit status %v, output:\n%s", status, out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestReportCommandErrors(t *testing.T) {
	file := writeWorkbook(t)

	tests := []struct {
		name string
		args []string
		want subcommands.ExitStatus
	}{
		{"missing file flag", []string{"summary", "-raw"}, subcommands.ExitFailure},
		{"unreadable file", []string{"summary", "-raw", "-file", filepath.Join(t.TempDir(), "nope.csv")}, subcommands.ExitFailure},
		{"bad period", []string{"summary", "-raw", "-file", file, "-from", "2025"}, subcommands.ExitUsageError},
		{"bad mapping", []string{"kpis", "-raw", "-file", file, "-mapping", "ledger"}, subcommands.ExitUsageError},
		{"bad threshold", []string{"pareto", "-raw", "-file", file, "-threshold", "1.5"}, subcommands.ExitUsageError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if status, out := run(t, tt.args...); status != tt.want {
				t.Fatalf("expected status %v, got %v:\n%s", tt.want, status, out)
			}
		})
	}
}

func TestExportCommand(t *testing.T) {
	file := writeWorkbook(t)

	status, out := run(t, "export", "-file", file, "-entity", "BETA")
	if status != subcommands.ExitSuccess {
		t.Fatalf("exit status %v:\n%s", status, out)
	}
	res, err := ingest.ImportCSV([]byte(out), ingest.CashFlowMapping())
	if err != nil {
		t.Fatalf("re-import: %v\n%s", err, out)
	}
	if res.Accepted() != 2 {
		t.Fatalf("expected 2 BETA rows, got %d", res.Accepted())
	}

	target := filepath.Join(t.TempDir(), "out.xlsx")
	if status, out := run(t, "export", "-file", file, "-o", target); status != subcommands.ExitSuccess {
		t.Fatalf("xlsx export status %v:\n%s", status, out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	res, err = ingest.ImportXLSX(data, ingest.CashFlowMapping(), "")
	if err != nil {
		t.Fatalf("import xlsx: %v", err)
	}
	if res.Accepted() != 5 {
		t.Fatalf("expected 5 rows, got %d", res.Accepted())
	}

	if status, _ := run(t, "export", "-file", file, "-format", "pdf"); status != subcommands.ExitUsageError {
		t.Fatalf("expected usage error for pdf, got %v", status)
	}
}

func TestPrintMarkdownStyled(t *testing.T) {
	var buf bytes.Buffer
	if err := printMarkdown(&buf, "# Flujo\n\nIngresos del mes.\n", false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Ingresos del mes.") {
		t.Fatalf("styled output lost the text:\n%q", buf.String())
	}
}
