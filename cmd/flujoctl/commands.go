package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/google/subcommands"
	"github.com/shopspring/decimal"

	"flujo/internal/core"
	"flujo/internal/dashboard"
	"flujo/internal/filter"
	"flujo/internal/ingest"
	"flujo/internal/render"
)

// register adds every subcommand; reports are written to out.
func register(c *subcommands.Commander, out io.Writer) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")
	c.Register(c.CommandsCommand(), "")

	c.Register(newReportCmd("summary", "per-period cash-flow summary", (*render.Markdown).Summary, out), "reports")
	c.Register(newReportCmd("tree", "category hierarchy with per-period totals", (*render.Markdown).Tree, out), "reports")
	c.Register(newReportCmd("pareto", "expense categories covering the Pareto threshold", (*render.Markdown).Pareto, out), "reports")
	c.Register(newReportCmd("kpis", "indicators, trend and alerts", (*render.Markdown).KPIs, out), "reports")
	c.Register(newReportCmd("report", "every report section", (*render.Markdown).Report, out), "reports")

	c.Register(&exportCmd{out: out}, "data")
	c.Register(&sheetsAuthCmd{out: out}, "sheets")
}

// input holds the flags shared by every subcommand.
type input struct {
	file         string
	sheet        string
	mapping      string
	periodFormat string
}

func (in *input) setFlags(f *flag.FlagSet) {
	f.StringVar(&in.file, "file", "", "CSV or XLSX workbook to read (required)")
	f.StringVar(&in.sheet, "sheet", "", "XLSX sheet name, defaults to the first sheet")
	f.StringVar(&in.mapping, "mapping", ingest.MappingCashFlow, "column layout: cashflow or costcenter")
	f.StringVar(&in.periodFormat, "period-format", "", "override the layout period format (mm-yy, excel-serial, dd/mm/yyyy, iso, auto)")
}

func (in *input) fieldMapping() (ingest.FieldMapping, error) {
	fm, err := ingest.MappingByName(in.mapping)
	if err != nil {
		return fm, err
	}
	if in.periodFormat != "" {
		f, err := core.ParsePeriodFormat(in.periodFormat)
		if err != nil {
			return fm, err
		}
		fm.Parser.Format = f
	}
	return fm, nil
}

// load reads and normalizes the input file.
func (in *input) load(fm ingest.FieldMapping) (ingest.Result, error) {
	if in.file == "" {
		return ingest.Result{}, fmt.Errorf("-file is required")
	}
	data, err := os.ReadFile(in.file)
	if err != nil {
		return ingest.Result{}, err
	}
	if strings.EqualFold(filepath.Ext(in.file), "."+dashboard.FormatXLSX) {
		return ingest.ImportXLSX(data, fm, in.sheet)
	}
	return ingest.ImportCSV(data, fm)
}

type section func(*render.Markdown, io.Writer, dashboard.Report)

// reportCmd computes the dashboard for a file and prints one section.
type reportCmd struct {
	name     string
	synopsis string
	section  section
	out      io.Writer

	input
	entity    string
	from      string
	to        string
	current   string
	threshold float64
	selected  bool
	currency  string
	raw       bool
}

func newReportCmd(name, synopsis string, s section, out io.Writer) *reportCmd {
	return &reportCmd{name: name, synopsis: synopsis, section: s, out: out}
}

func (c *reportCmd) Name() string     { return c.name }
func (c *reportCmd) Synopsis() string { return c.synopsis }
func (c *reportCmd) Usage() string {
	return fmt.Sprintf(`flujoctl %s -file <workbook> [-entity <name>] [-from <period>] [-to <period>] [-current <period>]

  Prints the %s. Periods use the layout period format.
`, c.name, c.synopsis)
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.entity, "entity", filter.AllEntities, "entity to report on, \"all\" consolidates")
	f.StringVar(&c.from, "from", "", "first period of the range")
	f.StringVar(&c.to, "to", "", "last period of the range")
	f.StringVar(&c.current, "current", "", "reference month, defaults to the latest past period")
	f.Float64Var(&c.threshold, "threshold", 0, "Pareto threshold in (0, 1]")
	f.BoolVar(&c.selected, "selected-range", false, "compute KPIs over the selected range instead of everything up to the current month")
	f.StringVar(&c.currency, "currency", render.DefaultCurrency, "ISO currency code for amounts")
	f.BoolVar(&c.raw, "raw", false, "print plain markdown")
}

func (c *reportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fm, err := c.fieldMapping()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	state, err := c.state(fm.Parser)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	res, err := c.load(fm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", c.file, err)
		return subcommands.ExitFailure
	}
	if res.Rejected > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d rows rejected\n", res.Rejected)
	}

	report := dashboard.Compute(res.Movements, state, dashboard.DefaultOptions())

	var b strings.Builder
	c.section(render.NewMarkdown(render.NewFormatter(c.currency)), &b, report)
	if err := printMarkdown(c.out, b.String(), c.raw); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering: %v\n", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func (c *reportCmd) state(parser core.PeriodParser) (dashboard.State, error) {
	st := dashboard.DefaultState()
	st.Entity = c.entity
	st.KPIFullRange = !c.selected
	for _, p := range []struct {
		flag string
		raw  string
		dst  *core.PeriodKey
	}{
		{"from", c.from, &st.From},
		{"to", c.to, &st.To},
		{"current", c.current, &st.Current},
	} {
		if p.raw == "" {
			continue
		}
		period, err := parser.Parse(p.raw)
		if err != nil {
			return st, fmt.Errorf("-%s: %w", p.flag, err)
		}
		*p.dst = period.Key()
	}
	if c.threshold != 0 {
		st.ParetoThreshold = decimal.NewFromFloat(c.threshold)
	}
	return st, st.Validate()
}

// exportCmd normalizes a workbook and writes it back, optionally in another
// layout or format.
type exportCmd struct {
	out io.Writer

	input
	output   string
	format   string
	toLayout string
	search   string
	entity   string
}

func (*exportCmd) Name() string     { return "export" }
func (*exportCmd) Synopsis() string { return "normalize a workbook and write it as CSV or XLSX" }
func (*exportCmd) Usage() string {
	return `flujoctl export -file <workbook> [-o <output>] [-format csv|xlsx] [-to-mapping <layout>] [-search <text>] [-entity <name>]

  Re-exports the accepted rows. Without -o the CSV goes to stdout.
`
}

func (c *exportCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.output, "o", "", "output file, stdout when empty")
	f.StringVar(&c.format, "format", "", "csv or xlsx, defaults to the output extension")
	f.StringVar(&c.toLayout, "to-mapping", "", "column layout to write, defaults to the input layout")
	f.StringVar(&c.search, "search", "", "keep rows matching this text in any column")
	f.StringVar(&c.entity, "entity", "", "keep rows of this entity")
}

func (c *exportCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	fm, err := c.fieldMapping()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}
	outMapping := fm
	if c.toLayout != "" {
		if outMapping, err = ingest.MappingByName(c.toLayout); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitUsageError
		}
	}
	format := c.format
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(c.output)), ".")
	}
	if format == "" {
		format = dashboard.FormatCSV
	}
	if format != dashboard.FormatCSV && format != dashboard.FormatXLSX {
		fmt.Fprintf(os.Stderr, "Error: %v: %q\n", dashboard.ErrUnknownFormat, format)
		return subcommands.ExitUsageError
	}

	res, err := c.load(fm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading %q: %v\n", c.file, err)
		return subcommands.ExitFailure
	}
	st := dashboard.DefaultState()
	st.DB.Search = c.search
	st.DB.Entity = c.entity
	rows := filter.Apply(res.Movements, st.DBCriteria())

	var buf bytes.Buffer
	if format == dashboard.FormatXLSX {
		err = ingest.WriteXLSX(&buf, outMapping, rows)
	} else {
		err = ingest.WriteCSV(&buf, outMapping, rows)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting: %v\n", err)
		return subcommands.ExitFailure
	}

	if c.output == "" {
		_, err = buf.WriteTo(c.out)
	} else {
		err = os.WriteFile(c.output, buf.Bytes(), 0o644)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error writing: %v\n", err)
		return subcommands.ExitFailure
	}
	fmt.Fprintf(os.Stderr, "Exported %d of %d rows (%d rejected)\n", len(rows), res.Accepted(), res.Rejected)
	return subcommands.ExitSuccess
}

// printMarkdown styles md for the terminal unless raw is set.
func printMarkdown(w io.Writer, md string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(160))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
