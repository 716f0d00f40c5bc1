package ingest

import (
	"errors"
	"fmt"
	"strings"

	"flujo/internal/core"
)

var (
	ErrMissingType = errors.New("missing movement type")
	ErrNoValidRows = errors.New("no valid rows")
)

// Result is the outcome of normalizing a batch of raw rows.
type Result struct {
	Movements []core.Movement
	Rejected  int
	Encoding  string
}

// Accepted is the number of movements kept.
func (r Result) Accepted() int {
	return len(r.Movements)
}

// Normalize maps one raw row to a movement. Rows without a type or with an
// unreadable period are rejected; an unreadable amount becomes zero.
func (fm FieldMapping) Normalize(raw map[string]string) (core.Movement, error) {
	get := func(f core.Field) string {
		h := fm.Header(f)
		if h == "" {
			return ""
		}
		return strings.TrimSpace(lookup(raw, h))
	}

	typ := get(core.FieldType)
	if typ == "" {
		return core.Movement{}, ErrMissingType
	}
	token := get(core.FieldPeriod)
	period, err := fm.Parser.Parse(token)
	if err != nil {
		return core.Movement{}, fmt.Errorf("normalize period: %w", err)
	}

	m := core.Movement{
		Type:        typ,
		Entity:      get(core.FieldEntity),
		Group:       get(core.FieldGroup),
		Category:    get(core.FieldCategory),
		Subcategory: get(core.FieldSubcategory),
		Detail:      get(core.FieldDetail),
		Code:        get(core.FieldCode),
		Amount:      core.ParseAmount(get(core.FieldAmount)),
		Period:      period,
		RawPeriod:   token,
	}
	return fm.Placeholders.Apply(m), nil
}

// NormalizeAll normalizes rows in order, dropping rejected ones.
func (fm FieldMapping) NormalizeAll(rows []map[string]string) Result {
	res := Result{Movements: make([]core.Movement, 0, len(rows))}
	for _, raw := range rows {
		m, err := fm.Normalize(raw)
		if err != nil {
			res.Rejected++
			continue
		}
		res.Movements = append(res.Movements, m)
	}
	return res
}

// lookup finds a header exactly, then case-insensitively.
func lookup(raw map[string]string, header string) string {
	if v, ok := raw[header]; ok {
		return v
	}
	for k, v := range raw {
		if strings.EqualFold(strings.TrimSpace(k), header) {
			return v
		}
	}
	return ""
}

// FromTable converts a header row plus data rows into raw records.
// Short rows read missing cells as empty.
func FromTable(table [][]string) []map[string]string {
	if len(table) == 0 {
		return nil
	}
	headers := make([]string, len(table[0]))
	for i, h := range table[0] {
		headers[i] = strings.TrimSpace(strings.TrimPrefix(h, bom))
	}
	out := make([]map[string]string, 0, len(table)-1)
	for _, row := range table[1:] {
		if blank(row) {
			continue
		}
		rec := make(map[string]string, len(headers))
		for i, h := range headers {
			if h == "" {
				continue
			}
			if i < len(row) {
				rec[h] = row[i]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
