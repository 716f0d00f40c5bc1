package dataset

import "flujo/internal/core"

// DefaultPageSize is the database view page size.
const DefaultPageSize = 50

// Page is one slice of a row listing.
type Page struct {
	Rows       []core.Movement `json:"rows"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	Total      int             `json:"total"`
	TotalPages int             `json:"total_pages"`
}

// Paginate returns page number page (1-based) of rows. A size of 0 or
// less shows everything on one page. The page is clamped to the valid
// range.
func Paginate(rows []core.Movement, page, size int) Page {
	total := len(rows)
	if size <= 0 {
		size = total
	}
	pages := 1
	if size > 0 {
		pages = (total + size - 1) / size
	}
	if pages < 1 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	start := (page - 1) * size
	end := start + size
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return Page{Rows: rows[start:end], Page: page, Size: size, Total: total, TotalPages: pages}
}

// ExportSource tells which rows SelectForExport picked.
type ExportSource string

const (
	FromSelection ExportSource = "selection"
	FromFiltered  ExportSource = "filtered"
	FromAll       ExportSource = "all"
)

// SelectForExport picks the rows to export: the selected ids when any are
// given, else the filtered view when it is narrower than the full set,
// else everything. Selected rows keep collection order.
func SelectForExport(all, filtered []core.Movement, selected []string) ([]core.Movement, ExportSource) {
	if len(selected) > 0 {
		want := make(map[string]struct{}, len(selected))
		for _, id := range selected {
			want[id] = struct{}{}
		}
		out := make([]core.Movement, 0, len(selected))
		for _, m := range all {
			if _, ok := want[m.ID]; ok {
				out = append(out, m)
			}
		}
		return out, FromSelection
	}
	if len(filtered) < len(all) {
		return filtered, FromFiltered
	}
	return all, FromAll
}
