package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"flujo/internal/dashboard"
	"flujo/internal/log"
)

var contentTypes = map[string]string{
	dashboard.FormatCSV:  "text/csv; charset=utf-8",
	dashboard.FormatXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

func importMode(raw string) (dashboard.ImportMode, error) {
	switch dashboard.ImportMode(strings.ToLower(sanitizeInput(raw))) {
	case "", dashboard.ModeReplace:
		return dashboard.ModeReplace, nil
	case dashboard.ModeAppend:
		return dashboard.ModeAppend, nil
	}
	return "", fieldErrors{"mode": "oneof"}
}

// handleImport loads an uploaded CSV or XLSX file.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode, err := importMode(query.Get("mode"))
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	data, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	format := strings.ToLower(sanitizeInput(query.Get("format")))
	res, err := s.svc.Import(r.Context(), data, format, mode)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleImportSheets loads the configured spreadsheet range.
func (s *Server) handleImportSheets(w http.ResponseWriter, r *http.Request) {
	if s.rows == nil {
		s.fail(w, r, log.OpImport, errNoSheets)
		return
	}
	var req sheetsImportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	mode, _ := importMode(req.Mode)
	rng := sanitizeInput(req.Range)
	if rng == "" {
		rng = s.importRange
	}
	if rng == "" {
		s.fail(w, r, log.OpImport, fieldErrors{"range": "required"})
		return
	}

	table, err := s.rows.ReadRange(r.Context(), rng)
	if err != nil {
		s.fail(w, r, log.OpImport, fmt.Errorf("%w: read range %s: %v", errUpstream, rng, err))
		return
	}
	res, err := s.svc.ImportTable(r.Context(), "sheets", table, mode)
	if err != nil {
		s.fail(w, r, log.OpImport, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleExport downloads the selected rows, else the filtered view, else
// everything.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format := strings.ToLower(sanitizeInput(r.URL.Query().Get("format")))
	if format == "" {
		format = dashboard.FormatCSV
	}
	var req exportRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	state := s.svc.DefaultState()
	state.DB = req.Filter
	if len(req.Selected) > 0 {
		state.DB.Selected = req.Selected
	}

	var buf bytes.Buffer
	src, n, err := s.svc.Export(&buf, format, state)
	if err != nil {
		s.fail(w, r, log.OpExport, err)
		return
	}
	name := fmt.Sprintf("flujo-%s.%s", time.Now().Format("20060102-150405"), format)
	w.Header().Set("Content-Type", contentTypes[format])
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.Header().Set("X-Export-Source", string(src))
	w.Header().Set("X-Export-Rows", strconv.Itoa(n))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
