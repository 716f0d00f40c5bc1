package http

import (
	"net/http"

	"flujo/internal/dashboard"
)

// handleDashboard computes the report. GET reads the state from the
// "state" query parameter, POST from the body; both default missing
// fields.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	var (
		state dashboard.State
		err   error
	)
	if r.Method == http.MethodPost {
		var body []byte
		if body, err = s.readBody(w, r); err == nil {
			if state, err = s.svc.ParseState(body); err != nil {
				err = wrapBadRequest(err)
			}
		}
	} else {
		state, err = s.parseState(r.URL.Query())
	}
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}

	report, err := s.svc.Report(r.Context(), state)
	if err != nil {
		s.fail(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Meta())
}
