package http

import (
	"fmt"
	"net/http"

	"flujo/internal/core"
	"flujo/internal/dataset"
	"flujo/internal/log"
)

func (s *Server) handleListMovements(w http.ResponseWriter, r *http.Request) {
	view, err := s.parseDBView(r.URL.Query())
	if err != nil {
		s.fail(w, r, "list", err)
		return
	}
	state := s.svc.DefaultState()
	state.DB = view
	writeJSON(w, http.StatusOK, s.svc.Movements(state))
}

type appendResponse struct {
	Movements []core.Movement `json:"movements"`
	Version   uint64          `json:"version"`
}

func (s *Server) handleAppendMovements(w http.ResponseWriter, r *http.Request) {
	var req appendRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpAppend, err)
		return
	}
	rows, err := s.movements(req.Movements)
	if err != nil {
		s.fail(w, r, log.OpAppend, err)
		return
	}
	added, err := s.svc.Append(r.Context(), rows...)
	if err != nil {
		s.fail(w, r, log.OpAppend, err)
		return
	}
	writeJSON(w, http.StatusCreated, appendResponse{Movements: added, Version: s.svc.Version()})
}

func (s *Server) handleUpdateMovement(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(r.PathValue("id"))
	var patch dataset.Patch
	if err := s.decodeJSON(w, r, &patch); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	if patch.IsEmpty() {
		s.fail(w, r, log.OpUpdate, fmt.Errorf("%w: no fields to change", dataset.ErrInvalidPatch))
		return
	}
	m, err := s.svc.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

type bulkResponse struct {
	Updated int    `json:"updated"`
	Version uint64 `json:"version"`
}

func (s *Server) handleBulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkRequest
	if err := s.decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	n, err := s.svc.BulkUpdate(r.Context(), req.IDs, req.Patch)
	if err != nil {
		s.fail(w, r, log.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkResponse{Updated: n, Version: s.svc.Version()})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Clear(r.Context()); err != nil {
		s.fail(w, r, log.OpClear, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
