package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// maxJSONBody bounds form submissions.
const maxJSONBody = 1 << 20

var errInvalidBody = core.ValidationError{Field: "body", Message: "invalid request body"}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		return errInvalidBody
	}
	return nil
}

// handleListLeads lists the operator's leads, narrowed by ?search=, ?stage= and ?date=.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := core.LeadFilter{Search: q.Get("search"), Date: q.Get("date")}
	if raw := q.Get("stage"); raw != "" {
		stage, err := core.ParseStage(raw)
		if err != nil {
			s.respondError(w, r, err)
			return
		}
		f.Stage = stage
	}

	leads, err := s.service.ListLeads(r.Context(), operator(r), f)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in core.LeadInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	lead, err := s.service.CreateLead(r.Context(), operator(r), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lead)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.service.GetLead(r.Context(), operator(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// handleUpdateLead applies the fields present in the body; absent fields are
// left unchanged.
func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	var u core.LeadUpdate
	if err := decodeJSON(w, r, &u); err != nil {
		s.respondError(w, r, err)
		return
	}
	lead, err := s.service.UpdateLead(r.Context(), operator(r), chi.URLParam(r, "id"), u)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteLead(r.Context(), operator(r), chi.URLParam(r, "id")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListInteractions(w http.ResponseWriter, r *http.Request) {
	its, err := s.service.ListInteractions(r.Context(), operator(r), chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, its)
}

func (s *Server) handleAddInteraction(w http.ResponseWriter, r *http.Request) {
	var in core.InteractionInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	it, err := s.service.AddInteraction(r.Context(), operator(r), chi.URLParam(r, "id"), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}
