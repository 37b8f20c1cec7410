package web

import (
	"net/http"

	"github.com/JonMunkholm/leadpipe/internal/core"
)

// BoardResponse is the board as the front-end draws it.
type BoardResponse struct {
	Columns  []core.Column `json:"columns"`
	Dragging string        `json:"dragging,omitempty"`
}

// DragEndResponse reports how a drop was resolved together with the board
// as it is after the drop.
type DragEndResponse struct {
	Outcome core.Outcome `json:"outcome"`
	BoardResponse
}

func boardResponse(b *core.Board) BoardResponse {
	dragging, _ := b.Dragging()
	return BoardResponse{Columns: b.Columns(), Dragging: dragging}
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Board(r.Context(), operator(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("refresh") == "true" {
		if err := b.Refresh(r.Context()); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, boardResponse(b))
}

func (s *Server) handleDragStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		LeadID string `json:"lead_id"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := s.service.Board(r.Context(), operator(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := b.DragStart(req.LeadID); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, boardResponse(b))
}

// handleDragEnd drops the dragged lead onto {target}. An empty target is a
// drop outside every column.
func (s *Server) handleDragEnd(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Target string `json:"target"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		s.respondError(w, r, err)
		return
	}
	b, err := s.service.Board(r.Context(), operator(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	outcome, err := b.DragEnd(r.Context(), req.Target)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DragEndResponse{Outcome: outcome, BoardResponse: boardResponse(b)})
}

func (s *Server) handleDragCancel(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.Board(r.Context(), operator(r))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	b.DragCancel()
	w.WriteHeader(http.StatusNoContent)
}

// handleBoardPage renders the board as HTML.
func (s *Server) handleBoardPage(w http.ResponseWriter, r *http.Request) {
	op := operator(r)
	b, err := s.service.Board(r.Context(), op)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := BoardPage(op.OwnerID, b.Columns()).Render(r.Context(), w); err != nil {
		s.respondError(w, r, err)
	}
}
