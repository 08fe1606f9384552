package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/session"
)

const defaultSearchLimit = 20

func (s *Server) getTree(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, TreeResponse{
		Status: s.console.State().TreeStatus,
		Roots:  s.console.Tree(),
	})
}

func (s *Server) reloadTree(w http.ResponseWriter, r *http.Request) {
	if err := s.console.LoadTree(operationContext(r)); err != nil {
		s.respondErr(w, r, "reload tree", err)
		return
	}
	s.getTree(w, r)
}

func (s *Server) searchTree(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.respondError(w, r, http.StatusBadRequest, "q: field is required")
		return
	}
	limit, ok := s.queryInt(w, r, "limit", defaultSearchLimit)
	if !ok {
		return
	}
	results, err := s.console.SearchTree(query, limit)
	if err != nil {
		s.respondErr(w, r, "search tree", err)
		return
	}
	s.respondJSON(w, http.StatusOK, SearchResponse{Query: query, Results: results})
}

func (s *Server) selectLeaf(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathID(w, r, "key")
	if !ok {
		return
	}
	if err := s.console.SelectLeaf(operationContext(r), key); err != nil {
		s.respondErr(w, r, "select leaf", err)
		return
	}
	s.respondState(w)
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	s.respondState(w)
}

// waitEvent long-polls for the next state change. A client passing the
// version it last saw gets the current state at once if it is stale.
// A 204 means nothing changed within the wait.
func (s *Server) waitEvent(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("version"); raw != "" {
		seen, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.respondError(w, r, http.StatusBadRequest, "version: must be a non-negative integer")
			return
		}
		if st := s.console.State(); st.Version != seen {
			s.respondJSON(w, http.StatusOK, session.StateEvent{Kind: session.EventDocument, State: st, At: time.Now()})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.eventWait)
	defer cancel()
	sub, err := s.console.Subscribe(ctx)
	if err != nil {
		s.respondErr(w, r, "subscribe", err)
		return
	}
	defer sub.Unsubscribe()

	select {
	case ev, open := <-sub.Channel():
		if !open {
			s.respondError(w, r, http.StatusServiceUnavailable, "console is shutting down")
			return
		}
		s.respondJSON(w, http.StatusOK, ev)
	case <-ctx.Done():
		w.WriteHeader(http.StatusNoContent)
	}
}
