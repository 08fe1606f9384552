package api

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/layout"
	"github.com/dd0wney/cluso-noc/pkg/validation"
)

func (s *Server) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.console.Document()
	if err != nil {
		s.respondErr(w, r, "get document", err)
		return
	}
	s.respondJSON(w, http.StatusOK, doc)
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	if err := s.console.Refresh(operationContext(r)); err != nil {
		s.respondErr(w, r, "refresh", err)
		return
	}
	s.respondState(w)
}

func (s *Server) enterEdit(w http.ResponseWriter, r *http.Request) {
	if err := s.console.EnterEdit(); err != nil {
		s.respondErr(w, r, "enter edit", err)
		return
	}
	s.respondState(w)
}

func (s *Server) save(w http.ResponseWriter, r *http.Request) {
	if err := s.console.Save(operationContext(r)); err != nil {
		s.respondErr(w, r, "save", err)
		return
	}
	s.respondState(w)
}

func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	if err := s.console.Cancel(operationContext(r)); err != nil {
		s.respondErr(w, r, "cancel", err)
		return
	}
	s.respondState(w)
}

func (s *Server) setInterval(w http.ResponseWriter, r *http.Request) {
	var req validation.IntervalRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if err := s.console.SetUpdateInterval(time.Duration(req.Seconds) * time.Second); err != nil {
		s.respondErr(w, r, "set interval", err)
		return
	}
	s.respondState(w)
}

func (s *Server) clearInterval(w http.ResponseWriter, r *http.Request) {
	if err := s.console.SetUpdateInterval(0); err != nil {
		s.respondErr(w, r, "clear interval", err)
		return
	}
	s.respondState(w)
}

func (s *Server) autoLayout(w http.ResponseWriter, r *http.Request) {
	var req validation.LayoutRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	alg, err := layout.ParseAlgorithm(req.Algorithm)
	if err == nil {
		err = s.console.AutoLayout(alg)
	}
	if err != nil {
		s.respondErr(w, r, "auto layout", err)
		return
	}
	s.respondState(w)
}

func (s *Server) createMap(w http.ResponseWriter, r *http.Request) {
	var req validation.CreateMapRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	leaf, err := s.console.CreateDocument(operationContext(r), req.ParentKey, req.Name, graph.DocumentKind(req.Kind))
	if err != nil {
		s.respondErr(w, r, "create map", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, MapCreatedResponse{Leaf: leaf, State: s.console.State()})
}

func (s *Server) renameMap(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathID(w, r, "key")
	if !ok {
		return
	}
	var req validation.RenameRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if err := s.console.RenameDocument(operationContext(r), key, req.Name); err != nil {
		s.respondErr(w, r, "rename map", err)
		return
	}
	s.respondState(w)
}

func (s *Server) deleteMap(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathID(w, r, "key")
	if !ok {
		return
	}
	if err := s.console.DeleteDocument(operationContext(r), key); err != nil {
		s.respondErr(w, r, "delete map", err)
		return
	}
	s.respondState(w)
}
