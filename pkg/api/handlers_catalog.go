package api

import (
	"net/http"

	"github.com/dd0wney/cluso-noc/pkg/graph"
)

func (s *Server) listTypes(w http.ResponseWriter, r *http.Request) {
	types, err := s.console.DeviceTaxonomy(r.Context())
	if err != nil {
		s.respondErr(w, r, "list device types", err)
		return
	}
	s.respondJSON(w, http.StatusOK, types)
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	typeID, ok := s.pathID(w, r, "typeId")
	if !ok {
		return
	}
	choices, err := s.console.DeviceChoices(r.Context(), typeID)
	if err != nil {
		s.respondErr(w, r, "list devices", err)
		return
	}
	s.respondJSON(w, http.StatusOK, choices)
}

func (s *Server) listImages(w http.ResponseWriter, r *http.Request) {
	typeID, ok := s.pathID(w, r, "typeId")
	if !ok {
		return
	}
	images, err := s.console.ImageCatalog(r.Context(), typeID)
	if err != nil {
		s.respondErr(w, r, "list images", err)
		return
	}
	s.respondJSON(w, http.StatusOK, images)
}

func (s *Server) listEvents(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathID(w, r, "deviceKey")
	if !ok {
		return
	}
	page, ok := s.queryInt(w, r, "page", 1)
	if !ok {
		return
	}
	events, err := s.console.RequestUnhandledEvents(r.Context(), graph.DeviceKey(key), page)
	if err != nil {
		s.respondErr(w, r, "list events", err)
		return
	}
	s.respondJSON(w, http.StatusOK, events)
}
