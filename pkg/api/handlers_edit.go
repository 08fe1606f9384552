package api

import (
	"net/http"

	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/nodefactory"
	"github.com/dd0wney/cluso-noc/pkg/session"
	"github.com/dd0wney/cluso-noc/pkg/validation"
)

func (s *Server) setSelection(w http.ResponseWriter, r *http.Request) {
	var req validation.SelectRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}

	var err error
	switch {
	case req.EdgeID != "" && len(req.NodeIDs) > 0:
		s.respondError(w, r, http.StatusBadRequest, "select either nodes or an edge")
		return
	case req.EdgeID != "":
		err = s.console.SelectEdge(graph.EdgeID(req.EdgeID))
	case len(req.NodeIDs) == 1:
		err = s.console.SelectNode(graph.NodeID(req.NodeIDs[0]), req.Additive)
	case len(req.NodeIDs) > 1:
		ids := make([]graph.NodeID, len(req.NodeIDs))
		for i, id := range req.NodeIDs {
			ids[i] = graph.NodeID(id)
		}
		err = s.console.SelectNodes(ids)
	default:
		err = s.console.ClearSelection()
	}
	if err != nil {
		s.respondErr(w, r, "select", err)
		return
	}
	s.respondState(w)
}

func (s *Server) clearSelection(w http.ResponseWriter, r *http.Request) {
	if err := s.console.ClearSelection(); err != nil {
		s.respondErr(w, r, "clear selection", err)
		return
	}
	s.respondState(w)
}

func (s *Server) selectDevice(w http.ResponseWriter, r *http.Request) {
	key, ok := s.pathID(w, r, "deviceKey")
	if !ok {
		return
	}
	if err := s.console.SelectDevice(graph.DeviceKey(key)); err != nil {
		s.respondErr(w, r, "select device", err)
		return
	}
	s.respondState(w)
}

func (s *Server) removeSelected(w http.ResponseWriter, r *http.Request) {
	if err := s.console.RemoveSelected(); err != nil {
		s.respondErr(w, r, "remove selected", err)
		return
	}
	s.respondState(w)
}

func (s *Server) moveNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.MoveRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if err := s.console.MoveNode(graph.NodeID(id), graph.Position{X: req.X, Y: req.Y}); err != nil {
		s.respondErr(w, r, "move node", err)
		return
	}
	s.respondState(w)
}

func (s *Server) resizeNode(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.ResizeRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	if err := s.console.ResizeNode(graph.NodeID(id), graph.Size{W: req.W, H: req.H}); err != nil {
		s.respondErr(w, r, "resize node", err)
		return
	}
	s.respondState(w)
}

func (s *Server) addDevice(w http.ResponseWriter, r *http.Request) {
	var req validation.AddDeviceRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	node, err := s.console.AddDeviceNode(operationContext(r), req.TypeID, graph.DeviceKey(req.DeviceKey))
	if err != nil {
		s.respondErr(w, r, "add device", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, NodeCreatedResponse{Node: node, State: s.console.State()})
}

func (s *Server) addFrame(w http.ResponseWriter, r *http.Request) {
	var req validation.AddFrameRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	node, err := s.console.AddFrameNode(nodefactory.FrameKind(req.Kind), req.Label)
	if err != nil {
		s.respondErr(w, r, "add frame", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, NodeCreatedResponse{Node: node, State: s.console.State()})
}

func (s *Server) addDisplay(w http.ResponseWriter, r *http.Request) {
	var req validation.AddDisplayRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	node, err := s.console.AddDisplayNode(operationContext(r), req.TypeID, req.ImageID)
	if err != nil {
		s.respondErr(w, r, "add display", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, NodeCreatedResponse{Node: node, State: s.console.State()})
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	var req validation.ConnectRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	id, err := s.console.Connect(session.ConnectSpec{
		Source:       graph.NodeID(req.Source),
		Target:       graph.NodeID(req.Target),
		SourceHandle: req.SourceHandle,
		TargetHandle: req.TargetHandle,
	})
	if err != nil {
		s.respondErr(w, r, "connect", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, EdgeCreatedResponse{EdgeID: id, State: s.console.State()})
}

func (s *Server) styleEdge(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	var req validation.EdgeStyleRequest
	if s.newRequestDecoder(w, r).DecodeJSON(&req).Validate(&req).RespondError() {
		return
	}
	style := graph.EdgeStyle{CurveType: req.CurveType, Thickness: req.Thickness}
	if err := s.console.UpdateEdgeStyle(graph.EdgeID(id), style, req.Animated); err != nil {
		s.respondErr(w, r, "style edge", err)
		return
	}
	s.respondState(w)
}
