package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dd0wney/cluso-noc/pkg/api/middleware"
	"github.com/dd0wney/cluso-noc/pkg/backend"
	"github.com/dd0wney/cluso-noc/pkg/devicetree"
	"github.com/dd0wney/cluso-noc/pkg/graph"
	"github.com/dd0wney/cluso-noc/pkg/layout"
	"github.com/dd0wney/cluso-noc/pkg/logging"
	"github.com/dd0wney/cluso-noc/pkg/nodefactory"
	"github.com/dd0wney/cluso-noc/pkg/pubsub"
	"github.com/dd0wney/cluso-noc/pkg/selection"
	"github.com/dd0wney/cluso-noc/pkg/session"
)

// statusFor maps a console error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, session.ErrClosed), errors.Is(err, pubsub.ErrShutdown):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrSaveFailed), errors.Is(err, backend.ErrUnavailable),
		errors.Is(err, devicetree.ErrInvalidTree):
		return http.StatusBadGateway

	case errors.Is(err, session.ErrNotEditing),
		errors.Is(err, session.ErrAlreadyEditing),
		errors.Is(err, session.ErrNoDocument),
		errors.Is(err, session.ErrSaveInProgress),
		errors.Is(err, session.ErrDeleteWhileEditing),
		errors.Is(err, session.ErrDeleteInProgress),
		errors.Is(err, session.ErrSuperseded),
		errors.Is(err, selection.ErrMultiSelectInView):
		return http.StatusConflict

	case errors.Is(err, graph.ErrUnknownNode),
		errors.Is(err, graph.ErrUnknownEdge),
		errors.Is(err, devicetree.ErrUnknownKey),
		errors.Is(err, backend.ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, devicetree.ErrNotLeaf),
		errors.Is(err, layout.ErrUnknownAlgorithm),
		errors.Is(err, nodefactory.ErrUnknownFrameKind),
		errors.Is(err, session.ErrInvalidInterval):
		return http.StatusBadRequest

	case errors.Is(err, selection.ErrNotSelectable),
		errors.Is(err, session.ErrNotMovable),
		errors.Is(err, session.ErrNotResizable),
		errors.Is(err, session.ErrSelfLoop),
		errors.Is(err, session.ErrLayoutUnsupported),
		errors.Is(err, graph.ErrEdgeNotAllowed),
		errors.Is(err, graph.ErrDuplicateNode),
		errors.Is(err, graph.ErrDuplicateEdge),
		errors.Is(err, nodefactory.ErrDeviceAlreadyPlaced),
		errors.Is(err, nodefactory.ErrFrameNotAllowed),
		errors.Is(err, nodefactory.ErrInvalidDevice),
		graph.IsIntegrityError(err):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// operationContext detaches an operation from the client connection, so a
// browser navigating away cannot leave a document half loaded. Backend
// calls stay bounded by the backend's own timeout.
func operationContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("encode response", logging.Error(err))
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	s.respondJSON(w, status, ErrorResponse{
		Error:     http.StatusText(status),
		Message:   message,
		Code:      status,
		RequestID: middleware.GetRequestID(r),
	})
}

// respondErr reports a console error. Server-side failures are logged in
// full and reported generically.
func (s *Server) respondErr(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	message := err.Error()
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			logging.Operation(operation),
			logging.String("request_id", middleware.GetRequestID(r)),
			logging.Error(err))
		message = sanitizeError(err, operation)
	}
	s.respondError(w, r, status, message)
}

// respondState answers a mutation with the resulting read model.
func (s *Server) respondState(w http.ResponseWriter) {
	s.respondJSON(w, http.StatusOK, s.console.State())
}
