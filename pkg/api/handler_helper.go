package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/dd0wney/cluso-noc/pkg/session"
	"github.com/dd0wney/cluso-noc/pkg/validation"
)

// sanitizeError turns an internal failure into a client-safe message.
// Gateway failures name the upstream; everything else is generic.
func sanitizeError(err error, operation string) string {
	if err == nil {
		return ""
	}
	if errors.Is(err, session.ErrSaveFailed) {
		return "save failed: the backend did not accept the document"
	}
	return fmt.Sprintf("%s failed", operation)
}

// requestDecoder decodes and validates a request body. It is fluent: after
// the first failure every later step is a no-op.
type requestDecoder struct {
	r      *http.Request
	w      http.ResponseWriter
	server *Server
	err    error
}

func (s *Server) newRequestDecoder(w http.ResponseWriter, r *http.Request) *requestDecoder {
	return &requestDecoder{r: r, w: w, server: s}
}

// DecodeJSON decodes the body into v, rejecting unknown fields.
func (rd *requestDecoder) DecodeJSON(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	dec := json.NewDecoder(rd.r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		rd.err = fmt.Errorf("invalid request body: %w", err)
	}
	return rd
}

// Validate checks v against its validation tags.
func (rd *requestDecoder) Validate(v any) *requestDecoder {
	if rd.err != nil {
		return rd
	}
	rd.err = validation.Request(v)
	return rd
}

// RespondError writes a 400 and reports true if any step failed.
func (rd *requestDecoder) RespondError() bool {
	if rd.err == nil {
		return false
	}
	rd.server.respondError(rd.w, rd.r, http.StatusBadRequest, rd.err.Error())
	return true
}

// pathID returns a validated route variable, writing a 400 when it is not.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := mux.Vars(r)[name]
	if err := validation.ValidateID(id); err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("%s: %v", name, err))
		return "", false
	}
	return id, true
}

// queryInt parses an optional positive integer query parameter.
func (s *Server) queryInt(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		s.respondError(w, r, http.StatusBadRequest, fmt.Sprintf("%s: must be a positive integer", name))
		return 0, false
	}
	return n, true
}
