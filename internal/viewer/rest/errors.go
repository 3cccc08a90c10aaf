package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/causeway-lang/causeway/internal/core/exceptions"
	"github.com/causeway-lang/causeway/internal/metamodel/spec"
	"github.com/causeway-lang/causeway/internal/runtime/adapter"
	"github.com/causeway-lang/causeway/internal/runtime/memento"
	"github.com/causeway-lang/causeway/internal/runtime/persistence"
)

var (
	// ErrNotFound is returned for unknown types and members
	ErrNotFound = errors.New("not found")
	// ErrBadRequest is returned for malformed requests
	ErrBadRequest = errors.New("bad request")
)

// Problem is the body of every error response
type Problem struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps an error to a status code and a problem code
func statusOf(err error) (int, string) {
	switch {
	case exceptions.IsUnrecoverable(err):
		return http.StatusInternalServerError, "unrecoverable"
	case errors.Is(err, memento.ErrInvalid), errors.Is(err, ErrBadRequest), errors.Is(err, persistence.ErrNotEntity):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound), errors.Is(err, persistence.ErrNotFound), errors.Is(err, adapter.ErrUnknownType):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, spec.ErrVetoed):
		return http.StatusUnprocessableEntity, "vetoed"
	case errors.Is(err, persistence.ErrConcurrentModification):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_server_error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", s.requestFields(r, err)...)
	}
	message := err.Error()
	var veto *spec.VetoError
	if errors.As(err, &veto) {
		message = veto.Consent.Reason()
	}
	writeProblem(w, status, code, message)
}

func writeProblem(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Problem{Error: code, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
