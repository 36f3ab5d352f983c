package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	bookdomain "bookshelf/backend/internal/domain/book"
	iddomain "bookshelf/backend/internal/domain/identity"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeMethodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// writeDomainError maps the domain error taxonomy onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, iddomain.ErrUnauthenticated),
		errors.Is(err, iddomain.ErrBadCredentials),
		errors.Is(err, iddomain.ErrTokenInvalid),
		errors.Is(err, iddomain.ErrTokenExpired):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, iddomain.ErrForbidden),
		errors.Is(err, iddomain.ErrRoleNotAllowed):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, iddomain.ErrNotFound),
		errors.Is(err, bookdomain.ErrNotFound),
		errors.Is(err, iddomain.ErrBookNotOnShelf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, iddomain.ErrUsernameExists),
		errors.Is(err, iddomain.ErrEmailExists),
		errors.Is(err, bookdomain.ErrDuplicateTitle),
		errors.Is(err, bookdomain.ErrDuplicateISBN),
		errors.Is(err, iddomain.ErrBookAlreadyOnShelf),
		errors.Is(err, iddomain.ErrVersionConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, iddomain.ErrUnknownSubject):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}
