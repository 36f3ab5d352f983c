package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	bookdomain "bookshelf/backend/internal/domain/book"
	iddomain "bookshelf/backend/internal/domain/identity"
	catalogusecase "bookshelf/backend/internal/usecase/catalog"
	identityusecase "bookshelf/backend/internal/usecase/identity"

	"github.com/google/uuid"
)

const maxCoverBytes = 10 << 20

func (s *Server) registerRoutes() {
	s.router.Handle("/health", http.HandlerFunc(s.handleHealth))
	s.router.Handle("/auth/signup", http.HandlerFunc(s.handleSignup))
	s.router.Handle("/auth/login", http.HandlerFunc(s.handleLogin))
	s.router.Handle("/auth/guest", http.HandlerFunc(s.handleGuestSession))
	s.router.Handle("/auth/renew", http.HandlerFunc(s.handleRenewToken))

	authenticated := s.authMiddleware
	s.router.Handle("/books", authenticated(http.HandlerFunc(s.handleBooks)))
	s.router.Handle("/books/", authenticated(http.HandlerFunc(s.handleBookByID)))
	s.router.Handle("/shelf", authenticated(http.HandlerFunc(s.handleShelf)))
	s.router.Handle("/users", authenticated(http.HandlerFunc(s.handleUsers)))
	s.router.Handle("/users/", authenticated(http.HandlerFunc(s.handleUserByID)))

	s.router.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(s.uploadDir))))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	user, err := s.identityService.Signup(r.Context(), identityusecase.CreateInput{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
		Role:     payload.Role,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"user": user})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	token, user, err := s.authService.Login(r.Context(), iddomain.Credentials{
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, iddomain.ErrMissingIdentifier):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, iddomain.ErrNotFound), errors.Is(err, iddomain.ErrBadCredentials):
			writeError(w, http.StatusUnauthorized, "invalid credentials")
		default:
			writeDomainError(w, err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}

func (s *Server) handleGuestSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	token, guest, err := s.authService.GuestSession(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": guest})
}

func (s *Server) handleRenewToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}

	token := extractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		var payload struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			if errors.Is(err, io.EOF) {
				writeError(w, http.StatusBadRequest, "token required")
			} else {
				writeError(w, http.StatusBadRequest, "invalid JSON payload")
			}
			return
		}
		token = strings.TrimSpace(payload.Token)
	}
	if token == "" {
		writeError(w, http.StatusBadRequest, "token required")
		return
	}

	newToken, err := s.authService.RenewToken(r.Context(), token)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": newToken})
}

func (s *Server) handleBooks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		items, err := s.catalogService.ListBooks(ctx, limit, offset)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		var payload catalogusecase.CreateInput
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		item, err := s.catalogService.CreateBook(ctx, actor, payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleBookByID(w http.ResponseWriter, r *http.Request) {
	remainder := strings.Trim(strings.TrimPrefix(r.URL.Path, "/books/"), "/")
	if remainder == "" {
		writeError(w, http.StatusBadRequest, "book id required")
		return
	}

	segments := strings.Split(remainder, "/")
	id, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "book id must be numeric")
		return
	}

	if len(segments) > 1 {
		if segments[1] == "cover" {
			s.handleBookCover(w, r, id)
			return
		}
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	ctx := r.Context()
	actor, _ := actorFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		item, err := s.catalogService.GetBook(ctx, bookdomain.Lookup{ID: id})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut, http.MethodPatch:
		var payload catalogusecase.UpdateInput
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		item, err := s.catalogService.UpdateBook(ctx, actor, id, payload)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodDelete:
		if err := s.catalogService.DeleteBook(ctx, actor, id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) handleBookCover(w http.ResponseWriter, r *http.Request, id int64) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	actor, _ := actorFromContext(r.Context())

	reference, err := s.storeCover(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.catalogService.SetBookCover(r.Context(), actor, id, reference); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"coverImage": reference})
}

type shelfRequest struct {
	BookID int64  `json:"bookId"`
	Title  string `json:"title"`
	ISBN   string `json:"isbn"`
}

func (s *Server) handleShelf(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, ok := actorFromContext(ctx)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := s.catalogService.ListShelf(ctx, actor)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	case http.MethodPost:
		lookup, err := decodeShelfLookup(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		item, err := s.catalogService.AddBookToShelf(ctx, actor, lookup)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, item)
	case http.MethodDelete:
		lookup, err := decodeShelfLookup(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := s.catalogService.RemoveBookFromShelf(ctx, actor, lookup); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost, http.MethodDelete)
	}
}

func decodeShelfLookup(r *http.Request) (bookdomain.Lookup, error) {
	var payload shelfRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return bookdomain.Lookup{}, bookdomain.ErrMissingLookup
		}
		return bookdomain.Lookup{}, errors.New("invalid JSON payload")
	}
	lookup := bookdomain.Lookup{ID: payload.BookID, Title: payload.Title, ISBN: payload.ISBN}
	if lookup.Empty() {
		return bookdomain.Lookup{}, bookdomain.ErrMissingLookup
	}
	return lookup, nil
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, _ := actorFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		if actor == nil || (actor.Role != iddomain.RoleSuper && actor.Role != iddomain.RoleAdmin) {
			writeError(w, http.StatusForbidden, "admin privileges required")
			return
		}
		users, err := s.identityService.List(ctx, identityusecase.Filter{
			Role: r.URL.Query().Get("role"),
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"users": users})
	case http.MethodPost:
		var payload struct {
			Username string `json:"username"`
			Email    string `json:"email"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		user, err := s.identityService.Create(ctx, actor, identityusecase.CreateInput{
			Username: payload.Username,
			Email:    payload.Email,
			Password: payload.Password,
			Role:     payload.Role,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"user": user})
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPost)
	}
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	remainder := strings.Trim(strings.TrimPrefix(r.URL.Path, "/users/"), "/")
	if remainder == "" {
		writeError(w, http.StatusBadRequest, "user id required")
		return
	}

	switch remainder {
	case "me":
		s.handleCurrentUser(w, r)
		return
	case "me/cover":
		s.handleUserCover(w, r)
		return
	case "change-password":
		s.handleChangePassword(w, r)
		return
	}

	segments := strings.Split(remainder, "/")
	id, err := strconv.ParseInt(segments[0], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user id must be numeric")
		return
	}
	if len(segments) > 1 {
		writeError(w, http.StatusNotFound, "resource not found")
		return
	}

	ctx := r.Context()
	actor, _ := actorFromContext(ctx)

	switch r.Method {
	case http.MethodGet:
		user, err := s.identityService.Get(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPut, http.MethodPatch:
		var payload struct {
			Username *string `json:"username"`
			Email    *string `json:"email"`
			Role     *string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		user, err := s.identityService.Update(ctx, actor, id, identityusecase.UpdateInput{
			Username: payload.Username,
			Email:    payload.Email,
			Role:     payload.Role,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodDelete:
		if err := s.identityService.Delete(ctx, actor, id); err != nil {
			writeDomainError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeMethodNotAllowed(w, http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete)
	}
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, http.MethodGet)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": actor})
}

func (s *Server) handleUserCover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	reference, err := s.storeCover(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.identityService.SetCoverImage(r.Context(), actor, actor.ID, reference); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"coverImage": reference})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, http.MethodPost)
		return
	}
	actor, ok := actorFromContext(r.Context())
	if !ok || actor.ID == 0 {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var payload struct {
		CurrentPassword string `json:"current_password"`
		NewPassword     string `json:"new_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "current_password and new_password required")
		} else {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
		}
		return
	}

	if err := s.authService.ChangePassword(r.Context(), actor.ID, payload.CurrentPassword, payload.NewPassword); err != nil {
		switch {
		case errors.Is(err, iddomain.ErrPasswordMismatch),
			errors.Is(err, iddomain.ErrPasswordUnchanged):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			writeDomainError(w, err)
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// storeCover saves the uploaded multipart cover under a generated object name
// and returns the public reference.
func (s *Server) storeCover(r *http.Request) (string, error) {
	if err := r.ParseMultipartForm(maxCoverBytes); err != nil {
		return "", errors.New("multipart form with a cover file is required")
	}
	file, header, err := r.FormFile("cover")
	if err != nil {
		return "", errors.New("cover file is required")
	}
	defer file.Close()

	if err := os.MkdirAll(s.uploadDir, 0o755); err != nil {
		return "", err
	}

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	dst, err := os.Create(filepath.Join(s.uploadDir, name))
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, io.LimitReader(file, maxCoverBytes)); err != nil {
		return "", err
	}
	return "/uploads/" + name, nil
}
