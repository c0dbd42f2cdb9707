package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"credgate/internal/identity/models"
	"credgate/pkg/changeset"
	dErrors "credgate/pkg/domain-errors"
)

// IdentityService is the surface the transport needs from the identity
// service.
type IdentityService interface {
	Register(ctx context.Context, params map[string]any) (*models.User, error)
	UpdateCredentials(ctx context.Context, id uuid.UUID, params map[string]any) (*models.User, error)
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
}

// Handler holds the transport's dependencies.
type Handler struct {
	identity IdentityService
}

// NewHandler constructs the HTTP handler set.
func NewHandler(identity IdentityService) *Handler {
	return &Handler{identity: identity}
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type fieldError struct {
	Field   string         `json:"field"`
	Message string         `json:"message"`
	Meta    map[string]any `json:"meta,omitempty"`
}

type errorResponse struct {
	Error  string       `json:"error"`
	Fields []fieldError `json:"fields,omitempty"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	params, ok := decodeParams(w, r)
	if !ok {
		return
	}
	warnLegacyParams(w, params)

	user, err := h.identity.Register(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: user.ID.String(), Email: user.Email})
}

func (h *Handler) handleUpdateCredentials(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid user id"})
		return
	}

	params, ok := decodeParams(w, r)
	if !ok {
		return
	}
	warnLegacyParams(w, params)

	user, err := h.identity.UpdateCredentials(r.Context(), id, params)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID.String(), Email: user.Email})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	user, err := h.identity.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{ID: user.ID.String(), Email: user.Email})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeParams(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var params map[string]any
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return nil, false
	}
	return params, true
}

// warnLegacyParams flags deprecated input shapes before they reach the
// pipeline, which still accepts them.
func warnLegacyParams(w http.ResponseWriter, params map[string]any) {
	if _, ok := params["confirm_password"]; ok {
		w.Header().Add("Warning", `299 - "param \"confirm_password\" is deprecated, use \"password_confirmation\" instead"`)
	}
}

// writeError centralizes domain error translation. Validation failures carry
// the changeset's accumulated field errors in the body.
func writeError(w http.ResponseWriter, err error) {
	resp := errorResponse{Error: "internal error"}
	status := http.StatusInternalServerError

	var de *dErrors.Error
	if errors.As(err, &de) {
		status = statusOf(de.Code)
		resp.Error = de.Message
	}

	var invalid *changeset.InvalidError
	if errors.As(err, &invalid) {
		for _, e := range invalid.Errors {
			resp.Fields = append(resp.Fields, fieldError{
				Field:   e.Field,
				Message: e.Message,
				Meta:    e.Meta,
			})
		}
	}

	writeJSON(w, status, resp)
}

func statusOf(code dErrors.Code) int {
	switch code {
	case dErrors.CodeInvalidInput:
		return http.StatusUnprocessableEntity
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
