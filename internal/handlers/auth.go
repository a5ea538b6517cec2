package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillbridge/apiserver/internal/authz"
	"github.com/skillbridge/apiserver/internal/services"
	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
)

// AuthHandler provides account and token endpoints.
type AuthHandler struct {
	auth   *services.AuthService
	users  *services.UserService
	logger *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(auth *services.AuthService, users *services.UserService, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{auth: auth, users: users, logger: logger}
}

// UserRouter registers account routes on the given router.
func UserRouter(r chi.Router, auth *services.AuthService, users *services.UserService, logger *zap.Logger) {
	handler := NewAuthHandler(auth, users, logger)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.With(RequireAuth(auth, logger)).Get("/profile", handler.Profile)
}

// RequireAuth resolves the bearer token into a user and stores it in the
// request context. Requests without a valid token get 401.
func RequireAuth(auth *services.AuthService, logger *zap.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := auth.ResolveIdentity(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				writeServiceError(w, logger, err, msgInvalidToken)
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// RequireRole passes only identities with exactly the given role.
func RequireRole(role types.Role, message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := userFromContext(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, msgNoToken)
				return
			}
			if err := authz.RequireRole(user, role); err != nil {
				writeError(w, http.StatusForbidden, message)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Register creates a new account and returns a token.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.Register(r.Context(), services.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     types.Role(req.Role),
	})
	if err != nil {
		writeServiceError(w, h.logger, err, "Registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{Token: token, User: user})
}

// Login verifies credentials and returns a token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, h.logger, err, msgInvalidCredentials)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{Token: token, User: user})
}

// Profile returns the authenticated user.
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, msgNoToken)
		return
	}

	profile, err := h.users.GetByID(r.Context(), user.ID.Hex())
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found")
		return
	}
	profile.PasswordHash = ""
	writeJSON(w, http.StatusOK, profile)
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"omitempty,oneof=student instructor"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string     `json:"token"`
	User  types.User `json:"user"`
}
