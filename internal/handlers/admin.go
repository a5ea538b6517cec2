package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillbridge/apiserver/internal/services"
	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
)

// AdminHandler serves the approval workflows.
type AdminHandler struct {
	courses *services.CourseService
	users   *services.UserService
	logger  *zap.Logger
}

func NewAdminHandler(courses *services.CourseService, users *services.UserService, logger *zap.Logger) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{courses: courses, users: users, logger: logger}
}

// AdminRouter registers admin-only routes.
func AdminRouter(
	r chi.Router,
	courses *services.CourseService,
	users *services.UserService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewAdminHandler(courses, users, logger)

	r.Use(authMiddleware, RequireRole(types.RoleAdmin, "Access denied: admins only"))
	r.Patch("/courses/{courseID}/approval", handler.SetCourseApproval)
	r.Patch("/users/{userID}/approval", handler.SetUserApproval)
}

func (h *AdminHandler) SetCourseApproval(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req ApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courses.SetApproval(r.Context(), chi.URLParam(r, "courseID"), user, *req.Approved)
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *AdminHandler) SetUserApproval(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req ApprovalRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.users.SetInstructorApproval(r.Context(), user, chi.URLParam(r, "userID"), *req.Approved)
	if err != nil {
		writeServiceError(w, h.logger, err, "User not found")
		return
	}
	updated.PasswordHash = ""
	writeJSON(w, http.StatusOK, updated)
}

type ApprovalRequest struct {
	Approved *bool `json:"isApproved" validate:"required"`
}
