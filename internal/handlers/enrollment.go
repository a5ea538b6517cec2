package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/skillbridge/apiserver/internal/services"
	"go.uber.org/zap"
)

type EnrollmentHandler struct {
	enrollments *services.EnrollmentService
	logger      *zap.Logger
}

func NewEnrollmentHandler(enrollments *services.EnrollmentService, logger *zap.Logger) *EnrollmentHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentHandler{enrollments: enrollments, logger: logger}
}

// EnrollmentRouter registers progress tracking routes. Every route needs
// an authenticated identity.
func EnrollmentRouter(r chi.Router, enrollments *services.EnrollmentService, authMiddleware func(http.Handler) http.Handler, logger *zap.Logger) {
	handler := NewEnrollmentHandler(enrollments, logger)

	r.Use(authMiddleware)
	r.Get("/", handler.ListEnrollments)
	r.Post("/{courseID}/lessons/{lessonID}/complete", handler.CompleteLesson)
}

func (h *EnrollmentHandler) ListEnrollments(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	enrollments, err := h.enrollments.List(r.Context(), user)
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, enrollments)
}

func (h *EnrollmentHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	enrollment, err := h.enrollments.CompleteLesson(r.Context(), user, chi.URLParam(r, "courseID"), chi.URLParam(r, "lessonID"))
	if err != nil {
		writeServiceError(w, h.logger, err, msgLessonNotFound)
		return
	}
	writeJSON(w, http.StatusOK, enrollment)
}
