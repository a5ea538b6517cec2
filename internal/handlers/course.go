package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skillbridge/apiserver/internal/services"
	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
)

const (
	maxMultipartMemory = 32 << 20
	formFieldFile      = "file"
	formFieldTitle     = "title"
	formFieldType      = "contentType"
	formFieldContent   = "content"

	msgLessonNotFound = "Course or lesson not found"
)

// maxLessonUpload caps the whole multipart body of a lesson upload.
var maxLessonUpload int64 = 512 << 20

// CourseHandler provides HTTP handlers for courses and their lessons.
type CourseHandler struct {
	courses *services.CourseService
	logger  *zap.Logger
}

// NewCourseHandler constructs a handler with the provided service.
func NewCourseHandler(courses *services.CourseService, logger *zap.Logger) *CourseHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CourseHandler{courses: courses, logger: logger}
}

// CourseRouter registers course routes on the given router.
func CourseRouter(
	r chi.Router,
	courses *services.CourseService,
	authMiddleware func(http.Handler) http.Handler,
	logger *zap.Logger,
) {
	handler := NewCourseHandler(courses, logger)
	instructorOnly := RequireRole(types.RoleInstructor, "Access denied: instructors only")

	r.Get("/", handler.ListCourses)
	r.With(authMiddleware, instructorOnly).Post("/", handler.CreateCourse)
	r.Route("/{courseID}", func(r chi.Router) {
		r.Get("/", handler.GetCourse)
		r.With(authMiddleware).Put("/", handler.UpdateCourse)
		r.With(authMiddleware).Delete("/", handler.DeleteCourse)
		r.With(authMiddleware).Post("/enroll", handler.Enroll)
		r.With(authMiddleware).Post("/review", handler.AddReview)
		r.With(authMiddleware).Post("/lessons", handler.AddLesson)
		r.With(authMiddleware).Get("/lessons/{lessonID}/content", handler.LessonContent)
	})
}

func (h *CourseHandler) ListCourses(w http.ResponseWriter, r *http.Request) {
	courses, err := h.courses.ListPublic(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, courses)
}

func (h *CourseHandler) GetCourse(w http.ResponseWriter, r *http.Request) {
	course, err := h.courses.Get(r.Context(), chi.URLParam(r, "courseID"))
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) CreateCourse(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req CreateCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courses.Create(r.Context(), user, services.CreateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       *req.Price,
		Level:       types.Level(req.Level),
		Duration:    req.Duration,
		Syllabus:    req.Syllabus,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

func (h *CourseHandler) UpdateCourse(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req UpdateCourseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	course, err := h.courses.Update(r.Context(), chi.URLParam(r, "courseID"), user, services.UpdateCourseInput{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
	})
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusOK, course)
}

func (h *CourseHandler) DeleteCourse(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	if err := h.courses.Delete(r.Context(), chi.URLParam(r, "courseID"), user); err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Course removed")
}

func (h *CourseHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	if err := h.courses.Enroll(r.Context(), chi.URLParam(r, "courseID"), user); err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeMessage(w, http.StatusOK, "Enrolled successfully")
}

func (h *CourseHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	var req ReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rating, err := parseNumber(req.Rating)
	if err != nil {
		writeError(w, http.StatusBadRequest, "rating must be a number")
		return
	}

	if err := h.courses.AddReview(r.Context(), chi.URLParam(r, "courseID"), user, rating, req.Comment); err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeMessage(w, http.StatusCreated, "Review added")
}

// AddLesson accepts either a JSON body or a multipart form whose "file"
// part is stored in object storage.
func (h *CourseHandler) AddLesson(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	input, cleanup, err := parseLessonRequest(w, r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	defer cleanup()

	course, err := h.courses.AddLesson(r.Context(), chi.URLParam(r, "courseID"), user, input)
	if err != nil {
		writeServiceError(w, h.logger, err, msgCourseNotFound)
		return
	}
	writeJSON(w, http.StatusCreated, course)
}

// LessonContent streams uploaded lesson content, or returns inline content
// as plain text.
func (h *CourseHandler) LessonContent(w http.ResponseWriter, r *http.Request) {
	user, _ := userFromContext(r.Context())

	lesson, object, err := h.courses.LessonContent(r.Context(), chi.URLParam(r, "courseID"), chi.URLParam(r, "lessonID"), user)
	if err != nil {
		writeServiceError(w, h.logger, err, msgLessonNotFound)
		return
	}

	if object == nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, lesson.Content)
		return
	}
	defer object.Body.Close()

	contentType := object.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	if object.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(object.Size, 10))
	}
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, object.Body); err != nil {
		h.logger.Warn("lesson content stream interrupted", zap.String("lesson_id", lesson.ID.Hex()), zap.Error(err))
	}
}

func parseLessonRequest(w http.ResponseWriter, r *http.Request) (services.AddLessonInput, func(), error) {
	noop := func() {}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req LessonRequest
		if err := decodeJSON(r, &req); err != nil {
			return services.AddLessonInput{}, noop, err
		}
		return services.AddLessonInput{
			Title:       req.Title,
			ContentType: types.ContentType(req.ContentType),
			Content:     req.Content,
		}, noop, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxLessonUpload)
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		return services.AddLessonInput{}, noop, errors.New("invalid multipart form")
	}
	cleanup := func() { _ = r.MultipartForm.RemoveAll() }

	input := services.AddLessonInput{
		Title:       strings.TrimSpace(r.FormValue(formFieldTitle)),
		ContentType: types.ContentType(strings.TrimSpace(r.FormValue(formFieldType))),
		Content:     r.FormValue(formFieldContent),
	}

	file, header, err := r.FormFile(formFieldFile)
	if errors.Is(err, http.ErrMissingFile) {
		return input, cleanup, nil
	}
	if err != nil {
		cleanup()
		return services.AddLessonInput{}, noop, errors.New("invalid file upload")
	}
	input.Upload = &services.LessonUpload{
		Filename:    header.Filename,
		ContentType: uploadContentType(header),
		Size:        header.Size,
		Body:        file,
	}
	return input, func() {
		_ = file.Close()
		cleanup()
	}, nil
}

func uploadContentType(header *multipart.FileHeader) string {
	if ct := header.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

type CreateCourseRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Price       *float64 `json:"price" validate:"required,gte=0"`
	Level       string   `json:"level" validate:"omitempty,oneof=Beginner Intermediate Advanced"`
	Duration    float64  `json:"duration" validate:"gte=0"`
	Syllabus    []string `json:"syllabus"`
}

type UpdateCourseRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Price       float64 `json:"price"`
}

type ReviewRequest struct {
	Rating  json.RawMessage `json:"rating"`
	Comment string          `json:"comment"`
}

type LessonRequest struct {
	Title       string `json:"title" validate:"required"`
	ContentType string `json:"contentType" validate:"required,oneof=video pdf text"`
	Content     string `json:"content" validate:"required"`
}
