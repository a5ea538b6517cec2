package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/skillbridge/apiserver/internal/services"
	"github.com/skillbridge/apiserver/internal/store"
	"github.com/skillbridge/apiserver/types"
	"go.uber.org/zap"
)

type contextKey string

const contextUserKey contextKey = "user"

const (
	msgNoToken        = "Not authorized, no token provided"
	msgInvalidToken   = "Not authorized, invalid token"
	msgCourseNotFound = "Course not found"

	msgInvalidCredentials = "Invalid email or password"
)

var validate = newValidator()

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ErrorResponse is a simple error payload.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse confirms an action that has no resource to return.
type MessageResponse struct {
	Message string `json:"message"`
}

func withUser(ctx context.Context, user types.User) context.Context {
	return context.WithValue(ctx, contextUserKey, user)
}

func userFromContext(ctx context.Context) (types.User, bool) {
	user, ok := ctx.Value(contextUserKey).(types.User)
	return user, ok
}

// writeJSON encodes before writing the header so an unencodable value
// turns into a 500 instead of an empty 200.
func writeJSON(w http.ResponseWriter, status int, value any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(value); err != nil {
		zap.L().Error("failed to encode response", zap.Int("status", status), zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Internal server error"}` + "\n"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, MessageResponse{Message: message})
}

// writeServiceError maps service and store errors onto HTTP statuses.
// notFound is the message used for store.ErrNotFound.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error, notFound string) {
	switch {
	case errors.Is(err, services.ErrNoToken):
		writeError(w, http.StatusUnauthorized, msgNoToken)
	case errors.Is(err, services.ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, msgInvalidToken)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, msgInvalidCredentials)
	case errors.Is(err, services.ErrForbidden):
		writeError(w, http.StatusForbidden, "Not authorized for this action")
	case errors.Is(err, services.ErrNotEnrolled):
		writeError(w, http.StatusNotFound, "Not enrolled in this course")
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, notFound)
	case errors.Is(err, services.ErrAlreadyEnrolled):
		writeError(w, http.StatusBadRequest, "Already enrolled")
	case errors.Is(err, services.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrEmailTaken):
		writeError(w, http.StatusConflict, "User already exists")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "Resource was modified concurrently, please retry")
	case errors.Is(err, services.ErrUploadsDisabled):
		writeError(w, http.StatusServiceUnavailable, "Content uploads are not configured")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// decodeJSON reads a JSON body into dst and validates its struct tags.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.New("invalid request body")
	}
	return validateStruct(dst)
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		return fmt.Errorf("%s failed on %q", fieldErrs[0].Field(), fieldErrs[0].Tag())
	}
	return err
}

// parseNumber accepts a JSON number or a numeric string.
func parseNumber(raw json.RawMessage) (float64, error) {
	text := strings.TrimSpace(string(raw))
	if text == "" || text == "null" {
		return 0, errors.New("value is required")
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		text = strings.TrimSpace(s)
	}
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, errors.New("value must be finite")
	}
	return n, nil
}
