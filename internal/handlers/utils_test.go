package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skillbridge/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteJSONUnencodableValue(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusOK, types.Course{Title: "Go", Rating: math.Inf(1)})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	writeJSON(rec, http.StatusCreated, MessageResponse{Message: "Review added"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Review added"}`, rec.Body.String())
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		raw     string
		want    float64
		wantErr bool
	}{
		{raw: `4`, want: 4},
		{raw: `"5"`, want: 5},
		{raw: `1e308`, want: 1e308},
		{raw: `" 2.5 "`, want: 2.5},
		{raw: `"abc"`, wantErr: true},
		{raw: `"NaN"`, wantErr: true},
		{raw: `"Inf"`, wantErr: true},
		{raw: `null`, wantErr: true},
		{raw: ``, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := parseNumber(json.RawMessage(tt.raw))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func lessonForm(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, form.WriteField(name, value))
	}
	if filename != "" {
		part, err := form.CreateFormFile(formFieldFile, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/lessons", &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	return req
}

func TestParseLessonRequestWithFile(t *testing.T) {
	req := lessonForm(t, map[string]string{"title": "Intro", "contentType": "video"}, "intro.mp4", []byte("frames"))

	input, cleanup, err := parseLessonRequest(httptest.NewRecorder(), req)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "Intro", input.Title)
	assert.Equal(t, types.ContentVideo, input.ContentType)
	require.NotNil(t, input.Upload)
	assert.Equal(t, "intro.mp4", input.Upload.Filename)
	assert.Equal(t, "application/octet-stream", input.Upload.ContentType)
	assert.Equal(t, int64(len("frames")), input.Upload.Size)

	data, err := io.ReadAll(input.Upload.Body)
	require.NoError(t, err)
	assert.Equal(t, "frames", string(data))
}

func TestParseLessonRequestWithoutFile(t *testing.T) {
	req := lessonForm(t, map[string]string{"title": "Notes", "contentType": "text", "content": "hello"}, "", nil)

	input, cleanup, err := parseLessonRequest(httptest.NewRecorder(), req)
	require.NoError(t, err)
	defer cleanup()

	assert.Nil(t, input.Upload)
	assert.Equal(t, "hello", input.Content)
}

func TestParseLessonRequestTooLarge(t *testing.T) {
	limit := maxLessonUpload
	maxLessonUpload = 64
	t.Cleanup(func() { maxLessonUpload = limit })

	req := lessonForm(t, map[string]string{"title": "Big", "contentType": "pdf"}, "big.pdf", []byte(strings.Repeat("x", 4096)))

	_, cleanup, err := parseLessonRequest(httptest.NewRecorder(), req)
	require.Error(t, err)
	cleanup()
	assert.Equal(t, "invalid multipart form", err.Error())
}

func TestParseLessonRequestJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/lessons", strings.NewReader(`{"title":"Intro","contentType":"text","content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")

	input, cleanup, err := parseLessonRequest(httptest.NewRecorder(), req)
	require.NoError(t, err)
	defer cleanup()

	assert.Equal(t, "Intro", input.Title)
	assert.Nil(t, input.Upload)
}
