package respond

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestJSON(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		data         any
		expectedBody string
	}{
		{
			name:         "map",
			code:         http.StatusOK,
			data:         map[string]string{"message": "ok"},
			expectedBody: `{"message":"ok"}`,
		},
		{
			name: "struct with tags",
			code: http.StatusOK,
			data: struct {
				Slug string `json:"slug"`
			}{Slug: "npr"},
			expectedBody: `{"slug":"npr"}`,
		},
		{
			name:         "nil body",
			code:         http.StatusNoContent,
			data:         nil,
			expectedBody: "",
		},
		{
			name:         "error status",
			code:         http.StatusBadRequest,
			data:         map[string]string{"error": "bad request"},
			expectedBody: `{"error":"bad request"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			JSON(w, tt.code, tt.data)

			if w.Code != tt.code {
				t.Errorf("Code = %v, want %v", w.Code, tt.code)
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %v, want application/json", ct)
			}
			if body := strings.TrimSpace(w.Body.String()); body != tt.expectedBody {
				t.Errorf("Body = %v, want %v", body, tt.expectedBody)
			}
		})
	}
}

func TestJSON_EncodingError(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusOK, make(chan int))

	if w.Code != http.StatusOK {
		t.Errorf("Code = %v, want %v", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %v, want application/json", ct)
	}
}

func TestSafeError(t *testing.T) {
	tests := []struct {
		name         string
		code         int
		err          error
		expectedCode int
		expectedMsg  string
	}{
		{
			name:         "invalid query parameter",
			code:         http.StatusBadRequest,
			err:          errors.New("invalid query parameter: page must be a positive integer"),
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "invalid query parameter: page must be a positive integer",
		},
		{
			name:         "not found",
			code:         http.StatusNotFound,
			err:          errors.New("article not found"),
			expectedCode: http.StatusNotFound,
			expectedMsg:  "article not found",
		},
		{
			name:         "too long",
			code:         http.StatusBadRequest,
			err:          errors.New("search query too long"),
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "search query too long",
		},
		{
			name:         "client error without a safe fragment",
			code:         http.StatusBadRequest,
			err:          errors.New("pq: syntax error at or near"),
			expectedCode: http.StatusBadRequest,
			expectedMsg:  "internal server error",
		},
		{
			name:         "500 is never shown",
			code:         http.StatusInternalServerError,
			err:          errors.New("required column missing"),
			expectedCode: http.StatusInternalServerError,
			expectedMsg:  "internal server error",
		},
		{
			name:         "503 with DSN",
			code:         http.StatusServiceUnavailable,
			err:          errors.New("dial postgres://archiver:secret@db:5432/news"),
			expectedCode: http.StatusServiceUnavailable,
			expectedMsg:  "internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			SafeError(w, tt.code, tt.err)

			if w.Code != tt.expectedCode {
				t.Errorf("Code = %v, want %v", w.Code, tt.expectedCode)
			}
			var body map[string]string
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body["error"] != tt.expectedMsg {
				t.Errorf("Error message = %v, want %v", body["error"], tt.expectedMsg)
			}
		})
	}
}

func TestSafeError_NilWritesNothing(t *testing.T) {
	w := httptest.NewRecorder()
	SafeError(w, http.StatusBadRequest, nil)
	if w.Body.Len() != 0 {
		t.Errorf("Expected no body for nil error, got: %v", w.Body.String())
	}
}

func TestSafeError_LogsSanitizedCause(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	w := httptest.NewRecorder()
	SafeError(w, http.StatusInternalServerError, errors.New("dial postgres://archiver:hunter2@db:5432/news"))

	logs := buf.String()
	if strings.Contains(logs, "hunter2") {
		t.Errorf("password leaked into logs: %s", logs)
	}
	if !strings.Contains(logs, "archiver:****@db") {
		t.Errorf("expected masked DSN in logs, got: %s", logs)
	}
}
