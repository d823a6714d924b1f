package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sitegate/sitegate/internal/errors"
)

func submitContact(t *testing.T, h *ContactHandler, payload string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(payload))
	r.Header.Set("Content-Type", "application/json")
	r.RemoteAddr = "203.0.113.7:51000"
	rec := httptest.NewRecorder()

	h.Submit(rec, r)
	return rec
}

func decodeErrorBody(t *testing.T, rec *httptest.ResponseRecorder) apperrors.HTTPErrorResponse {
	t.Helper()
	var body apperrors.HTTPErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestContactSubmitRejectsMalformedBody(t *testing.T) {
	h := &ContactHandler{}

	rec := submitContact(t, h, "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec)
	assert.Equal(t, "INVALID_INPUT", body.Error.Code)
}

func TestContactSubmitRequiresAllFields(t *testing.T) {
	h := &ContactHandler{}

	tests := []struct {
		name    string
		payload string
	}{
		{"missing name", `{"email":"a@example.com","message":"hello"}`},
		{"missing email", `{"name":"Ada","message":"hello"}`},
		{"missing message", `{"name":"Ada","email":"a@example.com"}`},
		{"whitespace only", `{"name":"  ","email":"a@example.com","message":"hello"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submitContact(t, h, tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeErrorBody(t, rec)
			assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
			assert.Equal(t, "Missing required fields", body.Error.Message)
		})
	}
}

func TestContactSubmitEnforcesMessageLength(t *testing.T) {
	h := &ContactHandler{MaxMessageLength: 10}

	rec := submitContact(t, h, `{"name":"Ada","email":"a@example.com","message":"this message is longer than ten characters"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body := decodeErrorBody(t, rec)
	assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
	assert.Equal(t, "Message is too long. Maximum 10 characters allowed.", body.Error.Message)
}

func TestContactSubmitRejectsSpam(t *testing.T) {
	h := &ContactHandler{}

	tests := []struct {
		name    string
		payload string
	}{
		{"keyword in message", `{"name":"Ada","email":"a@example.com","message":"win big at the CASINO tonight"}`},
		{"keyword in name", `{"name":"bitcoin deals","email":"a@example.com","message":"hello there"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := submitContact(t, h, tt.payload)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			body := decodeErrorBody(t, rec)
			assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
			assert.Equal(t, "Message detected as spam.", body.Error.Message)
		})
	}
}
