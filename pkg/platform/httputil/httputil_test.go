package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "placeclaim/pkg/domain-errors"
)

type validatingRequest struct {
	Name       string `json:"name"`
	normalized bool
}

func (r *validatingRequest) Normalize() { r.normalized = true }

func (r *validatingRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := context.Background()

	t.Run("normalizes and validates", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"cafe"}`))
		rec := httptest.NewRecorder()

		got, ok := DecodeAndPrepare[validatingRequest](rec, req, logger, ctx, "req-1")

		require.True(t, ok)
		assert.True(t, got.normalized)
		assert.Equal(t, "cafe", got.Name)
	})

	t.Run("validation failure writes validation envelope", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":""}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[validatingRequest](rec, req, logger, ctx, "req-2")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		env := decodeEnvelope(t, rec)
		assert.False(t, env.Success)
		assert.Equal(t, string(dErrors.CodeValidation), env.Error.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"name":"x","admin":true}`))
		rec := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[validatingRequest](rec, req, logger, ctx, "req-3")

		assert.False(t, ok)
		assert.Equal(t, string(dErrors.CodeBadRequest), decodeEnvelope(t, rec).Error.Code)
	})
}

func TestWriteError(t *testing.T) {
	t.Run("rate limited sets retry-after", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.RateLimited("slow down", 1500*time.Millisecond))

		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("Retry-After"))
	})

	t.Run("internal messages are not leaked", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, dErrors.Wrap(errors.New("pq: relation missing"), dErrors.CodeInternal, "insert claim: pq detail"))

		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "internal error", env.Error.Message)
	})

	t.Run("foreign errors map to internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("rejection with data keeps payload", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteErrorWithData(rec, dErrors.New(dErrors.CodeFraudRejected, "fraud risk"), map[string]string{"status": "rejected"})

		env := decodeEnvelope(t, rec)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.False(t, env.Success)
		assert.NotNil(t, env.Data)
	})
}

func TestDomainCodeToHTTPStatus(t *testing.T) {
	cases := map[dErrors.Code]int{
		dErrors.CodeAlreadyClaimed:    http.StatusConflict,
		dErrors.CodeInvalidTransition: http.StatusConflict,
		dErrors.CodeExpired:           http.StatusGone,
		dErrors.CodeExhausted:         http.StatusLocked,
		dErrors.CodeMismatch:          http.StatusUnprocessableEntity,
		dErrors.CodeUnauthorized:      http.StatusUnauthorized,
		dErrors.CodeValidation:        http.StatusBadRequest,
		dErrors.CodeUnavailable:       http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		assert.Equal(t, status, DomainCodeToHTTPStatus(code), string(code))
	}
}
