package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"repayment-engine/internal/api/handler/dto"
	"repayment-engine/internal/config"
	"repayment-engine/internal/pkg/apperrors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(io.Discard, nil))

const testSecret = "test-jwt-secret-key"

func TestGenerateBearerToken(t *testing.T) {
	h := NewAuthHandler(config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour}, logger)
	issuedAt := time.Now().Truncate(time.Second)
	h.now = func() time.Time { return issuedAt }

	t.Run("successfully generates token", func(t *testing.T) {
		body, _ := json.Marshal(dto.TokenRequest{Username: "operator"})
		req := httptest.NewRequest(http.MethodPost, "/auth/token", bytes.NewReader(body))
		w := httptest.NewRecorder()

		h.GenerateBearerToken(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var resp dto.TokenResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.True(t, strings.HasPrefix(resp.Token, "Bearer "))
		assert.Equal(t, int64(3600), resp.ExpiresIn)

		claims := jwt.MapClaims{}
		_, err := jwt.ParseWithClaims(strings.TrimPrefix(resp.Token, "Bearer "), claims, func(*jwt.Token) (any, error) {
			return []byte(testSecret), nil
		})
		require.NoError(t, err)
		assert.Equal(t, "operator", claims["username"])
		exp, err := claims.GetExpirationTime()
		require.NoError(t, err)
		assert.Equal(t, issuedAt.Add(time.Hour).Unix(), exp.Unix())
	})

	t.Run("fails with invalid request body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader("invalid json"))
		w := httptest.NewRecorder()

		h.GenerateBearerToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		var resp dto.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error.Message, apperrors.ErrInvalidArgument.Error())
	})

	t.Run("fails without username", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"username":""}`))
		w := httptest.NewRecorder()

		h.GenerateBearerToken(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNewAuthHandlerDefaultsTTL(t *testing.T) {
	h := NewAuthHandler(config.AuthConfig{JWTSecret: testSecret}, logger)
	assert.Equal(t, defaultTokenTTL, h.cfg.TokenTTL)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.NewValidationError("amount", "must be positive"), http.StatusBadRequest},
		{apperrors.ErrInvalidArgument, http.StatusBadRequest},
		{apperrors.ErrUnauthorized, http.StatusUnauthorized},
		{apperrors.ErrNotFound, http.StatusNotFound},
		{apperrors.ErrBalance, http.StatusUnprocessableEntity},
		{apperrors.ErrInvalidState, http.StatusConflict},
		{apperrors.ErrAttemptsExceeded, http.StatusConflict},
		{apperrors.ErrAlreadyExists, http.StatusConflict},
		{apperrors.ErrVerificationUnavailable, http.StatusServiceUnavailable},
		{apperrors.ErrStorage, http.StatusInternalServerError},
		{io.ErrUnexpectedEOF, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
	assert.Equal(t, slog.LevelWarn, logLevelFor(apperrors.ErrNotFound))
	assert.Equal(t, slog.LevelError, logLevelFor(apperrors.ErrStorage))
}
