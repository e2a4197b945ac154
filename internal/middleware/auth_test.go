package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spendlog/spendlog/internal/auth"
	"github.com/spendlog/spendlog/internal/metrics"
	"github.com/spendlog/spendlog/internal/model"
)

type stubVerifier struct {
	identity *model.Identity
	err      error
	got      string
}

func (s *stubVerifier) Verify(_ context.Context, token string) (*model.Identity, error) {
	s.got = token
	return s.identity, s.err
}

func TestAuth_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		verifyErr  error
		wantReason string
	}{
		{"missing header", "", nil, reasonMissingToken},
		{"wrong scheme", "Basic dXNlcjpwYXNz", nil, reasonMissingToken},
		{"empty bearer", "Bearer ", nil, reasonMissingToken},
		{"expired", "Bearer t", auth.ErrTokenExpired, reasonExpired},
		{"invalid", "Bearer t", auth.ErrTokenInvalid, reasonInvalid},
		{"revoked", "Bearer t", auth.ErrTokenRevoked, reasonRevoked},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			rec := metrics.NewInMemory()
			mw := Auth(AuthConfig{
				Logger:  slog.New(slog.NewJSONHandler(&logs, nil)),
				Tokens:  &stubVerifier{err: tt.verifyErr},
				Metrics: rec,
			})
			handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Error("next handler must not run")
			}))

			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
			assert.Contains(t, logs.String(), fmt.Sprintf(`"reason":%q`, tt.wantReason))
			assert.Equal(t, uint64(1), rec.Snapshot().AuthFailures[tt.wantReason])
			bodies = append(bodies, w.Body.String())
		})
	}

	// Every failure looks the same to the client.
	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &body))
	assert.Equal(t, map[string]string{"error": "unauthorized", "code": "UNAUTHORIZED"}, body)
}

func TestAuth_Success(t *testing.T) {
	t.Parallel()

	identity := &model.Identity{UserID: 7, TokenID: "01HX", ExpiresAt: time.Now().Add(time.Hour)}
	verifier := &stubVerifier{identity: identity}

	var got *model.Identity
	handler := Auth(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Tokens: verifier,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "bearer  abc.def.ghi")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "abc.def.ghi", verifier.got)
	require.NotNil(t, got)
	assert.Equal(t, int64(7), got.UserID)
}

func TestAuth_StoreFailureIsInternal(t *testing.T) {
	t.Parallel()

	handler := Auth(AuthConfig{
		Logger: slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Tokens: &stubVerifier{err: fmt.Errorf("check revocation: %w", errors.New("redis down"))},
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer t")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "redis")
}
