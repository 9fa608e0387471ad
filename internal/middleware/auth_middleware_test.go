package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"muse-go/internal/auth"
	"muse-go/internal/config"
)

func TestAuthMiddleware(t *testing.T) {
	cfg := config.AuthConfig{JWTSecretKey: "secret", JWTExpiry: time.Hour}
	token, _, err := auth.GenerateToken(5, "alice", cfg)
	require.NoError(t, err)

	var gotID uint
	var gotClaims *auth.Claims
	h := AuthMiddleware(cfg, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserIDFromContext(r.Context())
		gotClaims, _ = GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := []struct {
		name   string
		header string
		query  string
		want   int
	}{
		{"bearer header", "Bearer " + token, "", http.StatusNoContent},
		{"lowercase scheme", "bearer " + token, "", http.StatusNoContent},
		{"query token", "", "?token=" + token, http.StatusNoContent},
		{"missing", "", "", http.StatusUnauthorized},
		{"bad scheme", "Basic " + token, "", http.StatusUnauthorized},
		{"garbage token", "Bearer nope", "", http.StatusUnauthorized},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			gotID, gotClaims = 0, nil
			req := httptest.NewRequest(http.MethodGet, "/api/v1/feed"+c.query, nil)
			if c.header != "" {
				req.Header.Set("Authorization", c.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, c.want, rec.Code)
			if c.want == http.StatusNoContent {
				assert.Equal(t, uint(5), gotID)
				require.NotNil(t, gotClaims)
				assert.Equal(t, "alice", gotClaims.Username)
			} else {
				assert.JSONEq(t, `{"error":"`+errorMessage(c.header, c.query)+`"}`, rec.Body.String())
			}
		})
	}
}

func errorMessage(header, query string) string {
	if header == "Bearer nope" {
		return "令牌无效"
	}
	return "请求未包含有效的授权令牌"
}
