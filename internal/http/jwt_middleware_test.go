package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"chat-relay/internal/service"
)

func protectedRouter(tokens *service.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuthMiddleware(tokens), func(c *gin.Context) {
		claims, ok := GetAuthClaims(c)
		if !ok || claims.Username != "alice" {
			c.Status(http.StatusTeapot)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func doProtected(r http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthMiddleware_AllowsValidToken(t *testing.T) {
	tokens := service.NewTokenService("secret")
	token, err := tokens.Issue(service.NewClaims("alice", time.Now().Add(time.Hour)))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	r := protectedRouter(tokens)

	for _, header := range []string{"Bearer " + token, "bearer " + token, "  BEARER   " + token + " "} {
		if rec := doProtected(r, header); rec.Code != http.StatusOK {
			t.Fatalf("header %q: expected 200, got %d", header, rec.Code)
		}
	}
}

func TestJWTAuthMiddleware_Rejects(t *testing.T) {
	tokens := service.NewTokenService("secret")
	expired, _ := tokens.Issue(service.NewClaims("alice", time.Now().Add(-time.Hour)))
	foreign, _ := service.NewTokenService("other").Issue(service.NewClaims("alice", time.Now().Add(time.Hour)))
	r := protectedRouter(tokens)

	cases := map[string]string{
		"missing":      "",
		"no scheme":    foreign,
		"basic":        "Basic YWxpY2U6cHc=",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not-a-token",
		"expired":      "Bearer " + expired,
		"other secret": "Bearer " + foreign,
	}
	for name, header := range cases {
		rec := doProtected(r, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", name, rec.Code)
		}
		if rec.Body.Len() != 0 {
			t.Fatalf("%s: expected empty body, got %q", name, rec.Body.String())
		}
	}
}
