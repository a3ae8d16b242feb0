package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authRouter(token string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(ServiceAuthMiddleware(token))
	router.POST("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestServiceAuthMiddleware(t *testing.T) {
	cases := []struct {
		name     string
		header   string
		expected int
	}{
		{name: "missing header", header: "", expected: http.StatusUnauthorized},
		{name: "malformed header", header: "secret", expected: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic secret", expected: http.StatusUnauthorized},
		{name: "wrong token", header: "Bearer nope", expected: http.StatusUnauthorized},
		{name: "valid token", header: "Bearer secret", expected: http.StatusOK},
	}

	router := authRouter("secret")
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(w, req)
			if w.Code != tc.expected {
				t.Fatalf("expected %d, got %d", tc.expected, w.Code)
			}
		})
	}
}
