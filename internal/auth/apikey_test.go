package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func authedStatus(t *testing.T, key, header string) int {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	g.POST("/ingest", NewAPIKey(key).GinAuth(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	req := httptest.NewRequest(http.MethodPost, "/ingest", nil)
	if header != "" {
		req.Header.Set(HeaderAPIKey, header)
	}
	w := httptest.NewRecorder()
	g.ServeHTTP(w, req)
	return w.Code
}

func TestGinAuth(t *testing.T) {
	cases := []struct {
		name   string
		key    string
		header string
		want   int
	}{
		{"valid key", "secret", "secret", http.StatusOK},
		{"wrong key", "secret", "nope", http.StatusUnauthorized},
		{"missing header", "secret", "", http.StatusUnauthorized},
		{"empty configured key rejects all", "", "anything", http.StatusUnauthorized},
		{"whitespace key is trimmed", "  secret  ", "secret", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := authedStatus(t, tc.key, tc.header); got != tc.want {
				t.Fatalf("status = %d, want %d", got, tc.want)
			}
		})
	}
}
