package response

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestRequestIDMiddlewareHonorsHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Request-ID", "upstream-id")

	RequestIDMiddleware()(c)

	if got := RequestID(c); got != "upstream-id" {
		t.Fatalf("request id = %q, want upstream-id", got)
	}
	if got := w.Header().Get("X-Request-ID"); got != "upstream-id" {
		t.Fatalf("response header = %q, want upstream-id", got)
	}
}

func TestRequestIDFallsBackWithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

	first := RequestID(c)
	if first == "" {
		t.Fatal("expected a generated request id")
	}
	if second := RequestID(c); second != first {
		t.Fatalf("request id changed between reads: %q vs %q", first, second)
	}
}
