package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/dbchat-backend/internal/platform/ctxutil"
)

func traceRouter(seen **ctxutil.TraceData) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		*seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusOK)
	})
	return r
}

func TestAttachTraceContextKeepsClientIDs(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "req-1")
	req.Header.Set(headerTraceID, "trace:abc")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID != "req-1" || seen.TraceID != "trace:abc" {
		t.Fatalf("trace data: %+v", seen)
	}
	if rec.Header().Get(headerRequestID) != "req-1" || rec.Header().Get(headerTraceID) != "trace:abc" {
		t.Fatalf("response headers: %v", rec.Header())
	}
}

func TestAttachTraceContextReplacesBadIDs(t *testing.T) {
	var seen *ctxutil.TraceData
	r := traceRouter(&seen)

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(headerRequestID, "bad id\nwith newline")
	req.Header.Set(headerTraceID, strings.Repeat("a", maxCorrelationIDLen+1))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if seen == nil || seen.RequestID == "" || strings.Contains(seen.RequestID, " ") {
		t.Fatalf("request id not regenerated: %+v", seen)
	}
	if len(seen.TraceID) > maxCorrelationIDLen || seen.TraceID == "" {
		t.Fatalf("trace id not regenerated: %q", seen.TraceID)
	}
}

func TestCorrelationID(t *testing.T) {
	cases := map[string]string{
		"":              "",
		"  abc-123  ":   "abc-123",
		"a.b_c:d":       "a.b_c:d",
		"<script>":      "",
		"spaces inside": "",
	}
	for in, want := range cases {
		if got := correlationID(in); got != want {
			t.Fatalf("correlationID(%q)=%q want %q", in, got, want)
		}
	}
}
