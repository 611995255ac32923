package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-handoff-backend/internal/http/middleware"
	"github.com/tbourn/go-handoff-backend/internal/services"
)

func TestFail_500LogsWithRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	lg := zerolog.New(&buf)

	r := gin.New()
	r.Use(middleware.RequestID(), func(c *gin.Context) {
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) { fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom") })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set("X-Request-ID", "rid-500")
	r.ServeHTTP(w, req)

	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if w.Code != http.StatusInternalServerError || resp.RequestID != "rid-500" || resp.Code != ErrCodeInternal || resp.Message != "kaboom" {
		t.Fatalf("unexpected response %d %+v", w.Code, resp)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func TestFail_4xxDoesNotLog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	lg := zerolog.New(&buf)

	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("logger", &lg); c.Next() })
	r.GET("/x", func(c *gin.Context) { Fail(c, http.StatusNotFound, ErrCodeNotFound, "missing") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	if w.Code != http.StatusNotFound || buf.Len() != 0 {
		t.Fatalf("code=%d log=%q", w.Code, buf.String())
	}
}

func TestFailService_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{services.ErrConversationNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrLeadNotFound, http.StatusNotFound, ErrCodeNotFound},
		{services.ErrInvalidSelector, http.StatusBadRequest, ErrCodeInvalidSelector},
		{fmt.Errorf("wrap: %w", services.ErrInvalidAddress), http.StatusBadRequest, ErrCodeInvalidAddress},
		{services.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition},
		{errDB, http.StatusInternalServerError, ErrCodeAppendFailed},
	}
	for _, tc := range cases {
		r := gin.New()
		r.GET("/x", func(c *gin.Context) { failService(c, tc.err, ErrCodeAppendFailed) })
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

		var resp ErrorResponse
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
		if w.Code != tc.wantStatus || resp.Code != tc.wantCode {
			t.Fatalf("%v -> %d %q; want %d %q", tc.err, w.Code, resp.Code, tc.wantStatus, tc.wantCode)
		}
	}
}

func TestNewPagination(t *testing.T) {
	p := newPagination(2, 10, 25)
	if p.TotalPages != 3 || !p.HasNext {
		t.Fatalf("unexpected %+v", p)
	}
	p = newPagination(1, 20, 0)
	if p.TotalPages != 0 || p.HasNext {
		t.Fatalf("unexpected empty %+v", p)
	}
}
