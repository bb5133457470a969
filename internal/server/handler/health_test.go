package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) PingContext(_ context.Context) error {
	return m.err
}

func performCheck(h *HealthHandler) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	h.Check(c)
	return w
}

func TestCheck_Healthy(t *testing.T) {
	w := performCheck(NewHealthHandler(&mockPinger{}))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestCheck_DatabaseUnreachable(t *testing.T) {
	w := performCheck(NewHealthHandler(&mockPinger{err: errors.New("dial tcp: refused")}))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}

func TestCheck_NoDatabase(t *testing.T) {
	w := performCheck(NewHealthHandler(nil))
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}
