package identity

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithAddr(addr string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = addr
	return e.NewContext(req, httptest.NewRecorder())
}

func TestFromRequestIsStablePerClient(t *testing.T) {
	a := FromRequest(contextWithAddr("203.0.113.7:1000"))
	b := FromRequest(contextWithAddr("203.0.113.7:2000"))

	if a != b {
		t.Errorf("same client produced different identities: %q vs %q", a, b)
	}
}

func TestFromRequestDistinguishesClients(t *testing.T) {
	a := FromRequest(contextWithAddr("203.0.113.7:1000"))
	b := FromRequest(contextWithAddr("198.51.100.9:1000"))

	if a == b {
		t.Error("distinct clients collided")
	}
}

func TestFromRequestIsOpaque(t *testing.T) {
	token := FromRequest(contextWithAddr("203.0.113.7:1000"))

	if strings.Contains(token, "203.0.113.7") {
		t.Error("identity token leaks the client address")
	}
	if len(token) != 64 {
		t.Errorf("unexpected token length %d", len(token))
	}
}
