package telephony

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"call_id":"p"}`)
	sig := Sign("s3cret", body)
	if !strings.HasPrefix(sig, "sha256=") {
		t.Fatalf("unexpected signature format %q", sig)
	}
	if !VerifySignature("s3cret", body, sig) {
		t.Fatalf("expected signature to verify")
	}
	if VerifySignature("other", body, sig) {
		t.Fatalf("expected mismatch with wrong secret")
	}
	if VerifySignature("s3cret", body, "sha256=zz") || VerifySignature("s3cret", body, "") {
		t.Fatalf("expected malformed signatures to fail")
	}
}

func TestRequireSignature(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/hook", RequireSignature("s3cret"), func(c *gin.Context) {
		b, _ := io.ReadAll(c.Request.Body)
		c.String(http.StatusOK, string(b))
	})

	body := `{"call_id":"p"}`

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without signature, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader(body))
	req.Header.Set(SignatureHeader, Sign("s3cret", []byte(body)))
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 with signature, got %d", w.Code)
	}
	if w.Body.String() != body {
		t.Fatalf("expected body to be replayed to handler, got %q", w.Body.String())
	}
}

func TestRequireSignature_DisabledWithoutSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/hook", RequireSignature(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/hook", strings.NewReader("{}")))
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected passthrough, got %d", w.Code)
	}
}
