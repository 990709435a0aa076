package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestHTTPDialer_PlacesCall(t *testing.T) {
	var got dialRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calls" || r.Header.Get("Authorization") != "Bearer key" {
			t.Errorf("unexpected request %s auth=%q", r.URL.Path, r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write([]byte(`{"call_id":"prov-123"}`))
	}))
	defer srv.Close()

	d := &HTTPDialer{BaseURL: srv.URL + "/", APIKey: "key", AgentID: "agent-1", Client: srv.Client()}
	id, err := d.PlaceOutboundCall(context.Background(), OutboundCallRequest{CallID: "c1", UserID: "u1", CampaignID: "cmp", To: "+15550000000"})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if id != "prov-123" {
		t.Fatalf("expected provider id, got %q", id)
	}
	if got.AgentID != "agent-1" || got.To != "+15550000000" || got.Metadata["call_id"] != "c1" {
		t.Fatalf("unexpected dial request: %+v", got)
	}
}

func TestHTTPDialer_ServerErrorIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"call_id":"prov-9"}`))
	}))
	defer srv.Close()

	d := &HTTPDialer{BaseURL: srv.URL, Client: srv.Client(), MaxElapsed: 5 * time.Second}
	_, err := d.PlaceOutboundCall(context.Background(), OutboundCallRequest{CallID: "c1"})
	if err == nil {
		t.Fatalf("expected 503 to fail the dial")
	}
	if errors.Is(err, ErrDialerRejected) {
		t.Fatalf("5xx is not a rejection: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("provider may have placed the call; expected 1 request, got %d", n)
	}
}

func TestHTTPDialer_RetriesRateLimitWithSameIdempotencyKey(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get("Idempotency-Key"); key != "c1" {
			t.Errorf("expected Idempotency-Key c1, got %q", key)
		}
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"call_id":"prov-9"}`))
	}))
	defer srv.Close()

	d := &HTTPDialer{BaseURL: srv.URL, Client: srv.Client(), MaxElapsed: 5 * time.Second}
	id, err := d.PlaceOutboundCall(context.Background(), OutboundCallRequest{CallID: "c1"})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if id != "prov-9" || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("expected success on second attempt, got id=%q calls=%d", id, calls)
	}
}

func TestHTTPDialer_DroppedResponseIsNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		conn, _, err := w.(http.Hijacker).Hijack()
		if err == nil {
			conn.Close()
		}
	}))
	defer srv.Close()

	d := &HTTPDialer{BaseURL: srv.URL, Client: srv.Client(), MaxElapsed: 5 * time.Second}
	if _, err := d.PlaceOutboundCall(context.Background(), OutboundCallRequest{CallID: "c1"}); err == nil {
		t.Fatalf("expected transport error")
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected 1 request, got %d", n)
	}
}

func TestHTTPDialer_ClientErrorIsPermanent(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad number", http.StatusBadRequest)
	}))
	defer srv.Close()

	d := &HTTPDialer{BaseURL: srv.URL, Client: srv.Client()}
	_, err := d.PlaceOutboundCall(context.Background(), OutboundCallRequest{CallID: "c1"})
	if !errors.Is(err, ErrDialerRejected) {
		t.Fatalf("expected ErrDialerRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "bad number") {
		t.Fatalf("expected provider message in error, got %v", err)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}

func TestHTTPDialer_EmptyIDIsAbsence(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	d := &HTTPDialer{BaseURL: srv.URL, Client: srv.Client()}
	id, err := d.PlaceOutboundCall(context.Background(), OutboundCallRequest{CallID: "c1"})
	if err != nil || id != "" {
		t.Fatalf("expected empty id without error, got %q %v", id, err)
	}
}

func TestLocalDialer(t *testing.T) {
	id, err := LocalDialer{}.PlaceOutboundCall(context.Background(), OutboundCallRequest{})
	if err != nil || !strings.HasPrefix(id, "local-") {
		t.Fatalf("unexpected local id %q %v", id, err)
	}
}
