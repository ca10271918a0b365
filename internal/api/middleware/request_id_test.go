package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestID_Generated(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxID == "" {
		t.Fatal("expected request ID in context")
	}
	if len(ctxID) != 16 {
		t.Errorf("expected 16-character ID, got %q", ctxID)
	}
	if rec.Header().Get("X-Request-ID") != ctxID {
		t.Errorf("response header %q does not echo context ID %q", rec.Header().Get("X-Request-ID"), ctxID)
	}
}

func TestRequestID_ClientProvided(t *testing.T) {
	var ctxID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", "client-request-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if ctxID != "client-request-123" {
		t.Errorf("expected client-provided ID, got %q", ctxID)
	}
	if rec.Header().Get("X-Request-ID") != "client-request-123" {
		t.Errorf("expected client ID echoed, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestGetRequestID_Unset(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty ID for bare context, got %q", id)
	}
}

func TestGenerateRequestID_Unique(t *testing.T) {
	ids := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := generateRequestID()
		if len(id) != 16 {
			t.Fatalf("expected 16-character hex ID, got %q", id)
		}
		for _, c := range id {
			if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
				t.Fatalf("expected hex character in %q", id)
			}
		}
		ids[id] = true
	}
	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}
