package admin

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gocacheproxy/proxy/internal/cache"
)

func TestHealthzUnreadyUntilSetReady(t *testing.T) {
	s := New(cache.New())

	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 before ready, got %d", rr.Code)
	}

	s.SetReady()

	rr = httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 after ready, got %d", rr.Code)
	}
}

func TestStatsReflectsCacheState(t *testing.T) {
	store := cache.New()
	store.Admit([]byte("/a"), []byte("hello"))

	s := New(store)
	rr := httptest.NewRecorder()
	s.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/stats", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	var got statsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ResidentObjects != 1 {
		t.Fatalf("expected 1 resident object, got %d", got.ResidentObjects)
	}
	if got.TotalSize != 5 {
		t.Fatalf("expected total size 5, got %d", got.TotalSize)
	}
	if got.MaxCacheSize != cache.MaxCacheSize {
		t.Fatalf("expected MaxCacheSize %d, got %d", cache.MaxCacheSize, got.MaxCacheSize)
	}
}
