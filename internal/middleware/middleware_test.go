package middleware

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func TestTokenBucketRefillsEachSecond(t *testing.T) {
	now := time.Unix(1000, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	h := Limit(tb, ok)
	codes := func() (out []int) {
		for i := 0; i < 3; i++ {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/radius", nil))
			out = append(out, rec.Code)
		}
		return out
	}
	if got := codes(); got[0] != 204 || got[1] != 204 || got[2] != http.StatusTooManyRequests {
		t.Fatalf("first second = %v", got)
	}
	now = now.Add(time.Second)
	if got := codes(); got[0] != 204 {
		t.Fatalf("bucket not refilled: %v", got)
	}
}

func TestWrapDisabledByDefault(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "")
	rec := httptest.NewRecorder()
	Wrap(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != 204 {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestAllowList(t *testing.T) {
	a := ParseAllowList("192.168.0.0/16, 10.0.0.7, ::1, junk", "X-Forwarded-For")
	tests := []struct {
		ip   string
		want bool
	}{
		{"192.168.4.20", true},
		{"10.0.0.7", true},
		{"10.0.0.8", false},
		{"::1", true},
		{"8.8.8.8", false},
	}
	for _, tc := range tests {
		if got := a.Allowed(net.ParseIP(tc.ip)); got != tc.want {
			t.Errorf("Allowed(%s) = %v, want %v", tc.ip, got, tc.want)
		}
	}

	h := a.Handler(ok)
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider code = %d", rec.Code)
	}
	req.Header.Set("X-Forwarded-For", "192.168.1.1, 203.0.113.5")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != 204 {
		t.Fatalf("forwarded lan client code = %d", rec.Code)
	}
}

func TestGuardDisabledWithoutList(t *testing.T) {
	t.Setenv("EDITOR_ALLOW", "")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	rec := httptest.NewRecorder()
	Guard(ok).ServeHTTP(rec, req)
	if rec.Code != 204 {
		t.Fatalf("code = %d", rec.Code)
	}
}
