package locationIQ

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestGetAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if r.URL.Path != "/v1/reverse" || q.Get("lat") != "43.238949" || q.Get("lon") != "76.889709" || q.Get("key") != "secret" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"display_name":"Abay Avenue, Almaty"}`))
	}))
	defer srv.Close()

	c := New("secret", time.Second)
	c.domain = srv.URL

	got, err := c.GetAddress(context.Background(), 43.238949, 76.889709)
	if err != nil {
		t.Fatalf("get address: %v", err)
	}
	if got != "Abay Avenue, Almaty" {
		t.Fatalf("address = %q", got)
	}
}

func TestGetAddressHidesKey(t *testing.T) {
	c := New("secret", 50*time.Millisecond)
	c.domain = "http://127.0.0.1:1"

	_, err := c.GetAddress(context.Background(), 1, 2)
	if err == nil {
		t.Fatal("expected error")
	}
	if strings.Contains(err.Error(), "secret") {
		t.Fatalf("api key leaked into error: %v", err)
	}
}

func TestGetAddressBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New("k", time.Second)
	c.domain = srv.URL
	if _, err := c.GetAddress(context.Background(), 1, 2); err == nil {
		t.Fatal("expected error on 429")
	}
}
