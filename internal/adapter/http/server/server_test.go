package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Temutjin2k/ride-dispatch/config"
	"github.com/Temutjin2k/ride-dispatch/internal/adapter/memory"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
	"github.com/Temutjin2k/ride-dispatch/internal/domain/types"
	"github.com/Temutjin2k/ride-dispatch/internal/service/auth"
	ridecalc "github.com/Temutjin2k/ride-dispatch/internal/service/calculator"
	"github.com/Temutjin2k/ride-dispatch/internal/service/notify"
	rideservice "github.com/Temutjin2k/ride-dispatch/internal/service/ride"
	"github.com/Temutjin2k/ride-dispatch/pkg/logger"
	ws "github.com/Temutjin2k/ride-dispatch/pkg/wsHub"
	"github.com/google/uuid"
)

type testAPI struct {
	srv    *httptest.Server
	tokens *auth.TokenService
	store  *memory.Store
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	log := logger.New(io.Discard, "test", logger.LevelError)
	store := memory.New()
	hub := ws.NewConnHub(log)
	tokens := auth.NewTokenService("test-secret", time.Hour)

	svc := rideservice.New(rideservice.Deps{
		Store:     store,
		Finder:    store,
		Locations: store,
		Events:    store,
		Notifier:  notify.New(hub, log),
		Pricing:   ridecalc.New(ridecalc.DefaultTariff),
	}, rideservice.Config{}, log)

	api, err := New(config.Config{}, Deps{Rides: svc, Auth: tokens, Presence: hub}, log)
	if err != nil {
		t.Fatalf("new api: %v", err)
	}

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return &testAPI{srv: srv, tokens: tokens, store: store}
}

func (a *testAPI) token(t *testing.T, id uuid.UUID, role types.UserRole) string {
	t.Helper()
	tok, err := a.tokens.Issue(models.Identity{UserID: id, Role: role})
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.srv.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := map[string]any{}
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp.StatusCode, out
}

func rideRequest() map[string]any {
	return map[string]any{
		"origin":      map[string]any{"latitude": 43.238949, "longitude": 76.889709, "address": "Abay ave"},
		"destination": map[string]any{"latitude": 43.222015, "longitude": 76.851248, "address": "Dostyk"},
	}
}

func rideField(t *testing.T, body map[string]any, key string) any {
	t.Helper()
	ride, ok := body["ride"].(map[string]any)
	if !ok {
		t.Fatalf("response has no ride: %v", body)
	}
	return ride[key]
}

func TestRideLifecycleOverHTTP(t *testing.T) {
	api := newTestAPI(t)
	passenger, driver := uuid.New(), uuid.New()
	pTok := api.token(t, passenger, types.PassengerRole)
	dTok := api.token(t, driver, types.DriverRole)

	code, body := api.do(t, http.MethodPost, "/rides", pTok, rideRequest())
	if code != http.StatusCreated {
		t.Fatalf("create: got %d %v", code, body)
	}
	rideID := rideField(t, body, "id").(string)
	if st := rideField(t, body, "status"); st != "PENDING" {
		t.Fatalf("status = %v", st)
	}

	code, body = api.do(t, http.MethodGet, "/rides/nearby?latitude=43.239&longitude=76.89", dTok, nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("nearby: got %d %v", code, body)
	}

	code, body = api.do(t, http.MethodPost, "/rides/"+rideID+"/claim", dTok, nil)
	if code != http.StatusOK || rideField(t, body, "status") != "ACCEPTED" {
		t.Fatalf("claim: got %d %v", code, body)
	}

	other := api.token(t, uuid.New(), types.DriverRole)
	code, _ = api.do(t, http.MethodPost, "/rides/"+rideID+"/claim", other, nil)
	if code != http.StatusConflict {
		t.Fatalf("second claim: got %d, want 409", code)
	}

	for _, st := range []string{"ARRIVED", "IN_PROGRESS", "COMPLETED"} {
		code, body = api.do(t, http.MethodPost, "/rides/"+rideID+"/transition", dTok, map[string]any{"status": st})
		if code != http.StatusOK || rideField(t, body, "status") != st {
			t.Fatalf("transition %s: got %d %v", st, code, body)
		}
	}

	code, _ = api.do(t, http.MethodPost, "/rides/"+rideID+"/rating", pTok, map[string]any{"score": 5})
	if code != http.StatusOK {
		t.Fatalf("rating: got %d", code)
	}
	code, _ = api.do(t, http.MethodPost, "/rides/"+rideID+"/rating", pTok, map[string]any{"score": 4})
	if code != http.StatusConflict {
		t.Fatalf("second rating: got %d, want 409", code)
	}

	code, body = api.do(t, http.MethodGet, "/rides/active", pTok, nil)
	if code != http.StatusOK || body["ride"] != nil {
		t.Fatalf("active after completion: got %d %v", code, body)
	}
}

func TestAuthAndRoles(t *testing.T) {
	api := newTestAPI(t)
	dTok := api.token(t, uuid.New(), types.DriverRole)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/rides/active", "", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/rides/active", "garbage", http.StatusUnauthorized},
		{"driver requests ride", http.MethodPost, "/rides", dTok, http.StatusForbidden},
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body any
			if tt.method == http.MethodPost {
				body = rideRequest()
			}
			code, _ := api.do(t, tt.method, tt.path, tt.token, body)
			if code != tt.want {
				t.Errorf("got %d, want %d", code, tt.want)
			}
		})
	}
}

func TestRequestErrors(t *testing.T) {
	api := newTestAPI(t)
	passenger := uuid.New()
	pTok := api.token(t, passenger, types.PassengerRole)

	code, body := api.do(t, http.MethodPost, "/rides", pTok, map[string]any{"origin": map[string]any{"latitude": 120}})
	if code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid body: got %d %v", code, body)
	}
	fields, _ := body["error"].(map[string]any)
	if _, ok := fields["origin.latitude"]; !ok {
		t.Errorf("expected origin.latitude field error, got %v", body)
	}

	if code, _ := api.do(t, http.MethodPost, "/rides", pTok, rideRequest()); code != http.StatusCreated {
		t.Fatalf("first request: got %d", code)
	}
	if code, _ := api.do(t, http.MethodPost, "/rides", pTok, rideRequest()); code != http.StatusConflict {
		t.Fatalf("second active ride: got %d, want 409", code)
	}

	if code, _ := api.do(t, http.MethodGet, "/rides/not-a-uuid", pTok, nil); code != http.StatusBadRequest {
		t.Errorf("bad id: got %d, want 400", code)
	}
	if code, _ := api.do(t, http.MethodGet, "/rides/"+uuid.NewString(), pTok, nil); code != http.StatusNotFound {
		t.Errorf("unknown ride: got %d, want 404", code)
	}

	dTok := api.token(t, uuid.New(), types.DriverRole)
	if code, _ := api.do(t, http.MethodGet, "/rides/nearby", dTok, nil); code != http.StatusBadRequest {
		t.Errorf("nearby without location: got %d, want 400", code)
	}
}

func TestStrangerCannotReadRide(t *testing.T) {
	api := newTestAPI(t)
	pTok := api.token(t, uuid.New(), types.PassengerRole)

	_, body := api.do(t, http.MethodPost, "/rides", pTok, rideRequest())
	rideID := rideField(t, body, "id").(string)

	stranger := api.token(t, uuid.New(), types.PassengerRole)
	if code, _ := api.do(t, http.MethodGet, "/rides/"+rideID, stranger, nil); code != http.StatusForbidden {
		t.Errorf("stranger read: got %d, want 403", code)
	}
	if code, _ := api.do(t, http.MethodPost, "/rides/"+rideID+"/cancel", stranger, map[string]any{"reason": "x"}); code != http.StatusForbidden {
		t.Errorf("stranger cancel: got %d, want 403", code)
	}
}

func TestDriverLocationFeedsNearby(t *testing.T) {
	api := newTestAPI(t)
	pTok := api.token(t, uuid.New(), types.PassengerRole)
	dTok := api.token(t, uuid.New(), types.DriverRole)

	api.do(t, http.MethodPost, "/rides", pTok, rideRequest())

	code, _ := api.do(t, http.MethodPost, "/drivers/location", dTok, map[string]any{"latitude": 43.24, "longitude": 76.89})
	if code != http.StatusOK {
		t.Fatalf("location: got %d", code)
	}

	code, body := api.do(t, http.MethodGet, "/rides/nearby", dTok, nil)
	if code != http.StatusOK || body["count"].(float64) != 1 {
		t.Fatalf("nearby from last location: got %d %v", code, body)
	}
}

func TestRequestIDEchoed(t *testing.T) {
	api := newTestAPI(t)

	req, _ := http.NewRequest(http.MethodGet, api.srv.URL+"/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := api.srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("X-Request-ID = %q", got)
	}
}
