package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
)

func newTestRTDB(t *testing.T, handler http.HandlerFunc, token string) *RTDB {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	r, err := NewRTDB(config.RTDBConfig{URL: srv.URL + "/", AuthToken: token}, time.Second)
	if err != nil {
		t.Fatalf("NewRTDB() error = %v", err)
	}
	return r
}

func TestNewRTDB_InvalidURL(t *testing.T) {
	if _, err := NewRTDB(config.RTDBConfig{}, 0); err == nil {
		t.Error("NewRTDB() with empty url: expected error")
	}
	if _, err := NewRTDB(config.RTDBConfig{URL: "not a url"}, 0); err == nil {
		t.Error("NewRTDB() with malformed url: expected error")
	}
}

func TestRTDB_GetString(t *testing.T) {
	var gotPath, gotAuth string
	r := newTestRTDB(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.Path
		gotAuth = req.URL.Query().Get("auth")
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `"room42"`)
	}, "secret")

	v, err := r.GetString(context.Background(), "stations/station-a1b2/room")
	if err != nil {
		t.Fatalf("GetString() error = %v", err)
	}
	if gotPath != "/stations/station-a1b2/room.json" {
		t.Errorf("request path = %q", gotPath)
	}
	if gotAuth != "secret" {
		t.Errorf("auth param = %q, want secret", gotAuth)
	}
	if s, ok := v.AsString(); !ok || s != "room42" {
		t.Errorf("value = (%q, %v), want room42", s, ok)
	}
}

func TestRTDB_GetJSON_Null(t *testing.T) {
	r := newTestRTDB(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "null")
	}, "")

	_, err := r.GetJSON(context.Background(), "rooms/room42/tags")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON() error = %v, want ErrNotFound", err)
	}
}

func TestRTDB_GetJSON_ServerError(t *testing.T) {
	r := newTestRTDB(t, func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"Permission denied"}`, http.StatusUnauthorized)
	}, "")

	_, err := r.GetJSON(context.Background(), "rooms/room42/tags")
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("GetJSON() error = %v, want ErrRequestFailed", err)
	}
}

func TestRTDB_SetJSON(t *testing.T) {
	var gotMethod, gotPath, gotBody string
	r := newTestRTDB(t, func(w http.ResponseWriter, req *http.Request) {
		gotMethod = req.Method
		gotPath = req.URL.Path
		body, _ := io.ReadAll(req.Body)
		gotBody = string(body)
		_, _ = w.Write(body)
	}, "")

	err := r.SetJSON(context.Background(),
		"rooms/room42/tags/tag-1/stations/station-a1b2",
		map[string]int{"txPower": -12, "rssi": -67})
	if err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	if gotMethod != http.MethodPut {
		t.Errorf("method = %s, want PUT", gotMethod)
	}
	if gotPath != "/rooms/room42/tags/tag-1/stations/station-a1b2.json" {
		t.Errorf("path = %q", gotPath)
	}
	if gotBody != `{"rssi":-67,"txPower":-12}` {
		t.Errorf("body = %s", gotBody)
	}
}

func TestRTDB_SetJSON_Rejected(t *testing.T) {
	r := newTestRTDB(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}, "")

	err := r.SetJSON(context.Background(), "rooms/r/tags/t/stations/s", map[string]int{"rssi": -1})
	if !errors.Is(err, ErrRequestFailed) {
		t.Errorf("SetJSON() error = %v, want ErrRequestFailed", err)
	}
}

func TestRTDB_InvalidPath(t *testing.T) {
	called := false
	r := newTestRTDB(t, func(_ http.ResponseWriter, _ *http.Request) { called = true }, "")

	if _, err := r.GetString(context.Background(), "rooms//tags"); !errors.Is(err, ErrInvalidPath) {
		t.Errorf("GetString() error = %v, want ErrInvalidPath", err)
	}
	if called {
		t.Error("server was called for an invalid path")
	}
}

func TestRTDB_ContextCancelled(t *testing.T) {
	r := newTestRTDB(t, func(_ http.ResponseWriter, req *http.Request) {
		<-req.Context().Done()
	}, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.GetString(ctx, "stations/s/room"); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("GetString() error = %v, want ErrRequestFailed", err)
	}
}
