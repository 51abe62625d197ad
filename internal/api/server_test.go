package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/nerrad567/beacon-station/internal/infrastructure/config"
	"github.com/nerrad567/beacon-station/internal/infrastructure/logging"
	"github.com/nerrad567/beacon-station/internal/station"
)

type fakeComponent struct {
	err error
}

func (f fakeComponent) HealthCheck(_ context.Context) error { return f.err }

func testLogger() *logging.Logger {
	return logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test")
}

const testSecret = "0123456789abcdef0123456789abcdef"

func testWSConfig() config.WebSocketConfig {
	return config.WebSocketConfig{MaxMessageSize: 8192, PingInterval: 30, PongTimeout: 10}
}

// testServer creates a Server backed by a real status board and trigger.
func testServer(t *testing.T) (*Server, *station.StatusBoard, *station.Trigger) {
	t.Helper()

	board := station.NewStatusBoard()
	trigger := &station.Trigger{}

	srv, err := New(Deps{
		Config: config.APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
			Auth: config.APIAuthConfig{Secret: testSecret},
		},
		WS:        testWSConfig(),
		Logger:    testLogger(),
		StationID: "station-a1b2",
		Version:   "test",
		Board:     board,
		Trigger:   trigger,
		Components: map[string]HealthChecker{
			"mqtt":     fakeComponent{},
			"influxdb": fakeComponent{err: errors.New("connection refused")},
		},
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	return srv, board, trigger
}

func doRequest(t *testing.T, srv *Server, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	return doAuthRequest(t, srv, method, path, "")
}

// doAuthRequest sends the request with token as a bearer credential, if set.
func doAuthRequest(t *testing.T, srv *Server, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)
	return w
}

// signToken returns an HS256 token for the installer expiring after ttl.
func signToken(t *testing.T, method jwt.SigningMethod, secret string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "installer",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}
	return signed
}

func validToken(t *testing.T) string {
	t.Helper()
	return signToken(t, jwt.SigningMethodHS256, testSecret, time.Hour)
}

func sampleReport() station.CycleReport {
	return station.CycleReport{
		Cycle:         3,
		StartedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		DurationMS:    5012,
		RoomID:        "room42",
		DirectorySize: 4,
		DevicesSeen:   7,
		Matched:       2,
		Published:     2,
	}
}

// ─── Construction ──────────────────────────────────────────────────

func TestNew_MissingDependencies(t *testing.T) {
	tests := []struct {
		name string
		deps Deps
	}{
		{"no logger", Deps{Board: station.NewStatusBoard(), Trigger: &station.Trigger{}}},
		{"no board", Deps{Logger: testLogger(), Trigger: &station.Trigger{}}},
		{"no trigger", Deps{Logger: testLogger(), Board: station.NewStatusBoard()}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.deps); err == nil {
				t.Error("New() error = nil, want error")
			}
		})
	}
}

func TestNew_SharedHub(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	srv, err := New(Deps{
		Logger:  testLogger(),
		Board:   station.NewStatusBoard(),
		Trigger: &station.Trigger{},
		Hub:     hub,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if srv.Hub() != hub {
		t.Error("Hub() did not return the shared hub")
	}
}

// ─── Health & Status ───────────────────────────────────────────────

func TestHealth(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %v, want ok", resp["status"])
	}
	if resp["version"] != "test" {
		t.Errorf("version = %v, want test", resp["version"])
	}
}

func TestStatus_BeforeFirstCycle(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status code = %d, want 200", w.Code)
	}

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.StationID != "station-a1b2" {
		t.Errorf("station_id = %q, want station-a1b2", resp.StationID)
	}
	if resp.LastCycle != nil {
		t.Errorf("last_cycle = %+v, want nil", resp.LastCycle)
	}
	if resp.Cycles != 0 || resp.RoomID != "" || resp.ProvisioningPending {
		t.Errorf("unexpected status before first cycle: %+v", resp)
	}
}

func TestStatus_AfterCycle(t *testing.T) {
	srv, board, trigger := testServer(t)
	board.Publish(sampleReport())
	trigger.Raise()

	w := doRequest(t, srv, http.MethodGet, "/api/v1/status")

	var resp StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Cycles != 1 {
		t.Errorf("cycles = %d, want 1", resp.Cycles)
	}
	if resp.RoomID != "room42" {
		t.Errorf("room_id = %q, want room42", resp.RoomID)
	}
	if resp.DirectorySize != 4 {
		t.Errorf("directory_size = %d, want 4", resp.DirectorySize)
	}
	if !resp.ProvisioningPending {
		t.Error("provisioning_pending = false, want true")
	}
	if resp.LastCycle == nil || resp.LastCycle.Published != 2 {
		t.Errorf("last_cycle = %+v, want published=2", resp.LastCycle)
	}
}

// ─── Provisioning ──────────────────────────────────────────────────

func TestProvisioningReset(t *testing.T) {
	srv, _, trigger := testServer(t)
	token := validToken(t)

	w := doAuthRequest(t, srv, http.MethodPost, "/api/v1/provisioning/reset", token)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if !trigger.Pending() {
		t.Error("trigger not raised")
	}

	var resp map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["already_pending"] != false {
		t.Errorf("already_pending = %v, want false", resp["already_pending"])
	}

	// Repeated requests are accepted and reported as already pending.
	w = doAuthRequest(t, srv, http.MethodPost, "/api/v1/provisioning/reset", token)
	if w.Code != http.StatusAccepted {
		t.Fatalf("second status = %d, want %d", w.Code, http.StatusAccepted)
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp["already_pending"] != true {
		t.Errorf("already_pending = %v, want true", resp["already_pending"])
	}
}

func TestProvisioningReset_RejectsBadTokens(t *testing.T) {
	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"no token", func(*testing.T) string { return "" }},
		{"garbage", func(*testing.T) string { return "not.a.jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return signToken(t, jwt.SigningMethodHS256, "another-secret-another-secret-xx", time.Hour)
		}},
		{"expired", func(t *testing.T) string {
			return signToken(t, jwt.SigningMethodHS256, testSecret, -time.Minute)
		}},
		{"other algorithm", func(t *testing.T) string {
			return signToken(t, jwt.SigningMethodHS512, testSecret, time.Hour)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _, trigger := testServer(t)

			w := doAuthRequest(t, srv, http.MethodPost, "/api/v1/provisioning/reset", tt.token(t))
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
			}
			if trigger.Pending() {
				t.Error("rejected request raised the trigger")
			}
			if w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header")
			}

			var body ErrorBody
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body.Code != CodeUnauthorized {
				t.Errorf("code = %q, want %q", body.Code, CodeUnauthorized)
			}
		})
	}
}

func TestProvisioningReset_NoSecretConfigured(t *testing.T) {
	trigger := &station.Trigger{}
	srv, err := New(Deps{
		Logger:  testLogger(),
		Board:   station.NewStatusBoard(),
		Trigger: trigger,
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	w := doAuthRequest(t, srv, http.MethodPost, "/api/v1/provisioning/reset", validToken(t))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if trigger.Pending() {
		t.Error("trigger raised without a configured secret")
	}
}

func TestProvisioningReset_WrongMethod(t *testing.T) {
	srv, _, trigger := testServer(t)

	w := doAuthRequest(t, srv, http.MethodGet, "/api/v1/provisioning/reset", validToken(t))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
	if trigger.Pending() {
		t.Error("GET must not raise the trigger")
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		query  string
		want   string
	}{
		{name: "bearer header", header: "Bearer abc", want: "abc"},
		{name: "lower-case scheme", header: "bearer abc", want: "abc"},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", want: ""},
		{name: "query parameter", query: "?access_token=abc", want: "abc"},
		{name: "header wins", header: "Bearer abc", query: "?access_token=xyz", want: "abc"},
		{name: "none", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/ws"+tt.query, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if got := bearerToken(req); got != tt.want {
				t.Errorf("bearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ─── Metrics ───────────────────────────────────────────────────────

func TestMetrics(t *testing.T) {
	srv, board, _ := testServer(t)
	report := sampleReport()
	report.Failed = 1
	report.Error = "scan failed"
	board.Publish(report)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var m SystemMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Loop.Cycles != 1 || m.Loop.LastFailed != 1 || m.Loop.LastError != "scan failed" {
		t.Errorf("loop metrics = %+v", m.Loop)
	}
	if m.Loop.LastCompletedAt != "2026-03-01T12:00:05Z" {
		t.Errorf("last_completed_at = %q, want 2026-03-01T12:00:05Z", m.Loop.LastCompletedAt)
	}
	if m.Runtime.Goroutines == 0 {
		t.Error("runtime goroutines = 0")
	}

	if len(m.Components) != 2 {
		t.Fatalf("components = %d, want 2", len(m.Components))
	}
	// Sorted by name
	if m.Components[0].Name != "influxdb" || m.Components[0].Healthy {
		t.Errorf("components[0] = %+v, want unhealthy influxdb", m.Components[0])
	}
	if m.Components[0].Error != "connection refused" {
		t.Errorf("components[0].error = %q", m.Components[0].Error)
	}
	if m.Components[1].Name != "mqtt" || !m.Components[1].Healthy {
		t.Errorf("components[1] = %+v, want healthy mqtt", m.Components[1])
	}
}

// ─── Middleware ────────────────────────────────────────────────────

func TestRequestID_Generated(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/health")
	if id := w.Header().Get("X-Request-ID"); len(id) != 36 {
		t.Errorf("X-Request-ID = %q, want a UUID", id)
	}
}

func TestRequestID_PreservesClient(t *testing.T) {
	srv, _, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "client-123")
	w := httptest.NewRecorder()
	srv.buildRouter().ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "client-123" {
		t.Errorf("X-Request-ID = %q, want %q", got, "client-123")
	}
}

func TestRecovery(t *testing.T) {
	srv, _, _ := testServer(t)
	handler := srv.recoverPanics(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestNotFound(t *testing.T) {
	srv, _, _ := testServer(t)

	w := doRequest(t, srv, http.MethodGet, "/api/v1/nonexistent")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}

	var body ErrorBody
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Code != CodeNotFound {
		t.Errorf("code = %q, want %q", body.Code, CodeNotFound)
	}
	if body.RequestID == "" || body.RequestID != w.Header().Get("X-Request-ID") {
		t.Errorf("request_id = %q, want the X-Request-ID header", body.RequestID)
	}
}

// ─── Cycle stream hub ──────────────────────────────────────────────

func readFrame(t *testing.T, data []byte) Frame {
	t.Helper()
	var f Frame
	if err := json.Unmarshal(data, &f); err != nil {
		t.Fatalf("unmarshal frame: %v", err)
	}
	return f
}

func TestHub_PublishCycle(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := &streamClient{out: make(chan []byte, streamBuffer)}
	hub.add(c)

	hub.PublishCycle(sampleReport())

	select {
	case data := <-c.out:
		f := readFrame(t, data)
		if f.Type != FrameCycle {
			t.Errorf("type = %q, want %q", f.Type, FrameCycle)
		}
		if f.Report == nil || f.Report.Cycle != 3 {
			t.Errorf("report = %+v, want cycle 3", f.Report)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for cycle frame")
	}
}

func TestHub_LaggingClientDoesNotBlock(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := &streamClient{out: make(chan []byte, 1)}
	hub.add(c)

	done := make(chan struct{})
	go func() {
		for range 3 {
			hub.PublishCycle(sampleReport())
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("PublishCycle blocked on a full client")
	}
	if len(c.out) != 1 {
		t.Errorf("buffered frames = %d, want 1", len(c.out))
	}
}

func TestHub_AddRemove(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	if hub.ClientCount() != 0 {
		t.Errorf("initial client count = %d, want 0", hub.ClientCount())
	}

	c := &streamClient{out: make(chan []byte, streamBuffer)}
	hub.add(c)
	if hub.ClientCount() != 1 {
		t.Errorf("after add count = %d, want 1", hub.ClientCount())
	}

	hub.remove(c)
	hub.remove(c) // second call must not double-close
	if hub.ClientCount() != 0 {
		t.Errorf("after remove count = %d, want 0", hub.ClientCount())
	}
	if _, open := <-c.out; open {
		t.Error("out still open after remove")
	}

	// Publishing after removal must not panic on the closed channel.
	hub.PublishCycle(sampleReport())
}

func TestHub_RunClosesClients(t *testing.T) {
	hub := NewHub(testWSConfig(), testLogger())
	c := &streamClient{out: make(chan []byte, streamBuffer)}
	hub.add(c)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if hub.ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", hub.ClientCount())
	}
}

func TestCheckOrigin(t *testing.T) {
	srv, _, _ := testServer(t)
	srv.wsCfg.AllowedOrigins = []string{"http://installer.local"}

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "http://station.local:8080", want: true},
		{origin: "http://installer.local", want: true},
		{origin: "http://evil.example", want: false},
		{origin: "http://station.local:9999", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "http://station.local:8080/api/v1/ws", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if got := srv.checkOrigin(req); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

// ─── Live server ───────────────────────────────────────────────────

// startServer binds a real listener on an ephemeral port.
func startServer(t *testing.T) (*Server, *station.StatusBoard) {
	t.Helper()
	srv, board, _ := testServer(t)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	t.Cleanup(func() { srv.Close() }) //nolint:errcheck // test cleanup
	return srv, board
}

// dialStream opens the cycle stream with token as a bearer credential.
func dialStream(t *testing.T, srv *Server, token string) *websocket.Conn {
	t.Helper()
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	ws, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/api/v1/ws", header)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	t.Cleanup(func() { ws.Close() }) //nolint:errcheck // test cleanup
	return ws
}

func readWS(t *testing.T, ws *websocket.Conn) Frame {
	t.Helper()
	//nolint:errcheck // test deadline
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var f Frame
	if err := ws.ReadJSON(&f); err != nil {
		t.Fatalf("read stream frame: %v", err)
	}
	return f
}

func TestServer_StartAndHealthCheck(t *testing.T) {
	srv, _ := startServer(t)

	if err := srv.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}

	resp, err := http.Get("http://" + srv.Addr() + "/api/v1/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestServer_HealthCheckBeforeStart(t *testing.T) {
	srv, _, _ := testServer(t)
	if err := srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start = nil, want error")
	}
	if srv.Addr() != "" {
		t.Errorf("Addr() before Start = %q, want empty", srv.Addr())
	}
}

func TestStream_SnapshotAndCycles(t *testing.T) {
	srv, board := startServer(t)
	board.Publish(sampleReport())

	ws := dialStream(t, srv, validToken(t))

	snapshot := readWS(t, ws)
	if snapshot.Type != FrameSnapshot || snapshot.Report == nil || snapshot.Report.Cycle != 3 {
		t.Fatalf("first frame = %+v, want snapshot of cycle 3", snapshot)
	}

	// Wait for registration to be visible before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for srv.Hub().ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	next := sampleReport()
	next.Cycle = 4
	srv.Hub().PublishCycle(next)

	frame := readWS(t, ws)
	if frame.Type != FrameCycle || frame.Report == nil || frame.Report.Cycle != 4 {
		t.Fatalf("frame = %+v, want cycle 4", frame)
	}
}

func TestStream_PingAndIgnoredFrames(t *testing.T) {
	srv, _ := startServer(t)
	ws := dialStream(t, srv, validToken(t))

	if err := ws.WriteMessage(websocket.TextMessage, []byte(`{"type":"subscribe"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := ws.WriteJSON(Frame{Type: FramePing}); err != nil {
		t.Fatalf("write ping: %v", err)
	}
	if pong := readWS(t, ws); pong.Type != FramePong {
		t.Errorf("frame = %+v, want pong", pong)
	}
}

func TestStream_RequiresToken(t *testing.T) {
	srv, _ := startServer(t)

	_, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/api/v1/ws", nil)
	if err == nil {
		t.Fatal("dial without token succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("response = %v, want 401", resp)
	}
	if srv.Hub().ClientCount() != 0 {
		t.Errorf("client count = %d, want 0", srv.Hub().ClientCount())
	}
}

func TestStream_TokenInQuery(t *testing.T) {
	srv, _ := startServer(t)

	url := "ws://" + srv.Addr() + "/api/v1/ws?access_token=" + validToken(t)
	ws, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("websocket dial failed: %v (resp: %v)", err, resp)
	}
	ws.Close() //nolint:errcheck // test cleanup
}

func TestStream_RejectsForeignOrigin(t *testing.T) {
	srv, _ := startServer(t)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+validToken(t))
	header.Set("Origin", "http://evil.example")
	_, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr()+"/api/v1/ws", header)
	if err == nil {
		t.Fatal("dial from a foreign origin succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %v, want 403", resp)
	}
}
