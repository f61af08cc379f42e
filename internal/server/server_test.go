package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"mistletoe/internal/config"
	"mistletoe/internal/db"
	"mistletoe/internal/engine"
	"mistletoe/internal/migrate"
)

const (
	testSecret   = "test-secret"
	testPassword = "hohoho"
)

type testServer struct {
	URL    string
	Engine engine.Engine
	client *http.Client
	close  func()
}

func (s *testServer) Client() *http.Client { return s.client }
func (s *testServer) Close()               { s.close() }

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	workspace := t.TempDir()
	if _, err := db.EnsureWorkspace(workspace); err != nil {
		t.Fatalf("ensure workspace: %v", err)
	}
	cfg := config.Default()
	hash, err := engine.HashAdminPassword(testPassword, 4)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	cfg.Admin.PasswordHash = hash
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	e := engine.New(conn, cfg)
	e.Logger = zaptest.NewLogger(t)
	handler, err := New(Config{Engine: e, BasePath: "/v0", Auth: AuthConfig{JWTSecret: testSecret, Logger: e.Logger}})
	if err != nil {
		t.Fatalf("build handler: %v", err)
	}
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srv := &http.Server{Handler: handler}
	go srv.Serve(ln)
	testSrv := &testServer{
		URL:    "http://" + ln.Addr().String(),
		Engine: e,
		client: &http.Client{},
		close: func() {
			srv.Shutdown(context.Background())
			ln.Close()
			conn.Close()
		},
	}
	return testSrv, func() { testSrv.Close() }
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res, err := client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return res, data
}

func login(t *testing.T, srv *testServer) map[string]string {
	t.Helper()
	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{"password": testPassword}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("login status %d: %s", res.StatusCode, string(data))
	}
	var out LoginResponse
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal login: %v", err)
	}
	if out.Token == "" {
		t.Fatalf("empty token")
	}
	return map[string]string{"Authorization": "Bearer " + out.Token}
}

func errorCode(t *testing.T, data []byte) string {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("unmarshal error envelope: %v (%s)", err, string(data))
	}
	return env.Error.Code
}

func TestHealthIsPublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/health", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("health status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/exchanges", nil, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "unauthorized" {
		t.Fatalf("expected unauthorized code, got %s", code)
	}
	res, data = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/exchanges", nil, map[string]string{"Authorization": "Bearer nope"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for bad token, got %d: %s", res.StatusCode, string(data))
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodPost, srv.URL+"/v0/auth/login", map[string]any{"password": "nope"}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", res.StatusCode, string(data))
	}
	if code := errorCode(t, data); code != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %s", code)
	}
}

func TestDrawAndRevealFlow(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := login(t, srv)
	base := srv.URL + "/v0/exchanges"

	res, data := doJSON(t, client, http.MethodPost, base, map[string]any{"id": "family"}, auth)
	if res.StatusCode != http.StatusCreated {
		t.Fatalf("create exchange status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base, map[string]any{"id": "family"}, auth)
	if res.StatusCode != http.StatusConflict {
		t.Fatalf("expected conflict, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/family/draw", map[string]any{}, auth)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "not_ready" {
		t.Fatalf("expected not_ready, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPut, base+"/family/names", map[string]any{"raw": "Ana, Ben\nCleo\nAna"}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set names status %d: %s", res.StatusCode, string(data))
	}
	var names NamesResponse
	_ = json.Unmarshal(data, &names)
	if strings.Join(names.Names, ",") != "Ana,Ben,Cleo" {
		t.Fatalf("unexpected names %v", names.Names)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/family/roster", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("public roster status %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPut, base+"/family/matrix", map[string]any{
		"matrix": [][]bool{{false, false, false}, {true, false, true}, {true, true, false}},
	}, auth)
	if res.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", res.StatusCode, string(data))
	}
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	_ = json.Unmarshal(data, &env)
	if env.Error.Code != "infeasible_row" || env.Error.Details["participant"] != "Ana" {
		t.Fatalf("unexpected error body %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodPut, base+"/family/matrix", map[string]any{
		"matrix": [][]bool{{false, true}, {true, false}},
	}, auth)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for wrong shape, got %d: %s", res.StatusCode, string(data))
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/family/draw", map[string]any{"max_tries": 500}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("draw status %d: %s", res.StatusCode, string(data))
	}
	var drawn DrawResponse
	if err := json.Unmarshal(data, &drawn); err != nil {
		t.Fatalf("unmarshal draw: %v", err)
	}
	if len(drawn.Participants) != 3 {
		t.Fatalf("expected 3 participants, got %d", len(drawn.Participants))
	}
	ana := drawn.Participants[0]
	if ana.Name != "Ana" || ana.Target == "Ana" || ana.Target == "" {
		t.Fatalf("unexpected record %+v", ana)
	}

	res, data = doJSON(t, client, http.MethodPost, base+"/family/reveal", map[string]any{"name": "Ana", "password": "wrong"}, nil)
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 reveal, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/family/reveal", map[string]any{"name": "Ana", "password": " " + ana.Password + " "}, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("reveal status %d: %s", res.StatusCode, string(data))
	}
	var revealed RevealResponse
	_ = json.Unmarshal(data, &revealed)
	if revealed.Target != ana.Target {
		t.Fatalf("expected target %s, got %s", ana.Target, revealed.Target)
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/family/export", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("export status %d: %s", res.StatusCode, string(data))
	}
	if !strings.Contains(res.Header.Get("Content-Disposition"), "family-secret-santa.json") {
		t.Fatalf("missing attachment header: %q", res.Header.Get("Content-Disposition"))
	}
	var doc map[string]engine.ExportEntry
	_ = json.Unmarshal(data, &doc)
	if doc["Ana"].Password != ana.Password {
		t.Fatalf("export mismatch: %s", string(data))
	}

	res, data = doJSON(t, client, http.MethodGet, base+"/family/events?type=draw.completed", nil, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("events status %d: %s", res.StatusCode, string(data))
	}
	var page paginatedEvents
	_ = json.Unmarshal(data, &page)
	if len(page.Items) != 1 || page.Items[0].EntityID != drawn.ID {
		t.Fatalf("unexpected events %s", string(data))
	}
	if strings.Contains(string(data), ana.Password) {
		t.Fatalf("event log leaked a password")
	}
}

func TestDrawExhaustsBudget(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()
	client := srv.Client()
	auth := login(t, srv)
	base := srv.URL + "/v0/exchanges"

	doJSON(t, client, http.MethodPost, base, map[string]any{"id": "office"}, auth)
	doJSON(t, client, http.MethodPut, base+"/office/names", map[string]any{"names": []string{"Ana", "Ben", "Cleo"}}, auth)
	res, data := doJSON(t, client, http.MethodPut, base+"/office/matrix", map[string]any{
		"matrix": [][]bool{{false, false, true}, {false, false, true}, {true, true, false}},
	}, auth)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("set matrix status %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodPost, base+"/office/draw", map[string]any{"max_tries": 30}, auth)
	if res.StatusCode != http.StatusUnprocessableEntity || errorCode(t, data) != "assignment_not_found" {
		t.Fatalf("expected assignment_not_found, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/office/participants", nil, auth)
	if res.StatusCode != http.StatusConflict || errorCode(t, data) != "not_drawn" {
		t.Fatalf("expected not_drawn, got %d: %s", res.StatusCode, string(data))
	}
	res, data = doJSON(t, client, http.MethodGet, base+"/missing", nil, auth)
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", res.StatusCode, string(data))
	}
}

func TestAPIKeyAuth(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	raw, _, err := srv.Engine.Repo.CreateAPIKey(context.Background(), "robot", "ci")
	if err != nil {
		t.Fatalf("create api key: %v", err)
	}
	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": raw})
	if res.StatusCode != http.StatusOK {
		t.Fatalf("me status %d: %s", res.StatusCode, string(data))
	}
	var who WhoAmIResponse
	_ = json.Unmarshal(data, &who)
	if who.ActorID != "robot" || who.Source != "api_key" {
		t.Fatalf("unexpected principal %+v", who)
	}
	res, _ = doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/me", nil, map[string]string{"X-Api-Key": "mtk_bogus"})
	if res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", res.StatusCode)
	}
}

func TestOpenAPIDocumentIsPublic(t *testing.T) {
	srv, cleanup := newTestServer(t)
	defer cleanup()

	res, data := doJSON(t, srv.Client(), http.MethodGet, srv.URL+"/v0/openapi.json", nil, nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("openapi status %d: %s", res.StatusCode, string(data))
	}
	if !strings.Contains(string(data), "/v0/exchanges/{exchange_id}/reveal") {
		t.Fatalf("openapi missing reveal route")
	}
}
