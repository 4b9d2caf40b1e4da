package http_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geo-drilldown/internal/config"
	delivery "github.com/geo-drilldown/internal/delivery/http"
	"github.com/geo-drilldown/internal/delivery/http/handler"
	"github.com/geo-drilldown/internal/repository/static"
	"github.com/geo-drilldown/internal/synthetic"
	"github.com/geo-drilldown/internal/usecase"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Meta  map[string]any  `json:"meta"`
	Error *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

type frameBody struct {
	SessionID string `json:"session_id"`
	Level     string `json:"level"`
	Metric    string `json:"metric"`
	Loading   bool   `json:"loading"`
	Features  []struct {
		Code    string `json:"code"`
		Color   string `json:"color"`
		Hovered bool   `json:"hovered"`
	} `json:"features"`
	Breadcrumbs []struct {
		Label  string `json:"label"`
		Target string `json:"target"`
		Active bool   `json:"active"`
	} `json:"breadcrumbs"`
	Legend []struct {
		Label string `json:"label"`
		Color string `json:"color"`
	} `json:"legend"`
}

func newTestServer(t *testing.T) *delivery.Server {
	t.Helper()
	logger := zap.NewNop()

	ds, err := static.LoadDataset()
	require.NoError(t, err)

	uc := usecase.NewDrillDownUseCase(
		static.NewSource(ds, logger),
		synthetic.New(synthetic.DefaultNameTables(), synthetic.Config{}, logger),
		nil,
		usecase.Config{FetchTimeout: time.Second, LegendSteps: 5, RootLabel: "Philippines"},
		logger,
	)
	cfg := &config.Config{Server: config.ServerConfig{Host: "127.0.0.1", Port: 0}}
	return delivery.NewServer(cfg, logger,
		handler.NewSessionHandler(uc, logger),
		handler.NewGeoDataHandler(uc, logger),
	)
}

func do(t *testing.T, s *delivery.Server, method, target, body string) (int, envelope) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decodeFrame(t *testing.T, env envelope) frameBody {
	t.Helper()
	var f frameBody
	require.NoError(t, json.Unmarshal(env.Data, &f))
	return f
}

func createSession(t *testing.T, s *delivery.Server) string {
	t.Helper()
	status, env := do(t, s, http.MethodPost, "/api/v1/sessions", `{"metric":"sales"}`)
	require.Equal(t, http.StatusCreated, status)

	var created struct {
		SessionID string    `json:"session_id"`
		Frame     frameBody `json:"frame"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.SessionID)
	assert.Equal(t, created.SessionID, env.Meta["session_id"])
	assert.Equal(t, "region", created.Frame.Level)
	return created.SessionID
}

func TestServer_Health(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestServer_SessionFlow(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id

	status, env := do(t, s, http.MethodGet, base, "")
	require.Equal(t, http.StatusOK, status)
	frame := decodeFrame(t, env)
	assert.Equal(t, "region", frame.Level)
	assert.Len(t, frame.Features, 17)
	assert.Len(t, frame.Legend, 5)
	assert.Equal(t, float64(17), env.Meta["total"])

	status, env = do(t, s, http.MethodPost, base+"/select", `{"code":"NCR","wait":true}`)
	require.Equal(t, http.StatusOK, status)
	frame = decodeFrame(t, env)
	assert.Equal(t, "province", frame.Level)
	assert.Len(t, frame.Features, 5)
	require.Len(t, frame.Breadcrumbs, 2)
	assert.Equal(t, "National Capital Region", frame.Breadcrumbs[1].Label)
	assert.True(t, frame.Breadcrumbs[1].Active)

	status, env = do(t, s, http.MethodPut, base+"/metric", `{"metric":"transactions"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "transactions", decodeFrame(t, env).Metric)

	status, env = do(t, s, http.MethodPut, base+"/hover", `{"code":"NCR-MNL"}`)
	require.Equal(t, http.StatusOK, status)
	assert.True(t, decodeFrame(t, env).Features[0].Hovered)

	status, env = do(t, s, http.MethodGet, base+"/search?q=manila", "")
	require.Equal(t, http.StatusOK, status)
	var found struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &found))
	assert.Equal(t, 1, found.Total)

	status, env = do(t, s, http.MethodPost, base+"/navigate", `{"level":"region","wait":true}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "region", decodeFrame(t, env).Level)

	status, env = do(t, s, http.MethodPost, base+"/jump?wait=true", `{"level":"province","code":"NCR-MNL"}`)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "municipality", decodeFrame(t, env).Level)

	status, env = do(t, s, http.MethodPost, base+"/reset?wait=true", "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "region", decodeFrame(t, env).Level)

	status, _ = do(t, s, http.MethodPost, base+"/retry", "")
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, s, http.MethodGet, base+"/legend?steps=3", "")
	require.Equal(t, http.StatusOK, status)
	var legend struct {
		Steps []map[string]any `json:"steps"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &legend))
	assert.Len(t, legend.Steps, 3)

	status, _ = do(t, s, http.MethodDelete, base, "")
	assert.Equal(t, http.StatusNoContent, status)

	status, env = do(t, s, http.MethodGet, base, "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}

func TestServer_Errors(t *testing.T) {
	s := newTestServer(t)
	id := createSession(t, s)
	base := "/api/v1/sessions/" + id

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantCode   string
	}{
		{"unknown feature", http.MethodPost, base + "/select", `{"code":"ZZ"}`, http.StatusNotFound, "NOT_FOUND"},
		{"missing code", http.MethodPost, base + "/select", `{}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"malformed body", http.MethodPost, base + "/select", `{`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad level", http.MethodPost, base + "/navigate", `{"level":"barangay"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad metric", http.MethodPut, base + "/metric", `{"metric":"margin"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"bad metric on create", http.MethodPost, "/api/v1/sessions", `{"metric":"margin"}`, http.StatusBadRequest, "INVALID_REQUEST"},
		{"legend steps out of range", http.MethodGet, base + "/legend?steps=50", "", http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown session", http.MethodPost, "/api/v1/sessions/nope/reset", "", http.StatusNotFound, "SESSION_NOT_FOUND"},
		{"geodata not bundled", http.MethodGet, "/api/v1/geodata/provinces?parent=XI", "", http.StatusNotFound, "NOT_LOADED"},
		{"geodata without parent", http.MethodGet, "/api/v1/geodata/provinces", "", http.StatusBadRequest, "INVALID_REQUEST"},
		{"unknown route", http.MethodGet, "/api/v1/nothing", "", http.StatusNotFound, "HTTP_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, env := do(t, s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, status)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.wantCode, env.Error.Code)
		})
	}
}

func TestServer_GeoData(t *testing.T) {
	s := newTestServer(t)

	status, env := do(t, s, http.MethodGet, "/api/v1/geodata/regions", "")
	require.Equal(t, http.StatusOK, status)

	var features []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &features))
	assert.Len(t, features, 17)
	assert.Equal(t, "NCR", features[0]["code"])

	status, env = do(t, s, http.MethodGet, "/api/v1/geodata/municipalities?parent=IVA-CAV", "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(env.Data, &features))
	assert.Len(t, features, 6)
}

func TestServer_Metrics(t *testing.T) {
	s := newTestServer(t)
	createSession(t, s)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "drilldown_sessions_active")
	assert.Contains(t, string(body), "drilldown_http_request_duration_ms")
}
