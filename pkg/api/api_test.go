package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenoncommunity/xenon/pkg/config"
	"github.com/xenoncommunity/xenon/pkg/proxy"
)

func init() { gin.SetMode(gin.TestMode) }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.DefaultConfig
	cfg.Servers = map[string]string{"lobby": "localhost:25565", "games": "localhost:25566"}
	cfg.Try = []string{"lobby"}
	p, err := proxy.New(proxy.Options{Config: &cfg})
	require.NoError(t, err)
	for name, addr := range cfg.Servers {
		p.Register(name, addr)
	}
	s := New(p, cfg.API)
	s.stats = func(context.Context) (*HostStats, error) {
		return &HostStats{CPUCores: 4, MemPercent: 12.5}, nil
	}
	return s
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var st Status
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &st))
	assert.Equal(t, 2, st.Servers)
	assert.Zero(t, st.Players)
	require.NotNil(t, st.Host)
	assert.Equal(t, 4, st.Host.CPUCores)
}

func TestStatus_WithoutHostStats(t *testing.T) {
	s := newTestServer(t)
	s.stats = func(context.Context) (*HostStats, error) { return nil, errors.New("unsupported") }
	rec := do(t, s, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), `"host"`)
}

func TestServers(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/servers", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var res struct {
		Servers []ServerInfo `json:"servers"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	require.Len(t, res.Servers, 2)
	assert.Equal(t, "games", res.Servers[0].Name)
	assert.Equal(t, "lobby", res.Servers[1].Name)
}

func TestPlayers_Empty(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodGet, "/players", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"players":[],"total":0}`, rec.Body.String())
}

func TestSend(t *testing.T) {
	s := newTestServer(t)

	rec := do(t, s, http.MethodPost, "/players/Alice/send", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, s, http.MethodPost, "/players/Alice/send", `{"server":"lobby"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "player not online")
}

func TestKick_UnknownPlayer(t *testing.T) {
	s := newTestServer(t)
	rec := do(t, s, http.MethodPost, "/players/Alice/kick", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, s, http.MethodPost, "/players/Alice/kick", `{"reason":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/servers", nil)
	req.Header.Set("Origin", "https://panel.example.com")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
