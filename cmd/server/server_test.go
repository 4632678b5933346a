package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/thereayou/hushroom/internal/config"
	"github.com/thereayou/hushroom/internal/handlers/dto"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<html>hushroom</html>"), 0o644))
	return config.Config{
		AppEnv:          "test",
		Port:            3001,
		StaticDir:       dir,
		AllowedOrigins:  "*",
		CORSAllowOrigin: "*",
		Retention:       time.Minute,
		SweepInterval:   time.Second,
		MaxMessageSize:  4096,
		SendBuffer:      16,
	}
}

func TestNewServer_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	req := require.New(t)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	srv, err := NewServer(context.Background(), testConfig(t), log)
	req.NoError(err)
	req.Nil(srv.Redis)

	ts := httptest.NewServer(srv.Router)
	defer ts.Close()

	healthReq, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	req.NoError(err)
	healthReq.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(healthReq)
	req.NoError(err)
	var health dto.HealthResponse
	req.NoError(json.NewDecoder(resp.Body).Decode(&health))
	_ = resp.Body.Close()
	req.Equal(dto.HealthResponse{Status: "healthy"}, health)
	req.Equal("*", resp.Header.Get("Access-Control-Allow-Origin"))

	resp, err = http.Get(ts.URL + "/api/rooms/NOPE")
	req.NoError(err)
	_ = resp.Body.Close()
	req.Equal(http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/r/ABCD1234")
	req.NoError(err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	req.Equal(http.StatusOK, resp.StatusCode)
	req.Contains(string(body), "hushroom")
}

func TestServer_RunStopsOnCancel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := testConfig(t)
	cfg.Port = freePort(t)

	srv, err := NewServer(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://127.0.0.1" + cfg.Addr() + "/health")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := (&net.ListenConfig{}).Listen(context.Background(), "tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}
