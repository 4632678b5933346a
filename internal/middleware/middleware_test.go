package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestCORS_SetsAllowOriginForAllowedOrigin(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://chat.example"))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://chat.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "https://chat.example", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "ok", w.Body.String())
}

func TestCORS_OmitsHeadersForOtherOrigins(t *testing.T) {
	r := gin.New()
	r.Use(CORS("https://chat.example"))
	r.GET("/health", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://evil.example")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORS_AnswersPreflight(t *testing.T) {
	reached := false
	r := gin.New()
	r.Use(CORS(""))
	r.NoRoute(func(c *gin.Context) { reached = true })

	req := httptest.NewRequest(http.MethodOptions, "/api/rooms/ABCD", nil)
	req.Header.Set("Origin", "https://anywhere.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusNoContent, w.Code)
	require.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, http.MethodGet, w.Header().Get("Access-Control-Allow-Methods"))
	require.False(t, reached)
}

func TestCORS_PlainOptionsReachesRouter(t *testing.T) {
	reached := false
	r := gin.New()
	r.Use(CORS(""))
	r.NoRoute(func(c *gin.Context) {
		reached = true
		c.Status(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/anything", nil))

	require.True(t, reached)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestLogger_LogsServerErrors(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })
	r.GET("/fine", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fine", nil))
	require.Empty(t, buf.String())

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.Contains(t, buf.String(), "http.request")
	require.Contains(t, buf.String(), "status=500")
}

func TestRequestLogger_LogsUpgradeWhenHandlerReturns(t *testing.T) {
	var buf bytes.Buffer
	r := gin.New()
	r.Use(RequestLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	release := make(chan struct{})
	defer close(release)
	r.GET("/ws", func(c *gin.Context) {
		// The connection outlives the handler, as with the websocket pumps.
		go func() { <-release }()
		c.Status(http.StatusSwitchingProtocols)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ws", nil))

	require.Contains(t, buf.String(), "path=/ws")
	require.Contains(t, buf.String(), "status=101")
}
