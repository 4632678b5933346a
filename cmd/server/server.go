package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/thereayou/hushroom/internal/config"
	"github.com/thereayou/hushroom/internal/events"
	"github.com/thereayou/hushroom/internal/handlers"
	"github.com/thereayou/hushroom/internal/middleware"
	"github.com/thereayou/hushroom/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Router *gin.Engine
	Hub    *websocket.Hub
	Redis  *redis.Client

	cfg       config.Config
	log       *slog.Logger
	publisher *events.RedisPublisher
	http      *http.Server
}

func NewServer(ctx context.Context, cfg config.Config, log *slog.Logger) (*Server, error) {
	s := &Server{cfg: cfg, log: log}

	var publisher events.Publisher = events.Nop{}
	if cfg.RedisURL != "" {
		rdb, err := events.Connect(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		s.Redis = rdb
		s.publisher = events.NewRedisPublisher(rdb, events.DefaultChannel, log)
		publisher = s.publisher
		log.Info("events.redis_enabled", "channel", events.DefaultChannel)
	}

	s.Hub = websocket.NewHub(log, publisher, websocket.Options{
		Retention:     cfg.Retention,
		SweepInterval: cfg.SweepInterval,
	})

	if cfg.IsProd() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(log), middleware.CORS(cfg.CORSAllowOrigin))

	messageH := handlers.NewMessageHandler(s.Hub, log)
	wsH := handlers.NewWebSocketHandler(
		s.Hub,
		messageH,
		handlers.NewOriginPolicy(cfg.Origins(), log),
		websocket.ClientOptions{
			MaxMessageSize: cfg.MaxMessageSize,
			SendBuffer:     cfg.SendBuffer,
			RateBurst:      cfg.RateLimitBurst,
			RateRefill:     cfg.RateLimitRefill,
		},
		log,
	)
	APIEndpoints(router, wsH, handlers.NewHealthHandler(s.Hub), handlers.NewRoomHandler(s.Hub), handlers.NewStaticHandler(cfg.StaticDir))

	s.Router = router
	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Run serves until ctx is cancelled, then drains HTTP, closes every
// connection and stops the background loops.
func (s *Server) Run(ctx context.Context) error {
	go s.Hub.Run()
	if s.publisher != nil {
		go s.publisher.Run(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("server.listening", "addr", s.http.Addr, "static_dir", s.cfg.StaticDir, "retention", s.cfg.Retention)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Hub.Stop()
		s.closeRedis()
		return err
	case <-ctx.Done():
	}

	s.log.Info("server.shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	s.Hub.Stop()
	err := s.http.Shutdown(shutdownCtx)
	<-s.Hub.Done()
	s.closeRedis()
	return err
}

func (s *Server) closeRedis() {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Close(); err != nil {
		s.log.Warn("redis.close", "err", err)
	}
}
