package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/vitalis-health/backend/config"
	"github.com/vitalis-health/backend/internal/api"
	"github.com/vitalis-health/backend/internal/service"
	"github.com/vitalis-health/backend/internal/storage"
)

// Server bundles the HTTP listener and the background reaper so both share
// one lifecycle: Start brings them up together, Shutdown tears them down.
type Server struct {
	router     *gin.Engine
	http       *http.Server
	reaper     *service.Reaper
	stopReaper context.CancelFunc
	reaperDone chan struct{}
}

// New wires the router, middleware, API and reaper.
func New(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, files storage.FileStore) *Server {
	if config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://frontend:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "Accept", "Origin"},
		AllowCredentials: true,
		MaxAge:           24 * time.Hour,
	}))

	a := api.SetupAPI(router, db, redisClient, files, cfg)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:    cfg.ServerHost + ":" + cfg.ServerPort,
			Handler: router,
		},
		reaper:     service.NewReaper(a.Retention, cfg.ReaperInterval),
		reaperDone: make(chan struct{}),
	}
}

// Start launches the reaper and blocks serving HTTP until Shutdown.
func (s *Server) Start() error {
	reaperCtx, cancel := context.WithCancel(context.Background())
	s.stopReaper = cancel
	go func() {
		defer close(s.reaperDone)
		s.reaper.Run(reaperCtx)
	}()

	log.Printf("[Server] listening on %s", s.http.Addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, then stops
// the reaper.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)

	if s.stopReaper != nil {
		s.stopReaper()
		select {
		case <-s.reaperDone:
		case <-ctx.Done():
		}
	}
	return err
}
