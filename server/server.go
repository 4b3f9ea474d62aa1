package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cityetl/database"
	"cityetl/internal/config"
	"cityetl/server/middleware"
)

// Server HTTP-сервер городских сводок: раздаёт годовые сводки и тренды,
// построенные из канонических записей хранилища
type Server struct {
	config *config.Config
	store  *database.Store
	router *gin.Engine
	http   *http.Server
}

// NewServer создает сервер с маршрутами и middleware
func NewServer(cfg *config.Config, store *database.Store) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Gzip())

	s := &Server{
		config: cfg,
		store:  store,
		router: router,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	{
		api.GET("/health", s.handleHealth)
		api.GET("/money-flow", s.handleMoneyFlowIndex)
		api.GET("/money-flow/:year", s.handleMoneyFlow)
		api.GET("/capital", s.handleCapitalIndex)
		api.GET("/capital/:year", s.handleCapital)
		api.GET("/council/summary", s.handleCouncilSummary)
		api.GET("/trends/:dataset", s.handleTrends)
	}
}

// Router возвращает маршрутизатор (для тестов)
func (s *Server) Router() http.Handler {
	return s.router
}

// Start запускает сервер и блокируется до остановки
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:         ":" + s.config.Port,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	log.Printf("Server listening on port %s", s.config.Port)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown останавливает сервер, дожидаясь активных запросов
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	log.Println("Shutting down server...")
	return s.http.Shutdown(ctx)
}
