package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edustack/edustack/internal/api/handlers"
	"github.com/edustack/edustack/internal/api/middleware"
	"github.com/edustack/edustack/internal/config"
	"github.com/edustack/edustack/internal/metrics"
)

type Server struct {
	Config  *config.Config
	Router  *gin.Engine
	handler *handlers.Handler
	logger  *zap.Logger
}

func NewServer(cfg *config.Config, handler *handlers.Handler, collector *metrics.Collector, logger *zap.Logger) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(middleware.Logger(logger))
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.Metrics(collector))

	server := &Server{
		Config:  cfg,
		Router:  router,
		handler: handler,
		logger:  logger,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", s.handler.Health)
	s.Router.GET("/ready", s.handler.Ready)
	s.Router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Resolution is called before any session exists, so it is public but
	// rate limited.
	s.Router.POST("/api/schools/resolve-info",
		middleware.RateLimit(s.Config.Resolve.RatePerMin, s.Config.Resolve.RateBurst),
		s.handler.ResolveSchool,
	)

	// Manage console (provisioning) routes.
	clients := s.Router.Group("/clients")
	clients.Use(middleware.AuthRequired(s.Config.Auth.JWTSecret))
	clients.Use(middleware.ManageOnly())
	{
		clients.GET("", s.handler.ListClients)
		clients.POST("", s.handler.AddClient)
		clients.GET("/:id", s.handler.GetClient)
		clients.PUT("/:id", s.handler.UpdateClientDetails)
		clients.PUT("/:id/license", s.handler.UpdateClientLicense)
		clients.POST("/:id/notes", s.handler.AddClientNote)
	}
}
