package api

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	limiter "github.com/ulule/limiter/v3"
	ginlimiter "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memory "github.com/ulule/limiter/v3/drivers/store/memory"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/Aidin1998/riskcore/internal/risk"
)

// Server exposes the risk engine over HTTP.
type Server struct {
	router      *gin.Engine
	logger      *zap.Logger
	engine      *risk.Engine
	validator   *validator.Validate
	rateLimiter gin.HandlerFunc
}

// NewServer creates the API server around an already constructed engine.
func NewServer(logger *zap.Logger, engine *risk.Engine) *Server {
	server := &Server{
		logger: logger,
		engine: engine,
	}

	// Create router
	router := gin.New()

	// Add middleware
	router.Use(ginzap.Ginzap(logger, time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(logger, true))
	router.Use(otelgin.Middleware("riskcore-api"))

	// Configure CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Rate limiter (100 req/min per IP)
	store := memory.NewStore()
	rate, _ := limiter.NewRateFromFormatted("100-M")
	server.rateLimiter = ginlimiter.NewMiddleware(limiter.New(store, rate))

	server.validator = validator.New()
	server.router = router
	server.registerRoutes()
	return server
}

// Start starts the API server
func (s *Server) Start(addr string) error {
	s.logger.Info("Starting API server", zap.String("addr", addr))
	return s.router.Run(addr)
}

// Router returns the internal Gin engine for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// registerRoutes registers all API routes
func (s *Server) registerRoutes() {
	public := s.router.Group("/api/v1")
	{
		// Metrics endpoint
		public.GET("/metrics", gin.WrapH(promhttp.Handler()))

		// Health check
		public.GET("/health", s.healthCheck)
	}

	scoring := s.router.Group("/api/v1")
	scoring.Use(s.rateLimiter)
	{
		scoring.POST("/risk/assess", s.assessRisk)

		aml := scoring.Group("/aml")
		{
			aml.POST("/check", s.amlCheck)
		}

		vel := scoring.Group("/velocity")
		{
			vel.POST("/check", s.velocityCheck)
			vel.GET("/summary/:customer_id", s.velocitySummary)
		}
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"tracked_customers": s.engine.TrackedCustomers(),
		"timestamp":         s.engine.Now().Format(time.RFC3339),
	})
}
