package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadgate/leadgate/internal/config"
	"github.com/leadgate/leadgate/internal/errors"
	"github.com/leadgate/leadgate/internal/lead"
	"github.com/leadgate/leadgate/internal/logging"
	"github.com/leadgate/leadgate/internal/metrics"
	"github.com/leadgate/leadgate/internal/models"
	"github.com/leadgate/leadgate/internal/tokenstore"
	"github.com/leadgate/leadgate/internal/zoho"
)

// LeadSubmitter runs the submission pipeline for one enquiry.
type LeadSubmitter interface {
	Submit(ctx context.Context, sub *models.LeadSubmission, clientIP string) (*lead.Result, error)
}

// OAuthFlow drives the authorization-code exchange.
type OAuthFlow interface {
	AuthorizeURL() (string, error)
	HandleCallback(ctx context.Context, code, errParam, accountsServer, location string) (*zoho.CallbackResult, error)
}

// Server represents the HTTP API server
type Server struct {
	router      *gin.Engine
	config      config.ServerConfig
	apiConfig   config.APIConfig
	zohoConfig  config.ZohoConfig
	smtpConfig  config.SMTPConfig
	leads       LeadSubmitter
	flow        OAuthFlow
	tokens      tokenstore.Store
	audit       logging.AuditStore
	metrics     *metrics.Metrics
	logger      *logging.Logger
	rateLimiter *IPRateLimiter
	httpServer  *http.Server
	now         func() time.Time
}

// Router returns the gin router for testing purposes
func (s *Server) Router() *gin.Engine {
	return s.router
}

// NewServer creates a new API server
func NewServer(cfg *config.Config, leads LeadSubmitter, flow OAuthFlow, tokens tokenstore.Store, audit logging.AuditStore, m *metrics.Metrics, logger *logging.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	if m == nil {
		m = metrics.NewMetrics("leadgate")
	}
	if logger == nil {
		logger = logging.NewLogger()
	}

	// Initialize rate limiter from config with sane defaults
	requestsPerMinute := cfg.API.RateLimit.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = 300
	}
	burst := cfg.API.RateLimit.Burst
	if burst <= 0 {
		burst = 30
	}
	rateLimiter := newIPRateLimiter(time.Minute/time.Duration(requestsPerMinute), burst)

	server := &Server{
		router:      gin.New(),
		config:      cfg.Server,
		apiConfig:   cfg.API,
		zohoConfig:  cfg.Zoho,
		smtpConfig:  cfg.SMTP,
		leads:       leads,
		flow:        flow,
		tokens:      tokens,
		audit:       audit,
		metrics:     m,
		logger:      logger,
		rateLimiter: rateLimiter,
		now:         time.Now,
	}
	server.router.HandleMethodNotAllowed = true

	server.router.Use(gin.Recovery())
	server.router.Use(rateLimitMiddleware(rateLimiter))
	server.router.Use(bodyLimitMiddleware(1 << 20))
	server.router.Use(metrics.Middleware(m, logger))
	server.router.Use(loggingMiddleware(logger))

	server.setupRoutes()
	return server
}

// loggingMiddleware threads a correlation ID through the request context and
// logs one completion line per request. The ID is echoed in the response so
// the website can quote it in support tickets.
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := c.GetHeader(logging.CorrelationHeader)
		if correlationID == "" {
			correlationID = logging.NewCorrelationID()
		}
		c.Header(logging.CorrelationHeader, correlationID)

		ctx := logging.WithCorrelationID(c.Request.Context(), correlationID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		logger.InfoWithContext(ctx, "request completed",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration_seconds", time.Since(start).Seconds(),
		)
	}
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	// Prometheus metrics endpoint - NO authentication required
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// Health check - NO authentication required
	s.router.GET("/health", s.handleHealth)

	// Public form endpoint. The website posts here; an API key requirement
	// would break the public enquiry form.
	s.router.POST("/submit-lead", s.handleSubmitLead)

	// OAuth endpoints must stay reachable without an API key: the callback
	// is driven by Zoho's redirect, not by our clients.
	s.router.GET("/oauth/start", s.handleOAuthStart)
	s.router.GET("/oauth/callback", s.handleOAuthCallback)

	// Operational endpoints - require authentication
	authMiddleware := APIKeyAuth(s.apiConfig.Auth.APIKeys, s.apiConfig.Auth.HeaderName, s.logger)
	debugGroup := s.router.Group("/debug")
	debugGroup.Use(authMiddleware)
	{
		debugGroup.GET("/status", s.handleDebugStatus)
	}
}

// Run starts the HTTP server
func (s *Server) Run() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.HTTPPort)

	if s.httpServer == nil {
		s.httpServer = NewHTTPServer(addr, s.router)
	}

	s.logger.Info("starting HTTP server", "addr", addr)
	return s.httpServer.ListenAndServe()
}

// StartWithServer starts the server with a pre-configured http.Server
func (s *Server) StartWithServer(srv *http.Server) error {
	s.httpServer = srv
	s.logger.Info("starting HTTP server", "addr", srv.Addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and flushes the audit trail.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("initiating graceful shutdown")

	var wg sync.WaitGroup
	errs := make(chan error, 2)

	if s.httpServer != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.logger.Info("shutting down HTTP server")
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("HTTP server shutdown error", "error", err.Error())
				errs <- &errors.ErrServerShutdown{Err: err}
			}
		}()
	}

	if s.audit != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.audit.Close(); err != nil {
				errs <- fmt.Errorf("audit store close: %w", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	close(errs)
	var errList []error
	for err := range errs {
		if err != nil {
			errList = append(errList, err)
		}
	}
	if len(errList) > 0 {
		return fmt.Errorf("shutdown errors: %v", errList)
	}

	s.logger.Info("graceful shutdown completed")
	return nil
}

// handleHealth returns health status
func (s *Server) handleHealth(c *gin.Context) {
	authenticated := false
	if s.tokens != nil {
		if rec := s.tokens.Read(); rec != nil && rec.HasTokens() {
			authenticated = true
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "healthy",
		"timestamp":     s.now().UTC(),
		"authenticated": authenticated,
	})
}
