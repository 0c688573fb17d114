package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/applylens/inbox-policy/internal/core"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MaxBatchSize caps the number of emails accepted by the batch endpoint
const MaxBatchSize = 500

// Pipeline is the service surface the API exposes
type Pipeline interface {
	Classify(email core.Email) core.ClassificationResult
	Evaluate(email core.Email, result core.ClassificationResult) []core.Decision
	Process(ctx context.Context, email core.Email) (*core.Report, error)
	ProcessBatch(ctx context.Context, emails []core.Email) ([]*core.Report, error)
	Policies() []core.Policy
}

// Server is the HTTP API in front of the pipeline
type Server struct {
	router   *gin.Engine
	pipeline Pipeline
	audit    core.AuditRepository
	logger   *zap.Logger
	addr     string
	srv      *http.Server
}

// NewServer creates the API server. audit may be nil, in which case the
// audit endpoint reports 503.
func NewServer(pipeline Pipeline, audit core.AuditRepository, logger *zap.Logger, addr, mode string) *Server {
	if mode != "" {
		gin.SetMode(mode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:   router,
		pipeline: pipeline,
		audit:    audit,
		logger:   logger,
		addr:     addr,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	v1 := s.router.Group("/v1")
	v1.POST("/classify", s.classify)
	v1.POST("/evaluate", s.evaluate)
	v1.POST("/process", s.process)
	v1.POST("/process/batch", s.processBatch)
	v1.GET("/policies", s.policies)
	v1.GET("/audit", s.listAudit)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves in the background
func (s *Server) Start() error {
	s.srv = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("HTTP API starting", zap.String("address", s.addr))
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(ctx)
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"policies": len(s.pipeline.Policies()),
	})
}

func bindEmail(c *gin.Context, email *core.Email) bool {
	if err := c.ShouldBindJSON(email); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid email: " + err.Error()})
		return false
	}
	if email.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email id is required"})
		return false
	}
	return true
}

func (s *Server) classify(c *gin.Context) {
	var email core.Email
	if !bindEmail(c, &email) {
		return
	}
	c.JSON(http.StatusOK, s.pipeline.Classify(email))
}

type evaluateRequest struct {
	Email  core.Email                 `json:"email"`
	Result *core.ClassificationResult `json:"result,omitempty"`
}

type evaluateResponse struct {
	Result    core.ClassificationResult `json:"result"`
	Decisions []core.Decision           `json:"decisions"`
}

// evaluate is a dry run: decisions are returned but not audited
func (s *Server) evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Email.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email id is required"})
		return
	}

	var result core.ClassificationResult
	if req.Result != nil {
		result = *req.Result
		if !result.Category.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown category " + string(result.Category)})
			return
		}
		if result.EmailID == "" {
			result.EmailID = req.Email.ID
		}
	} else {
		result = s.pipeline.Classify(req.Email)
	}

	decisions := s.pipeline.Evaluate(req.Email, result)
	if decisions == nil {
		decisions = []core.Decision{}
	}
	c.JSON(http.StatusOK, evaluateResponse{Result: result, Decisions: decisions})
}

func (s *Server) process(c *gin.Context) {
	var email core.Email
	if !bindEmail(c, &email) {
		return
	}
	report, err := s.pipeline.Process(c.Request.Context(), email)
	if err != nil {
		s.logger.Error("Failed to process email", zap.String("email_id", email.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process email"})
		return
	}
	c.JSON(http.StatusOK, report)
}

type batchRequest struct {
	Emails []core.Email `json:"emails"`
}

func (s *Server) processBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if len(req.Emails) > MaxBatchSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "batch too large"})
		return
	}
	for i, e := range req.Emails {
		if e.ID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email id is required", "index": i})
			return
		}
	}

	reports, err := s.pipeline.ProcessBatch(c.Request.Context(), req.Emails)
	if err != nil {
		s.logger.Error("Failed to process batch", zap.Int("emails", len(req.Emails)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to process batch"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) policies(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"policies": s.pipeline.Policies()})
}

func (s *Server) listAudit(c *gin.Context) {
	if s.audit == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store disabled"})
		return
	}

	filter := core.AuditFilter{
		EmailID:  c.Query("email_id"),
		PolicyID: c.Query("policy_id"),
	}
	if v := c.Query("allowed"); v != "" {
		allowed, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid allowed value"})
			return
		}
		filter.Allowed = &allowed
	}
	if v := c.Query("since"); v != "" {
		since, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
			return
		}
		filter.Since = since
	}
	if v := c.Query("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		filter.Limit = limit
	}

	entries, err := s.audit.List(c.Request.Context(), filter)
	if err != nil {
		s.logger.Error("Failed to list audit entries", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list audit entries"})
		return
	}
	if entries == nil {
		entries = []core.AuditEntry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}
