// Package server exposes the routing pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"banking-router/internal/common/config"
	stderrors "banking-router/internal/common/errors"
	"banking-router/internal/common/logger"
	"banking-router/internal/common/metrics"
	"banking-router/internal/common/validation"
	"banking-router/internal/models"
	"banking-router/internal/router/dispatcher"
)

const requestSchema = `{
	"type": "object",
	"required": ["query"],
	"properties": {
		"query": {"type": "string", "minLength": 1, "maxLength": 2000},
		"history": {
			"type": "array",
			"maxItems": 200,
			"items": {
				"type": "object",
				"required": ["role", "text"],
				"properties": {
					"role": {"type": "string", "enum": ["user", "assistant"]},
					"text": {"type": "string"},
					"metadata": {"type": "object"}
				}
			}
		},
		"route_only": {"type": "boolean"}
	}
}`

type routeRequest struct {
	Query     string        `json:"query"`
	History   []models.Turn `json:"history"`
	RouteOnly bool          `json:"route_only"`
}

type Server struct {
	engine     *gin.Engine
	http       *http.Server
	dispatcher *dispatcher.Dispatcher
	schema     *validation.Schema
	logger     logger.Logger
}

func New(cfg config.ServerConfig, d *dispatcher.Dispatcher, log logger.Logger) (*Server, error) {
	schema, err := validation.CompileSchema(requestSchema)
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:     engine,
		dispatcher: d,
		schema:     schema,
		logger:     log.WithFields(map[string]interface{}{"component": "http"}),
	}
	s.routes()

	s.http = &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

func (s *Server) routes() {
	s.engine.Use(s.requestID())

	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.POST("/route", s.handleRoute)
}

func (s *Server) requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Set("request_id", id)
		c.Next()
	}
}

func (s *Server) handleRoute(c *gin.Context) {
	metrics.ActiveRequests.WithLabelValues("route").Inc()
	defer metrics.ActiveRequests.WithLabelValues("route").Dec()

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable request body"})
		return
	}

	result, err := s.schema.ValidateJSON(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request is not valid JSON"})
		return
	}
	if !result.Valid {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid request",
			"details": result.GetErrorMessages(),
		})
		return
	}

	var req routeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request is not valid JSON"})
		return
	}

	start := time.Now()
	if req.RouteOnly {
		res := s.dispatcher.Route(c.Request.Context(), req.Query, req.History)
		s.logRequest(c, string(res.Primary().Name), res.RoutingPath, start)
		c.JSON(http.StatusOK, gin.H{"routing": res})
		return
	}

	answer, err := s.dispatcher.Respond(c.Request.Context(), req.Query, req.History)
	if err != nil {
		s.logger.Error("request failed", map[string]interface{}{
			"request_id": c.GetString("request_id"),
			"error":      err.Error(),
		})
		if se, ok := stderrors.AsStandardError(err); ok {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     se.Message,
				"code":      se.Code,
				"retryable": se.Retryable,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	s.logRequest(c, string(answer.Meta.Intent), answer.Meta.RoutingPath, start)
	c.JSON(http.StatusOK, answer)
}

func (s *Server) logRequest(c *gin.Context, operation, path string, start time.Time) {
	s.logger.Info("request handled", map[string]interface{}{
		"request_id": c.GetString("request_id"),
		"operation":  operation,
		"path":       path,
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
}

// Start begins serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Start() error {
	s.logger.Info("http server starting", map[string]interface{}{
		"addr": s.http.Addr,
	})
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the underlying engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}
