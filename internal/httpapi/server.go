// SPDX-License-Identifier: Apache-2.0

// Package httpapi exposes the validation engine over HTTP.
package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"

	"github.com/gemaraproj/extractval/internal/extraction"
	"github.com/gemaraproj/extractval/internal/extraction/schema"
	"github.com/gemaraproj/extractval/internal/metrics"
)

// maxBodyBytes bounds a single request body.
const maxBodyBytes = 4 << 20

type Server struct {
	registry     *schema.Registry
	engine       *extraction.Engine
	recorder     *metrics.Recorder
	logger       *charmlog.Logger
	batchWorkers int
}

func NewServer(reg *schema.Registry, recorder *metrics.Recorder, logger *charmlog.Logger, batchWorkers int) *Server {
	return &Server{
		registry:     reg,
		engine:       extraction.NewEngine(reg),
		recorder:     recorder,
		logger:       logger,
		batchWorkers: batchWorkers,
	}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(s.recorder.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/validate", s.Validate)
	v1.POST("/validate/batch", s.ValidateBatch)
	v1.GET("/schema", s.Schema)

	return r
}

// Validate processes one payload. The body is JSON unless the Content-Type
// names YAML. Valid outcomes return 200, invalid ones 422.
func (s *Server) Validate(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		bodyError(c, err, "failed to read request body")
		return
	}

	start := time.Now()
	outcome := s.engine.ProcessBytes(body, formatOf(c.ContentType()))
	s.recorder.Observe(outcome, time.Since(start))

	status := http.StatusOK
	if !outcome.Valid {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, outcome)
}

// ValidateBatch processes a JSON array of payloads and returns one outcome
// per element, in order.
func (s *Server) ValidateBatch(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
	var candidates []any
	if err := c.ShouldBindJSON(&candidates); err != nil {
		bodyError(c, err, "request body must be a JSON array of extraction results")
		return
	}

	start := time.Now()
	outcomes, err := s.engine.ProcessBatch(c.Request.Context(), candidates, s.batchWorkers)
	if err != nil {
		s.logger.Warn("batch validation aborted", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "batch validation aborted"})
		return
	}
	for _, o := range outcomes {
		s.recorder.Observe(o, time.Since(start)/time.Duration(len(outcomes)))
	}

	c.JSON(http.StatusOK, gin.H{"outcomes": outcomes})
}

func (s *Server) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, s.registry.Describe())
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request", "method", c.Request.Method, "path", c.FullPath(),
			"status", c.Writer.Status(), "elapsed", time.Since(start))
	}
}

// bodyError answers 413 when the body exceeded maxBodyBytes and 400 otherwise.
func bodyError(c *gin.Context, err error, msg string) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error": fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
		})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func formatOf(contentType string) string {
	if strings.Contains(contentType, "yaml") {
		return "yaml"
	}
	return "json"
}
