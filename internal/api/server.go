package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Prabhat2912/contest-tracker/internal/aggregator"
	"github.com/Prabhat2912/contest-tracker/internal/enrich"
	"github.com/Prabhat2912/contest-tracker/internal/metrics"
	"github.com/Prabhat2912/contest-tracker/internal/storage"
	"github.com/Prabhat2912/contest-tracker/pkg/logger"
)

// ContestUpdater triggers one aggregation run
type ContestUpdater interface {
	Run(ctx context.Context) (*aggregator.Result, error)
}

// SolutionRunner triggers one enrichment batch
type SolutionRunner interface {
	RunBatchSize(ctx context.Context, batchSize int) (*enrich.BatchResult, error)
}

// SchedulerStatus reports which recurring tasks are armed
type SchedulerStatus interface {
	Status() map[string]bool
}

// Server exposes the cron trigger endpoints and the read API
type Server struct {
	engine     *gin.Engine
	updater    ContestUpdater
	runner     SolutionRunner
	scheduler  SchedulerStatus
	repository storage.Repository
	cronSecret string
	log        *logger.Logger
}

// Config wires the server's collaborators. Runner and Scheduler may be nil;
// their endpoints then report unavailability instead of panicking.
type Config struct {
	Updater    ContestUpdater
	Runner     SolutionRunner
	Scheduler  SchedulerStatus
	Repository storage.Repository
	CronSecret string
	Logger     *logger.Logger
}

// NewServer builds the gin engine with all routes registered
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:     gin.New(),
		updater:    cfg.Updater,
		runner:     cfg.Runner,
		scheduler:  cfg.Scheduler,
		repository: cfg.Repository,
		cronSecret: cfg.CronSecret,
		log:        cfg.Logger.WithComponent("api"),
	}

	s.engine.Use(gin.Recovery())
	s.engine.Use(s.requestLogger())
	s.engine.Use(s.requestMetrics())

	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	apiGroup := s.engine.Group("/api")
	{
		apiGroup.GET("/contests", s.handleListContests)
		apiGroup.POST("/bookmark", s.handleToggleBookmark)
		apiGroup.GET("/scheduler/status", s.handleSchedulerStatus)

		// The hosting platform's cron pings use GET; manual triggers use POST
		cronGroup := apiGroup.Group("/cron", s.requireCronSecret())
		{
			cronGroup.GET("/update-contests", s.handleUpdateContests)
			cronGroup.POST("/update-contests", s.handleUpdateContests)
			cronGroup.GET("/fetch-solutions", s.handleFetchSolutions)
			cronGroup.POST("/fetch-solutions", s.handleFetchSolutions)
		}
	}

	return s
}

// Engine exposes the router for http.Server wiring and tests
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) handleUpdateContests(c *gin.Context) {
	result, err := s.updater.Run(c.Request.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("Contest update failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to update contests",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"message":   "Contests updated successfully",
		"count":     result.Inserted,
		"sources":   result.Sources,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type fetchSolutionsRequest struct {
	BatchSize int `json:"batchSize"`
}

func (s *Server) handleFetchSolutions(c *gin.Context) {
	if s.runner == nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Solution fetching is not configured",
		})
		return
	}

	var req fetchSolutionsRequest
	if c.Request.Body != nil && c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   "Invalid request body",
			})
			return
		}
	}

	result, err := s.runner.RunBatchSize(c.Request.Context(), req.BatchSize)
	if err != nil {
		s.log.Error().Err(err).Msg("Solution fetch failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   "Failed to fetch solutions",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"processed":      result.Processed,
		"solutionsFound": result.Found,
		"deferred":       result.Deferred,
		"elapsedMs":      result.Elapsed.Milliseconds(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListContests(c *gin.Context) {
	filter := storage.ContestFilter{
		Platform:     c.Query("platform"),
		BookmarkedBy: c.Query("bookmarkedBy"),
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		filter.Limit = limit
	}

	contests, err := s.repository.ListContests(c.Request.Context(), filter)
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to list contests")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list contests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"count":    len(contests),
		"contests": contests,
	})
}

type bookmarkRequest struct {
	ContestName string `json:"contestName" binding:"required"`
	UserID      string `json:"userId" binding:"required"`
}

func (s *Server) handleToggleBookmark(c *gin.Context) {
	var req bookmarkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contestName and userId are required"})
		return
	}

	contest, err := s.repository.ToggleBookmark(c.Request.Context(), req.ContestName, req.UserID)
	if err != nil {
		if err == storage.ErrNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "Contest not found"})
			return
		}
		s.log.Error().Err(err).Msg("Failed to toggle bookmark")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle bookmark"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contest":    contest,
		"bookmarked": contest.IsBookmarkedBy(req.UserID),
	})
}

func (s *Server) handleSchedulerStatus(c *gin.Context) {
	if s.scheduler == nil {
		c.JSON(http.StatusOK, gin.H{"enabled": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"enabled": true,
		"tasks":   s.scheduler.Status(),
	})
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	}
}

func (s *Server) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method, path, strconv.Itoa(c.Writer.Status()),
		).Inc()
	}
}

// requireCronSecret guards trigger endpoints with a shared bearer token. An
// empty secret leaves them open, which is the local development mode.
func (s *Server) requireCronSecret() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.cronSecret == "" {
			c.Next()
			return
		}
		if c.GetHeader("Authorization") != "Bearer "+s.cronSecret {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}
