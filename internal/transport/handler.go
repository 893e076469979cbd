package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"go-smear-analyzer/internal/config"
	apperrors "go-smear-analyzer/internal/errors"
	"go-smear-analyzer/internal/logger"
	"go-smear-analyzer/internal/observer"
	"go-smear-analyzer/internal/repository"
	"go-smear-analyzer/internal/service"
	"go-smear-analyzer/pkg/models"
)

// subjectHeader identifies the caller's analysis namespace. Analyses are
// keyed by this opaque id; anything may be used as long as it is stable.
const subjectHeader = "X-Subject-ID"

const defaultSubject = "default"

// NewHandler builds the HTTP API.
func NewHandler(svc service.SmearAnalysisService, metrics *observer.MetricsObserver, cfg *config.Config) http.Handler {
	r := gin.Default()

	r.Use(
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/metrics", metricsHandler(metrics))

	api := r.Group("/api")
	{
		api.POST("/analyze", analyzeSmear(svc, cfg))
		api.POST("/analyze-url", analyzeRemoteSmear(svc, cfg))
		api.POST("/validate", validateSmear(svc))

		api.GET("/analyses", listAnalyses(svc))
		api.GET("/analyses/:id", getAnalysis(svc))
		api.DELETE("/analyses/:id", deleteAnalysis(svc))
		api.GET("/analyses/:id/notes", listNotes(svc))
		api.POST("/analyses/:id/notes", addNote(svc))
		api.GET("/stats", getStats(svc))
	}

	return r
}

// readUpload pulls the smear bytes out of the multipart form. Both "file"
// and "image" are accepted as field names.
func readUpload(c *gin.Context) ([]byte, string, error) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		fileHeader, err = c.FormFile("image")
	}
	if err != nil {
		return nil, "", apperrors.NewValidationError("missing file upload", err)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return nil, "", apperrors.NewValidationError("unreadable file upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", apperrors.NewValidationError("unreadable file upload", err)
	}
	return data, fileHeader.Filename, nil
}

// parseAnalyzeRequest reads the optional "request" form field carrying the
// analysis parameters as JSON, plus a "seed" shortcut field.
func parseAnalyzeRequest(c *gin.Context) (models.AnalyzeRequest, error) {
	var req models.AnalyzeRequest
	if raw := c.PostForm("request"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return req, apperrors.NewValidationError("invalid request parameters", err)
		}
	}
	if rawSeed := c.PostForm("seed"); rawSeed != "" {
		seed, err := strconv.ParseInt(rawSeed, 10, 64)
		if err != nil {
			return req, apperrors.NewValidationError("invalid seed", err)
		}
		req.Seed = &seed
	}
	return req, nil
}

func subjectOf(c *gin.Context) string {
	if subject := c.GetHeader(subjectHeader); subject != "" {
		return subject
	}
	return defaultSubject
}

func analyzeSmear(svc service.SmearAnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"ip":     c.ClientIP(),
		}).Info("Processing smear analysis request")

		data, filename, err := readUpload(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
			return
		}

		req, err := parseAnalyzeRequest(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid request", err)
			return
		}

		stored, err := svc.AnalyzeUpload(ctx, subjectOf(c), filename, data, req)
		if err != nil {
			// Rejections still carry a verdict worth returning.
			if stored != nil && apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				c.JSON(http.StatusUnprocessableEntity, stored)
				return
			}
			respondError(c, determineStatusCode(err), "analysis failed", err)
			return
		}

		c.JSON(http.StatusOK, stored)
	}
}

type remoteAnalysisRequest struct {
	Location string `json:"location" binding:"required"`
	models.AnalyzeRequest
}

func analyzeRemoteSmear(svc service.SmearAnalysisService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.AnalysisTimeout)
		defer cancel()

		var req remoteAnalysisRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		stored, err := svc.AnalyzeRemote(ctx, subjectOf(c), req.Location, req.AnalyzeRequest)
		if err != nil {
			if stored != nil && apperrors.IsType(err, apperrors.ErrorTypeValidation) {
				c.JSON(http.StatusUnprocessableEntity, stored)
				return
			}
			respondError(c, determineStatusCode(err), "analysis failed", err)
			return
		}

		c.JSON(http.StatusOK, stored)
	}
}

func validateSmear(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, filename, err := readUpload(c)
		if err != nil {
			respondError(c, apperrors.GetStatusCode(err), "invalid upload", err)
			return
		}

		c.JSON(http.StatusOK, svc.Validate(data, filename))
	}
}

func listAnalyses(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

		analyses, err := svc.ListAnalyses(c.Request.Context(), subjectOf(c), limit)
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to list analyses", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"analyses": analyses})
	}
}

func getAnalysis(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		analysis, err := svc.GetAnalysis(c.Request.Context(), subjectOf(c), c.Param("id"))
		if err != nil {
			respondError(c, repositoryStatusCode(err), "failed to get analysis", err)
			return
		}
		c.JSON(http.StatusOK, analysis)
	}
}

func deleteAnalysis(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := svc.DeleteAnalysis(c.Request.Context(), subjectOf(c), c.Param("id")); err != nil {
			respondError(c, repositoryStatusCode(err), "failed to delete analysis", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func getStats(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.GetStats(c.Request.Context(), subjectOf(c))
		if err != nil {
			respondError(c, determineStatusCode(err), "failed to get stats", err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

type noteRequest struct {
	Content string `json:"content" binding:"required"`
}

func addNote(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req noteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "invalid request format", err)
			return
		}

		note, err := svc.AddNote(c.Request.Context(), subjectOf(c), c.Param("id"), req.Content)
		if err != nil {
			respondError(c, repositoryStatusCode(err), "failed to add note", err)
			return
		}
		c.JSON(http.StatusCreated, note)
	}
}

func listNotes(svc service.SmearAnalysisService) gin.HandlerFunc {
	return func(c *gin.Context) {
		notes, err := svc.ListNotes(c.Request.Context(), subjectOf(c), c.Param("id"))
		if err != nil {
			respondError(c, repositoryStatusCode(err), "failed to list notes", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"notes": notes})
	}
}

func metricsHandler(metrics *observer.MetricsObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, metrics.GetMetrics())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "available",
		"version": "1.0.0",
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 {
			err := c.Errors.Last()
			respondError(c, determineStatusCode(err), "request processing failed", err)
		}
	}
}

func repositoryStatusCode(err error) int {
	if errors.Is(err, repository.ErrAnalysisNotFound) {
		return http.StatusNotFound
	}
	return determineStatusCode(err)
}

func determineStatusCode(err error) int {
	// Check if it's a custom app error first
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	// Fallback to context-based errors
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, code int, message string, err error) {
	logger.WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"message":     message,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	c.AbortWithStatusJSON(code, models.ErrorResponse{
		Error:   http.StatusText(code),
		Message: fmt.Sprintf("%s: %v", message, err),
	})
}
