package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"quantshield/internal/app"
	"quantshield/internal/domain"
	"quantshield/internal/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type ApiHandler struct {
	Orchestrator app.Orchestrator
	Models       *app.ModelStore
}

func (m ApiHandler) StartApi(port int) error {
	router := gin.Default()
	router.Use(cors.Default())
	router.Use(m.logRequestMiddleware)
	router.Use(metricsMiddleware())

	router.GET("/", func(ctx *gin.Context) {
		ctx.JSON(200, map[string]string{"message": "welcome to quantshield"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.POST("/api/v1/risk/predict", m.predict)
	router.POST("/api/v1/model/reload", m.reloadModel)

	return router.Run(fmt.Sprintf(":%d", port))
}

// statusForError maps the pipeline's typed errors onto HTTP codes, so a
// caller can tell bad input from a schema problem from a flaky provider.
func statusForError(err error) int {
	var (
		weightErr  domain.WeightValidationError
		alignErr   domain.DataAlignmentError
		degenErr   domain.DegenerateInputError
		schemaErr  domain.SchemaVersionMismatchError
		timeoutErr domain.ProviderTimeoutError
	)
	switch {
	case errors.As(err, &weightErr), errors.As(err, &alignErr), errors.As(err, &degenErr):
		return http.StatusBadRequest
	case errors.As(err, &schemaErr):
		return http.StatusConflict
	case errors.As(err, &timeoutErr):
		return http.StatusGatewayTimeout
	case errors.Is(err, app.ErrNoModelLoaded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func returnErrorJson(err error, c *gin.Context) {
	logger.FromContext(c.Request.Context()).Errorw("request failed", "error", err)
	c.AbortWithStatusJSON(statusForError(err), gin.H{
		"error": err.Error(),
	})
}

func (m ApiHandler) logRequestMiddleware(ctx *gin.Context) {
	requestID := uuid.New()
	start := time.Now().UTC()

	ctx.Next()

	logger.FromContext(ctx.Request.Context()).Infow("request",
		"requestID", requestID.String(),
		"method", ctx.Request.Method,
		"route", ctx.Request.URL.Path,
		"status", ctx.Writer.Status(),
		"durationMs", time.Since(start).Milliseconds(),
		"clientIP", ctx.ClientIP(),
	)
}
