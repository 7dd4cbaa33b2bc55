package router

import (
	"time"

	"assessment-backend/internal/http/handlers"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func New(handler *handlers.AssessmentHandler, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if log != nil {
		r.Use(requestLogger(log))
	}

	api := r.Group("/api/assess")
	api.POST("/start", handler.Start)
	api.GET("/progress/:task_id", handler.Progress)
	api.GET("/status/:task_id", handler.Status)
	api.GET("/result/:task_id", handler.Result)

	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}
