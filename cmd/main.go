package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-backend/internal/agreement"
	"assessment-backend/internal/config"
	"assessment-backend/internal/domain"
	"assessment-backend/internal/executor"
	router "assessment-backend/internal/http"
	"assessment-backend/internal/http/handlers"
	"assessment-backend/internal/registry"
	"assessment-backend/internal/service"
	"assessment-backend/internal/workerpool"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	reg := registry.New(logger)

	runner, err := agreement.Detect(cfg.AssessCmd, cfg.RequireBackend, logger)
	if err != nil {
		logger.Fatal("no assessment backend", zap.Error(err))
	}

	exec := executor.New(reg, runner, logger)

	pool := workerpool.New(cfg.QueueSize, exec.Run, func(taskID, reason string) {
		_, _ = reg.Update(taskID, func(t *domain.Task) {
			t.Status = domain.StatusFailed
			t.Message = "Task failed"
			t.Error = reason
		})
	})
	pool.Start(cfg.Workers)

	svc, err := service.New(reg, pool, cfg.DefFile, logger)
	if err != nil {
		logger.Fatal("service initiation failed", zap.Error(err))
	}

	handler := handlers.New(svc, logger)

	gin.SetMode(gin.ReleaseMode)
	engine := router.New(handler, logger)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: engine,
	}

	sweeperDone := make(chan struct{})
	go sweepLoop(reg, cfg, sweeperDone)

	go func() {
		logger.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	<-stop
	logger.Info("shut down signal received")
	close(sweeperDone)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("http shutdown failed", zap.Error(err))
	}
	if err := pool.Shutdown(ctx); err != nil {
		logger.Error("pool shutdown incomplete", zap.Error(err))
	}

	logger.Info("shut down gracefully")
}

// sweepLoop evicts finished tasks past the retention window.
func sweepLoop(reg *registry.Registry, cfg config.Config, done <-chan struct{}) {
	if cfg.TaskRetention <= 0 || cfg.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			reg.Sweep(cfg.TaskRetention)
		}
	}
}
