package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"docscanner/internal/config"
	"docscanner/internal/logger"
	"docscanner/internal/repository/sqlite"
	"docscanner/internal/route"
	"docscanner/internal/service"
	"docscanner/internal/service/ai"
	"docscanner/internal/service/ocr"
	"docscanner/internal/service/pipeline"
	"docscanner/internal/service/websocket"
)

const shutdownTimeout = 15 * time.Second

type App struct {
	config     *config.Config
	logger     *logger.Logger
	db         *sqlite.DB
	scanRepo   *sqlite.ScanRepository
	regionRepo *sqlite.RegionRepository
	hubService *websocket.HubService
	manager    *service.Manager
}

// New loads every model once per worker and wires the repositories, hub and manager.
func New(cfg *config.Config) (*App, error) {
	log, err := logger.New(cfg.LogDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pipelines, err := buildPipelines(cfg, log)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	scanRepo := sqlite.NewScanRepository(db)
	hub := websocket.NewHubService(log)
	mng := service.NewManager(pipelines, cfg.ProcessingQueueSize, scanRepo, hub, log)

	return &App{
		config:     cfg,
		logger:     log,
		db:         db,
		scanRepo:   scanRepo,
		regionRepo: sqlite.NewRegionRepository(db),
		hubService: hub,
		manager:    mng,
	}, nil
}

// buildPipelines loads a classifier and a text engine for each worker. A text
// engine that fails to start is fatal only when OCR_REQUIRED is set.
func buildPipelines(cfg *config.Config, log *logger.Logger) ([]*pipeline.Pipeline, error) {
	pipelines := make([]*pipeline.Pipeline, 0, cfg.ProcessingWorkers)
	closeAll := func() {
		for _, p := range pipelines {
			p.Close()
		}
	}

	for i := 0; i < cfg.ProcessingWorkers; i++ {
		classifier, err := ai.NewClassifierService(cfg.ModelPath, cfg.ModelInputSize, cfg.ClassifyThreshold, log)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("worker %d: %w", i, err)
		}

		var localizer ocr.Localizer
		engine, err := ocr.New(cfg, log)
		switch {
		case err == nil:
			localizer = engine
		case cfg.OCRRequired:
			classifier.Close()
			closeAll()
			return nil, fmt.Errorf("worker %d: %w", i, err)
		default:
			log.Warning("Worker %d runs without text engine, Sensitive uploads cannot be redacted: %v", i, err)
		}

		pipelines = append(pipelines, pipeline.New(classifier, localizer, log))
	}
	return pipelines, nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hubService.Run(hubCtx)

	router := route.SetupRoutes(a.manager, a.config, a.logger, a.scanRepo, a.regionRepo)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.config.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.logger.Info("Document scanner listening on http://localhost:%d", a.config.Port)
	a.logger.Info("Model: %s, OCR engine: %s (redaction available: %t), workers: %d",
		a.config.ModelPath, a.config.OCREngine, a.manager.CanRedact(), a.config.ProcessingWorkers)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Graceful shutdown failed: %v", err)
		return err
	}
	return nil
}

func (a *App) close() {
	a.manager.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}
