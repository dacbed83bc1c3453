package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/nikhilbhutani/docextract/internal/api"
	"github.com/nikhilbhutani/docextract/internal/api/handlers"
	"github.com/nikhilbhutani/docextract/internal/config"
	"github.com/nikhilbhutani/docextract/internal/document"
	"github.com/nikhilbhutani/docextract/internal/llm"
	"github.com/nikhilbhutani/docextract/internal/ocr"
	"github.com/nikhilbhutani/docextract/internal/staging"
	"github.com/nikhilbhutani/docextract/internal/structuring"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("could not read .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	stager, err := staging.NewStager(cfg.Upload.Dir, cfg.Upload.MaxBytes, logger)
	if err != nil {
		slog.Error("failed to prepare upload dir", "error", err)
		os.Exit(1)
	}

	gw, err := llm.NewGateway(cfg.LLM)
	if err != nil {
		slog.Error("failed to configure LLM gateway", "error", err)
		os.Exit(1)
	}

	extractor := ocr.NewExtractor(cfg.OCR, nil, logger)
	if err := extractor.Ready(); err != nil {
		slog.Warn("OCR command not found, uploads will fail until it is installed", "error", err)
	}

	svc := document.NewService(extractor, structuring.NewClient(gw, cfg.LLM, logger), logger)

	health := handlers.NewHealthHandler(map[string]handlers.Check{
		"ocr": func(context.Context) error { return extractor.Ready() },
		"llm": func(context.Context) error {
			_, err := gw.Provider(gw.DefaultProvider())
			return err
		},
	})

	router := api.NewRouter(cfg.Server,
		handlers.NewUploadHandler(stager, svc, cfg.Upload.MaxPDFPages, logger),
		health,
		handlers.NewLLMHandler(gw, cfg.LLM.Model),
		logger,
	)
	handler := router.Setup()
	defer router.Close()

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      handler,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: cfg.WriteTimeout(),
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting API server",
			"addr", cfg.Addr(),
			"llm_provider", cfg.LLM.Provider,
			"llm_model", cfg.LLM.Model,
			"ocr_command", cfg.OCR.Command,
			"upload_dir", stager.Dir(),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced shutdown", "error", err)
	}
	slog.Info("server stopped")
}
