package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/deck"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/export"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/http/handlers"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/http/httpapi"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/infra"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/jobs"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/media"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/pipeline"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/tts"
	"github.com/SulagnaSasmal/ppt-to-mp4-doc-automation/internal/watcher"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	store, err := jobs.NewStore(cfg.JobsDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open job store")
	}
	runner := jobs.NewRunner(cfg.MaxConcurrentJobs, logger)

	synth := tts.NewClient(tts.Options{Key: cfg.AzureTTSKey, Region: cfg.AzureTTSRegion}, logger)
	if err := synth.Configured(); err != nil {
		// Submissions will fail fast until credentials are provided.
		logger.Warn().Err(err).Msg("narration synthesis is not configured")
	}

	mediaTool := media.NewTool(media.Options{FFmpegPath: cfg.FFmpegPath, FFprobePath: cfg.FFprobePath}, logger)
	notes := deck.NewReader()

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.ExportTimeout = cfg.ExportTimeout
	if cfg.Pipeline.Timing.FallbackSlideSeconds > 0 {
		pipeCfg.FallbackSlideSeconds = cfg.Pipeline.Timing.FallbackSlideSeconds
	}
	pipeCfg.HeadSilenceSeconds = cfg.Pipeline.Timing.HeadSilenceSeconds
	pipeCfg.TailSilenceSeconds = cfg.Pipeline.Timing.TailSilenceSeconds

	orch := pipeline.NewOrchestrator(store, notes, synth, mediaTool, export.NewHost, pipeCfg, logger)
	service, err := pipeline.NewService(store, runner, orch, notes, cfg.UploadDir, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build submission service")
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	if cfg.IntakeDir != "" {
		w, err := watcher.New(cfg.IntakeDir, service, cfg.Pipeline.Defaults, logger)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.IntakeDir).Msg("failed to start intake watcher")
		}
		go func() {
			if err := w.Run(watchCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error().Err(err).Msg("intake watcher exited")
			}
		}()
	}

	app := handlers.NewApp(service, store, cfg.Pipeline.Defaults, logger)
	router := httpapi.NewRouter(app)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("conversion API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	stopWatch()
	runner.Shutdown()
	logger.Info().Msg("server stopped")
}
