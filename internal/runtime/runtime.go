package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paperwavelabs/paperwave-core/internal/bus"
	"github.com/paperwavelabs/paperwave-core/internal/config"
	"github.com/paperwavelabs/paperwave-core/internal/extract"
	"github.com/paperwavelabs/paperwave-core/internal/gen"
	"github.com/paperwavelabs/paperwave-core/internal/natsserver"
	"github.com/paperwavelabs/paperwave-core/internal/podcast"
	"github.com/paperwavelabs/paperwave-core/internal/runlog"
	"github.com/paperwavelabs/paperwave-core/internal/server"
	"github.com/paperwavelabs/paperwave-core/internal/speech"
	"github.com/paperwavelabs/paperwave-core/internal/task"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	for _, dir := range []string{r.cfg.Storage.UploadDir, r.cfg.Storage.OutputDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create storage dir %s: %w", dir, err)
		}
	}

	runs, err := runlog.Open(ctx, r.cfg.RunLog, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open run log: %w", err)
	}
	defer runs.Close()

	embedded, events, err := r.startBus()
	if err != nil {
		return err
	}
	defer embedded.Shutdown()
	defer events.Close()

	generator, closeGenerator, err := newGenerator(ctx, r.cfg.Gen)
	if err != nil {
		return fmt.Errorf("failed to initialize generation backend: %w", err)
	}
	defer closeGenerator()

	synth, err := newSynthesizer(r.cfg.Speech, r.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize speech backend: %w", err)
	}

	extractor, err := extract.New(r.cfg.Extract)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}

	tasks := task.NewStore()
	pipeline := podcast.New(r.cfg.Podcast, r.cfg.Storage.OutputDir,
		extractor, generator, synth, tasks, runs, events, r.logger)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}
	server.New(r.cfg.Storage, pipeline, tasks, r.logger).Register(mux)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("gen_mode", r.cfg.Gen.Mode),
		slog.String("speech_mode", r.cfg.Speech.Mode))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

// startBus brings up the optional progress bus. A nil client and server are
// returned when the bus is disabled; both are safe to shut down.
func (r *Runtime) startBus() (*natsserver.EmbeddedServer, *bus.Client, error) {
	if !r.cfg.Bus.Enabled {
		return nil, nil, nil
	}

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start embedded NATS server: %w", err)
	}

	busCfg := r.cfg.Bus
	if embedded != nil {
		busCfg.Servers = []string{embedded.ClientURL()}
	}
	events, err := bus.Connect(busCfg, r.logger)
	if err != nil {
		// Progress broadcasting is best effort; the polling store still works.
		r.logger.Warn("progress bus unavailable", slog.String("error", err.Error()))
		return embedded, nil, nil
	}
	return embedded, events, nil
}

func newGenerator(ctx context.Context, cfg config.GenConfig) (gen.Generator, func(), error) {
	switch cfg.Mode {
	case "mock":
		return gen.NewMockGenerator(), func() {}, nil
	case "gemini":
		g, err := gen.NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
		if err != nil {
			return nil, nil, err
		}
		return g, func() { g.Close() }, nil
	case "ollama":
		return gen.NewOllamaGenerator(cfg.Endpoint, cfg.Model, cfg.Temperature), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown generation mode %q", cfg.Mode)
	}
}

func newSynthesizer(cfg config.SpeechConfig, logger *slog.Logger) (speech.Synthesizer, error) {
	switch cfg.Mode {
	case "mock":
		return speech.NewMockSynthesizer(), nil
	case "elevenlabs":
		return speech.NewElevenLabs(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown speech mode %q", cfg.Mode)
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
