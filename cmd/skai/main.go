package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sky-ai/skai/internal/agents"
	"github.com/sky-ai/skai/internal/api"
	"github.com/sky-ai/skai/internal/config"
	"github.com/sky-ai/skai/internal/events"
	"github.com/sky-ai/skai/internal/kernel"
	"github.com/sky-ai/skai/internal/provider"
	"github.com/sky-ai/skai/internal/session"
	"github.com/sky-ai/skai/internal/tool"
	"github.com/sky-ai/skai/internal/voice"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	logger.Info("Starting SKAI...")

	// Load configuration
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "configs/skai.json"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
	}
	logger.Info("Config loaded", zap.String("path", cfgPath))

	// Initialize provider router
	router := provider.NewRouter(logger)
	for _, pc := range cfg.Providers {
		provCfg := provider.Config{
			ID: pc.ID, Type: pc.Type, Name: pc.Name,
			Endpoint: pc.Endpoint, APIKey: pc.APIKey, Model: pc.Model,
			Timeout: time.Duration(pc.Timeout) * time.Second,
		}
		switch pc.Type {
		case "openrouter", "openai":
			router.Register(provider.NewOpenRouterProvider(provCfg, logger))
		default:
			logger.Warn("unknown provider type", zap.String("id", pc.ID), zap.String("type", pc.Type))
		}
	}

	// Initialize session persistence
	var backend session.Backend
	var pgBackend *session.PostgresBackend
	switch cfg.Session.Storage {
	case "postgres":
		pb, pgErr := session.NewPostgresBackend(context.Background(), cfg.Session.PostgresDSN, logger)
		if pgErr != nil {
			logger.Fatal("postgres session backend", zap.Error(pgErr))
		}
		pgBackend = pb
		backend = pb
	default:
		fb, fbErr := session.NewFileBackend(cfg.Session.Dir, logger)
		if fbErr != nil {
			logger.Fatal("file session backend", zap.String("dir", cfg.Session.Dir), zap.Error(fbErr))
		}
		backend = fb
	}
	sessions := session.NewStore(backend, logger)

	// Initialize turn event stream
	var bus *events.Bus
	if cfg.Redis.URL != "" {
		b, busErr := events.NewBus(cfg.Redis.URL, logger)
		if busErr != nil {
			logger.Warn("Redis unavailable, running without event stream", zap.Error(busErr))
		} else {
			bus = b
		}
	}

	// Initialize kernel
	opts := kernel.DefaultOptions()
	if cfg.Kernel.Name != "" {
		opts.Name = cfg.Kernel.Name
	}
	if cfg.Kernel.Model != "" {
		opts.Model = cfg.Kernel.Model
	}
	if cfg.Kernel.Instruction != "" {
		opts.Instruction = cfg.Kernel.Instruction
	}
	k := kernel.New(opts, sessions, router, bus, logger)

	k.RegisterAgent("weather_time_agent", agents.NewWeatherTime(logger))
	k.RegisterAgent("self_improving_agent", agents.NewSelfImprove(logger))
	k.RegisterTool(currentTimeTool())

	// Initialize voice conversation. Without an audio stack the loop runs
	// over the console synthesizer with text injected via the API.
	vcfg := voice.DefaultConfig()
	if cfg.Voice.IdleTimeoutSeconds > 0 {
		vcfg.IdleTimeout = time.Duration(cfg.Voice.IdleTimeoutSeconds) * time.Second
	}
	if cfg.Voice.WakePhrase != "" {
		vcfg.WakePhrase = cfg.Voice.WakePhrase
	}
	if cfg.Voice.Greeting != "" {
		vcfg.Greeting = cfg.Voice.Greeting
	}
	if len(cfg.Voice.ExitPhrases) > 0 {
		vcfg.ExitPhrases = cfg.Voice.ExitPhrases
	}
	speaker := voice.NewSpeaker(voice.NewConsoleSynthesizer(os.Stdout, logger), logger)
	conv := voice.NewConversation(vcfg, k, voice.SilentRecognizer{}, speaker, nil, logger)

	// Build HTTP handler
	handler := api.NewHandler(k, conv, logger)

	// Start server
	port := fmt.Sprintf("%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler.Router(),
	}

	go func() {
		logger.Info("SKAI listening", zap.String("port", port))
		if err := srv.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down SKAI...")
	conv.Stop()
	ctx := context.Background()
	srv.Shutdown(ctx)
	if bus != nil {
		bus.Close()
	}
	if pgBackend != nil {
		pgBackend.Close()
	}
}

// currentTimeTool exposes the server clock to the default LLM path.
func currentTimeTool() *tool.Tool {
	return &tool.Tool{
		Name:        "get_current_time",
		Description: "Get the current date and time, optionally in a named IANA timezone.",
		Params: []tool.Param{
			{Name: "timezone", Type: tool.TypeString, Description: "IANA timezone name, e.g. America/New_York", Required: false},
		},
		Handler: func(_ context.Context, args string) (string, error) {
			var in struct {
				Timezone string `json:"timezone"`
			}
			if args != "" {
				if err := json.Unmarshal([]byte(args), &in); err != nil {
					return "", fmt.Errorf("parse arguments: %w", err)
				}
			}
			loc := time.Local
			if in.Timezone != "" {
				l, err := time.LoadLocation(in.Timezone)
				if err != nil {
					return "", fmt.Errorf("unknown timezone %q: %w", in.Timezone, err)
				}
				loc = l
			}
			return time.Now().In(loc).Format("Monday, January 2, 2006 at 15:04:05 MST"), nil
		},
	}
}
