package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	zerologlog "github.com/rs/zerolog/log"

	"github.com/signalscope/signalscope/internal/ai"
	"github.com/signalscope/signalscope/internal/ai/anthropic"
	"github.com/signalscope/signalscope/internal/ai/ollama"
	"github.com/signalscope/signalscope/internal/ai/openai"
	"github.com/signalscope/signalscope/internal/ai/stability"
	"github.com/signalscope/signalscope/internal/auth"
	"github.com/signalscope/signalscope/internal/config"
	"github.com/signalscope/signalscope/internal/forum"
	"github.com/signalscope/signalscope/internal/server"
	"github.com/signalscope/signalscope/internal/store"
	"github.com/signalscope/signalscope/internal/viewing"
	staticserver "github.com/signalscope/signalscope/static"
)

const version = "v1.3.0"

func main() {
	var (
		showHelp    = flag.Bool("help", false, "Show help message")
		showVersion = flag.Bool("version", false, "Show version information")
		portFlag    = flag.String("port", "", "Port to listen on (overrides PORT env var)")
	)
	flag.BoolVar(showHelp, "h", false, "Show help message (shorthand)")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Parse()

	if *showHelp {
		fmt.Printf(`SignalScope - community investigations with a daily remote viewing game

Usage: %s [options]

Options:
  -h, --help      Show this help message
  -v, --version   Show version information
  --port PORT     Port to listen on (default: 8080 or PORT env var)

Environment Variables:
  PORT                 Port to listen on (default: 8080)
  DATA_DIR             Data directory for the store and images (default: ./data)
  PUBLIC_DIR           Frontend directory to serve (default: ./public)
  STORE_DRIVER         "file" or "sqlite" (default: file)
  STORE_PATH           Override the store location inside DATA_DIR
  OPENAI_API_KEY       OpenAI API key (text + image capability)
  ANTHROPIC_API_KEY    Anthropic API key (text capability)
  OLLAMA_HOST          Ollama host URL (text capability, e.g. http://localhost:11434)
  STABILITY_API_KEY    Stability API key (image capability)
  RV_TEXT_ORDER        Text failover order (default: openai,anthropic,ollama)
  RV_IMAGE_ORDER       Image failover order (default: openai,stability)
  RV_DYNAMIC_CUTOFF    UTC time of day gating the dynamic track (default: 08:55)
  PROVIDER_TIMEOUT     Per provider call timeout (default: 30s)

Visit http://localhost:8080 after starting the server.
`, os.Args[0])
		return
	}

	if *showVersion {
		fmt.Printf("SignalScope %s\n", version)
		return
	}

	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	if *portFlag != "" {
		cfg.Port = *portFlag
	}

	// zerolog setup (human-friendly console)
	zerolog.TimeFieldFormat = time.RFC3339
	cw := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	zerologlog.Logger = zerologlog.Output(cw)
	log := zerologlog.Logger

	repo, err := openRepository(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open repository")
	}
	st, err := store.Open(repo)
	if err != nil {
		log.Fatal().Err(err).Msg("open store")
	}
	defer st.Close()

	images, err := viewing.NewImageStore(filepath.Join(cfg.DataDir, "images"))
	if err != nil {
		log.Fatal().Err(err).Msg("open image store")
	}

	// OpenAI serves both capabilities through one client.
	oa := openai.New(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIImageModel, cfg.ProviderTimeout)
	textProviders := map[string]ai.TextProvider{
		"openai":    oa,
		"anthropic": anthropic.New(cfg.AnthropicKey, cfg.AnthropicBaseURL, cfg.AnthropicModel, cfg.ProviderTimeout),
		"ollama":    ollama.New(cfg.OllamaHost, cfg.OllamaModel, cfg.ProviderTimeout),
	}
	imageProviders := map[string]ai.ImageProvider{
		"openai":    oa,
		"stability": stability.New(cfg.StabilityKey, cfg.StabilityBaseURL, cfg.StabilityEngine, cfg.ProviderTimeout),
	}
	textChain, imageChain := viewing.Chains(cfg.TextOrder, cfg.ImageOrder, textProviders, imageProviders)

	engine := viewing.New(viewing.Options{
		Store:         st,
		Images:        images,
		TextChain:     textChain,
		ImageChain:    imageChain,
		Logger:        log,
		DynamicCutoff: cfg.DynamicCutoff,
	})

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(server.RequestLogger(log))

	srv := server.New(log, auth.New(st), forum.New(st), engine)
	srv.Routes(r)

	// Serve frontend for all other routes
	sh := staticserver.Handler(cfg.PublicDir)
	r.NoRoute(func(c *gin.Context) {
		sh.ServeHTTP(c.Writer, c.Request)
	})

	log.Info().Str("port", cfg.Port).Msg("listening")
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func openRepository(cfg config.Config) (store.Repository, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		path := cfg.StorePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "signalscope.db")
		}
		return store.NewSQLiteRepository(path)
	default:
		path := cfg.StorePath
		if path == "" {
			path = filepath.Join(cfg.DataDir, "signalscope.json")
		}
		return store.NewFileRepository(path), nil
	}
}
