package main

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"

	"storefront/internal/api"
	"storefront/internal/config"
	"storefront/internal/interaction"
	"storefront/internal/logging"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/tui"
	"storefront/internal/usercontext"
)

func main() {
	_ = godotenv.Load()

	var cfgPath, apiURL, logLevel string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/storefront/config.yaml if not provided)")
	flag.StringVar(&apiURL, "api-url", "", "Backend base URL (overrides config and "+config.APIURLEnv+")")
	flag.StringVar(&logLevel, "log-level", "", "Log level: trace, debug, info, warn, error, disabled")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if apiURL != "" {
		cfg.API.BaseURL = apiURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if err := logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File}); err != nil {
		fmt.Fprintf(os.Stderr, "logging disabled: %v\n", err)
	}
	defer logging.Close()

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("storefront exited")
		log.Fatal(err)
	}
}

func run(cfg *config.AppConfig) error {
	st, err := store.Open(cfg.Store)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	client, err := api.NewClient(api.Config{
		BaseURL:    cfg.API.BaseURL,
		Timeout:    cfg.API.Timeout(),
		MaxRetries: cfg.API.MaxRetries,
	})
	if err != nil {
		return err
	}
	logging.Info().Str("api", client.String()).Str("store", cfg.Store.Type).Msg("storefront starting")

	var fwd tui.Forwarder
	users := usercontext.New(client, st)
	recorder := interaction.NewRecorder(client, users,
		interaction.WithWindows(cfg.Interactions.SuccessWindow(), cfg.Interactions.ErrorWindow()),
		interaction.WithPurchaseRating(cfg.Interactions.Rating()),
		interaction.WithListener(fwd.Listen),
	)
	defer recorder.Close()

	svc := service.NewStorefront(client, users, recorder, service.Options{
		RecommendationLimit: cfg.Recommendations.Limit,
		ExplanationLimit:    cfg.Recommendations.ExplanationLimit,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(tui.New(ctx, svc), tea.WithAltScreen())
	fwd.Attach(p)
	_, err = p.Run()
	fwd.Detach()
	return err
}
