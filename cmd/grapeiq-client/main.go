package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"grapeiq/internal/config"
	"grapeiq/internal/util"
	"grapeiq/pkg/grapeiq"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: grapeiq-client [-config FILE]\n\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nBackends that still gate /forecast on a shared secret need FORECAST_SECRET\n")
		fmt.Fprintf(os.Stderr, "(or forecast.secret in the config); without it forecast results come back empty.\n")
	}
	flag.Parse()

	// .env is optional.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logFile, err := util.OpenLogFile("grapeiq-client", cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()
	logger := util.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logFile)
	util.SetDefault(logger)

	client := grapeiq.NewClient(cfg.API.BaseURL,
		grapeiq.WithTenant(cfg.API.TenantID),
		grapeiq.WithForecastSecret(cfg.Forecast.Secret),
		grapeiq.WithTimeout(cfg.API.Timeout),
		grapeiq.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		grapeiq.WithLogger(logger),
	)
	logger.Info("starting", "base_url", client.BaseURL(), "tenant", cfg.API.TenantID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := tea.NewProgram(
		newModel(ctx, cancel, cfg, client, logger),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
