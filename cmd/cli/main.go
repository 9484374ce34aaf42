package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tim48-robot/disgitbot/internal/config"
	"github.com/tim48-robot/disgitbot/internal/logger"
	"github.com/tim48-robot/disgitbot/internal/storage"
	"github.com/tim48-robot/disgitbot/internal/storage/backend"
)

var (
	cfgFile    string
	outputJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "disgitbot",
	Short: "GitHub contribution roles for Discord",
	Long: `A CLI tool that aggregates GitHub contributions per organization and
reconciles contributor roles and stats channels in the linked Discord servers.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// env bundles what every command needs
type env struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *storage.Store
}

func (e *env) Close() {
	e.store.Close()
	logger.Sync(e.logger)
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	docs, err := backend.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	return &env{cfg: cfg, logger: zl, store: storage.NewStore(docs)}, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
