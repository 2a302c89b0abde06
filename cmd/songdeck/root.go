package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/TheMichaelB/songdeck/internal/client"
	"github.com/TheMichaelB/songdeck/internal/config"
	"github.com/TheMichaelB/songdeck/internal/events"
)

var (
	cfgFile    string
	envFile    string
	logLevel   string
	jsonOutput bool

	cfg       *config.Config
	logger    *events.Logger
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "songdeck",
	Short: "Manage a music library from the command line",
	Long: `songdeck talks to the music library backend: sign in, browse and
filter the song collection, edit songs and view library statistics.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Config file (default: ./songdeck.json or ~/.songdeck/songdeck.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env",
		"Dotenv file loaded before the environment")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Print machine-readable JSON")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.NewLoader(cfgFile).WithEnvFile(envFile).Load()
	if err != nil {
		return err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	logger, err = events.NewLogger(&cfg.Log)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	events.SetDefault(logger)

	apiClient, err = client.New(context.Background(), cfg, logger)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

// teardown releases what setup created. It runs whether or not the command
// succeeded.
func teardown() {
	if apiClient != nil {
		if err := apiClient.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close client")
		}
		apiClient = nil
	}
	if logger != nil {
		_ = logger.Close()
		logger = nil
	}
}

// fail reports msg the way the output mode expects and returns it as an
// error so the process exits non-zero.
func fail(msg string) error {
	if jsonOutput {
		printJSON(map[string]interface{}{
			"success": false,
			"error":   msg,
		})
	} else {
		printError("%s", msg)
	}
	return fmt.Errorf("%s", msg)
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printSuccess(format string, args ...interface{}) {
	color.New(color.FgGreen).Fprintf(os.Stdout, format+"\n", args...)
}

func printInfo(format string, args ...interface{}) {
	color.New(color.FgCyan).Fprintf(os.Stdout, format+"\n", args...)
}

func printWarning(format string, args ...interface{}) {
	color.New(color.FgYellow).Fprintf(os.Stderr, format+"\n", args...)
}

func printError(format string, args ...interface{}) {
	color.New(color.FgRed, color.Bold).Fprintf(os.Stderr, format+"\n", args...)
}
