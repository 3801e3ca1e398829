package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/xelth-com/ecklinen/internal/buildinfo"
	"github.com/xelth-com/ecklinen/internal/config"
)

var (
	cfgFile string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ecklinen",
	Short: "RFID linen scan capture and reconciliation service",
	Long: `Captures RFID scan sessions from handheld readers, reconciles offline
batches and projects item status for the hotel/laundry loop.`,
	Version:           buildinfo.Version(),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default reads .env and the environment)")
}

func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	return err
}

// newLogger builds the process logger from LOG_LEVEL and LOG_FORMAT
func newLogger(c config.LoggingConfig) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.Level, err)
	}

	zc := zap.NewProductionConfig()
	if c.Format == "console" {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)

	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
