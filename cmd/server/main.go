package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/flowchat/internal/app"
	"github.com/vovakirdan/flowchat/internal/auth"
	"github.com/vovakirdan/flowchat/internal/config"
	"github.com/vovakirdan/flowchat/internal/log"
	transporthttp "github.com/vovakirdan/flowchat/internal/transport/http"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "flowchat-server",
	Short: "FlowProtocol chat and translation server",
	Long: `flowchat-server answers FlowProtocol requests over TCP and UDP and exposes
an admin HTTP surface with health, metrics, stats and a WebSocket bridge.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the server until interrupted",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := log.New(cfg.LogLevel, nil)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		application, err := app.New(&cfg, logger)
		if err != nil {
			return fmt.Errorf("init app: %w", err)
		}

		logger.Info().
			Str("tcp", cfg.TCPAddr).
			Str("udp", cfg.UDPAddr).
			Str("admin", cfg.AdminAddr).
			Msg("starting flowchat server")
		if err := application.Run(ctx); err != nil {
			return fmt.Errorf("server exited with error: %w", err)
		}
		logger.Info().Msg("server stopped")
		return nil
	},
}

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var adminTokenCmd = &cobra.Command{
	Use:   "admin-token",
	Short: "Print a bearer token for the admin API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		token, err := auth.GenerateToken(
			transporthttp.AdminJWTConfig(cfg.AdminJWTSecret, cfg.AdminJWTIssuer, tokenTTL),
			tokenSubject,
		)
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func loadConfig() (config.Config, error) {
	bootLogger := log.New(logLevel, os.Stderr)
	cfg, path, err := config.Load(bootLogger, cfgFile)
	if err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	cfg.UpdateFrom(config.Config{LogLevel: logLevel})
	return cfg, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml or $FLOWCHAT_CONFIG_DEFAULT_PATH/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	adminTokenCmd.Flags().StringVar(&tokenSubject, "subject", "admin", "token subject")
	adminTokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 24*time.Hour, "token lifetime")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(adminTokenCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		rootCmd.PrintErrln("Error:", err)
		os.Exit(1)
	}
}
