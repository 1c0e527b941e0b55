package main

import (
	"fmt"
	"log/slog"
	"os"

	"storefront/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "storefront",
		Short: "Storefront service: catalog, cart, checkout and orders",
		Long: `storefront serves the shop's JSON API over HTTP and a read API over gRPC.

Configuration comes from the environment (APP_ENV=local also reads .env.local).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			a.cfg = cfg
			setupLogger(cfg)
			return nil
		},
	}
	root.AddCommand(
		newServeCmd(a),
		newMigrateCmd(a),
		newOrdersCmd(a),
		newCartCmd(a),
	)
	return root
}

func setupLogger(cfg config.Config) {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	var h slog.Handler
	if cfg.GinMode == gin.DebugMode {
		opts.Level = slog.LevelDebug
		h = slog.NewTextHandler(os.Stderr, opts)
	} else {
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}
