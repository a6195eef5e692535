package main

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"estatemap/config"
	"estatemap/internal/logging"
	"estatemap/internal/metrics"
)

type commandContext struct {
	cfg    *config.Config
	logger *logrus.Logger

	logLevel string
	region   string
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "estatemap",
		Short:         "Map estate and building names to Places records",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return ctx.load()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.logLevel, "log-level", "", "Override LOG_LEVEL")
	rootCmd.PersistentFlags().StringVar(&ctx.region, "region", "", "Override MAP_REGION")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newMapCommand(ctx))
	rootCmd.AddCommand(newQuotaCommand(ctx))
	rootCmd.AddCommand(newResolveCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))

	return rootCmd
}

// load reads the environment config, applies flag overrides and sets up
// logging, metrics and tier tables.
func (c *commandContext) load() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if level := strings.TrimSpace(c.logLevel); level != "" {
		cfg.LogLevel = level
	}
	if region := strings.TrimSpace(c.region); region != "" {
		if config.GetRegionByName(region) == nil {
			return fmt.Errorf("unknown region %q, supported: %s", region, strings.Join(config.GetRegionNames(), ", "))
		}
		cfg.Mapping.Region = region
	}

	c.cfg = cfg
	c.logger = logging.New(cfg.LogLevel)
	metrics.Register()

	if _, err := config.LoadTierTables(cfg.Places.TierTablePath); err != nil {
		return fmt.Errorf("load tier tables: %w", err)
	}
	return nil
}
