// Package cmd holds the newsnotes command line.
package cmd

import (
	"fmt"
	"os"

	"newsnotes/config"
	"newsnotes/pkg/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	v   = config.New()
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "newsnotes",
	Short: "Backend for the news reader: saved article notes, news proxy and live streams",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(v)
		if err != nil {
			return err
		}
		logger.Init(cfg.LogLevel)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	SilenceUsage: true,
}

// Execute runs the root command. Called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL")
	bindFlag(v, "LOG_LEVEL", "log-level")
	bindFlag(v, "DATABASE_URL", "database-url")
}

func bindFlag(v *viper.Viper, key, flag string) {
	if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}
