// Package cli holds the hallres command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// NewRootCmd builds the command tree.  A .env file in the working
// directory is loaded before any command runs; variables already set in
// the environment win.
func NewRootCmd() *cobra.Command {
	var envFile string

	root := &cobra.Command{
		Use:           "hallres",
		Short:         "Event hall reservation API and admin tooling",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			configureLogging(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))
			return nil
		},
	}
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newHallCmd())
	root.AddCommand(newSeedCmd())
	root.AddCommand(newUserCmd())

	return root
}

// configureLogging switches logrus to JSON outside development and
// applies LOG_LEVEL when it parses.
func configureLogging(env, level string) {
	if env == "prod" || env == "production" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if lvl, err := logrus.ParseLevel(level); err == nil {
		logrus.SetLevel(lvl)
	}
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		logrus.WithError(err).Error("command failed")
		os.Exit(1)
	}
}
