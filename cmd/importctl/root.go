package main

import (
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:          "importctl",
		Short:        "Validate and import category batches from JSON files",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")

	newLogger := func() *logrus.Logger {
		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(cmd.ErrOrStderr())
		logger.SetLevel(logrus.WarnLevel)
		if verbose {
			logger.SetLevel(logrus.InfoLevel)
		}
		return logger
	}

	cmd.AddCommand(newValidateCmd(newLogger))
	cmd.AddCommand(newExecuteCmd(newLogger))
	return cmd
}
