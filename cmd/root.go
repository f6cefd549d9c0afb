/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/todoweb/server/config"
	"github.com/todoweb/server/internal/logging"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "todoweb",
	Short: "Multi-user todo web application",
	Long: `todoweb serves a small multi-user todo list behind a session login.

	todoweb migrate up
	todoweb server`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) *logging.SlogLogger {
	return logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
}
