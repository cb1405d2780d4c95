package main

import (
	"context"
	"os"

	"github.com/sandevgo/distill/internal/config"
	"github.com/sandevgo/distill/pkg/log"
	"github.com/spf13/cobra"
)

var (
	debug bool
)

var rootCmd = &cobra.Command{
	Use:   "distill",
	Short: "Distill — webpage summaries you can talk to",
	Long:  `Distill extracts the readable content of a webpage, summarizes it with an AI provider, and lets you chat about it.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags available to all subcommands
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", config.IsDebug(), "enable debug logging")
}

func setupLogger(ctx context.Context) (context.Context, func()) {
	isDebug := debug || config.IsDebug()
	return log.NewContextWithLogger(ctx, isDebug)
}
