package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/sandevgo/distill/pkg/log"
	"github.com/sandevgo/distill/pkg/srv"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the interactive Distill session",
	Long:  `Opens the interactive terminal: paste a URL to extract and summarize it, then chat about the page.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		// logger setup
		var flushLog func()
		ctx, flushLog = setupLogger(ctx)
		defer flushLog()

		logger := log.FromCtx(ctx)
		logger.Info().Msg("starting distill")

		a := newApp(ctx)

		// The terminal is the foreground loop; cleanups fire once it
		// returns or the process is interrupted.
		runErr := a.terminal.Start(ctx)

		stop()
		srv.ShutdownServices(ctx, a.cleanups)
		logger.Info().Msg("distill has been shut down gracefully")

		if errors.Is(runErr, context.Canceled) {
			return nil
		}
		return runErr
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}
