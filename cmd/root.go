// Package cmd provides the command-line entry point of the backend server.
package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"backend/bootstrap"
	"backend/config"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errorColor = color.New(color.FgRed, color.Bold)

// closeTimeout bounds resource cleanup after a failed start.
const closeTimeout = 5 * time.Second

// NewRootCmd creates the root command, which runs the server until it stops.
func NewRootCmd() *cobra.Command {
	var (
		envFile string
		noColor bool
	)

	rootCmd := &cobra.Command{
		Use:   "backend",
		Short: "Run the backend HTTP server",
		Long: `Run the backend HTTP server.

The server listens on PORT (default 5000) and connects to the MongoDB
database at MONGO_URI in the background. A database failure is logged and
does not stop the server.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor {
				color.NoColor = true
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), envFile)
		},
	}

	rootCmd.Flags().StringVar(&envFile, "env-file", config.DefaultEnvFile, "Dotenv file loaded before reading the environment")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return rootCmd
}

func run(ctx context.Context, envFile string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := bootstrap.NewApp(ctx, bootstrap.WithEnvFile(envFile))
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if closeErr := app.Close(closeCtx); closeErr != nil {
			app.Sugar.Warnw("Cleanup after failed start incomplete", "error", closeErr)
		}
		return err
	}

	return app.Wait()
}

// Execute runs the root command with args and returns the process exit code.
// Errors are printed to stderr.
func Execute(ctx context.Context, args []string, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetErr(stderr)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		errorColor.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
