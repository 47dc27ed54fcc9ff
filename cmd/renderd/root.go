package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	logs "github.com/danmuck/renderd/internal/logging"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	ConfigPath string
	EnvFile    string
	Verbose    bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "renderd",
		Short: "renderd - lockstep render worker",
		Long: `renderd runs the worker side of a distributed renderer. Every rank
reads the same command stream, applies it in order, and agrees with the
other ranks on collective outcomes. Rank 0 answers the master.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadEnvFile(opts.EnvFile); err != nil {
				return err
			}
			logs.ConfigureRuntime()
			if opts.Verbose {
				zerolog.SetGlobalLevel(zerolog.DebugLevel)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a TOML worker config")
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file loaded before config")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(newWorkerCommand(opts))
	cmd.AddCommand(newLocalCommand(opts))
	cmd.AddCommand(newPublishCommand(opts))

	return cmd
}

// loadEnvFile loads path if it exists. A missing default file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %q: %w", path, err)
	}
	return nil
}
