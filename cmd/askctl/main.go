// Package main provides askctl, the askhub admin CLI. It opens the server's
// store directly, so stop the server first: badger allows one process.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/askhub/askhub-server/internal/config"
	"github.com/askhub/askhub-server/internal/di"
)

var (
	homeDir string
	envFile string
)

var rootCmd = &cobra.Command{
	Use:           "askctl",
	Short:         "Administer an askhub data directory",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default: ASKHUB_HOME or ~/.askhub)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to .env file")

	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(backupCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// withContainer loads configuration from the CLI flags and environment, runs
// fn against a fresh container and shuts it down afterwards.
func withContainer(fn func(injector do.Injector) error) error {
	args := []string{"-env-file", envFile}
	if homeDir != "" {
		args = append(args, "-home", homeDir)
	}
	cfg, err := config.Load(args, os.LookupEnv)
	if err != nil {
		return err
	}

	injector := di.NewContainerWithConfig(cfg)
	defer func() { _ = injector.Shutdown() }()
	return fn(injector)
}
