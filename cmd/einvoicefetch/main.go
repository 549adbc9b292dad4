package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/einvoicefetch/internal/cli"
	"github.com/example/einvoicefetch/internal/logx"
	"github.com/example/einvoicefetch/internal/runner"
)

func main() {
	// Create flags instance
	flags := cli.NewFlags()

	// Create root command
	rootCmd := cli.CreateRootCommand(flags)

	// Set up command initialization
	cobra.OnInitialize(func() {
		cli.InitConfig(flags.CfgFile)
	})

	// Set the run function
	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		return runCommand(flags)
	}

	// Execute command
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runCommand(flags *cli.Flags) error {
	cfg, err := cli.BuildConfig(flags)
	if err != nil {
		return err
	}

	log := logx.NewLogger(os.Stderr, cfg.Verbose, cfg.JSONLog)

	// Closing the browser on Ctrl-C is the only safe cancellation point;
	// everything downstream watches this context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	report := runner.New(cfg, log).Run(ctx)
	report.Print(os.Stdout)

	return report.Err()
}
