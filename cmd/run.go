package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dmsharma/researcher/config"
	"github.com/dmsharma/researcher/internal/research"
	srv "github.com/dmsharma/researcher/internal/server"
)

// runCMD executes one research run from the command line and prints the
// markdown report to stdout (or a file). Useful without the UI.
func runCMD() *cobra.Command {
	var cfgPath string
	var email string
	var outPath string
	var run = &cobra.Command{
		Use:   "run [query]",
		Short: "Execute a single research run and print the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			orch, _, _, err := srv.NewPipeline(cfg)
			if err != nil {
				return err
			}

			ctx := context.Background()
			r, err := orch.NewRun(ctx, args[0], email)
			if err != nil {
				return err
			}
			final := orch.Process(ctx, r)
			if final.Status == research.StatusFailed {
				return fmt.Errorf("run failed: %s", final.Error)
			}

			if final.EmailStatus == research.EmailFailed {
				fmt.Fprintf(os.Stderr, "email delivery failed: %s\n", final.EmailError)
			}
			if outPath != "" {
				return os.WriteFile(outPath, []byte(final.Report.MarkdownReport), 0o644)
			}
			fmt.Println(final.Report.MarkdownReport)
			return nil
		},
	}
	run.Flags().StringVar(&email, "email", "", "recipient for the report email")
	run.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	run.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "config file (default is .)")

	return run
}
