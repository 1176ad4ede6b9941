package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mbd888/chainrisk/internal/analyzer"
	"github.com/mbd888/chainrisk/internal/config"
	"github.com/mbd888/chainrisk/internal/logging"
	"github.com/mbd888/chainrisk/internal/pipeline"
)

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "riskctl",
		Short:         "Score blockchain addresses for illicit-activity risk",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(load), newReportCmd(load), newVersionCmd())
	return root
}

// buildPipeline loads configuration and assembles the pipeline, logging to
// the command's stderr so stdout stays clean for --json.
func buildPipeline(cmd *cobra.Command, load configLoader, disableAlerts bool) (*config.Config, *pipeline.Pipeline, error) {
	cfg, err := load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	logger := logging.NewWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	p, err := pipeline.New(cmd.Context(), cfg, pipeline.Options{
		Logger:        logger,
		DisableAlerts: disableAlerts,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, p, nil
}

func newAnalyzeCmd(load configLoader) *cobra.Command {
	var (
		chain   string
		asJSON  bool
		notify  bool
		noColor bool
	)
	cmd := &cobra.Command{
		Use:   "analyze <address>",
		Short: "Collect signals for an address and print its risk report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, p, err := buildPipeline(cmd, load, !notify)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			if chain == "" {
				chain = cfg.DefaultChain
			}
			rep, err := p.Analyzer.Analyze(cmd.Context(), args[0], chain)
			if err != nil {
				return err
			}
			if notify {
				ctx, cancel := context.WithTimeout(context.Background(), cfg.SourceTimeout*4)
				defer cancel()
				if err := p.Alerts.Wait(ctx); err != nil {
					return fmt.Errorf("alert delivery: %w", err)
				}
			}

			resp := analyzer.NewResponse(rep)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			}
			printReport(cmd.OutOrStdout(), resp, noColor)
			return nil
		},
	}
	cmd.Flags().StringVarP(&chain, "chain", "c", "", "blockchain (defaults to DEFAULT_CHAIN)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the API response document")
	cmd.Flags().BoolVar(&notify, "notify", false, "dispatch high-risk alerts to the configured sinks")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored output")
	return cmd
}

func newReportCmd(load configLoader) *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "report <address>",
		Short: "File scam reports against an address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			address, _, err := analyzer.Normalize(args[0], "")
			if err != nil {
				return err
			}
			_, p, err := buildPipeline(cmd, load, true)
			if err != nil {
				return err
			}
			defer func() { _ = p.Close() }()

			total, err := p.Reports.AddReports(cmd.Context(), address, count)
			if err != nil {
				return fmt.Errorf("add reports: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s now has %d report(s)\n", address, total)
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of reports to file")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the riskctl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "riskctl", version)
		},
	}
}
