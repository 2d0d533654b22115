package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doudou/flexmock/coreengine/observability"
	"github.com/doudou/flexmock/coreengine/scenario"
)

// loadScenario reads the scenario named by args, or stdin when args is empty.
func loadScenario(cmd *cobra.Command, args []string) (*scenario.Scenario, error) {
	if len(args) == 0 {
		return scenario.Load(cmd.InOrStdin())
	}
	return scenario.LoadFile(args[0])
}

// newRunCmd creates the "flexmock run" subcommand.
func newRunCmd(a *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Play a scenario and report each call",
		Long: "Declare the scenario's mocks, play its calls, verify every mock and print\n" +
			"a report. Reads the scenario from stdin when no file is given. Exits with\n" +
			"an error when a call or the verification does not match the scenario.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(cmd, args)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			stop, err := a.startTracing(cmd.Context())
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			defer stop()

			a.logger.Debug("scenario_started", "name", sc.Name, "mocks", len(sc.Mocks), "calls", len(sc.Calls))
			report, err := scenario.Run(cmd.Context(), sc, a.config, a.options()...)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}
			a.logger.Info("scenario_finished", "name", report.Name, "passed", report.Passed)

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("run: encode report: %w", err)
				}
			} else {
				fmt.Fprint(out, report.String())
			}

			if !report.Passed {
				return fmt.Errorf("scenario %q failed", report.Name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

// newDescribeCmd creates the "flexmock describe" subcommand.
func newDescribeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [file]",
		Short: "Print the expectations a scenario declares",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(cmd, args)
			if err != nil {
				return fmt.Errorf("describe: %w", err)
			}
			text, err := scenario.Describe(sc, a.config, a.options()...)
			if err != nil {
				return fmt.Errorf("describe: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

// newVersionCmd creates the "flexmock version" subcommand.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "flexmock %s\n", observability.Version)
		},
	}
}
