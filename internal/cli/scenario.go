package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/lumenplay/gametrics/internal/harness"
)

// ScenarioOptions holds flags for the scenario command.
type ScenarioOptions struct {
	*RootOptions
	Filter string
}

// ScenarioRunResult holds the result of a single scenario execution.
type ScenarioRunResult struct {
	Name     string   `json:"name"`
	Pass     bool     `json:"pass"`
	Failures []string `json:"failures,omitempty"`
}

// ScenarioRunSummary holds the overall run result.
type ScenarioRunSummary struct {
	Scenarios []ScenarioRunResult `json:"scenarios"`
	Passed    int                 `json:"passed"`
	Failed    int                 `json:"failed"`
	Total     int                 `json:"total"`
}

// NewScenarioCommand creates the scenario command group.
func NewScenarioCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ScenarioOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "scenario run <path>",
		Short: "Run conformance scenarios",
	}

	run := &cobra.Command{
		Use:   "run <file-or-dir>",
		Short: "Execute scenario YAML files against the collector",
		Long: `Execute conformance scenario files against the real collector and router.

A directory argument runs every *.yaml file in it (non-recursive).

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (invalid paths, malformed scenarios)

Examples:
  gametrics scenario run ./scenarios
  gametrics scenario run ./scenarios/level_flow.yaml
  gametrics scenario run ./scenarios --filter "queue_*"`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarios(opts, args[0], cmd)
		},
	}
	run.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by file name glob")

	cmd.AddCommand(run)
	return cmd
}

func runScenarios(opts *ScenarioOptions, path string, cmd *cobra.Command) error {
	files, err := findScenarioFiles(path, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	if len(files) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	summary := ScenarioRunSummary{Total: len(files)}
	for _, file := range files {
		res := runOneScenario(file)
		summary.Scenarios = append(summary.Scenarios, res)
		if res.Pass {
			summary.Passed++
		} else {
			summary.Failed++
		}

		if opts.Format == "text" {
			status := "PASS"
			if !res.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", status, res.Name)
			for _, f := range res.Failures {
				fmt.Fprintf(cmd.OutOrStdout(), "      %s\n", f)
			}
		}
	}

	if opts.Format == "json" {
		f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
		if err := f.Success(summary); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d passed, %d failed, %d total\n",
			summary.Passed, summary.Failed, summary.Total)
	}

	if summary.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenarios failed", summary.Failed))
	}
	return nil
}

func runOneScenario(path string) ScenarioRunResult {
	name := filepath.Base(path)

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		return ScenarioRunResult{Name: name, Failures: []string{err.Error()}}
	}

	result, err := harness.Run(scenario)
	if err != nil {
		return ScenarioRunResult{Name: scenario.Name, Failures: []string{err.Error()}}
	}

	return ScenarioRunResult{
		Name:     scenario.Name,
		Pass:     result.Passed,
		Failures: result.Failures,
	}
}

// findScenarioFiles resolves a file or directory argument to scenario paths,
// sorted for deterministic run order.
func findScenarioFiles(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}
		if filter != "" {
			match, err := filepath.Match(filter, entry.Name())
			if err != nil {
				return nil, fmt.Errorf("invalid filter %q: %w", filter, err)
			}
			if !match {
				continue
			}
		}
		files = append(files, filepath.Join(path, entry.Name()))
	}

	sort.Strings(files)
	return files, nil
}
