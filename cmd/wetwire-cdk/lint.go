package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/linter"
)

func newLintCmd() *cobra.Command {
	var (
		outputFormat string
		opts         linter.Options
	)

	cmd := &cobra.Command{
		Use:   "lint [packages...]",
		Short: "Check construct code for issues",
		Long: `Lint checks Go packages that define constructs for common issues.

Rules:
    WCDK001: Use pseudo-parameter constants instead of hardcoded strings
    WCDK002: Use intrinsic types instead of raw map[string]any
    WCDK003: Construct errors must not be discarded
    WCDK004: Construct IDs must be unique within a scope
    WCDK005: Avoid hardcoded account IDs
    WCDK006: Pin Helm chart versions
    WCDK007: Avoid Kubernetes versions past standard support
    WCDK008: Split files that declare too many constructs

Examples:
    wetwire-cdk lint ./...
    wetwire-cdk lint ./infra --disable WCDK008
    wetwire-cdk lint ./... --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}
			if len(args) == 0 {
				args = []string{"./..."}
			}
			result, err := runLint(args, opts)
			if err != nil {
				return err
			}
			if err := outputLintResult(cmd.OutOrStdout(), result, outputFormat); err != nil {
				return err
			}
			if !result.Success {
				cmd.SilenceErrors = true
				return fmt.Errorf("lint failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringSliceVar(&opts.EnabledRules, "enable", nil, "Only run these rule IDs")
	cmd.Flags().StringSliceVar(&opts.DisabledRules, "disable", nil, "Skip these rule IDs")
	cmd.Flags().IntVar(&opts.MaxConstructs, "max-constructs", 0, "Construct limit per file for WCDK008")

	return cmd
}

// runLint lints each package and merges the results.
func runLint(packages []string, opts linter.Options) (wetwire.LintResult, error) {
	merged := wetwire.LintResult{Success: true}
	for _, pkg := range packages {
		result, err := linter.LintPackage(pkg, opts)
		if err != nil {
			return wetwire.LintResult{}, fmt.Errorf("linting %s: %w", pkg, err)
		}
		lr := result.LintResult()
		merged.Issues = append(merged.Issues, lr.Issues...)
		merged.Success = merged.Success && lr.Success
	}
	return merged, nil
}

func outputLintResult(w io.Writer, result wetwire.LintResult, format string) error {
	if format == "json" {
		return writeJSON(w, result)
	}
	if len(result.Issues) == 0 {
		fmt.Fprintln(w, "No issues found.")
		return nil
	}
	for _, issue := range result.Issues {
		fmt.Fprintf(w, "%s:%d:%d: %s: %s [%s]\n",
			issue.File, issue.Line, issue.Column,
			issue.Severity, issue.Message, issue.Rule)
	}
	return nil
}
