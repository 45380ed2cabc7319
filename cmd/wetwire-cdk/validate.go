package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/validation"
)

// namedValidation is the validation result of one stack or file.
type namedValidation struct {
	Name string `json:"name"`
	wetwire.ValidateResult
}

func newValidateCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		skipCfnLint  bool
		strict       bool
		files        bool
	)

	cmd := &cobra.Command{
		Use:   "validate [stacks...]",
		Short: "Validate synthesized templates",
		Long: `Validate synthesizes the app and checks every template for dangling
references, dependency cycles and resource errors, then runs cfn-lint.

With --files, the arguments are template files to check instead.

Examples:
    wetwire-cdk validate
    wetwire-cdk validate --strict
    wetwire-cdk validate --files cdk.out/Platform.template.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}
			opts := validation.Options{SkipCfnLint: skipCfnLint, Strict: strict}

			var results []namedValidation
			if files {
				if len(args) == 0 {
					return fmt.Errorf("--files requires at least one template file")
				}
				for _, path := range args {
					r, err := validation.ValidateFile(path, opts)
					if err != nil {
						return err
					}
					results = append(results, namedValidation{Name: path, ValidateResult: *r})
				}
			} else {
				p, err := loadProject(flags)
				if err != nil {
					return err
				}
				asm, err := p.synth(cmd.Context())
				if err != nil {
					return err
				}
				names, err := selectStacks(asm, args)
				if err != nil {
					return err
				}
				for _, name := range names {
					r, err := validation.Validate(asm.Templates[name], opts)
					if err != nil {
						return fmt.Errorf("validating %s: %w", name, err)
					}
					results = append(results, namedValidation{Name: name, ValidateResult: *r})
				}
			}

			if err := outputValidateResults(cmd.OutOrStdout(), results, outputFormat); err != nil {
				return err
			}
			for _, r := range results {
				if !r.Success {
					cmd.SilenceErrors = true
					return fmt.Errorf("validation failed")
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&skipCfnLint, "skip-cfn-lint", false, "Skip cfn-lint checks")
	cmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
	cmd.Flags().BoolVar(&files, "files", false, "Validate template files instead of the app")

	return cmd
}

func outputValidateResults(w io.Writer, results []namedValidation, format string) error {
	if format == "json" {
		if results == nil {
			results = []namedValidation{}
		}
		return writeJSON(w, results)
	}
	for _, r := range results {
		status := "valid"
		if !r.Success {
			status = "invalid"
		}
		fmt.Fprintf(w, "%s: %s (%d resources)\n", r.Name, status, r.Resources)
		for _, e := range r.Errors {
			fmt.Fprintf(w, "  error: %s\n", e)
		}
		for _, warn := range r.Warnings {
			fmt.Fprintf(w, "  warning: %s\n", warn)
		}
	}
	return nil
}
