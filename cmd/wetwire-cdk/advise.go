package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/advisor"
)

// stackAdvice holds the suggestions for one stack.
type stackAdvice struct {
	Stack       string                     `json:"stack"`
	Suggestions []wetwire.AdviceSuggestion `json:"suggestions"`
	Summary     wetwire.AdviceSummary      `json:"summary"`
}

func newAdviseCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		opts         advisor.Options
		listRules    bool
		templateFile string
	)

	cmd := &cobra.Command{
		Use:   "advise [stacks...]",
		Short: "Suggest security, reliability and cost improvements",
		Long: `Advise synthesizes the app and checks the EKS, AppSync, DynamoDB and IAM
resources of each stack against best-practice rules.

Examples:
    wetwire-cdk advise
    wetwire-cdk advise --category security
    wetwire-cdk advise --min-severity high --format json
    wetwire-cdk advise --disable EKS-001,APPSYNC-004
    wetwire-cdk advise --rules
    wetwire-cdk advise -t cdk.out/Platform.template.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if listRules {
				return outputRules(cmd.OutOrStdout(), advisor.Rules())
			}
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}
			switch opts.Category {
			case "", "all", advisor.CategorySecurity, advisor.CategoryReliability, advisor.CategoryCost, advisor.CategoryOperations:
			default:
				return fmt.Errorf("unknown category: %s", opts.Category)
			}

			names, templates, err := loadTemplates(cmd.Context(), flags, templateFile, args)
			if err != nil {
				return err
			}

			var advice []stackAdvice
			for _, name := range names {
				result := advisor.Advise(templates[name], opts)
				advice = append(advice, stackAdvice{
					Stack:       name,
					Suggestions: result.Suggestions,
					Summary:     result.Summary,
				})
			}
			return outputAdvice(cmd.OutOrStdout(), advice, outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&opts.Category, "category", "all", "Category: all, security, reliability, cost or operations")
	cmd.Flags().StringVar(&opts.MinSeverity, "min-severity", "", "Minimum severity: low, medium or high")
	cmd.Flags().StringSliceVar(&opts.Disabled, "disable", nil, "Rule IDs to skip")
	cmd.Flags().BoolVar(&listRules, "rules", false, "List the available rules and exit")
	cmd.Flags().StringVarP(&templateFile, "template", "t", "", "Check a template file instead of the app")

	return cmd
}

func outputAdvice(w io.Writer, advice []stackAdvice, format string) error {
	if format == "json" {
		if advice == nil {
			advice = []stackAdvice{}
		}
		return writeJSON(w, advice)
	}
	for _, a := range advice {
		if a.Summary.Total == 0 {
			fmt.Fprintf(w, "%s: no suggestions\n", a.Stack)
			continue
		}
		fmt.Fprintf(w, "%s: %d suggestion(s)\n", a.Stack, a.Summary.Total)
		for _, s := range a.Suggestions {
			fmt.Fprintf(w, "  [%s] %s %s: %s\n", s.Severity, s.Rule, s.Resource, s.Message)
			if s.Fix != "" {
				fmt.Fprintf(w, "      fix: %s\n", s.Fix)
			}
		}
		categories := make([]string, 0, len(a.Summary.ByCategory))
		for c := range a.Summary.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(w, "  %s: %d\n", c, a.Summary.ByCategory[c])
		}
	}
	return nil
}

func outputRules(w io.Writer, rules []advisor.Rule) error {
	for _, r := range rules {
		fmt.Fprintf(w, "%-18s %-12s %-7s %-40s %s\n", r.ID, r.Category, r.Severity, r.Type, r.Title)
	}
	return nil
}
