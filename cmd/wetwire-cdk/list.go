package main

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
)

func newListCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		long         bool
	)

	cmd := &cobra.Command{
		Use:   "list [stacks...]",
		Short: "List stacks and their resources",
		Long: `List synthesizes the app and shows each stack with its resources.

Examples:
    wetwire-cdk list
    wetwire-cdk list --long
    wetwire-cdk list Platform --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}
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
			return outputListResult(cmd.OutOrStdout(), buildListResult(asm, names), outputFormat, long)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "Show resources of each stack")

	return cmd
}

func buildListResult(asm *core.Assembly, names []string) wetwire.ListResult {
	result := wetwire.ListResult{Stacks: make([]wetwire.ListStack, 0, len(names))}
	for _, name := range names {
		stack := wetwire.ListStack{Name: name, Resources: []wetwire.ListResource{}}
		for id, def := range asm.Templates[name].Resources {
			path, _ := def.Metadata[core.MetadataPath].(string)
			stack.Resources = append(stack.Resources, wetwire.ListResource{
				LogicalID: id,
				Type:      def.Type,
				Path:      path,
			})
		}
		sort.Slice(stack.Resources, func(i, j int) bool {
			return stack.Resources[i].LogicalID < stack.Resources[j].LogicalID
		})
		result.Stacks = append(result.Stacks, stack)
	}
	return result
}

func outputListResult(w io.Writer, result wetwire.ListResult, format string, long bool) error {
	if format == "json" {
		return writeJSON(w, result)
	}
	if len(result.Stacks) == 0 {
		fmt.Fprintln(w, "No stacks found.")
		return nil
	}
	for _, s := range result.Stacks {
		if !long {
			fmt.Fprintln(w, s.Name)
			continue
		}
		fmt.Fprintf(w, "%s (%d resources)\n", s.Name, len(s.Resources))
		for _, r := range s.Resources {
			fmt.Fprintf(w, "  %-40s %-36s %s\n", r.LogicalID, r.Type, r.Path)
		}
	}
	return nil
}
