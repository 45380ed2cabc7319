package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-cdk-go/internal/graph"
)

func newGraphCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat      string
		includeParameters bool
		clusterByType     bool
		templateFile      string
	)

	cmd := &cobra.Command{
		Use:   "graph [stack]",
		Short: "Generate DOT graph of resource dependencies",
		Long: `Generate a DOT or Mermaid format graph showing the resource dependencies
of a synthesized stack. The stack may be omitted when the app has only one.

The output can be rendered with Graphviz:
    wetwire-cdk graph Platform | dot -Tpng -o deps.png

Examples:
    wetwire-cdk graph
    wetwire-cdk graph Platform -p              # include parameters
    wetwire-cdk graph Platform -g              # group by service
    wetwire-cdk graph Platform -f mermaid      # mermaid format
    wetwire-cdk graph -t template.yaml         # existing template`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var graphFormat graph.Format
			switch outputFormat {
			case "dot":
				graphFormat = graph.FormatDOT
			case "mermaid":
				graphFormat = graph.FormatMermaid
			default:
				return fmt.Errorf("unknown format: %s (use 'dot' or 'mermaid')", outputFormat)
			}

			names, templates, err := loadTemplates(cmd.Context(), flags, templateFile, args)
			if err != nil {
				return err
			}
			if len(names) > 1 {
				return fmt.Errorf("the app has %d stacks, name one of %v", len(names), names)
			}

			gen := &graph.Generator{
				Format:            graphFormat,
				IncludeParameters: includeParameters,
				ClusterByType:     clusterByType,
			}
			return gen.Generate(templates[names[0]], cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "dot", "Output format: dot or mermaid")
	cmd.Flags().BoolVarP(&includeParameters, "include-parameters", "p", false, "Include parameter nodes in the graph")
	cmd.Flags().BoolVarP(&clusterByType, "group", "g", false, "Group resources by AWS service")
	cmd.Flags().StringVarP(&templateFile, "template", "t", "", "Graph a template file instead of the app")

	return cmd
}
