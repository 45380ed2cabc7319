package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/internal/template"
)

func newSynthCmd(flags *globalFlags) *cobra.Command {
	var (
		outputFormat string
		printFormat  string
	)

	cmd := &cobra.Command{
		Use:   "synth [stacks...]",
		Short: "Run the app and write the cloud assembly",
		Long: `Synth runs the construct program and writes one CloudFormation template
per stack plus manifest.json to the assembly directory (cdk.out by default).

Examples:
    wetwire-cdk synth
    wetwire-cdk synth --format json
    wetwire-cdk synth Platform --print yaml
    wetwire-cdk synth -c env=prod`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(outputFormat, "text", "json"); err != nil {
				return err
			}
			if printFormat != "" {
				if err := checkFormat(printFormat, "json", "yaml"); err != nil {
					return err
				}
			}
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			asm, err := p.synth(cmd.Context())
			if err != nil {
				if outputFormat == "json" {
					_ = writeJSON(cmd.OutOrStdout(), wetwire.SynthResult{Errors: []string{err.Error()}})
				}
				return err
			}
			names, err := selectStacks(asm, args)
			if err != nil {
				return err
			}
			if printFormat != "" {
				return printTemplates(cmd.OutOrStdout(), asm, names, printFormat)
			}
			return outputSynthResult(cmd.OutOrStdout(), synthResult(asm), outputFormat)
		},
	}

	cmd.Flags().StringVarP(&outputFormat, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringVar(&printFormat, "print", "", "Print the templates to stdout instead of a summary: json or yaml")

	return cmd
}

func printTemplates(w io.Writer, asm *core.Assembly, names []string, format string) error {
	for i, name := range names {
		tmpl, err := asm.Template(name)
		if err != nil {
			return err
		}
		var data []byte
		if format == "yaml" {
			data, err = template.ToYAML(tmpl)
		} else {
			data, err = template.ToJSON(tmpl)
		}
		if err != nil {
			return fmt.Errorf("serializing %s: %w", name, err)
		}
		if i > 0 && format == "yaml" {
			fmt.Fprintln(w, "---")
		}
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	return nil
}

func outputSynthResult(w io.Writer, result wetwire.SynthResult, format string) error {
	if format == "json" {
		return writeJSON(w, result)
	}
	for _, s := range result.Stacks {
		fmt.Fprintf(w, "%-30s %3d resources  %s\n", s.Name, s.Resources, s.TemplateFile)
	}
	fmt.Fprintf(w, "Synthesized %d stack(s) to %s\n", len(result.Stacks), result.OutDir)
	return nil
}
