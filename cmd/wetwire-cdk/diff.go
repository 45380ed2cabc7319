package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/internal/differ"
)

// errDifferences makes --fail exit non-zero without printing usage.
var errDifferences = errors.New("templates differ")

type diffOptions struct {
	format         string
	ignoreOrder    bool
	ignoreMetadata bool
	files          bool
	fail           bool
}

// stackDiff is the diff of one stack.
type stackDiff struct {
	Stack   string               `json:"stack"`
	Diff    wetwire.TemplateDiff `json:"diff"`
	Summary wetwire.DiffSummary  `json:"summary"`
}

func newDiffCmd(flags *globalFlags) *cobra.Command {
	var opts diffOptions

	cmd := &cobra.Command{
		Use:   "diff [stacks...]",
		Short: "Compare templates with the previous synthesis",
		Long: `Diff reads the templates left in the assembly directory by the last
synthesis, synthesizes the app again and reports the changes per stack.

With --files, diff compares two template files (JSON or YAML) instead.

Examples:
    wetwire-cdk diff
    wetwire-cdk diff Platform --format json
    wetwire-cdk diff --files old.template.json new.template.yaml
    wetwire-cdk diff --ignore-order --fail`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
				return err
			}
			dopts := differ.Options{IgnoreOrder: opts.ignoreOrder, IgnoreMetadata: opts.ignoreMetadata}

			var diffs []stackDiff
			if opts.files {
				if len(args) != 2 {
					return fmt.Errorf("--files requires exactly two template files")
				}
				result, err := differ.CompareFiles(args[0], args[1], dopts)
				if err != nil {
					return err
				}
				diffs = append(diffs, stackDiff{Stack: filepath.Base(args[1]), Diff: result.Diff, Summary: result.Summary})
			} else {
				p, err := loadProject(flags)
				if err != nil {
					return err
				}
				previous, err := readPrevious(p.outdir())
				if err != nil {
					return err
				}
				asm, err := p.synth(cmd.Context())
				if err != nil {
					return err
				}
				diffs, err = diffAssemblies(previous, asm, args, dopts)
				if err != nil {
					return err
				}
			}

			if err := outputDiffs(cmd.OutOrStdout(), diffs, opts.format); err != nil {
				return err
			}
			if opts.fail {
				for _, d := range diffs {
					if d.Summary.Total > 0 || len(d.Diff.Outputs) > 0 {
						cmd.SilenceErrors = true
						return errDifferences
					}
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().BoolVar(&opts.ignoreOrder, "ignore-order", false, "Ignore list element order")
	cmd.Flags().BoolVar(&opts.ignoreMetadata, "ignore-metadata", true, "Ignore resource Metadata such as construct paths")
	cmd.Flags().BoolVar(&opts.files, "files", false, "Compare two template files")
	cmd.Flags().BoolVar(&opts.fail, "fail", false, "Exit with status 1 when there are differences")

	return cmd
}

// readPrevious loads the assembly of the last synthesis. A missing
// assembly reads as empty so that every resource shows as added.
func readPrevious(dir string) (*core.Assembly, error) {
	if _, err := os.Stat(filepath.Join(dir, core.ManifestFile)); os.IsNotExist(err) {
		return &core.Assembly{Templates: map[string]*wetwire.Template{}}, nil
	}
	return core.ReadAssembly(dir)
}

// diffAssemblies compares the named stacks, or every stack in either
// assembly when names is empty.
func diffAssemblies(prev, next *core.Assembly, names []string, opts differ.Options) ([]stackDiff, error) {
	if len(names) == 0 {
		seen := map[string]bool{}
		for name := range prev.Templates {
			seen[name] = true
		}
		for name := range next.Templates {
			seen[name] = true
		}
		for name := range seen {
			names = append(names, name)
		}
		sort.Strings(names)
	}

	var diffs []stackDiff
	for _, name := range names {
		before, after := prev.Templates[name], next.Templates[name]
		if before == nil && after == nil {
			return nil, fmt.Errorf("stack %q not found", name)
		}
		if before == nil {
			before = &wetwire.Template{}
		}
		if after == nil {
			after = &wetwire.Template{}
		}
		result, err := differ.Compare(before, after, opts)
		if err != nil {
			return nil, fmt.Errorf("comparing %s: %w", name, err)
		}
		diffs = append(diffs, stackDiff{Stack: name, Diff: result.Diff, Summary: result.Summary})
	}
	return diffs, nil
}

func outputDiffs(w io.Writer, diffs []stackDiff, format string) error {
	if format == "json" {
		if diffs == nil {
			diffs = []stackDiff{}
		}
		return writeJSON(w, diffs)
	}
	for _, d := range diffs {
		fmt.Fprintf(w, "Stack %s\n", d.Stack)
		if d.Summary.Total == 0 && len(d.Diff.Outputs) == 0 {
			fmt.Fprintln(w, "  There were no differences")
			continue
		}
		for _, e := range d.Diff.Added {
			fmt.Fprintf(w, "  [+] %s %s\n", e.Type, e.Resource)
		}
		for _, e := range d.Diff.Removed {
			fmt.Fprintf(w, "  [-] %s %s\n", e.Type, e.Resource)
		}
		for _, e := range d.Diff.Modified {
			fmt.Fprintf(w, "  [~] %s %s\n", e.Type, e.Resource)
			for _, c := range e.Changes {
				fmt.Fprintf(w, "      %s\n", c)
			}
		}
		for _, o := range d.Diff.Outputs {
			fmt.Fprintf(w, "  Output %s\n", o)
		}
		fmt.Fprintf(w, "  %d added, %d removed, %d modified\n", d.Summary.Added, d.Summary.Removed, d.Summary.Modified)
	}
	return nil
}
