package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/internal/deploy"
)

type deployOptions struct {
	format      string
	parameters  map[string]string
	exclusively bool
	noWait      bool
	timeout     time.Duration
	region      string
	profile     string
}

func newDeployCmd(flags *globalFlags) *cobra.Command {
	var opts deployOptions

	cmd := &cobra.Command{
		Use:   "deploy [stacks...]",
		Short: "Deploy stacks with CloudFormation",
		Long: `Deploy synthesizes the app and creates or updates each stack with
CloudFormation, dependencies first. Credentials come from the standard AWS
configuration chain.

Parameters are given as KEY=VALUE and passed to every stack that declares
them.

Examples:
    wetwire-cdk deploy
    wetwire-cdk deploy Api --exclusively
    wetwire-cdk deploy --parameters Env=prod --region eu-west-1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(opts.format, "text", "json"); err != nil {
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
			if _, err := selectStacks(asm, args); err != nil {
				return err
			}
			order, err := deployOrder(asm, args, opts.exclusively)
			if err != nil {
				return err
			}

			region, profile := p.cfg.Region, p.cfg.Profile
			if opts.region != "" {
				region = opts.region
			}
			if opts.profile != "" {
				profile = opts.profile
			}
			client, err := deploy.NewClient(cmd.Context(), region, profile)
			if err != nil {
				return err
			}
			deployer := deploy.New(client, p.logger)

			var results []*deploy.Result
			for _, name := range order {
				art := asm.Manifest.Artifacts[name]
				tmpl := asm.Templates[name]
				p.logger.Info("deploying", zap.String("stack", name))
				result, err := deployer.Deploy(cmd.Context(), deploy.Request{
					StackName:             stackName(name, art),
					Template:              tmpl,
					Parameters:            declaredParameters(tmpl.Parameters, opts.parameters),
					Tags:                  art.Properties.Tags,
					TerminationProtection: art.Properties.TerminationProtection,
					Wait:                  !opts.noWait,
					Timeout:               opts.timeout,
				})
				if err != nil {
					return err
				}
				results = append(results, result)
			}
			return outputDeployResults(cmd.OutOrStdout(), results, opts.format)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text or json")
	cmd.Flags().StringToStringVar(&opts.parameters, "parameters", nil, "Stack parameters (KEY=VALUE)")
	cmd.Flags().BoolVarP(&opts.exclusively, "exclusively", "e", false, "Only deploy the named stacks, not their dependencies")
	cmd.Flags().BoolVar(&opts.noWait, "no-wait", false, "Return once the stack operation has started")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", deploy.DefaultTimeout, "Maximum time to wait per stack")
	cmd.Flags().StringVar(&opts.region, "region", "", "AWS region (overrides config)")
	cmd.Flags().StringVar(&opts.profile, "profile", "", "AWS shared config profile (overrides config)")

	return cmd
}

func stackName(id string, art core.Artifact) string {
	if art.Properties.StackName != "" {
		return art.Properties.StackName
	}
	return id
}

// deployOrder returns the stacks to deploy with every stack after the
// stacks it depends on. Unless exclusively is set, dependencies of the
// selected stacks are included.
func deployOrder(asm *core.Assembly, selected []string, exclusively bool) ([]string, error) {
	want := map[string]bool{}
	var visit func(name string)
	visit = func(name string) {
		if want[name] {
			return
		}
		want[name] = true
		if exclusively {
			return
		}
		for _, dep := range asm.Manifest.Artifacts[name].Dependencies {
			visit(dep)
		}
	}
	if len(selected) == 0 {
		selected = asm.StackNames()
	}
	for _, name := range selected {
		visit(name)
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for name := range want {
		if err := g.AddVertex(name); err != nil {
			return nil, err
		}
	}
	for name := range want {
		for _, dep := range asm.Manifest.Artifacts[name].Dependencies {
			if !want[dep] {
				continue
			}
			err := g.AddEdge(dep, name)
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, fmt.Errorf("stacks %s and %s depend on each other", dep, name)
			default:
				return nil, err
			}
		}
	}
	return graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
}

// declaredParameters keeps the values for parameters the template declares.
func declaredParameters[P any](declared map[string]P, values map[string]string) map[string]string {
	out := map[string]string{}
	for k, v := range values {
		if _, ok := declared[k]; ok {
			out[k] = v
		}
	}
	return out
}

func outputDeployResults(w io.Writer, results []*deploy.Result, format string) error {
	if format == "json" {
		if results == nil {
			results = []*deploy.Result{}
		}
		return writeJSON(w, results)
	}
	for _, r := range results {
		switch r.Operation {
		case deploy.OperationNone:
			fmt.Fprintf(w, "%s: no changes\n", r.StackName)
		default:
			fmt.Fprintf(w, "%s: %s %s\n", r.StackName, r.Operation, r.Status)
		}
		keys := make([]string, 0, len(r.Outputs))
		for k := range r.Outputs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "  %s = %s\n", k, r.Outputs[k])
		}
	}
	return nil
}
