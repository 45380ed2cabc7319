// Command wetwire-cdk synthesizes CloudFormation templates from Go construct
// programs.
//
// Usage:
//
//	wetwire-cdk synth                 Run the app and write cdk.out
//	wetwire-cdk list                  List stacks and resources
//	wetwire-cdk diff                  Compare with the previous synthesis
//	wetwire-cdk validate              Check synthesized templates
//	wetwire-cdk advise                Suggest security and reliability fixes
//	wetwire-cdk lint ./...            Check construct code for issues
//	wetwire-cdk deploy [stacks...]    Deploy stacks with CloudFormation
//	wetwire-cdk watch                 Re-synthesize on source changes
//	wetwire-cdk init myproject        Create new project
//	wetwire-cdk version               Show version
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var flags globalFlags

	rootCmd := &cobra.Command{
		Use:   "wetwire-cdk",
		Short: "Synthesize CloudFormation templates from Go constructs",
		Long: `wetwire-cdk synthesizes CloudFormation templates from Go construct programs.

Define your infrastructure as a program:

    app, _ := core.NewApp(nil)
    stack, _ := core.NewStack(app, "Platform", nil)
    cluster, _ := eks.NewCluster(stack, "Cluster", eks.ClusterProps{
        Version: eks.V1_31,
    })
    app.Synth()

Then synthesize the cloud assembly:

    wetwire-cdk synth`,
		SilenceUsage: true,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flags.dir, "dir", "C", ".", "Project directory")
	pf.StringVarP(&flags.app, "app", "a", "", "Command that runs the construct program (overrides config)")
	pf.StringVarP(&flags.output, "output", "o", "", "Cloud assembly directory (overrides config)")
	pf.StringToStringVarP(&flags.context, "context", "c", nil, "Context values passed to the app (key=value)")
	pf.BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	pf.BoolVar(&flags.jsonLogs, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(
		newSynthCmd(&flags),
		newListCmd(&flags),
		newDiffCmd(&flags),
		newGraphCmd(&flags),
		newValidateCmd(&flags),
		newAdviseCmd(&flags),
		newLintCmd(),
		newDeployCmd(&flags),
		newWatchCmd(&flags),
		newInitCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "wetwire-cdk %s\n", getVersion())
		},
	}
}
