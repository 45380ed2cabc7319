package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/internal/config"
	"github.com/lex00/wetwire-cdk-go/internal/differ"
	"github.com/lex00/wetwire-cdk-go/internal/logging"
	"github.com/lex00/wetwire-cdk-go/internal/runner"
)

// globalFlags are shared by every command that runs the app.
type globalFlags struct {
	dir      string
	app      string
	output   string
	context  map[string]string
	verbose  bool
	jsonLogs bool
}

// project is a loaded configuration plus the logger for one invocation.
type project struct {
	dir    string
	cfg    *config.Config
	logger *zap.Logger
}

// loadProject reads the project configuration and applies flag overrides.
func loadProject(flags *globalFlags) (*project, error) {
	dir, err := filepath.Abs(flags.dir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if flags.app != "" {
		cfg.App = flags.app
	}
	if flags.output != "" {
		cfg.Output = flags.output
	}
	if cfg.Context == nil {
		cfg.Context = map[string]any{}
	}
	for k, v := range flags.context {
		cfg.Context[k] = v
	}
	logger := logging.New(logging.Options{Verbose: flags.verbose, JSON: flags.jsonLogs})
	if cfg.Path != "" {
		logger.Debug("loaded config", zap.String("path", cfg.Path))
	}
	return &project{dir: dir, cfg: cfg, logger: logger}, nil
}

// outdir returns the absolute assembly directory.
func (p *project) outdir() string {
	if filepath.IsAbs(p.cfg.Output) {
		return p.cfg.Output
	}
	return filepath.Join(p.dir, p.cfg.Output)
}

// synth runs the app and returns its assembly. The app's own output goes
// to stderr so that stdout stays machine readable.
func (p *project) synth(ctx context.Context) (*core.Assembly, error) {
	return runner.Synth(ctx, runner.Options{
		Dir:     p.dir,
		App:     p.cfg.App,
		Outdir:  p.cfg.Output,
		Context: p.cfg.Context,
		Stdout:  os.Stderr,
		Stderr:  os.Stderr,
		Logger:  p.logger,
	})
}

// selectStacks returns the named stacks, or every stack when names is
// empty.
func selectStacks(asm *core.Assembly, names []string) ([]string, error) {
	if len(names) == 0 {
		all := asm.StackNames()
		if len(all) == 0 {
			return nil, fmt.Errorf("the app defines no stacks")
		}
		return all, nil
	}
	for _, n := range names {
		if _, err := asm.Template(n); err != nil {
			return nil, err
		}
	}
	return names, nil
}

// synthResult summarizes an assembly.
func synthResult(asm *core.Assembly) wetwire.SynthResult {
	result := wetwire.SynthResult{Success: true, OutDir: asm.Dir}
	for _, name := range asm.StackNames() {
		result.Stacks = append(result.Stacks, wetwire.StackResult{
			Name:         name,
			TemplateFile: asm.Manifest.Artifacts[name].Properties.TemplateFile,
			Resources:    len(asm.Templates[name].Resources),
		})
	}
	return result
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func checkFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unknown format: %s (use %v)", format, allowed)
}

// loadTemplates returns the named stack templates of a fresh synthesis, or
// the single template in file when one is given.
func loadTemplates(ctx context.Context, flags *globalFlags, file string, names []string) ([]string, map[string]*wetwire.Template, error) {
	if file != "" {
		tmpl, err := differ.LoadTemplate(file)
		if err != nil {
			return nil, nil, fmt.Errorf("loading %s: %w", file, err)
		}
		name := filepath.Base(file)
		return []string{name}, map[string]*wetwire.Template{name: tmpl}, nil
	}
	p, err := loadProject(flags)
	if err != nil {
		return nil, nil, err
	}
	asm, err := p.synth(ctx)
	if err != nil {
		return nil, nil, err
	}
	names, err = selectStacks(asm, names)
	if err != nil {
		return nil, nil, err
	}
	return names, asm.Templates, nil
}
