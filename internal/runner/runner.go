// Package runner executes a construct program and collects the cloud
// assembly it writes.
//
// The program is an ordinary Go main package that builds an App and calls
// Synth. The runner tells it where to write through WETWIRE_OUTDIR and
// passes context values as a JSON object in WETWIRE_CONTEXT.
package runner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lex00/wetwire-cdk-go/core"
)

// DefaultOutdir is the assembly directory used when none is configured.
const DefaultOutdir = "cdk.out"

// Options configures a run.
type Options struct {
	// Dir is the working directory of the program. Defaults to ".".
	Dir string
	// App is the command line that runs the program. Defaults to
	// "go run ." with -mod=vendor when Dir has a vendor directory.
	App string
	// Outdir receives the assembly, relative to Dir unless absolute.
	Outdir string
	// Context values passed to the program.
	Context map[string]any
	// Env holds extra KEY=VALUE pairs for the program.
	Env []string

	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

// ErrNoAssembly is returned when the program exits cleanly without writing
// a cloud assembly.
var ErrNoAssembly = errors.New("app did not write a cloud assembly (does it call App.Synth?)")

// Synth runs the program and reads back its assembly.
func Synth(ctx context.Context, opts Options) (*core.Assembly, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dir, err := filepath.Abs(defaultString(opts.Dir, "."))
	if err != nil {
		return nil, fmt.Errorf("resolving app directory: %w", err)
	}
	outdir := defaultString(opts.Outdir, DefaultOutdir)
	if !filepath.IsAbs(outdir) {
		outdir = filepath.Join(dir, outdir)
	}

	argv, err := command(opts.App, dir)
	if err != nil {
		return nil, err
	}
	env, err := environment(opts, outdir)
	if err != nil {
		return nil, err
	}

	// A stale manifest would hide a program that forgot to synthesize.
	if err := os.Remove(filepath.Join(outdir, core.ManifestFile)); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("clearing %s: %w", outdir, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdout = opts.Stdout
	if opts.Stderr != nil {
		cmd.Stderr = io.MultiWriter(&stderr, opts.Stderr)
	} else {
		cmd.Stderr = &stderr
	}

	logger.Debug("running app",
		zap.Strings("argv", argv),
		zap.String("dir", dir),
		zap.String("outdir", outdir))
	start := time.Now()
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w\n%s", strings.Join(argv, " "), err, strings.TrimSpace(stderr.String()))
	}
	logger.Debug("app finished", zap.Duration("elapsed", time.Since(start)))

	if _, err := os.Stat(filepath.Join(outdir, core.ManifestFile)); os.IsNotExist(err) {
		return nil, ErrNoAssembly
	}
	asm, err := core.ReadAssembly(outdir)
	if err != nil {
		return nil, err
	}
	logger.Info("synthesized",
		zap.Strings("stacks", asm.StackNames()),
		zap.String("outdir", outdir))
	return asm, nil
}

// command splits the app command line. Quoting is not supported; programs
// that need it can be wrapped in a script.
func command(app, dir string) ([]string, error) {
	if strings.TrimSpace(app) != "" {
		return strings.Fields(app), nil
	}
	if _, err := findGoModInfo(dir); err != nil {
		return nil, fmt.Errorf("no app command configured and %s is not in a Go module: %w", dir, err)
	}
	argv := []string{findGoBinary(), "run"}
	if hasVendorDir(dir) {
		argv = append(argv, "-mod=vendor")
	}
	return append(argv, "."), nil
}

func environment(opts Options, outdir string) ([]string, error) {
	env := append(os.Environ(), opts.Env...)
	env = append(env, core.EnvOutdir+"="+outdir)
	if len(opts.Context) > 0 {
		data, err := json.Marshal(opts.Context)
		if err != nil {
			return nil, fmt.Errorf("encoding context: %w", err)
		}
		env = append(env, core.EnvContext+"="+string(data))
	}
	return env, nil
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
