package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lex00/wetwire-cdk-go/internal/config"
	"github.com/lex00/wetwire-cdk-go/internal/linter"
)

// newWatchCmd creates the "watch" subcommand for re-synthesizing on file
// changes.
func newWatchCmd(flags *globalFlags) *cobra.Command {
	var (
		lintOnly bool
		skipLint bool
		debounce time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-synthesize on source file changes",
		Long: `Watch monitors the project for changes and re-synthesizes the app.

The watch command:
- Watches files matching watch.include and not watch.exclude in wetwire-cdk.yaml
- Runs lint on each change
- Synthesizes if lint passes (unless --lint-only)
- Debounces rapid changes to avoid excessive rebuilds

Examples:
    wetwire-cdk watch
    wetwire-cdk watch --lint-only
    wetwire-cdk watch --debounce 1s`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadProject(flags)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				p.cfg.Watch.Debounce = debounce
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			w := &watcher{project: p, lintOnly: lintOnly, skipLint: skipLint, out: cmd.OutOrStdout()}
			return w.run(ctx)
		},
	}

	cmd.Flags().BoolVar(&lintOnly, "lint-only", false, "Only run lint, skip synthesis")
	cmd.Flags().BoolVar(&skipLint, "skip-lint", false, "Synthesize without linting first")
	cmd.Flags().DurationVar(&debounce, "debounce", 500*time.Millisecond, "Debounce duration for rapid changes (overrides config)")

	return cmd
}

type watcher struct {
	project  *project
	lintOnly bool
	skipLint bool
	out      io.Writer
}

func (w *watcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() {
		_ = fsw.Close()
	}()

	if err := w.addDirRecursive(fsw, w.project.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.project.dir, err)
	}
	fmt.Fprintf(w.out, "Watching: %s\n", w.project.dir)

	w.cycle(ctx)
	fmt.Fprintln(w.out, "\nWatching for changes... (Ctrl+C to stop)")

	var debounceTimer *time.Timer
	rebuild := make(chan struct{}, 1)

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.addDirRecursive(fsw, event.Name)
					continue
				}
			}
			if !w.relevant(event) {
				continue
			}
			w.project.logger.Debug("change", zap.String("file", event.Name), zap.String("op", event.Op.String()))

			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.project.cfg.Watch.Debounce, func() {
				select {
				case rebuild <- struct{}{}:
				default:
				}
			})

		case <-rebuild:
			fmt.Fprintf(w.out, "\n[%s] Change detected, rebuilding...\n", time.Now().Format("15:04:05"))
			w.cycle(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.project.logger.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			fmt.Fprintln(w.out, "\nStopping watch...")
			return nil
		}
	}
}

// relevant reports whether an event should trigger a rebuild.
func (w *watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	rel, err := filepath.Rel(w.project.dir, event.Name)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	return w.project.cfg.Watch.Matches(filepath.ToSlash(rel))
}

// addDirRecursive watches dir and its subdirectories, skipping hidden and
// excluded ones such as the assembly directory.
func (w *watcher) addDirRecursive(fsw *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.project.dir {
			if strings.HasPrefix(d.Name(), ".") || w.excludedDir(path) {
				return filepath.SkipDir
			}
		}
		return fsw.Add(path)
	})
}

func (w *watcher) excludedDir(path string) bool {
	rel, err := filepath.Rel(w.project.dir, path)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	if rel == filepath.ToSlash(filepath.Clean(w.project.cfg.Output)) || rel == "vendor" {
		return true
	}
	probe := config.Watch{Include: []string{"**"}, Exclude: w.project.cfg.Watch.Exclude}
	return !probe.Matches(rel + "/x")
}

// cycle lints the project and, when lint passes, synthesizes it.
func (w *watcher) cycle(ctx context.Context) {
	if !w.skipLint {
		result, err := linter.LintPackage(filepath.Join(w.project.dir, "..."), linter.Options{})
		if err != nil {
			fmt.Fprintf(w.out, "Lint error: %v\n", err)
			return
		}
		_ = outputLintResult(w.out, result.LintResult(), "text")
		if !result.Success {
			fmt.Fprintln(w.out, "Lint failed, skipping synthesis")
			return
		}
	}
	if w.lintOnly {
		return
	}
	asm, err := w.project.synth(ctx)
	if err != nil {
		fmt.Fprintf(w.out, "Synthesis failed: %v\n", err)
		return
	}
	_ = outputSynthResult(w.out, synthResult(asm), "text")
}
