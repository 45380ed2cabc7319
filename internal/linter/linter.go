// Package linter checks Go construct programs for patterns that synthesize
// fragile or incorrect templates.
package linter

import (
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Severity of an issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// Issue is a single finding.
type Issue struct {
	Rule       string
	Message    string
	Suggestion string
	File       string
	Line       int
	Column     int
	Severity   Severity
}

// Result contains the outcome of linting.
type Result struct {
	Success bool
	Issues  []Issue
}

// LintResult converts the result to the CLI contract.
func (r Result) LintResult() wetwire.LintResult {
	out := wetwire.LintResult{Success: r.Success}
	for _, i := range r.Issues {
		out.Issues = append(out.Issues, wetwire.LintIssue{
			File:     i.File,
			Line:     i.Line,
			Column:   i.Column,
			Severity: string(i.Severity),
			Message:  i.Message,
			Rule:     i.Rule,
		})
	}
	return out
}

// Options configures the linter.
type Options struct {
	// Rules to enable. If empty, all rules are enabled.
	EnabledRules []string
	// DisabledRules are skipped even when enabled.
	DisabledRules []string
	// MaxConstructs for the FileTooLarge rule.
	MaxConstructs int
}

// LintFile lints a single Go file.
func LintFile(path string, opts Options) (Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, path, nil, parser.ParseComments)
	if err != nil {
		return Result{}, err
	}
	return newResult(checkFile(file, fset, getRules(opts))), nil
}

// LintSource lints Go source held in memory. name is used in positions.
func LintSource(name string, src []byte, opts Options) (Result, error) {
	fset := token.NewFileSet()
	file, err := parser.ParseFile(fset, name, src, parser.ParseComments)
	if err != nil {
		return Result{}, err
	}
	return newResult(checkFile(file, fset, getRules(opts))), nil
}

// LintPackage lints all non-test Go files in a package directory. A path
// ending in "/..." is walked recursively.
func LintPackage(pkgPath string, opts Options) (Result, error) {
	if strings.HasSuffix(pkgPath, "...") {
		return lintRecursive(strings.TrimSuffix(strings.TrimSuffix(pkgPath, "..."), "/"), opts)
	}

	entries, err := os.ReadDir(pkgPath)
	if err != nil {
		return Result{}, err
	}
	rules := getRules(opts)
	var issues []Issue
	for _, e := range entries {
		if e.IsDir() || !isSourceFile(e.Name()) {
			continue
		}
		fset := token.NewFileSet()
		file, err := parser.ParseFile(fset, filepath.Join(pkgPath, e.Name()), nil, parser.ParseComments)
		if err != nil {
			return Result{}, err
		}
		issues = append(issues, checkFile(file, fset, rules)...)
	}
	return newResult(issues), nil
}

// lintRecursive lints all Go packages below root.
func lintRecursive(root string, opts Options) (Result, error) {
	if root == "" {
		root = "."
	}
	var issues []Issue
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !isSourceFile(d.Name()) {
			return nil
		}
		result, err := LintFile(path, opts)
		if err != nil {
			// Files that do not parse are reported by the compiler.
			return nil
		}
		issues = append(issues, result.Issues...)
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return newResult(issues), nil
}

func isSourceFile(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

func checkFile(file *ast.File, fset *token.FileSet, rules []Rule) []Issue {
	var issues []Issue
	for _, rule := range rules {
		issues = append(issues, rule.Check(file, fset)...)
	}
	return issues
}

func newResult(issues []Issue) Result {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	success := true
	for _, i := range issues {
		if i.Severity == SeverityError {
			success = false
		}
	}
	return Result{Success: success, Issues: issues}
}

// getRules returns the rules to use based on options.
func getRules(opts Options) []Rule {
	all := AllRules()

	if opts.MaxConstructs > 0 {
		for i, r := range all {
			if ftl, ok := r.(FileTooLarge); ok {
				ftl.MaxConstructs = opts.MaxConstructs
				all[i] = ftl
			}
		}
	}

	enabled := make(map[string]bool)
	for _, id := range opts.EnabledRules {
		enabled[id] = true
	}
	disabled := make(map[string]bool)
	for _, id := range opts.DisabledRules {
		disabled[id] = true
	}

	var filtered []Rule
	for _, r := range all {
		if disabled[r.ID()] || (len(enabled) > 0 && !enabled[r.ID()]) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}
