// Package validation checks synthesized CloudFormation templates.
//
// Two passes run over a template:
//   - reference checks: every Ref, GetAtt, Sub variable and DependsOn must
//     name something the template defines, and resources must not form a
//     dependency cycle
//   - cfn-lint-go: schema and best-practice rules from the CloudFormation
//     linter (library dependency)
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lex00/cfn-lint-go/pkg/lint"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/differ"
	"github.com/lex00/wetwire-cdk-go/internal/template"
)

// Options configures template validation.
type Options struct {
	// SkipCfnLint disables the cfn-lint pass.
	SkipCfnLint bool
	// Strict reports cfn-lint warnings as errors.
	Strict bool
}

// CfnLintResult contains the result of running cfn-lint.
type CfnLintResult struct {
	Passed        bool     `json:"passed"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	Informational []string `json:"informational"`
}

// TotalIssues returns the total number of issues found.
func (r CfnLintResult) TotalIssues() int {
	return len(r.Errors) + len(r.Warnings) + len(r.Informational)
}

// ValidateFile loads a JSON or YAML template and validates it.
func ValidateFile(path string, opts Options) (*wetwire.ValidateResult, error) {
	tmpl, err := differ.LoadTemplate(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return Validate(tmpl, opts)
}

// Validate runs every validation pass over a template. Problems found in
// the template are reported in the result; the error is reserved for
// failures to run the checks.
func Validate(tmpl *wetwire.Template, opts Options) (*wetwire.ValidateResult, error) {
	result := &wetwire.ValidateResult{Resources: len(tmpl.Resources)}

	result.Errors = append(result.Errors, CheckReferences(tmpl)...)
	errs, warnings := checkResources(tmpl)
	result.Errors = append(result.Errors, errs...)
	result.Warnings = append(result.Warnings, warnings...)

	if !opts.SkipCfnLint {
		cfn, err := lintTemplate(tmpl)
		if err != nil {
			return nil, err
		}
		result.Errors = append(result.Errors, cfn.Errors...)
		if opts.Strict {
			result.Errors = append(result.Errors, cfn.Warnings...)
		} else {
			result.Warnings = append(result.Warnings, cfn.Warnings...)
		}
	}

	result.Success = len(result.Errors) == 0
	return result, nil
}

// CheckReferences returns one message per dangling reference or
// dependency cycle.
func CheckReferences(tmpl *wetwire.Template) []string {
	b := template.NewBuilder()
	var msgs []string
	add := func(err error) {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	for _, id := range sortedKeys(tmpl.Resources) {
		add(b.AddResource(id, tmpl.Resources[id]))
	}
	for _, id := range sortedKeys(tmpl.Parameters) {
		add(b.AddParameter(id, tmpl.Parameters[id]))
	}
	for _, id := range sortedKeys(tmpl.Outputs) {
		add(b.AddOutput(id, tmpl.Outputs[id]))
	}
	for _, id := range sortedKeys(tmpl.Conditions) {
		add(b.AddCondition(id, tmpl.Conditions[id]))
	}
	for _, id := range sortedKeys(tmpl.Mappings) {
		add(b.AddMapping(id, tmpl.Mappings[id]))
	}

	if _, err := b.Build(); err != nil {
		var joined interface{ Unwrap() []error }
		if errors.As(err, &joined) {
			for _, e := range joined.Unwrap() {
				add(e)
			}
		} else {
			add(err)
		}
	}
	return msgs
}

// checkResources applies structural rules CloudFormation enforces at
// deploy time.
func checkResources(tmpl *wetwire.Template) (errs, warnings []string) {
	exports := map[string]string{}
	for _, id := range sortedKeys(tmpl.Resources) {
		def := tmpl.Resources[id]
		switch {
		case def.Type == "":
			errs = append(errs, fmt.Sprintf("resource %s: Type is required", id))
		case strings.HasPrefix(def.Type, "Custom::") || def.Type == "AWS::CloudFormation::CustomResource":
			if _, ok := def.Properties["ServiceToken"]; !ok {
				errs = append(errs, fmt.Sprintf("resource %s: custom resource %s has no ServiceToken", id, def.Type))
			}
		case !strings.HasPrefix(def.Type, "AWS::"):
			warnings = append(warnings, fmt.Sprintf("resource %s: unrecognized resource type %q", id, def.Type))
		}
	}
	for _, id := range sortedKeys(tmpl.Outputs) {
		out := tmpl.Outputs[id]
		if out.Export == nil {
			continue
		}
		name, ok := out.Export.Name.(string)
		if !ok {
			continue
		}
		if prev, dup := exports[name]; dup {
			errs = append(errs, fmt.Sprintf("output %s: export name %q already used by output %s", id, name, prev))
			continue
		}
		exports[name] = id
	}
	return errs, warnings
}

// lintTemplate writes the template to a temporary file for cfn-lint.
func lintTemplate(tmpl *wetwire.Template) (*CfnLintResult, error) {
	data, err := json.MarshalIndent(tmpl, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding template: %w", err)
	}
	dir, err := os.MkdirTemp("", "wetwire-validate-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "template.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, err
	}
	return RunCfnLint(path)
}

// RunCfnLint runs cfn-lint-go on the given template file.
func RunCfnLint(templatePath string) (*CfnLintResult, error) {
	if _, err := os.Stat(templatePath); err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Template file not found: %s", templatePath)},
		}, nil
	}

	linter := lint.New(lint.Options{})
	matches, err := linter.LintFile(templatePath)
	if err != nil {
		return &CfnLintResult{
			Passed: false,
			Errors: []string{fmt.Sprintf("Linter error: %v", err)},
		}, nil
	}

	result := &CfnLintResult{
		Errors:        []string{},
		Warnings:      []string{},
		Informational: []string{},
	}
	for _, match := range matches {
		formatted := formatMatch(match)
		switch match.Level {
		case "Error":
			result.Errors = append(result.Errors, formatted)
		case "Warning":
			result.Warnings = append(result.Warnings, formatted)
		default:
			result.Informational = append(result.Informational, formatted)
		}
	}

	// Warnings are acceptable.
	result.Passed = len(result.Errors) == 0
	return result, nil
}

// formatMatch formats a cfn-lint-go match for display.
func formatMatch(match lint.Match) string {
	pathStr := ""
	if len(match.Location.Path) > 0 {
		parts := make([]string, len(match.Location.Path))
		for i, p := range match.Location.Path {
			parts[i] = fmt.Sprintf("%v", p)
		}
		pathStr = strings.Join(parts, "/")
	}

	if pathStr != "" {
		return fmt.Sprintf("%s: %s (at %s)", match.Rule.ID, match.Message, pathStr)
	}
	return fmt.Sprintf("%s: %s", match.Rule.ID, match.Message)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
