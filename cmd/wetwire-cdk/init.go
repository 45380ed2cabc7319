package main

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
	"github.com/iancoleman/strcase"
	"github.com/spf13/cobra"

	"github.com/lex00/wetwire-cdk-go/internal/config"
)

// fallbackModuleVersion is required by generated go.mod files when the CLI
// itself was built from source.
const fallbackModuleVersion = "v0.1.0"

// validProjectName matches valid Go module/project names (alphanumeric, hyphens, underscores)
var validProjectName = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

//go:embed templates/*.tmpl
var projectTemplates embed.FS

// projectFiles maps generated file names to their templates.
var projectFiles = map[string]string{
	"go.mod":         "go.mod.tmpl",
	"main.go":        "main.go.tmpl",
	"schema.graphql": "schema.graphql.tmpl",
	".gitignore":     "gitignore.tmpl",
}

type initData struct {
	Project string
	Module  string
	Version string
	Stack   string
	Output  string
}

func newInitCmd() *cobra.Command {
	var module string

	cmd := &cobra.Command{
		Use:   "init [project-name]",
		Short: "Create a new wetwire-cdk project",
		Long: `Init creates a new Go construct program with wetwire-cdk configured.

The project is created in a subdirectory with the given name and contains
an EKS cluster and an AppSync API backed by DynamoDB to start from.

Examples:
    wetwire-cdk init platform                        # Creates ./platform/
    wetwire-cdk init platform --module example.com/platform`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd.OutOrStdout(), ".", args[0], module)
		},
	}

	cmd.Flags().StringVar(&module, "module", "", "Go module path (default: the project name)")

	return cmd
}

// runInit creates a new project in {workspaceDir}/{projectName}/
func runInit(w io.Writer, workspaceDir, projectName, module string) error {
	if !validProjectName.MatchString(projectName) {
		return fmt.Errorf("invalid project name %q: must start with a letter and contain only letters, numbers, hyphens, or underscores", projectName)
	}

	projectPath := filepath.Join(workspaceDir, projectName)
	if _, err := os.Stat(projectPath); err == nil {
		return fmt.Errorf("project already exists: %s", projectPath)
	}
	if err := os.MkdirAll(projectPath, 0o755); err != nil {
		return fmt.Errorf("creating project directory: %w", err)
	}

	cfg := config.Default()
	data := initData{
		Project: projectName,
		Module:  module,
		Version: getVersion(),
		Stack:   stackID(projectName),
		Output:  cfg.Output,
	}
	if data.Module == "" {
		data.Module = projectName
	}
	if !strings.HasPrefix(data.Version, "v") {
		data.Version = fallbackModuleVersion
	}

	for name, tmplName := range projectFiles {
		content, err := renderProjectFile(tmplName, data)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(projectPath, name), content, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := cfg.Write(projectPath); err != nil {
		return fmt.Errorf("writing %s: %w", config.FileName, err)
	}

	fmt.Fprintf(w, "Created %s\n\n", projectPath)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintf(w, "  cd %s\n", projectName)
	fmt.Fprintln(w, "  go mod tidy")
	fmt.Fprintln(w, "  wetwire-cdk synth")
	return nil
}

func renderProjectFile(name string, data initData) ([]byte, error) {
	content, err := projectTemplates.ReadFile("templates/" + name)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Funcs(sprig.HermeticTxtFuncMap()).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// stackID turns a project name such as "data-platform" into "DataPlatform".
func stackID(projectName string) string {
	return strcase.ToCamel(projectName)
}
