package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/template"
)

// AssemblyVersion is the manifest schema version written by Synth.
const AssemblyVersion = "36.0.0"

// ManifestFile is the cloud assembly manifest file name.
const ManifestFile = "manifest.json"

// ArtifactTypeStack marks a CloudFormation stack artifact.
const ArtifactTypeStack = "aws:cloudformation:stack"

// Manifest describes the artifacts of a cloud assembly.
type Manifest struct {
	Version   string              `json:"version"`
	Artifacts map[string]Artifact `json:"artifacts"`
}

// Artifact is one deployable unit of a cloud assembly.
type Artifact struct {
	Type         string             `json:"type"`
	Environment  string             `json:"environment,omitempty"`
	Properties   ArtifactProperties `json:"properties"`
	Dependencies []string           `json:"dependencies,omitempty"`
	DisplayName  string             `json:"displayName,omitempty"`
}

// ArtifactProperties holds stack artifact settings.
type ArtifactProperties struct {
	TemplateFile          string            `json:"templateFile"`
	StackName             string            `json:"stackName,omitempty"`
	Tags                  map[string]string `json:"tags,omitempty"`
	TerminationProtection bool              `json:"terminationProtection,omitempty"`
}

// Assembly is the output of synthesis: a manifest plus one template per
// stack, keyed by artifact id.
type Assembly struct {
	Dir       string
	Manifest  Manifest
	Templates map[string]*wetwire.Template
}

func newAssembly() *Assembly {
	return &Assembly{
		Manifest:  Manifest{Version: AssemblyVersion, Artifacts: make(map[string]Artifact)},
		Templates: make(map[string]*wetwire.Template),
	}
}

func (a *Assembly) addStack(s *Stack, tmpl *wetwire.Template) {
	var deps []string
	for _, d := range s.dependencies {
		deps = append(deps, d.name)
	}
	sort.Strings(deps)

	account, region := s.props.Env.Account, s.props.Env.Region
	if account == "" {
		account = "unknown-account"
	}
	if region == "" {
		region = "unknown-region"
	}

	a.Manifest.Artifacts[s.name] = Artifact{
		Type:        ArtifactTypeStack,
		Environment: fmt.Sprintf("aws://%s/%s", account, region),
		Properties: ArtifactProperties{
			TemplateFile:          s.name + ".template.json",
			StackName:             s.name,
			Tags:                  s.props.Tags,
			TerminationProtection: s.props.TerminationProtection,
		},
		Dependencies: deps,
		DisplayName:  s.node.Path(),
	}
	a.Templates[s.name] = tmpl
}

// StackNames returns the stack artifact ids, sorted.
func (a *Assembly) StackNames() []string {
	var names []string
	for id, art := range a.Manifest.Artifacts {
		if art.Type == ArtifactTypeStack {
			names = append(names, id)
		}
	}
	sort.Strings(names)
	return names
}

// Template returns the template of a stack.
func (a *Assembly) Template(stackName string) (*wetwire.Template, error) {
	t, ok := a.Templates[stackName]
	if !ok {
		return nil, fmt.Errorf("stack %q not found in assembly (have %v)", stackName, a.StackNames())
	}
	return t, nil
}

// Write stores the assembly under dir.
func (a *Assembly) Write(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for _, name := range a.StackNames() {
		data, err := template.ToJSON(a.Templates[name])
		if err != nil {
			return fmt.Errorf("serializing %s: %w", name, err)
		}
		path := filepath.Join(dir, a.Manifest.Artifacts[name].Properties.TemplateFile)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
	}
	data, err := json.MarshalIndent(a.Manifest, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing manifest: %w", err)
	}
	a.Dir = dir
	return nil
}

// ReadAssembly loads an assembly written by Write.
func ReadAssembly(dir string) (*Assembly, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, fmt.Errorf("reading cloud assembly: %w", err)
	}
	asm := newAssembly()
	asm.Dir = dir
	if err := json.Unmarshal(data, &asm.Manifest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", ManifestFile, err)
	}
	for _, name := range asm.StackNames() {
		art := asm.Manifest.Artifacts[name]
		raw, err := os.ReadFile(filepath.Join(dir, art.Properties.TemplateFile))
		if err != nil {
			return nil, fmt.Errorf("reading template of %s: %w", name, err)
		}
		var tmpl wetwire.Template
		if err := json.Unmarshal(raw, &tmpl); err != nil {
			return nil, fmt.Errorf("parsing template of %s: %w", name, err)
		}
		asm.Templates[name] = &tmpl
	}
	return asm, nil
}
