// Package template assembles CloudFormation templates from synthesized
// stack elements and checks that every reference inside them resolves.
package template

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dominikbraun/graph"
	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

// FormatVersion is the only CloudFormation template format version.
const FormatVersion = "2010-09-09"

// Builder constructs a CloudFormation template from resolved elements.
// Properties must already be in their JSON map form: intrinsics are
// recognized by shape ({"Ref": ...}, {"Fn::GetAtt": ...}).
type Builder struct {
	description string
	metadata    map[string]any
	resources   map[string]wetwire.ResourceDef
	parameters  map[string]wetwire.Parameter
	outputs     map[string]wetwire.Output
	conditions  map[string]any
	mappings    map[string]any
	ids         map[string]string // logical ID -> section
}

// Result is a built template plus its resources in dependency order.
type Result struct {
	Template *wetwire.Template
	// Order lists resource logical IDs so that every resource comes after
	// the resources it depends on. Ties are broken lexically.
	Order []string
}

// NewBuilder creates an empty template builder.
func NewBuilder() *Builder {
	return &Builder{
		resources:  make(map[string]wetwire.ResourceDef),
		parameters: make(map[string]wetwire.Parameter),
		outputs:    make(map[string]wetwire.Output),
		conditions: make(map[string]any),
		mappings:   make(map[string]any),
		ids:        make(map[string]string),
	}
}

// SetDescription sets the template description.
func (b *Builder) SetDescription(d string) {
	b.description = d
}

// SetMetadata adds a template-level metadata entry.
func (b *Builder) SetMetadata(key string, value any) {
	if b.metadata == nil {
		b.metadata = make(map[string]any)
	}
	b.metadata[key] = value
}

func (b *Builder) claim(id, section string) error {
	if id == "" {
		return fmt.Errorf("%s with empty logical ID", section)
	}
	if prev, ok := b.ids[id]; ok {
		return fmt.Errorf("duplicate logical ID %q: already used by a %s", id, prev)
	}
	b.ids[id] = section
	return nil
}

// AddResource adds a resource definition.
func (b *Builder) AddResource(id string, def wetwire.ResourceDef) error {
	if err := b.claim(id, "resource"); err != nil {
		return err
	}
	b.resources[id] = def
	return nil
}

// AddParameter adds a template parameter.
func (b *Builder) AddParameter(id string, p wetwire.Parameter) error {
	if err := b.claim(id, "parameter"); err != nil {
		return err
	}
	b.parameters[id] = p
	return nil
}

// AddOutput adds a template output.
func (b *Builder) AddOutput(id string, o wetwire.Output) error {
	if err := b.claim(id, "output"); err != nil {
		return err
	}
	b.outputs[id] = o
	return nil
}

// AddCondition adds a named condition expression.
func (b *Builder) AddCondition(id string, expr any) error {
	if err := b.claim(id, "condition"); err != nil {
		return err
	}
	b.conditions[id] = expr
	return nil
}

// AddMapping adds a mapping table.
func (b *Builder) AddMapping(id string, m any) error {
	if err := b.claim(id, "mapping"); err != nil {
		return err
	}
	b.mappings[id] = m
	return nil
}

// Build validates references and computes the dependency order.
func (b *Builder) Build() (*Result, error) {
	if err := b.checkReferences(); err != nil {
		return nil, err
	}

	order, err := b.topologicalSort()
	if err != nil {
		return nil, err
	}

	tmpl := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Description:              b.description,
		Metadata:                 b.metadata,
		Resources:                make(map[string]wetwire.ResourceDef, len(b.resources)),
	}
	for id, def := range b.resources {
		def.DependsOn = def.DependsOn.Sorted()
		tmpl.Resources[id] = def
	}
	if len(b.parameters) > 0 {
		tmpl.Parameters = b.parameters
	}
	if len(b.outputs) > 0 {
		tmpl.Outputs = b.outputs
	}
	if len(b.conditions) > 0 {
		tmpl.Conditions = b.conditions
	}
	if len(b.mappings) > 0 {
		tmpl.Mappings = b.mappings
	}

	return &Result{Template: tmpl, Order: order}, nil
}

// checkReferences reports every Ref, GetAtt, Sub variable, DependsOn and
// Condition that names something the template does not define.
func (b *Builder) checkReferences() error {
	var errs []error

	ids := make([]string, 0, len(b.resources))
	for id := range b.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		def := b.resources[id]
		for _, ref := range References(def.Properties) {
			if err := b.checkRef(ref); err != nil {
				errs = append(errs, fmt.Errorf("resource %s: %w", id, err))
			}
		}
		for _, dep := range def.DependsOn {
			if _, ok := b.resources[dep]; !ok {
				errs = append(errs, fmt.Errorf("resource %s: DependsOn references undefined resource %q", id, dep))
			}
			if dep == id {
				errs = append(errs, fmt.Errorf("resource %s: depends on itself", id))
			}
		}
		if def.Condition != "" {
			if _, ok := b.conditions[def.Condition]; !ok {
				errs = append(errs, fmt.Errorf("resource %s: undefined condition %q", id, def.Condition))
			}
		}
	}

	outIDs := make([]string, 0, len(b.outputs))
	for id := range b.outputs {
		outIDs = append(outIDs, id)
	}
	sort.Strings(outIDs)
	for _, id := range outIDs {
		out := b.outputs[id]
		refs := References(out.Value)
		if out.Export != nil {
			refs = append(refs, References(out.Export.Name)...)
		}
		for _, ref := range refs {
			if err := b.checkRef(ref); err != nil {
				errs = append(errs, fmt.Errorf("output %s: %w", id, err))
			}
		}
	}

	return errors.Join(errs...)
}

func (b *Builder) checkRef(ref Reference) error {
	if intrinsics.IsPseudoParameter(ref.Target) {
		if ref.Kind == GetAttRef {
			return fmt.Errorf("Fn::GetAtt on pseudo parameter %q", ref.Target)
		}
		return nil
	}
	if _, ok := b.resources[ref.Target]; ok {
		return nil
	}
	if _, ok := b.parameters[ref.Target]; ok && ref.Kind != GetAttRef {
		return nil
	}
	return fmt.Errorf("%s references undefined resource %q", ref.Kind, ref.Target)
}

// Dependencies returns the resources id depends on through references or
// DependsOn, sorted and de-duplicated.
func (b *Builder) Dependencies(id string) []string {
	def, ok := b.resources[id]
	if !ok {
		return nil
	}
	seen := map[string]bool{}
	var deps []string
	add := func(dep string) {
		if dep == id || seen[dep] {
			return
		}
		if _, ok := b.resources[dep]; !ok {
			return
		}
		seen[dep] = true
		deps = append(deps, dep)
	}
	for _, ref := range References(def.Properties) {
		add(ref.Target)
	}
	for _, dep := range def.DependsOn {
		add(dep)
	}
	sort.Strings(deps)
	return deps
}

// topologicalSort returns resources in dependency order.
func (b *Builder) topologicalSort() ([]string, error) {
	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())

	ids := make([]string, 0, len(b.resources))
	for id := range b.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if err := g.AddVertex(id); err != nil {
			return nil, err
		}
	}

	for _, id := range ids {
		for _, dep := range b.Dependencies(id) {
			err := g.AddEdge(dep, id)
			switch {
			case err == nil, errors.Is(err, graph.ErrEdgeAlreadyExists):
			case errors.Is(err, graph.ErrEdgeCreatesCycle):
				return nil, cycleError(g, dep, id)
			default:
				return nil, fmt.Errorf("adding dependency %s -> %s: %w", id, dep, err)
			}
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("ordering resources: %w", err)
	}
	return order, nil
}

// cycleError describes the cycle closed by the edge dep -> id.
func cycleError(g graph.Graph[string, string], dep, id string) error {
	path, err := graph.ShortestPath(g, id, dep)
	if err != nil || len(path) == 0 {
		return fmt.Errorf("circular dependency detected between %s and %s", id, dep)
	}
	var sb strings.Builder
	sb.WriteString("circular dependency detected:\n")
	for _, name := range path {
		sb.WriteString("  " + name + "\n    → ")
	}
	sb.WriteString(id)
	return errors.New(sb.String())
}

// RefKind identifies how a template value refers to another element.
type RefKind string

const (
	RefRef    RefKind = "Ref"
	GetAttRef RefKind = "Fn::GetAtt"
	SubRef    RefKind = "Fn::Sub"
)

// Reference is one logical ID mentioned by a template value.
type Reference struct {
	Kind      RefKind
	Target    string
	Attribute string
}

var subVar = regexp.MustCompile(`\$\{([^!}][^}]*)\}`)

// References walks a resolved value and returns every reference it makes,
// in encounter order with map keys visited in sorted order.
func References(v any) []Reference {
	var refs []Reference
	collectRefs(v, nil, &refs)
	return refs
}

func collectRefs(v any, subVars map[string]bool, refs *[]Reference) {
	switch val := v.(type) {
	case map[string]any:
		if len(val) == 1 {
			if target, ok := val["Ref"].(string); ok {
				*refs = append(*refs, Reference{Kind: RefRef, Target: target})
				return
			}
			if getAtt, ok := val["Fn::GetAtt"]; ok {
				if ref, ok := parseGetAtt(getAtt); ok {
					*refs = append(*refs, ref)
				}
				return
			}
			if sub, ok := val["Fn::Sub"]; ok {
				collectSub(sub, refs)
				return
			}
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			collectRefs(val[k], subVars, refs)
		}
	case []any:
		for _, elem := range val {
			collectRefs(elem, subVars, refs)
		}
	}
}

func parseGetAtt(v any) (Reference, bool) {
	switch val := v.(type) {
	case []any:
		if len(val) == 2 {
			target, ok1 := val[0].(string)
			attr, ok2 := val[1].(string)
			if ok1 {
				if !ok2 {
					attr = ""
				}
				return Reference{Kind: GetAttRef, Target: target, Attribute: attr}, true
			}
		}
	case string:
		target, attr, ok := strings.Cut(val, ".")
		if ok {
			return Reference{Kind: GetAttRef, Target: target, Attribute: attr}, true
		}
	}
	return Reference{}, false
}

func collectSub(v any, refs *[]Reference) {
	var str string
	vars := map[string]bool{}
	switch val := v.(type) {
	case string:
		str = val
	case []any:
		if len(val) == 0 {
			return
		}
		str, _ = val[0].(string)
		if len(val) > 1 {
			if m, ok := val[1].(map[string]any); ok {
				keys := make([]string, 0, len(m))
				for k := range m {
					vars[k] = true
					keys = append(keys, k)
				}
				sort.Strings(keys)
				for _, k := range keys {
					collectRefs(m[k], nil, refs)
				}
			}
		}
	}
	for _, m := range subVar.FindAllStringSubmatch(str, -1) {
		name := strings.TrimSpace(m[1])
		if vars[name] {
			continue
		}
		if target, attr, ok := strings.Cut(name, "."); ok && !strings.HasPrefix(name, "AWS::") {
			*refs = append(*refs, Reference{Kind: SubRef, Target: target, Attribute: attr})
			continue
		}
		*refs = append(*refs, Reference{Kind: SubRef, Target: name})
	}
}

// ToJSON serializes the template to indented JSON without HTML escaping,
// so mapping templates keep their literal <, > and & characters.
func ToJSON(t *wetwire.Template) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ToYAML serializes the template to YAML.
func ToYAML(t *wetwire.Template) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
