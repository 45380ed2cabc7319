// Package differ provides semantic comparison of CloudFormation templates.
//
// Properties are compared structurally. String properties holding JSON
// documents, such as Kubernetes manifests and Helm values, are decoded
// and compared as documents, so formatting changes are not reported.
package differ

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Options configures the differ.
type Options struct {
	// IgnoreOrder ignores list element order in comparisons.
	IgnoreOrder bool
	// IgnoreMetadata skips resource Metadata, which carries construct
	// paths that change when code is reorganized.
	IgnoreMetadata bool
}

// Result contains the difference between two templates.
type Result struct {
	Diff    wetwire.TemplateDiff
	Summary wetwire.DiffSummary
}

// Empty reports whether the templates are equivalent.
func (r *Result) Empty() bool {
	return r.Summary.Total == 0 && len(r.Diff.Outputs) == 0
}

// Compare compares two templates and returns the differences from old to
// new.
func Compare(old, new *wetwire.Template, opts Options) (*Result, error) {
	if old == nil || new == nil {
		return nil, fmt.Errorf("both templates are required")
	}
	result := &Result{}

	for name, def := range new.Resources {
		if _, exists := old.Resources[name]; !exists {
			result.Diff.Added = append(result.Diff.Added, wetwire.DiffEntry{Resource: name, Type: def.Type})
		}
	}
	for name, def := range old.Resources {
		def2, exists := new.Resources[name]
		if !exists {
			result.Diff.Removed = append(result.Diff.Removed, wetwire.DiffEntry{Resource: name, Type: def.Type})
			continue
		}
		if changes := compareResources(def, def2, opts); len(changes) > 0 {
			result.Diff.Modified = append(result.Diff.Modified, wetwire.DiffEntry{
				Resource: name,
				Type:     def2.Type,
				Changes:  changes,
			})
		}
	}
	result.Diff.Outputs = compareOutputs(old.Outputs, new.Outputs, opts)

	sortEntries(result.Diff.Added)
	sortEntries(result.Diff.Removed)
	sortEntries(result.Diff.Modified)

	result.Summary = wetwire.DiffSummary{
		Added:    len(result.Diff.Added),
		Removed:  len(result.Diff.Removed),
		Modified: len(result.Diff.Modified),
	}
	result.Summary.Total = result.Summary.Added + result.Summary.Removed + result.Summary.Modified
	return result, nil
}

// CompareFiles compares two template files.
func CompareFiles(file1, file2 string, opts Options) (*Result, error) {
	t1, err := LoadTemplate(file1)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file1, err)
	}
	t2, err := LoadTemplate(file2)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", file2, err)
	}
	return Compare(t1, t2, opts)
}

// LoadTemplate loads a CloudFormation template from a JSON or YAML file.
func LoadTemplate(path string) (*wetwire.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseTemplate(data)
}

// ParseTemplate decodes a JSON or YAML template.
func ParseTemplate(data []byte) (*wetwire.Template, error) {
	var t wetwire.Template
	if err := json.Unmarshal(data, &t); err != nil {
		t = wetwire.Template{}
		if err := yaml.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("failed to parse as JSON or YAML: %w", err)
		}
	}
	if len(t.Resources) == 0 {
		return nil, fmt.Errorf("template has no Resources section")
	}
	return &t, nil
}

func compareResources(def1, def2 wetwire.ResourceDef, opts Options) []string {
	var changes []string
	if def1.Type != def2.Type {
		changes = append(changes, fmt.Sprintf("Type changed: %s → %s (replacement)", def1.Type, def2.Type))
	}
	changes = append(changes, compareValues("Properties", toAny(def1.Properties), toAny(def2.Properties), opts)...)
	if !reflect.DeepEqual(def1.DependsOn.Sorted(), def2.DependsOn.Sorted()) {
		changes = append(changes, fmt.Sprintf("DependsOn changed: [%s] → [%s]",
			strings.Join(def1.DependsOn.Sorted(), ", "), strings.Join(def2.DependsOn.Sorted(), ", ")))
	}
	if def1.Condition != def2.Condition {
		changes = append(changes, fmt.Sprintf("Condition changed: %q → %q", def1.Condition, def2.Condition))
	}
	if def1.DeletionPolicy != def2.DeletionPolicy {
		changes = append(changes, fmt.Sprintf("DeletionPolicy changed: %q → %q", def1.DeletionPolicy, def2.DeletionPolicy))
	}
	if def1.UpdateReplacePolicy != def2.UpdateReplacePolicy {
		changes = append(changes, fmt.Sprintf("UpdateReplacePolicy changed: %q → %q", def1.UpdateReplacePolicy, def2.UpdateReplacePolicy))
	}
	if !opts.IgnoreMetadata {
		changes = append(changes, compareValues("Metadata", toAny(def1.Metadata), toAny(def2.Metadata), opts)...)
	}
	return changes
}

func compareOutputs(old, new map[string]wetwire.Output, opts Options) []string {
	var changes []string
	for name, o := range new {
		prev, ok := old[name]
		switch {
		case !ok:
			changes = append(changes, name+" added")
		case !equal(prev.Value, o.Value, opts) || !reflect.DeepEqual(prev.Export, o.Export):
			changes = append(changes, name+" modified")
		}
	}
	for name := range old {
		if _, ok := new[name]; !ok {
			changes = append(changes, name+" removed")
		}
	}
	sort.Strings(changes)
	return changes
}

// compareValues returns one change per differing leaf below path.
func compareValues(path string, a, b any, opts Options) []string {
	a, b = decodeJSONString(a), decodeJSONString(b)
	if equal(a, b, opts) {
		return nil
	}
	if a == nil {
		return []string{path + " added"}
	}
	if b == nil {
		return []string{path + " removed"}
	}

	m1, ok1 := a.(map[string]any)
	m2, ok2 := b.(map[string]any)
	if ok1 && ok2 && !isIntrinsic(m1) && !isIntrinsic(m2) {
		var changes []string
		for _, key := range unionKeys(m1, m2) {
			changes = append(changes, compareValues(path+"."+key, m1[key], m2[key], opts)...)
		}
		return changes
	}

	l1, ok1 := a.([]any)
	l2, ok2 := b.([]any)
	if ok1 && ok2 && len(l1) == len(l2) && !opts.IgnoreOrder {
		var changes []string
		for i := range l1 {
			changes = append(changes, compareValues(fmt.Sprintf("%s[%d]", path, i), l1[i], l2[i], opts)...)
		}
		return changes
	}
	return []string{path + " modified"}
}

func equal(a, b any, opts Options) bool {
	a, b = decodeJSONString(a), decodeJSONString(b)
	if opts.IgnoreOrder {
		a, b = normalize(a), normalize(b)
	}
	return reflect.DeepEqual(a, b)
}

// normalize sorts every list by the JSON encoding of its elements.
func normalize(v any) any {
	switch val := v.(type) {
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = normalize(elem)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return encode(out[i]) < encode(out[j])
		})
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = normalize(elem)
		}
		return out
	default:
		return v
	}
}

func encode(v any) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// decodeJSONString returns the decoded document when v is a string holding
// a JSON object or array.
func decodeJSONString(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "{") && !strings.HasPrefix(trimmed, "[") {
		return v
	}
	var doc any
	if err := json.Unmarshal([]byte(trimmed), &doc); err != nil {
		return v
	}
	return doc
}

// toAny converts an empty map to an untyped nil so absent and empty
// sections compare equal.
func toAny(m map[string]any) any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func isIntrinsic(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

func unionKeys(a, b map[string]any) []string {
	seen := map[string]bool{}
	var keys []string
	for _, m := range []map[string]any{a, b} {
		for k := range m {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	sort.Strings(keys)
	return keys
}

func sortEntries(entries []wetwire.DiffEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Resource < entries[j].Resource
	})
}
