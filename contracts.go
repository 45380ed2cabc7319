// Package wetwire_cdk provides Go types for composing AWS CloudFormation
// templates out of constructs.
//
// Low-level resources are plain property bags that mirror the CloudFormation
// resource specification:
//
//	api := &appsync.GraphQLApi{
//	    Name:               "orders",
//	    AuthenticationType: "API_KEY",
//	}
//
// They are attached to a construct tree with core.NewCfnResource, after
// which attribute fields (api.ApiId, api.GraphQLUrl) serialize as
// Fn::GetAtt references. Higher-level constructs in constructs/eks and
// constructs/appsync assemble many resources at once.
//
// The wetwire-cdk CLI runs a construct program, collects the synthesized
// cloud assembly and validates, diffs, graphs or deploys it.
package wetwire_cdk

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lex00/wetwire-cdk-go/internal/serialize"
)

// Resource represents a CloudFormation resource.
// Every property bag in resources/ implements this interface.
type Resource interface {
	// ResourceType returns the CloudFormation type (e.g., "AWS::EKS::Cluster")
	ResourceType() string
}

// AttrRef represents a GetAtt reference to a resource attribute.
// Resource types carry an AttrRef field per attribute; the fields are
// populated with the logical ID once the resource joins a stack.
//
//	cluster := &eks.Cluster{...}
//	core.NewCfnResource(stack, "Cluster", cluster)
//	cluster.Endpoint // {"Fn::GetAtt": ["Cluster", "Endpoint"]}
type AttrRef struct {
	// Resource is the logical ID of the referenced resource
	Resource string
	// Attribute is the attribute name (e.g., "Arn", "Endpoint")
	Attribute string
}

// MarshalJSON serializes AttrRef to CloudFormation GetAtt syntax.
func (a AttrRef) MarshalJSON() ([]byte, error) {
	if a.IsZero() {
		return nil, fmt.Errorf("attribute reference used before its resource was added to a stack")
	}
	return json.Marshal(map[string][]string{
		"Fn::GetAtt": {a.Resource, a.Attribute},
	})
}

// IsZero returns true if the AttrRef has not been populated.
func (a AttrRef) IsZero() bool {
	return a.Resource == "" && a.Attribute == ""
}

// MissingPropertiesError reports required properties absent from a resource.
type MissingPropertiesError struct {
	// Type is the CloudFormation type of the offending resource
	Type string
	// Properties holds dotted property paths, e.g. "ResourcesVpcConfig.SubnetIds"
	Properties []string
}

func (e *MissingPropertiesError) Error() string {
	msgs := make([]string, len(e.Properties))
	for i, p := range e.Properties {
		msgs[i] = fmt.Sprintf("Required property %q is missing", p)
	}
	if e.Type == "" {
		return strings.Join(msgs, "; ")
	}
	return fmt.Sprintf("%s: %s", e.Type, strings.Join(msgs, "; "))
}

// CheckRequired verifies that every property tagged `cfn:"required"` is
// present on r, including required properties of nested property types that
// are themselves set.
func CheckRequired(r any) error {
	missing := serialize.MissingRequired(r)
	if len(missing) == 0 {
		return nil
	}
	err := &MissingPropertiesError{Properties: missing}
	if res, ok := r.(Resource); ok {
		err.Type = res.ResourceType()
	}
	return err
}

// Template represents a CloudFormation template.
type Template struct {
	AWSTemplateFormatVersion string                 `json:"AWSTemplateFormatVersion" yaml:"AWSTemplateFormatVersion"`
	Description              string                 `json:"Description,omitempty" yaml:"Description,omitempty"`
	Transform                any                    `json:"Transform,omitempty" yaml:"Transform,omitempty"`
	Metadata                 map[string]any         `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
	Parameters               map[string]Parameter   `json:"Parameters,omitempty" yaml:"Parameters,omitempty"`
	Mappings                 map[string]any         `json:"Mappings,omitempty" yaml:"Mappings,omitempty"`
	Conditions               map[string]any         `json:"Conditions,omitempty" yaml:"Conditions,omitempty"`
	Resources                map[string]ResourceDef `json:"Resources" yaml:"Resources"`
	Outputs                  map[string]Output      `json:"Outputs,omitempty" yaml:"Outputs,omitempty"`
}

// ResourceDef is a single resource in the CloudFormation template.
type ResourceDef struct {
	Type                string         `json:"Type" yaml:"Type"`
	Properties          map[string]any `json:"Properties,omitempty" yaml:"Properties,omitempty"`
	DependsOn           DependsOn      `json:"DependsOn,omitempty" yaml:"DependsOn,omitempty"`
	Condition           string         `json:"Condition,omitempty" yaml:"Condition,omitempty"`
	Metadata            map[string]any `json:"Metadata,omitempty" yaml:"Metadata,omitempty"`
	DeletionPolicy      string         `json:"DeletionPolicy,omitempty" yaml:"DeletionPolicy,omitempty"`
	UpdateReplacePolicy string         `json:"UpdateReplacePolicy,omitempty" yaml:"UpdateReplacePolicy,omitempty"`
}

// DependsOn is the DependsOn attribute of a resource. CloudFormation accepts
// both a single logical ID and a list; templates are always written as a
// sorted list.
type DependsOn []string

// UnmarshalJSON accepts a string or a list of strings.
func (d *DependsOn) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*d = DependsOn{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("DependsOn must be a string or list of strings: %w", err)
	}
	*d = list
	return nil
}

// UnmarshalYAML accepts a scalar or a sequence.
func (d *DependsOn) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*d = DependsOn{node.Value}
		return nil
	}
	var list []string
	if err := node.Decode(&list); err != nil {
		return fmt.Errorf("DependsOn must be a string or list of strings: %w", err)
	}
	*d = list
	return nil
}

// Sorted returns a sorted, de-duplicated copy.
func (d DependsOn) Sorted() DependsOn {
	if len(d) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(d))
	out := make(DependsOn, 0, len(d))
	for _, id := range d {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// Parameter is a CloudFormation template parameter.
type Parameter struct {
	Type                  string   `json:"Type" yaml:"Type"`
	Description           string   `json:"Description,omitempty" yaml:"Description,omitempty"`
	Default               any      `json:"Default,omitempty" yaml:"Default,omitempty"`
	AllowedValues         []any    `json:"AllowedValues,omitempty" yaml:"AllowedValues,omitempty"`
	AllowedPattern        string   `json:"AllowedPattern,omitempty" yaml:"AllowedPattern,omitempty"`
	ConstraintDescription string   `json:"ConstraintDescription,omitempty" yaml:"ConstraintDescription,omitempty"`
	MinLength             *int     `json:"MinLength,omitempty" yaml:"MinLength,omitempty"`
	MaxLength             *int     `json:"MaxLength,omitempty" yaml:"MaxLength,omitempty"`
	MinValue              *float64 `json:"MinValue,omitempty" yaml:"MinValue,omitempty"`
	MaxValue              *float64 `json:"MaxValue,omitempty" yaml:"MaxValue,omitempty"`
	NoEcho                bool     `json:"NoEcho,omitempty" yaml:"NoEcho,omitempty"`
}

// Output is a CloudFormation template output.
type Output struct {
	Description string        `json:"Description,omitempty" yaml:"Description,omitempty"`
	Value       any           `json:"Value" yaml:"Value"`
	Export      *OutputExport `json:"Export,omitempty" yaml:"Export,omitempty"`
	Condition   string        `json:"Condition,omitempty" yaml:"Condition,omitempty"`
}

// OutputExport names a cross-stack export.
type OutputExport struct {
	Name any `json:"Name" yaml:"Name"`
}

// SynthResult is the JSON output from `wetwire-cdk synth`.
type SynthResult struct {
	Success bool          `json:"success"`
	OutDir  string        `json:"outdir,omitempty"`
	Stacks  []StackResult `json:"stacks,omitempty"`
	Errors  []string      `json:"errors,omitempty"`
}

// StackResult summarizes one synthesized stack.
type StackResult struct {
	Name         string `json:"name"`
	TemplateFile string `json:"templateFile"`
	Resources    int    `json:"resources"`
}

// LintResult is the JSON output from `wetwire-cdk lint`.
type LintResult struct {
	Success bool        `json:"success"`
	Issues  []LintIssue `json:"issues,omitempty"`
}

// LintIssue is a single linting issue.
type LintIssue struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"` // "error", "warning", "info"
	Message  string `json:"message"`
	Rule     string `json:"rule"`
}

// ValidateResult is the JSON output from `wetwire-cdk validate`.
type ValidateResult struct {
	Success   bool     `json:"success"`
	Resources int      `json:"resources"`
	Errors    []string `json:"errors,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

// ListResult is the JSON output from `wetwire-cdk list`.
type ListResult struct {
	Stacks []ListStack `json:"stacks"`
}

// ListStack is one stack of a cloud assembly.
type ListStack struct {
	Name      string         `json:"name"`
	Resources []ListResource `json:"resources"`
}

// ListResource is a single resource in the list output.
type ListResource struct {
	LogicalID string `json:"logicalId"`
	Type      string `json:"type"`
	Path      string `json:"path,omitempty"`
}

// DiffEntry describes one added, removed or modified resource.
type DiffEntry struct {
	Resource string   `json:"resource"`
	Type     string   `json:"type"`
	Changes  []string `json:"changes,omitempty"`
}

// TemplateDiff groups resource-level differences between two templates.
type TemplateDiff struct {
	Added    []DiffEntry `json:"added,omitempty"`
	Removed  []DiffEntry `json:"removed,omitempty"`
	Modified []DiffEntry `json:"modified,omitempty"`
	Outputs  []string    `json:"outputs,omitempty"`
}

// DiffSummary counts the entries of a TemplateDiff.
type DiffSummary struct {
	Added    int `json:"added"`
	Removed  int `json:"removed"`
	Modified int `json:"modified"`
	Total    int `json:"total"`
}

// AdviceSuggestion is a single best-practice finding.
type AdviceSuggestion struct {
	Rule     string `json:"rule"`
	Category string `json:"category"` // "security", "reliability", "cost", "operations"
	Severity string `json:"severity"` // "high", "medium", "low"
	Resource string `json:"resource"`
	Type     string `json:"type"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// AdviceSummary counts suggestions per category.
type AdviceSummary struct {
	Total      int            `json:"total"`
	ByCategory map[string]int `json:"byCategory"`
}
