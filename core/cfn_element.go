package core

import (
	"errors"
	"fmt"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

// element is the common part of template elements other than resources.
type element struct {
	node      *Node
	stack     *Stack
	logicalID string
}

func newElement(scope Construct, id string) (element, error) {
	stack, err := StackOf(scope)
	if err != nil {
		return element{}, fmt.Errorf("%q: %w", id, err)
	}
	node, err := NewNode(scope, id)
	if err != nil {
		return element{}, err
	}
	logicalID, err := stack.AllocateLogicalID(node)
	if err != nil {
		return element{}, err
	}
	return element{node: node, stack: stack, logicalID: logicalID}, nil
}

// Node returns the construct node.
func (e *element) Node() *Node { return e.node }

// LogicalID returns the template logical ID.
func (e *element) LogicalID() string { return e.logicalID }

// CfnOutputProps configures a stack output.
type CfnOutputProps struct {
	// Value is required. Strings may contain tokens.
	Value       any
	Description string
	ExportName  string
	Condition   *CfnCondition
}

// CfnOutput is a template output.
type CfnOutput struct {
	element
	props CfnOutputProps
}

// NewCfnOutput adds an output to the enclosing stack.
func NewCfnOutput(scope Construct, id string, props CfnOutputProps) (*CfnOutput, error) {
	if props.Value == nil {
		return nil, fmt.Errorf("output %q: Value is required", id)
	}
	el, err := newElement(scope, id)
	if err != nil {
		return nil, err
	}
	o := &CfnOutput{element: el, props: props}
	el.stack.outputs = append(el.stack.outputs, o)
	return o, nil
}

// ImportValue returns an Fn::ImportValue of the export, for use from
// other stacks.
func (o *CfnOutput) ImportValue() (intrinsics.ImportValue, error) {
	if o.props.ExportName == "" {
		return intrinsics.ImportValue{}, fmt.Errorf("output %s has no export name", o.logicalID)
	}
	return intrinsics.ImportValue{ExportName: o.props.ExportName}, nil
}

func (o *CfnOutput) render() (wetwire.Output, error) {
	value, err := Resolve(o.props.Value)
	if err != nil {
		return wetwire.Output{}, fmt.Errorf("output %s: %w", o.logicalID, err)
	}
	out := wetwire.Output{Description: o.props.Description, Value: value}
	if o.props.ExportName != "" {
		name, err := Resolve(o.props.ExportName)
		if err != nil {
			return wetwire.Output{}, fmt.Errorf("output %s: export: %w", o.logicalID, err)
		}
		out.Export = &wetwire.OutputExport{Name: name}
	}
	if o.props.Condition != nil {
		out.Condition = o.props.Condition.LogicalID()
	}
	return out, nil
}

// CfnParameter is a template parameter.
type CfnParameter struct {
	element
	param wetwire.Parameter
}

// NewCfnParameter adds a parameter to the enclosing stack. Type defaults
// to "String".
func NewCfnParameter(scope Construct, id string, p wetwire.Parameter) (*CfnParameter, error) {
	if p.Type == "" {
		p.Type = "String"
	}
	if p.MinLength != nil && p.MaxLength != nil && *p.MinLength > *p.MaxLength {
		return nil, fmt.Errorf("parameter %q: MinLength %d is greater than MaxLength %d", id, *p.MinLength, *p.MaxLength)
	}
	el, err := newElement(scope, id)
	if err != nil {
		return nil, err
	}
	param := &CfnParameter{element: el, param: p}
	el.stack.parameters = append(el.stack.parameters, param)
	return param, nil
}

// Ref returns a Ref to the parameter.
func (p *CfnParameter) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: p.logicalID}
}

// ValueAsString returns the parameter value as a string token.
func (p *CfnParameter) ValueAsString() string {
	return AsString(p.Ref())
}

// ValueAsList returns a list-typed parameter value as a list token.
func (p *CfnParameter) ValueAsList() []string {
	return AsList(p.Ref())
}

// Definition returns the parameter definition.
func (p *CfnParameter) Definition() wetwire.Parameter {
	return p.param
}

// CfnCondition is a named template condition.
type CfnCondition struct {
	element
	expression any
}

// NewCfnCondition adds a condition. expression is a condition function
// such as intrinsics.Equals.
func NewCfnCondition(scope Construct, id string, expression any) (*CfnCondition, error) {
	if expression == nil {
		return nil, errors.New("condition expression is required")
	}
	el, err := newElement(scope, id)
	if err != nil {
		return nil, err
	}
	c := &CfnCondition{element: el, expression: expression}
	el.stack.conditions = append(el.stack.conditions, c)
	return c, nil
}

// CfnMapping is a two level lookup table.
type CfnMapping struct {
	element
	mapping map[string]map[string]any
}

// NewCfnMapping adds a mapping.
func NewCfnMapping(scope Construct, id string, mapping map[string]map[string]any) (*CfnMapping, error) {
	if len(mapping) == 0 {
		return nil, fmt.Errorf("mapping %q must not be empty", id)
	}
	el, err := newElement(scope, id)
	if err != nil {
		return nil, err
	}
	m := &CfnMapping{element: el, mapping: mapping}
	el.stack.mappings = append(el.stack.mappings, m)
	return m, nil
}

// FindInMap returns an Fn::FindInMap lookup. Keys known at synthesis time
// are checked.
func (m *CfnMapping) FindInMap(topKey, secondKey string) (intrinsics.FindInMap, error) {
	if !IsUnresolved(topKey) {
		row, found := m.mapping[topKey]
		if !found {
			return intrinsics.FindInMap{}, fmt.Errorf("mapping %s has no key %q", m.logicalID, topKey)
		}
		if !IsUnresolved(secondKey) {
			if _, found := row[secondKey]; !found {
				return intrinsics.FindInMap{}, fmt.Errorf("mapping %s has no key %q under %q", m.logicalID, secondKey, topKey)
			}
		}
	}
	return intrinsics.FindInMap{MapName: m.logicalID, TopKey: topKey, SecondKey: secondKey}, nil
}
