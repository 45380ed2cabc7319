package core

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/template"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

var stackNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)

const maxStackNameLen = 128

// Environment pins a stack to an account and region. Empty fields are
// resolved at deploy time through pseudo parameters.
type Environment struct {
	Account string
	Region  string
}

// StackProps configures a stack.
type StackProps struct {
	StackName             string
	Description           string
	Env                   Environment
	Tags                  map[string]string
	TerminationProtection bool
}

// Stack is a unit of deployment: everything beneath it is synthesized into
// one CloudFormation template.
type Stack struct {
	node  *Node
	props StackProps
	name  string

	logicalIDs map[string]string // logical ID -> construct path
	resources  []*CfnResource
	parameters []*CfnParameter
	outputs    []*CfnOutput
	conditions []*CfnCondition
	mappings   []*CfnMapping

	dependencies []*Stack
}

// NewStack creates a stack beneath scope.
func NewStack(scope Construct, id string, props *StackProps) (*Stack, error) {
	if props == nil {
		props = &StackProps{}
	}
	node, err := NewNode(scope, id)
	if err != nil {
		return nil, err
	}

	name := props.StackName
	if name == "" {
		name = defaultStackName(node)
	}
	if err := ValidateStackName(name); err != nil {
		return nil, err
	}

	s := &Stack{
		node:       node,
		props:      *props,
		name:       name,
		logicalIDs: make(map[string]string),
	}
	node.stack = s
	return s, nil
}

// ValidateStackName checks CloudFormation's stack naming rules.
func ValidateStackName(name string) error {
	if len(name) > maxStackNameLen {
		return fmt.Errorf("stack name must be <= %d characters, got %d", maxStackNameLen, len(name))
	}
	if !stackNamePattern.MatchString(name) {
		return fmt.Errorf("stack name must match the regular expression %s, got %q", stackNamePattern, name)
	}
	return nil
}

// defaultStackName joins the path below the app with dashes. Top-level
// stacks are named after their id.
func defaultStackName(n *Node) string {
	var parts []string
	for _, c := range n.PathComponents() {
		if c == defaultChildID {
			continue
		}
		var b strings.Builder
		for i := 0; i < len(c); i++ {
			ch := c[i]
			if (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || (ch >= '0' && ch <= '9') || ch == '-' {
				b.WriteByte(ch)
			}
		}
		if b.Len() > 0 {
			parts = append(parts, b.String())
		}
	}
	name := strings.Join(parts, "-")
	if len(name) > maxStackNameLen {
		name = name[:maxStackNameLen]
	}
	return name
}

// StackOf returns the stack enclosing c, including c itself.
func StackOf(c Construct) (*Stack, error) {
	if c == nil || c.Node() == nil {
		return nil, errors.New("no construct given")
	}
	for n := c.Node(); n != nil; n = n.scope {
		if n.stack != nil {
			return n.stack, nil
		}
	}
	return nil, fmt.Errorf("%s should be created in the scope of a Stack, but no Stack found", c.Node().displayPath())
}

// Node returns the construct node.
func (s *Stack) Node() *Node { return s.node }

// StackName returns the CloudFormation stack name.
func (s *Stack) StackName() string { return s.name }

// Description returns the template description.
func (s *Stack) Description() string { return s.props.Description }

// Tags returns the stack-level tags applied at deployment.
func (s *Stack) Tags() map[string]string { return s.props.Tags }

// Environment returns the configured environment.
func (s *Stack) Environment() Environment { return s.props.Env }

// Region returns the stack region, or a token for AWS::Region.
func (s *Stack) Region() string {
	if s.props.Env.Region != "" {
		return s.props.Env.Region
	}
	return AsString(intrinsics.AWS_REGION)
}

// Account returns the stack account, or a token for AWS::AccountId.
func (s *Stack) Account() string {
	if s.props.Env.Account != "" {
		return s.props.Env.Account
	}
	return AsString(intrinsics.AWS_ACCOUNT_ID)
}

// Partition returns a token for AWS::Partition.
func (s *Stack) Partition() string {
	return AsString(intrinsics.AWS_PARTITION)
}

// URLSuffix returns a token for AWS::URLSuffix.
func (s *Stack) URLSuffix() string {
	return AsString(intrinsics.AWS_URL_SUFFIX)
}

// FormatArn builds an ARN in this stack's partition, region and account.
// Empty region or account fields are kept empty, as IAM ARNs require.
func (s *Stack) FormatArn(service, region, account, resource string) string {
	return fmt.Sprintf("arn:%s:%s:%s:%s:%s", s.Partition(), service, region, account, resource)
}

// AllocateLogicalID returns the logical ID for a node in this stack.
func (s *Stack) AllocateLogicalID(n *Node) (string, error) {
	var components []string
	below := false
	for _, c := range n.Scopes() {
		if below {
			components = append(components, c.id)
		}
		if c == s.node {
			below = true
		}
	}
	if !below {
		return "", fmt.Errorf("%s is not inside stack %s", n.displayPath(), s.name)
	}
	id, err := MakeUniqueID(components)
	if err != nil {
		return "", fmt.Errorf("%s: %w", n.displayPath(), err)
	}
	if prev, ok := s.logicalIDs[id]; ok {
		return "", fmt.Errorf("logical ID %q of %s is already used by %s", id, n.Path(), prev)
	}
	s.logicalIDs[id] = n.Path()
	return id, nil
}

// AddDependency deploys s after other.
func (s *Stack) AddDependency(other *Stack) error {
	if other == nil || other == s {
		return errors.New("a stack cannot depend on itself")
	}
	if other.dependsOnStack(s) {
		return fmt.Errorf("stack %s cannot depend on %s: %s already depends on %s", s.name, other.name, other.name, s.name)
	}
	for _, d := range s.dependencies {
		if d == other {
			return nil
		}
	}
	s.dependencies = append(s.dependencies, other)
	return nil
}

func (s *Stack) dependsOnStack(target *Stack) bool {
	for _, d := range s.dependencies {
		if d == target || d.dependsOnStack(target) {
			return true
		}
	}
	return false
}

// Dependencies returns the stacks s is deployed after.
func (s *Stack) Dependencies() []*Stack {
	return s.dependencies
}

// Resources returns the resources of the stack in creation order.
func (s *Stack) Resources() []*CfnResource {
	return s.resources
}

// constructDependencies expands node-level dependencies into resource
// DependsOn entries: every resource beneath a dependent node depends on
// every resource beneath the node it depends on.
func (s *Stack) constructDependencies() (map[*CfnResource]map[*CfnResource]bool, error) {
	out := make(map[*CfnResource]map[*CfnResource]bool)
	for _, n := range s.node.FindAll() {
		for _, dep := range n.deps {
			depNode := dep.Node()
			targets := depNode.Resources()
			for _, src := range n.Resources() {
				if src.stack != s {
					continue
				}
				for _, t := range targets {
					if t == src || n.IsAncestorOf(t.node) || depNode.IsAncestorOf(src.node) {
						continue
					}
					if t.stack != s {
						if err := s.AddDependency(t.stack); err != nil {
							return nil, err
						}
						continue
					}
					if out[src] == nil {
						out[src] = make(map[*CfnResource]bool)
					}
					out[src][t] = true
				}
			}
		}
	}
	return out, nil
}

// Synthesize validates the stack and renders its template.
func (s *Stack) Synthesize() (*wetwire.Template, error) {
	if err := s.validate(); err != nil {
		return nil, err
	}

	extra, err := s.constructDependencies()
	if err != nil {
		return nil, err
	}

	b := template.NewBuilder()
	b.SetDescription(s.props.Description)

	var errs error
	for _, r := range s.resources {
		for _, d := range r.dependsOn {
			if d.stack != s {
				errs = multierr.Append(errs, s.AddDependency(d.stack))
			}
		}
		def, err := r.render(sortedResourceIDs(extra[r]))
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, b.AddResource(r.logicalID, def))
	}
	for _, p := range s.parameters {
		errs = multierr.Append(errs, b.AddParameter(p.logicalID, p.param))
	}
	for _, c := range s.conditions {
		expr, err := Resolve(c.expression)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("condition %s: %w", c.logicalID, err))
			continue
		}
		errs = multierr.Append(errs, b.AddCondition(c.logicalID, expr))
	}
	for _, m := range s.mappings {
		mapping, err := Resolve(m.mapping)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("mapping %s: %w", m.logicalID, err))
			continue
		}
		errs = multierr.Append(errs, b.AddMapping(m.logicalID, mapping))
	}
	for _, o := range s.outputs {
		out, err := o.render()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		errs = multierr.Append(errs, b.AddOutput(o.logicalID, out))
	}
	if errs != nil {
		return nil, fmt.Errorf("synthesizing stack %s: %w", s.name, errs)
	}

	result, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("synthesizing stack %s: %w", s.name, err)
	}

	if app := s.node.App(); app != nil {
		app.logger.Debug("synthesized stack",
			zap.String("stack", s.name),
			zap.Int("resources", len(result.Template.Resources)),
			zap.Int("outputs", len(result.Template.Outputs)),
		)
	}
	return result.Template, nil
}

// validate runs the validations of every construct in the stack, leaving
// nested stacks to validate themselves.
func (s *Stack) validate() error {
	var err error
	var walk func(*Node)
	walk = func(n *Node) {
		if n != s.node && n.stack != nil {
			return
		}
		for _, v := range n.validations {
			if verr := v(); verr != nil {
				err = multierr.Append(err, fmt.Errorf("[%s] %w", n.displayPath(), verr))
			}
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(s.node)
	if err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// ValidationError aggregates construct validation failures.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("Validation failed with the following errors:")
	for _, err := range multierr.Errors(e.Err) {
		b.WriteString("\n  ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Messages returns each validation failure.
func (e *ValidationError) Messages() []string {
	errs := multierr.Errors(e.Err)
	out := make([]string, len(errs))
	for i, err := range errs {
		out[i] = err.Error()
	}
	sort.Strings(out)
	return out
}
