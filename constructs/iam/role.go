// Package iam provides the IAM role construct shared by the EKS and AppSync
// constructs.
package iam

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	iamres "github.com/lex00/wetwire-cdk-go/resources/iam"
)

// IRole is a role that can be handed to a service or extended with
// statements.
type IRole interface {
	RoleArn() string
	RoleName() string
	// AddToPrincipalPolicy attaches statements to the role. Imported roles
	// return ErrImmutableRole.
	AddToPrincipalPolicy(statements ...intrinsics.PolicyStatement) error
}

// ErrImmutableRole is returned when statements are added to a role that is
// not managed by this app.
var ErrImmutableRole = errors.New("cannot add statements to an imported role")

// RoleProps configures a Role.
type RoleProps struct {
	// AssumedBy is the principal trusted to assume the role, for example
	// intrinsics.ServicePrincipal{"eks.amazonaws.com"}.
	AssumedBy any
	// AssumeRolePolicy replaces the trust policy generated from AssumedBy.
	AssumeRolePolicy *intrinsics.PolicyDocument

	RoleName    any
	Description string
	Path        string

	// ManagedPolicies are AWS managed policy names, such as
	// "AmazonEKSClusterPolicy" or "service-role/AWSAppSyncPushToCloudWatchLogs".
	ManagedPolicies   []string
	ManagedPolicyArns []any
	InlinePolicies    map[string]*intrinsics.PolicyDocument

	MaxSessionDuration core.Duration
}

// Validate checks the props.
func (p RoleProps) Validate() error {
	if p.AssumedBy == nil && p.AssumeRolePolicy.IsEmpty() {
		return errors.New("one of AssumedBy or AssumeRolePolicy is required")
	}
	if d := p.MaxSessionDuration; !d.IsZero() && (d.Seconds() < 3600 || d.Seconds() > 43200) {
		return fmt.Errorf("MaxSessionDuration must be between 1 and 12 hours, got %s", d.ToHumanString())
	}
	if p.Path != "" && (!strings.HasPrefix(p.Path, "/") || !strings.HasSuffix(p.Path, "/")) {
		return fmt.Errorf("Path must begin and end with '/', got %q", p.Path)
	}
	return nil
}

// Role is an AWS::IAM::Role with an optional default inline policy.
type Role struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *iamres.Role
	trust    *intrinsics.PolicyDocument

	defaultPolicy *intrinsics.PolicyDocument
}

// NewRole creates a role.
func NewRole(scope core.Construct, id string, props RoleProps) (*Role, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("role %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}

	trust := props.AssumeRolePolicy
	if trust.IsEmpty() {
		trust = intrinsics.NewPolicyDocument()
		trust.AddStatements(intrinsics.AssumeRoleStatement(props.AssumedBy))
	}

	cfn := &iamres.Role{
		AssumeRolePolicyDocument: trust,
		RoleName:                 props.RoleName,
	}
	if props.Description != "" {
		cfn.Description = props.Description
	}
	if props.Path != "" {
		cfn.Path = props.Path
	}
	if !props.MaxSessionDuration.IsZero() {
		cfn.MaxSessionDuration = props.MaxSessionDuration.Seconds()
	}
	for _, name := range props.ManagedPolicies {
		cfn.ManagedPolicyArns = append(cfn.ManagedPolicyArns, intrinsics.ManagedPolicyArn(name))
	}
	cfn.ManagedPolicyArns = append(cfn.ManagedPolicyArns, props.ManagedPolicyArns...)
	for _, name := range sortedKeys(props.InlinePolicies) {
		cfn.Policies = append(cfn.Policies, iamres.Role_Policy{
			PolicyName:     name,
			PolicyDocument: props.InlinePolicies[name],
		})
	}

	res, err := core.NewCfnResource(node, "Resource", cfn)
	if err != nil {
		return nil, err
	}
	return &Role{node: node, resource: res, cfn: cfn, trust: trust}, nil
}

// Node returns the construct node.
func (r *Role) Node() *core.Node { return r.node }

// Resource returns the AWS::IAM::Role resource.
func (r *Role) Resource() *core.CfnResource { return r.resource }

// Arn returns the role ARN attribute.
func (r *Role) Arn() wetwire.AttrRef { return r.cfn.Arn }

// RoleArn returns the role ARN as a string token.
func (r *Role) RoleArn() string { return core.AsString(r.cfn.Arn) }

// RoleName returns the role name as a string token.
func (r *Role) RoleName() string { return r.resource.RefString() }

// AssumeRolePolicy returns the trust policy. Statements added to it are
// rendered at synthesis.
func (r *Role) AssumeRolePolicy() *intrinsics.PolicyDocument { return r.trust }

// AddManagedPolicy attaches a managed policy ARN.
func (r *Role) AddManagedPolicy(arn any) {
	r.cfn.ManagedPolicyArns = append(r.cfn.ManagedPolicyArns, arn)
}

// AddToPrincipalPolicy adds statements to the role's default policy,
// creating the AWS::IAM::Policy on first use.
func (r *Role) AddToPrincipalPolicy(statements ...intrinsics.PolicyStatement) error {
	if r.defaultPolicy == nil {
		node, err := core.NewNode(r.node, "DefaultPolicy")
		if err != nil {
			return err
		}
		doc := intrinsics.NewPolicyDocument()
		doc.AddStatements(statements...)
		if _, err := core.NewCfnResource(node, "Resource", &iamres.Policy{
			PolicyName:     node.UniqueID(),
			PolicyDocument: doc,
			Roles:          []any{r.resource.Ref()},
		}); err != nil {
			return err
		}
		r.defaultPolicy = doc
		return nil
	}
	r.defaultPolicy.AddStatements(statements...)
	return nil
}

// DefaultPolicy returns the document of the default policy, or nil if no
// statements were added.
func (r *Role) DefaultPolicy() *intrinsics.PolicyDocument { return r.defaultPolicy }

type importedRole struct {
	arn string
}

// FromRoleArn references an existing role. The role name is taken from the
// last path segment of the ARN.
func FromRoleArn(arn string) IRole {
	return &importedRole{arn: arn}
}

func (r *importedRole) RoleArn() string { return r.arn }

func (r *importedRole) RoleName() string {
	if !core.IsUnresolved(r.arn) {
		if i := strings.LastIndex(r.arn, "/"); i >= 0 {
			return r.arn[i+1:]
		}
		return r.arn
	}
	// arn:aws:iam::123456789012:role/name; paths are not supported here.
	return core.AsString(intrinsics.Select{
		Index: 1,
		List:  intrinsics.Split{Delimiter: "/", Source: r.arn},
	})
}

func (r *importedRole) AddToPrincipalPolicy(...intrinsics.PolicyStatement) error {
	return ErrImmutableRole
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
