package intrinsics

import (
	"encoding/json"
)

// Json is a shorthand for map[string]any.
// Used for inline JSON objects like Condition blocks.
type Json = map[string]any

// Any creates a []any slice from the given items.
//
//	SubnetIds: Any(PrivateA.Ref(), PrivateB.Ref()),
func Any(items ...any) []any {
	return items
}

// PolicyVersion is the only IAM policy language version in use.
const PolicyVersion = "2012-10-17"

// PolicyDocument represents an IAM policy document.
type PolicyDocument struct {
	Version   string `json:"Version,omitempty"`
	Statement []any  `json:"Statement"`
}

// NewPolicyDocument creates a PolicyDocument with the default version.
func NewPolicyDocument(statements ...any) *PolicyDocument {
	return &PolicyDocument{Version: PolicyVersion, Statement: statements}
}

// AddStatements appends statements, skipping any already present by value.
func (d *PolicyDocument) AddStatements(statements ...PolicyStatement) {
	for _, s := range statements {
		if !d.has(s) {
			d.Statement = append(d.Statement, s)
		}
	}
}

// IsEmpty reports whether the document has no statements.
func (d *PolicyDocument) IsEmpty() bool {
	return d == nil || len(d.Statement) == 0
}

func (d *PolicyDocument) has(s PolicyStatement) bool {
	want, err := json.Marshal(s)
	if err != nil {
		return false
	}
	for _, existing := range d.Statement {
		got, err := json.Marshal(existing)
		if err == nil && string(got) == string(want) {
			return true
		}
	}
	return false
}

// PolicyStatement represents an IAM policy statement.
type PolicyStatement struct {
	Sid       string `json:"Sid,omitempty"`
	Effect    string `json:"Effect"`
	Principal any    `json:"Principal,omitempty"`
	Action    any    `json:"Action,omitempty"`
	Resource  any    `json:"Resource,omitempty"`
	Condition any    `json:"Condition,omitempty"`
}

// Allow returns an Allow statement for the given actions and resources.
func Allow(actions []string, resources ...any) PolicyStatement {
	s := PolicyStatement{Effect: "Allow", Action: stringsOrOne(actions)}
	switch len(resources) {
	case 0:
		s.Resource = "*"
	case 1:
		s.Resource = resources[0]
	default:
		s.Resource = resources
	}
	return s
}

// AssumeRoleStatement trusts principal to call sts:AssumeRole.
func AssumeRoleStatement(principal any) PolicyStatement {
	return PolicyStatement{
		Effect:    "Allow",
		Principal: principal,
		Action:    "sts:AssumeRole",
	}
}

// WebIdentityStatement trusts an OIDC provider to call
// sts:AssumeRoleWithWebIdentity under the given conditions.
func WebIdentityStatement(providerArn any, conditions any) PolicyStatement {
	return PolicyStatement{
		Effect:    "Allow",
		Principal: FederatedPrincipal{providerArn},
		Action:    "sts:AssumeRoleWithWebIdentity",
		Condition: conditions,
	}
}

func stringsOrOne(actions []string) any {
	if len(actions) == 1 {
		return actions[0]
	}
	out := make([]any, len(actions))
	for i, a := range actions {
		out[i] = a
	}
	return out
}

// ServicePrincipal represents a service principal (e.g., eks.amazonaws.com).
// Serializes to {"Service": ...} format.
type ServicePrincipal []any

// MarshalJSON serializes to {"Service": ...} format.
func (p ServicePrincipal) MarshalJSON() ([]byte, error) {
	return marshalPrincipal("Service", p)
}

// AWSPrincipal represents an AWS account/role/user principal.
// Serializes to {"AWS": ...} format.
type AWSPrincipal []any

// MarshalJSON serializes to {"AWS": ...} format.
func (p AWSPrincipal) MarshalJSON() ([]byte, error) {
	return marshalPrincipal("AWS", p)
}

// FederatedPrincipal represents a federated identity principal, such as an
// EKS cluster's OIDC provider.
// Serializes to {"Federated": ...} format.
type FederatedPrincipal []any

// MarshalJSON serializes to {"Federated": ...} format.
func (p FederatedPrincipal) MarshalJSON() ([]byte, error) {
	return marshalPrincipal("Federated", p)
}

func marshalPrincipal(kind string, values []any) ([]byte, error) {
	if len(values) == 1 {
		return json.Marshal(map[string]any{kind: values[0]})
	}
	return json.Marshal(map[string]any{kind: values})
}

// AccountRootPrincipal trusts the stack's own account.
func AccountRootPrincipal() AWSPrincipal {
	return AWSPrincipal{Sub{String: "arn:${AWS::Partition}:iam::${AWS::AccountId}:root"}}
}

// IAM condition operators used by generated trust policies.
const (
	StringEquals = "StringEquals"
	StringLike   = "StringLike"
	ArnLike      = "ArnLike"
	Bool         = "Bool"
)
