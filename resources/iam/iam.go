// Package iam provides property bags for the AWS::IAM::* resources the EKS
// and AppSync constructs create.
package iam

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Role represents an AWS::IAM::Role resource.
type Role struct {
	AssumeRolePolicyDocument any `json:"AssumeRolePolicyDocument,omitempty" cfn:"required"`

	Description         any   `json:"Description,omitempty"`
	ManagedPolicyArns   []any `json:"ManagedPolicyArns,omitempty"`
	MaxSessionDuration  any   `json:"MaxSessionDuration,omitempty"`
	Path                any   `json:"Path,omitempty"`
	PermissionsBoundary any   `json:"PermissionsBoundary,omitempty"`
	Policies            []any `json:"Policies,omitempty"`
	RoleName            any   `json:"RoleName,omitempty"`
	Tags                []any `json:"Tags,omitempty"`

	Arn    wetwire.AttrRef `json:"-" attr:"Arn"`
	RoleId wetwire.AttrRef `json:"-" attr:"RoleId"`
}

// ResourceType returns the CloudFormation resource type.
func (r Role) ResourceType() string {
	return "AWS::IAM::Role"
}

// Role_Policy is an inline policy embedded in a role.
type Role_Policy struct {
	PolicyDocument any `json:"PolicyDocument,omitempty" cfn:"required"`
	PolicyName     any `json:"PolicyName,omitempty" cfn:"required"`
}

// Policy represents an AWS::IAM::Policy resource.
type Policy struct {
	PolicyDocument any `json:"PolicyDocument,omitempty" cfn:"required"`
	PolicyName     any `json:"PolicyName,omitempty" cfn:"required"`

	Groups []any `json:"Groups,omitempty"`
	Roles  []any `json:"Roles,omitempty"`
	Users  []any `json:"Users,omitempty"`

	Id wetwire.AttrRef `json:"-" attr:"Id"`
}

// ResourceType returns the CloudFormation resource type.
func (r Policy) ResourceType() string {
	return "AWS::IAM::Policy"
}

// InstanceProfile represents an AWS::IAM::InstanceProfile resource.
type InstanceProfile struct {
	Roles               []any `json:"Roles,omitempty" cfn:"required"`
	InstanceProfileName any   `json:"InstanceProfileName,omitempty"`
	Path                any   `json:"Path,omitempty"`

	Arn wetwire.AttrRef `json:"-" attr:"Arn"`
}

// ResourceType returns the CloudFormation resource type.
func (r InstanceProfile) ResourceType() string {
	return "AWS::IAM::InstanceProfile"
}

// OIDCProvider represents an AWS::IAM::OIDCProvider resource.
type OIDCProvider struct {
	ClientIdList   []any `json:"ClientIdList,omitempty"`
	Tags           []any `json:"Tags,omitempty"`
	ThumbprintList []any `json:"ThumbprintList,omitempty"`
	Url            any   `json:"Url,omitempty"`

	Arn wetwire.AttrRef `json:"-" attr:"Arn"`
}

// ResourceType returns the CloudFormation resource type.
func (r OIDCProvider) ResourceType() string {
	return "AWS::IAM::OIDCProvider"
}
