package eks

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Addon represents an AWS::EKS::Addon resource.
type Addon struct {
	AddonName   any `json:"AddonName,omitempty" cfn:"required"`
	ClusterName any `json:"ClusterName,omitempty" cfn:"required"`

	AddonVersion            any   `json:"AddonVersion,omitempty"`
	ConfigurationValues     any   `json:"ConfigurationValues,omitempty"`
	PodIdentityAssociations []any `json:"PodIdentityAssociations,omitempty"`
	PreserveOnDelete        any   `json:"PreserveOnDelete,omitempty"`
	// ResolveConflicts is NONE, OVERWRITE or PRESERVE.
	ResolveConflicts      any   `json:"ResolveConflicts,omitempty"`
	ServiceAccountRoleArn any   `json:"ServiceAccountRoleArn,omitempty"`
	Tags                  []any `json:"Tags,omitempty"`

	Arn wetwire.AttrRef `json:"-" attr:"Arn"`
}

// ResourceType returns the CloudFormation resource type.
func (r Addon) ResourceType() string {
	return "AWS::EKS::Addon"
}

// IdentityProviderConfig represents an AWS::EKS::IdentityProviderConfig resource.
type IdentityProviderConfig struct {
	ClusterName any `json:"ClusterName,omitempty" cfn:"required"`
	// Type_ is always "oidc".
	Type_ any `json:"Type,omitempty" cfn:"required"`

	IdentityProviderConfigName any                                          `json:"IdentityProviderConfigName,omitempty"`
	Oidc                       *IdentityProviderConfig_OidcIdentityProvider `json:"Oidc,omitempty"`
	Tags                       []any                                        `json:"Tags,omitempty"`

	IdentityProviderConfigArn wetwire.AttrRef `json:"-" attr:"IdentityProviderConfigArn"`
}

// ResourceType returns the CloudFormation resource type.
func (r IdentityProviderConfig) ResourceType() string {
	return "AWS::EKS::IdentityProviderConfig"
}

// IdentityProviderConfig_OidcIdentityProvider configures an external OIDC issuer.
type IdentityProviderConfig_OidcIdentityProvider struct {
	ClientId       any   `json:"ClientId,omitempty" cfn:"required"`
	IssuerUrl      any   `json:"IssuerUrl,omitempty" cfn:"required"`
	GroupsClaim    any   `json:"GroupsClaim,omitempty"`
	GroupsPrefix   any   `json:"GroupsPrefix,omitempty"`
	RequiredClaims []any `json:"RequiredClaims,omitempty"`
	UsernameClaim  any   `json:"UsernameClaim,omitempty"`
	UsernamePrefix any   `json:"UsernamePrefix,omitempty"`
}

// AccessEntry represents an AWS::EKS::AccessEntry resource.
type AccessEntry struct {
	ClusterName  any `json:"ClusterName,omitempty" cfn:"required"`
	PrincipalArn any `json:"PrincipalArn,omitempty" cfn:"required"`

	AccessPolicies   []any `json:"AccessPolicies,omitempty"`
	KubernetesGroups []any `json:"KubernetesGroups,omitempty"`
	Tags             []any `json:"Tags,omitempty"`
	Type_            any   `json:"Type,omitempty"`
	Username         any   `json:"Username,omitempty"`

	AccessEntryArn wetwire.AttrRef `json:"-" attr:"AccessEntryArn"`
}

// ResourceType returns the CloudFormation resource type.
func (r AccessEntry) ResourceType() string {
	return "AWS::EKS::AccessEntry"
}

// AccessEntry_AccessPolicy associates an EKS access policy with the entry.
type AccessEntry_AccessPolicy struct {
	AccessScope *AccessEntry_AccessScope `json:"AccessScope,omitempty" cfn:"required"`
	PolicyArn   any                      `json:"PolicyArn,omitempty" cfn:"required"`
}

// AccessEntry_AccessScope is "cluster" or "namespace" scoped.
type AccessEntry_AccessScope struct {
	Type_      any   `json:"Type,omitempty" cfn:"required"`
	Namespaces []any `json:"Namespaces,omitempty"`
}

// PodIdentityAssociation represents an AWS::EKS::PodIdentityAssociation resource.
type PodIdentityAssociation struct {
	ClusterName    any   `json:"ClusterName,omitempty" cfn:"required"`
	Namespace      any   `json:"Namespace,omitempty" cfn:"required"`
	RoleArn        any   `json:"RoleArn,omitempty" cfn:"required"`
	ServiceAccount any   `json:"ServiceAccount,omitempty" cfn:"required"`
	Tags           []any `json:"Tags,omitempty"`

	AssociationArn wetwire.AttrRef `json:"-" attr:"AssociationArn"`
	AssociationId  wetwire.AttrRef `json:"-" attr:"AssociationId"`
}

// ResourceType returns the CloudFormation resource type.
func (r PodIdentityAssociation) ResourceType() string {
	return "AWS::EKS::PodIdentityAssociation"
}
