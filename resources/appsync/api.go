package appsync

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// ApiKey represents an AWS::AppSync::ApiKey resource.
type ApiKey struct {
	ApiId       any `json:"ApiId,omitempty" cfn:"required"`
	ApiKeyId    any `json:"ApiKeyId,omitempty"`
	Description any `json:"Description,omitempty"`
	// Expires is a Unix timestamp in seconds, rounded down to the hour.
	Expires any `json:"Expires,omitempty"`

	ApiKey_   wetwire.AttrRef `json:"-" attr:"ApiKey"`
	ApiKeyId_ wetwire.AttrRef `json:"-" attr:"ApiKeyId"`
	Arn       wetwire.AttrRef `json:"-" attr:"Arn"`
}

// ResourceType returns the CloudFormation resource type.
func (r ApiKey) ResourceType() string {
	return "AWS::AppSync::ApiKey"
}

// ApiCache represents an AWS::AppSync::ApiCache resource.
type ApiCache struct {
	// ApiCachingBehavior is FULL_REQUEST_CACHING or PER_RESOLVER_CACHING.
	ApiCachingBehavior any `json:"ApiCachingBehavior,omitempty" cfn:"required"`
	ApiId              any `json:"ApiId,omitempty" cfn:"required"`
	// Ttl is in seconds, 1 to 3600.
	Ttl   any `json:"Ttl,omitempty" cfn:"required"`
	Type_ any `json:"Type,omitempty" cfn:"required"`

	AtRestEncryptionEnabled  any `json:"AtRestEncryptionEnabled,omitempty"`
	HealthMetricsConfig      any `json:"HealthMetricsConfig,omitempty"`
	TransitEncryptionEnabled any `json:"TransitEncryptionEnabled,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r ApiCache) ResourceType() string {
	return "AWS::AppSync::ApiCache"
}

// DomainName represents an AWS::AppSync::DomainName resource.
type DomainName struct {
	CertificateArn any   `json:"CertificateArn,omitempty" cfn:"required"`
	DomainName     any   `json:"DomainName,omitempty" cfn:"required"`
	Description    any   `json:"Description,omitempty"`
	Tags           []any `json:"Tags,omitempty"`

	AppSyncDomainName wetwire.AttrRef `json:"-" attr:"AppSyncDomainName"`
	DomainNameArn     wetwire.AttrRef `json:"-" attr:"DomainNameArn"`
	DomainName_       wetwire.AttrRef `json:"-" attr:"DomainName"`
	HostedZoneId      wetwire.AttrRef `json:"-" attr:"HostedZoneId"`
}

// ResourceType returns the CloudFormation resource type.
func (r DomainName) ResourceType() string {
	return "AWS::AppSync::DomainName"
}

// DomainNameApiAssociation represents an AWS::AppSync::DomainNameApiAssociation resource.
type DomainNameApiAssociation struct {
	ApiId      any `json:"ApiId,omitempty" cfn:"required"`
	DomainName any `json:"DomainName,omitempty" cfn:"required"`

	ApiAssociationIdentifier wetwire.AttrRef `json:"-" attr:"ApiAssociationIdentifier"`
}

// ResourceType returns the CloudFormation resource type.
func (r DomainNameApiAssociation) ResourceType() string {
	return "AWS::AppSync::DomainNameApiAssociation"
}

// SourceApiAssociation represents an AWS::AppSync::SourceApiAssociation
// resource linking a source API into a merged API.
type SourceApiAssociation struct {
	Description                any                                              `json:"Description,omitempty"`
	MergedApiIdentifier        any                                              `json:"MergedApiIdentifier,omitempty"`
	SourceApiAssociationConfig *SourceApiAssociation_SourceApiAssociationConfig `json:"SourceApiAssociationConfig,omitempty"`
	SourceApiIdentifier        any                                              `json:"SourceApiIdentifier,omitempty"`

	AssociationArn wetwire.AttrRef `json:"-" attr:"AssociationArn"`
	AssociationId  wetwire.AttrRef `json:"-" attr:"AssociationId"`
	MergedApiArn   wetwire.AttrRef `json:"-" attr:"MergedApiArn"`
	SourceApiArn   wetwire.AttrRef `json:"-" attr:"SourceApiArn"`
}

// ResourceType returns the CloudFormation resource type.
func (r SourceApiAssociation) ResourceType() string {
	return "AWS::AppSync::SourceApiAssociation"
}

// SourceApiAssociation_SourceApiAssociationConfig selects AUTO_MERGE or MANUAL_MERGE.
type SourceApiAssociation_SourceApiAssociationConfig struct {
	MergeType any `json:"MergeType,omitempty"`
}
