package appsync

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Resolver represents an AWS::AppSync::Resolver resource.
type Resolver struct {
	ApiId     any `json:"ApiId,omitempty" cfn:"required"`
	FieldName any `json:"FieldName,omitempty" cfn:"required"`
	TypeName  any `json:"TypeName,omitempty" cfn:"required"`

	CachingConfig                     *Resolver_CachingConfig  `json:"CachingConfig,omitempty"`
	Code                              any                      `json:"Code,omitempty"`
	CodeS3Location                    any                      `json:"CodeS3Location,omitempty"`
	DataSourceName                    any                      `json:"DataSourceName,omitempty"`
	Kind                              any                      `json:"Kind,omitempty"`
	MaxBatchSize                      any                      `json:"MaxBatchSize,omitempty"`
	MetricsConfig                     any                      `json:"MetricsConfig,omitempty"`
	PipelineConfig                    *Resolver_PipelineConfig `json:"PipelineConfig,omitempty"`
	RequestMappingTemplate            any                      `json:"RequestMappingTemplate,omitempty"`
	RequestMappingTemplateS3Location  any                      `json:"RequestMappingTemplateS3Location,omitempty"`
	ResponseMappingTemplate           any                      `json:"ResponseMappingTemplate,omitempty"`
	ResponseMappingTemplateS3Location any                      `json:"ResponseMappingTemplateS3Location,omitempty"`
	Runtime                           *Resolver_AppSyncRuntime `json:"Runtime,omitempty"`
	SyncConfig                        *Resolver_SyncConfig     `json:"SyncConfig,omitempty"`

	FieldName_  wetwire.AttrRef `json:"-" attr:"FieldName"`
	ResolverArn wetwire.AttrRef `json:"-" attr:"ResolverArn"`
	TypeName_   wetwire.AttrRef `json:"-" attr:"TypeName"`
}

// ResourceType returns the CloudFormation resource type.
func (r Resolver) ResourceType() string {
	return "AWS::AppSync::Resolver"
}

// Resolver_CachingConfig enables per-resolver caching.
type Resolver_CachingConfig struct {
	Ttl         any   `json:"Ttl,omitempty" cfn:"required"`
	CachingKeys []any `json:"CachingKeys,omitempty"`
}

// Resolver_PipelineConfig lists the function IDs of a pipeline resolver.
type Resolver_PipelineConfig struct {
	Functions []any `json:"Functions,omitempty"`
}

// Resolver_AppSyncRuntime selects the APPSYNC_JS runtime.
type Resolver_AppSyncRuntime struct {
	Name           any `json:"Name,omitempty" cfn:"required"`
	RuntimeVersion any `json:"RuntimeVersion,omitempty" cfn:"required"`
}

// Resolver_SyncConfig configures conflict detection for versioned data sources.
type Resolver_SyncConfig struct {
	ConflictDetection           any `json:"ConflictDetection,omitempty" cfn:"required"`
	ConflictHandler             any `json:"ConflictHandler,omitempty"`
	LambdaConflictHandlerConfig any `json:"LambdaConflictHandlerConfig,omitempty"`
}
