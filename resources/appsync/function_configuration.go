package appsync

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// FunctionConfiguration represents an AWS::AppSync::FunctionConfiguration
// resource, a reusable step of a pipeline resolver.
type FunctionConfiguration struct {
	ApiId          any `json:"ApiId,omitempty" cfn:"required"`
	DataSourceName any `json:"DataSourceName,omitempty" cfn:"required"`
	Name           any `json:"Name,omitempty" cfn:"required"`

	Code                              any                      `json:"Code,omitempty"`
	CodeS3Location                    any                      `json:"CodeS3Location,omitempty"`
	Description                       any                      `json:"Description,omitempty"`
	FunctionVersion                   any                      `json:"FunctionVersion,omitempty"`
	MaxBatchSize                      any                      `json:"MaxBatchSize,omitempty"`
	RequestMappingTemplate            any                      `json:"RequestMappingTemplate,omitempty"`
	RequestMappingTemplateS3Location  any                      `json:"RequestMappingTemplateS3Location,omitempty"`
	ResponseMappingTemplate           any                      `json:"ResponseMappingTemplate,omitempty"`
	ResponseMappingTemplateS3Location any                      `json:"ResponseMappingTemplateS3Location,omitempty"`
	Runtime                           *Resolver_AppSyncRuntime `json:"Runtime,omitempty"`
	SyncConfig                        *Resolver_SyncConfig     `json:"SyncConfig,omitempty"`

	DataSourceName_ wetwire.AttrRef `json:"-" attr:"DataSourceName"`
	FunctionArn     wetwire.AttrRef `json:"-" attr:"FunctionArn"`
	FunctionId      wetwire.AttrRef `json:"-" attr:"FunctionId"`
	Name_           wetwire.AttrRef `json:"-" attr:"Name"`
}

// ResourceType returns the CloudFormation resource type.
func (r FunctionConfiguration) ResourceType() string {
	return "AWS::AppSync::FunctionConfiguration"
}
