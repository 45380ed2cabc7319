package appsync

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// GraphQLSchema represents an AWS::AppSync::GraphQLSchema resource.
// Exactly one of Definition or DefinitionS3Location should be set.
type GraphQLSchema struct {
	ApiId                any `json:"ApiId,omitempty" cfn:"required"`
	Definition           any `json:"Definition,omitempty"`
	DefinitionS3Location any `json:"DefinitionS3Location,omitempty"`

	Id wetwire.AttrRef `json:"-" attr:"Id"`
}

// ResourceType returns the CloudFormation resource type.
func (r GraphQLSchema) ResourceType() string {
	return "AWS::AppSync::GraphQLSchema"
}
