// Package dynamodb provides property bags for AWS::DynamoDB::* resources.
package dynamodb

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Table represents an AWS::DynamoDB::Table resource.
type Table struct {
	KeySchema []any `json:"KeySchema,omitempty" cfn:"required"`

	AttributeDefinitions   []any `json:"AttributeDefinitions,omitempty"`
	BillingMode            any   `json:"BillingMode,omitempty"`
	GlobalSecondaryIndexes []any `json:"GlobalSecondaryIndexes,omitempty"`
	StreamSpecification    any   `json:"StreamSpecification,omitempty"`
	TableName              any   `json:"TableName,omitempty"`
	Tags                   []any `json:"Tags,omitempty"`

	Arn       wetwire.AttrRef `json:"-" attr:"Arn"`
	StreamArn wetwire.AttrRef `json:"-" attr:"StreamArn"`
}

// ResourceType returns the CloudFormation resource type.
func (r Table) ResourceType() string {
	return "AWS::DynamoDB::Table"
}

// Table_KeySchema is a HASH or RANGE key element.
type Table_KeySchema struct {
	AttributeName any `json:"AttributeName,omitempty" cfn:"required"`
	KeyType       any `json:"KeyType,omitempty" cfn:"required"`
}

// Table_AttributeDefinition declares the scalar type of a key attribute.
type Table_AttributeDefinition struct {
	AttributeName any `json:"AttributeName,omitempty" cfn:"required"`
	AttributeType any `json:"AttributeType,omitempty" cfn:"required"`
}
