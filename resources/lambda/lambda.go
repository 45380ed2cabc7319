// Package lambda provides property bags for AWS::Lambda::* resources.
package lambda

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Function represents an AWS::Lambda::Function resource.
type Function struct {
	Code *Function_Code `json:"Code,omitempty" cfn:"required"`
	Role any            `json:"Role,omitempty" cfn:"required"`

	Architectures []any                 `json:"Architectures,omitempty"`
	Description   any                   `json:"Description,omitempty"`
	Environment   *Function_Environment `json:"Environment,omitempty"`
	FunctionName  any                   `json:"FunctionName,omitempty"`
	Handler       any                   `json:"Handler,omitempty"`
	Layers        []any                 `json:"Layers,omitempty"`
	MemorySize    any                   `json:"MemorySize,omitempty"`
	Runtime       any                   `json:"Runtime,omitempty"`
	Tags          []any                 `json:"Tags,omitempty"`
	Timeout       any                   `json:"Timeout,omitempty"`
	VpcConfig     *Function_VpcConfig   `json:"VpcConfig,omitempty"`

	Arn wetwire.AttrRef `json:"-" attr:"Arn"`
}

// ResourceType returns the CloudFormation resource type.
func (r Function) ResourceType() string {
	return "AWS::Lambda::Function"
}

// Function_Code locates the deployment package.
type Function_Code struct {
	ImageUri any `json:"ImageUri,omitempty"`
	S3Bucket any `json:"S3Bucket,omitempty"`
	S3Key    any `json:"S3Key,omitempty"`
	ZipFile  any `json:"ZipFile,omitempty"`
}

// Function_Environment holds environment variables.
type Function_Environment struct {
	Variables map[string]any `json:"Variables,omitempty"`
}

// Function_VpcConfig attaches the function to subnets.
type Function_VpcConfig struct {
	SecurityGroupIds []any `json:"SecurityGroupIds,omitempty"`
	SubnetIds        []any `json:"SubnetIds,omitempty"`
}

// LayerVersion represents an AWS::Lambda::LayerVersion resource.
// Ref returns the layer version ARN.
type LayerVersion struct {
	Content *LayerVersion_Content `json:"Content,omitempty" cfn:"required"`

	CompatibleRuntimes []any `json:"CompatibleRuntimes,omitempty"`
	Description        any   `json:"Description,omitempty"`
	LayerName          any   `json:"LayerName,omitempty"`
	LicenseInfo        any   `json:"LicenseInfo,omitempty"`

	LayerVersionArn wetwire.AttrRef `json:"-" attr:"LayerVersionArn"`
}

// ResourceType returns the CloudFormation resource type.
func (r LayerVersion) ResourceType() string {
	return "AWS::Lambda::LayerVersion"
}

// LayerVersion_Content locates the layer archive.
type LayerVersion_Content struct {
	S3Bucket any `json:"S3Bucket,omitempty" cfn:"required"`
	S3Key    any `json:"S3Key,omitempty" cfn:"required"`
}

// Permission represents an AWS::Lambda::Permission resource granting a
// principal the right to invoke a function.
type Permission struct {
	Action       any `json:"Action,omitempty" cfn:"required"`
	FunctionName any `json:"FunctionName,omitempty" cfn:"required"`
	Principal    any `json:"Principal,omitempty" cfn:"required"`

	SourceAccount any `json:"SourceAccount,omitempty"`
	SourceArn     any `json:"SourceArn,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Permission) ResourceType() string {
	return "AWS::Lambda::Permission"
}
