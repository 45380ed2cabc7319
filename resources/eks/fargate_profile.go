package eks

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// FargateProfile represents an AWS::EKS::FargateProfile resource.
type FargateProfile struct {
	ClusterName         any   `json:"ClusterName,omitempty" cfn:"required"`
	PodExecutionRoleArn any   `json:"PodExecutionRoleArn,omitempty" cfn:"required"`
	Selectors           []any `json:"Selectors,omitempty" cfn:"required"`

	FargateProfileName any   `json:"FargateProfileName,omitempty"`
	Subnets            []any `json:"Subnets,omitempty"`
	Tags               []any `json:"Tags,omitempty"`

	Arn wetwire.AttrRef `json:"-" attr:"Arn"`
}

// ResourceType returns the CloudFormation resource type.
func (r FargateProfile) ResourceType() string {
	return "AWS::EKS::FargateProfile"
}

// FargateProfile_Selector matches pods by namespace and labels.
type FargateProfile_Selector struct {
	Namespace any   `json:"Namespace,omitempty" cfn:"required"`
	Labels    []any `json:"Labels,omitempty"`
}

// FargateProfile_Label is a single key/value label selector.
type FargateProfile_Label struct {
	Key   any `json:"Key,omitempty" cfn:"required"`
	Value any `json:"Value,omitempty" cfn:"required"`
}
