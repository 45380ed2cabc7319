// Package autoscaling provides property bags for AWS::AutoScaling::* resources.
package autoscaling

// AutoScalingGroup represents an AWS::AutoScaling::AutoScalingGroup resource.
type AutoScalingGroup struct {
	MaxSize any `json:"MaxSize,omitempty" cfn:"required"`
	MinSize any `json:"MinSize,omitempty" cfn:"required"`

	AutoScalingGroupName any                                           `json:"AutoScalingGroupName,omitempty"`
	DesiredCapacity      any                                           `json:"DesiredCapacity,omitempty"`
	LaunchTemplate       *AutoScalingGroup_LaunchTemplateSpecification `json:"LaunchTemplate,omitempty"`
	Tags                 []any                                         `json:"Tags,omitempty"`
	VPCZoneIdentifier    []any                                         `json:"VPCZoneIdentifier,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r AutoScalingGroup) ResourceType() string {
	return "AWS::AutoScaling::AutoScalingGroup"
}

// AutoScalingGroup_LaunchTemplateSpecification references a launch template version.
type AutoScalingGroup_LaunchTemplateSpecification struct {
	Version            any `json:"Version,omitempty" cfn:"required"`
	LaunchTemplateId   any `json:"LaunchTemplateId,omitempty"`
	LaunchTemplateName any `json:"LaunchTemplateName,omitempty"`
}

// AutoScalingGroup_TagProperty is a tag with launch propagation.
type AutoScalingGroup_TagProperty struct {
	Key               any `json:"Key,omitempty" cfn:"required"`
	PropagateAtLaunch any `json:"PropagateAtLaunch,omitempty" cfn:"required"`
	Value             any `json:"Value,omitempty" cfn:"required"`
}
