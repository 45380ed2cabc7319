package eks

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Nodegroup represents an AWS::EKS::Nodegroup resource.
type Nodegroup struct {
	ClusterName any   `json:"ClusterName,omitempty" cfn:"required"`
	NodeRole    any   `json:"NodeRole,omitempty" cfn:"required"`
	Subnets     []any `json:"Subnets,omitempty" cfn:"required"`

	AmiType            any                           `json:"AmiType,omitempty"`
	CapacityType       any                           `json:"CapacityType,omitempty"`
	DiskSize           any                           `json:"DiskSize,omitempty"`
	ForceUpdateEnabled any                           `json:"ForceUpdateEnabled,omitempty"`
	InstanceTypes      []any                         `json:"InstanceTypes,omitempty"`
	Labels             map[string]any                `json:"Labels,omitempty"`
	LaunchTemplate     *Nodegroup_LaunchTemplateSpec `json:"LaunchTemplate,omitempty"`
	NodegroupName      any                           `json:"NodegroupName,omitempty"`
	ReleaseVersion     any                           `json:"ReleaseVersion,omitempty"`
	RemoteAccess       *Nodegroup_RemoteAccess       `json:"RemoteAccess,omitempty"`
	ScalingConfig      *Nodegroup_ScalingConfig      `json:"ScalingConfig,omitempty"`
	Tags               map[string]any                `json:"Tags,omitempty"`
	Taints             []any                         `json:"Taints,omitempty"`
	UpdateConfig       *Nodegroup_UpdateConfig       `json:"UpdateConfig,omitempty"`
	Version            any                           `json:"Version,omitempty"`

	Arn            wetwire.AttrRef `json:"-" attr:"Arn"`
	ClusterName_   wetwire.AttrRef `json:"-" attr:"ClusterName"`
	Id             wetwire.AttrRef `json:"-" attr:"Id"`
	NodegroupName_ wetwire.AttrRef `json:"-" attr:"NodegroupName"`
}

// ResourceType returns the CloudFormation resource type.
func (r Nodegroup) ResourceType() string {
	return "AWS::EKS::Nodegroup"
}

// Nodegroup_LaunchTemplateSpec references an EC2 launch template by id or name.
type Nodegroup_LaunchTemplateSpec struct {
	Id      any `json:"Id,omitempty"`
	Name    any `json:"Name,omitempty"`
	Version any `json:"Version,omitempty"`
}

// Nodegroup_RemoteAccess enables SSH to nodes.
type Nodegroup_RemoteAccess struct {
	Ec2SshKey            any   `json:"Ec2SshKey,omitempty" cfn:"required"`
	SourceSecurityGroups []any `json:"SourceSecurityGroups,omitempty"`
}

// Nodegroup_ScalingConfig bounds the Auto Scaling group behind the node group.
type Nodegroup_ScalingConfig struct {
	DesiredSize any `json:"DesiredSize,omitempty"`
	MaxSize     any `json:"MaxSize,omitempty"`
	MinSize     any `json:"MinSize,omitempty"`
}

// Nodegroup_Taint is a Kubernetes taint applied to every node.
type Nodegroup_Taint struct {
	// Effect is NO_SCHEDULE, NO_EXECUTE or PREFER_NO_SCHEDULE.
	Effect any `json:"Effect,omitempty"`
	Key    any `json:"Key,omitempty"`
	Value  any `json:"Value,omitempty"`
}

// Nodegroup_UpdateConfig limits how many nodes are replaced at once.
type Nodegroup_UpdateConfig struct {
	MaxUnavailable           any `json:"MaxUnavailable,omitempty"`
	MaxUnavailablePercentage any `json:"MaxUnavailablePercentage,omitempty"`
}
