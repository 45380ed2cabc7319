// Package ec2 provides property bags for the AWS::EC2::* networking and
// launch resources used by EKS clusters.
package ec2

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// VPC represents an AWS::EC2::VPC resource.
type VPC struct {
	CidrBlock          any   `json:"CidrBlock,omitempty"`
	EnableDnsHostnames any   `json:"EnableDnsHostnames,omitempty"`
	EnableDnsSupport   any   `json:"EnableDnsSupport,omitempty"`
	InstanceTenancy    any   `json:"InstanceTenancy,omitempty"`
	Tags               []any `json:"Tags,omitempty"`

	CidrBlock_           wetwire.AttrRef `json:"-" attr:"CidrBlock"`
	DefaultSecurityGroup wetwire.AttrRef `json:"-" attr:"DefaultSecurityGroup"`
	VpcId                wetwire.AttrRef `json:"-" attr:"VpcId"`
}

// ResourceType returns the CloudFormation resource type.
func (r VPC) ResourceType() string {
	return "AWS::EC2::VPC"
}

// Subnet represents an AWS::EC2::Subnet resource.
type Subnet struct {
	VpcId any `json:"VpcId,omitempty" cfn:"required"`

	AvailabilityZone    any   `json:"AvailabilityZone,omitempty"`
	CidrBlock           any   `json:"CidrBlock,omitempty"`
	MapPublicIpOnLaunch any   `json:"MapPublicIpOnLaunch,omitempty"`
	Tags                []any `json:"Tags,omitempty"`

	AvailabilityZone_ wetwire.AttrRef `json:"-" attr:"AvailabilityZone"`
	SubnetId          wetwire.AttrRef `json:"-" attr:"SubnetId"`
}

// ResourceType returns the CloudFormation resource type.
func (r Subnet) ResourceType() string {
	return "AWS::EC2::Subnet"
}

// InternetGateway represents an AWS::EC2::InternetGateway resource.
type InternetGateway struct {
	Tags []any `json:"Tags,omitempty"`

	InternetGatewayId wetwire.AttrRef `json:"-" attr:"InternetGatewayId"`
}

// ResourceType returns the CloudFormation resource type.
func (r InternetGateway) ResourceType() string {
	return "AWS::EC2::InternetGateway"
}

// VPCGatewayAttachment represents an AWS::EC2::VPCGatewayAttachment resource.
type VPCGatewayAttachment struct {
	VpcId             any `json:"VpcId,omitempty" cfn:"required"`
	InternetGatewayId any `json:"InternetGatewayId,omitempty"`
	VpnGatewayId      any `json:"VpnGatewayId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r VPCGatewayAttachment) ResourceType() string {
	return "AWS::EC2::VPCGatewayAttachment"
}

// RouteTable represents an AWS::EC2::RouteTable resource.
type RouteTable struct {
	VpcId any   `json:"VpcId,omitempty" cfn:"required"`
	Tags  []any `json:"Tags,omitempty"`

	RouteTableId wetwire.AttrRef `json:"-" attr:"RouteTableId"`
}

// ResourceType returns the CloudFormation resource type.
func (r RouteTable) ResourceType() string {
	return "AWS::EC2::RouteTable"
}

// Route represents an AWS::EC2::Route resource.
type Route struct {
	RouteTableId         any `json:"RouteTableId,omitempty" cfn:"required"`
	DestinationCidrBlock any `json:"DestinationCidrBlock,omitempty"`
	GatewayId            any `json:"GatewayId,omitempty"`
	NatGatewayId         any `json:"NatGatewayId,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r Route) ResourceType() string {
	return "AWS::EC2::Route"
}

// SubnetRouteTableAssociation represents an AWS::EC2::SubnetRouteTableAssociation resource.
type SubnetRouteTableAssociation struct {
	RouteTableId any `json:"RouteTableId,omitempty" cfn:"required"`
	SubnetId     any `json:"SubnetId,omitempty" cfn:"required"`
}

// ResourceType returns the CloudFormation resource type.
func (r SubnetRouteTableAssociation) ResourceType() string {
	return "AWS::EC2::SubnetRouteTableAssociation"
}

// EIP represents an AWS::EC2::EIP resource.
type EIP struct {
	Domain any   `json:"Domain,omitempty"`
	Tags   []any `json:"Tags,omitempty"`

	AllocationId wetwire.AttrRef `json:"-" attr:"AllocationId"`
	PublicIp     wetwire.AttrRef `json:"-" attr:"PublicIp"`
}

// ResourceType returns the CloudFormation resource type.
func (r EIP) ResourceType() string {
	return "AWS::EC2::EIP"
}

// NatGateway represents an AWS::EC2::NatGateway resource.
type NatGateway struct {
	SubnetId     any   `json:"SubnetId,omitempty" cfn:"required"`
	AllocationId any   `json:"AllocationId,omitempty"`
	Tags         []any `json:"Tags,omitempty"`

	NatGatewayId wetwire.AttrRef `json:"-" attr:"NatGatewayId"`
}

// ResourceType returns the CloudFormation resource type.
func (r NatGateway) ResourceType() string {
	return "AWS::EC2::NatGateway"
}

// SecurityGroup represents an AWS::EC2::SecurityGroup resource.
type SecurityGroup struct {
	GroupDescription any `json:"GroupDescription,omitempty" cfn:"required"`

	GroupName            any   `json:"GroupName,omitempty"`
	SecurityGroupEgress  []any `json:"SecurityGroupEgress,omitempty"`
	SecurityGroupIngress []any `json:"SecurityGroupIngress,omitempty"`
	Tags                 []any `json:"Tags,omitempty"`
	VpcId                any   `json:"VpcId,omitempty"`

	GroupId wetwire.AttrRef `json:"-" attr:"GroupId"`
	VpcId_  wetwire.AttrRef `json:"-" attr:"VpcId"`
}

// ResourceType returns the CloudFormation resource type.
func (r SecurityGroup) ResourceType() string {
	return "AWS::EC2::SecurityGroup"
}

// SecurityGroup_Rule is an inline ingress or egress rule.
type SecurityGroup_Rule struct {
	IpProtocol            any `json:"IpProtocol,omitempty" cfn:"required"`
	CidrIp                any `json:"CidrIp,omitempty"`
	Description           any `json:"Description,omitempty"`
	FromPort              any `json:"FromPort,omitempty"`
	SourceSecurityGroupId any `json:"SourceSecurityGroupId,omitempty"`
	ToPort                any `json:"ToPort,omitempty"`
}

// SecurityGroupIngress represents an AWS::EC2::SecurityGroupIngress resource.
type SecurityGroupIngress struct {
	IpProtocol any `json:"IpProtocol,omitempty" cfn:"required"`

	CidrIp                any `json:"CidrIp,omitempty"`
	Description           any `json:"Description,omitempty"`
	FromPort              any `json:"FromPort,omitempty"`
	GroupId               any `json:"GroupId,omitempty"`
	SourceSecurityGroupId any `json:"SourceSecurityGroupId,omitempty"`
	ToPort                any `json:"ToPort,omitempty"`
}

// ResourceType returns the CloudFormation resource type.
func (r SecurityGroupIngress) ResourceType() string {
	return "AWS::EC2::SecurityGroupIngress"
}

// LaunchTemplate represents an AWS::EC2::LaunchTemplate resource.
type LaunchTemplate struct {
	LaunchTemplateData *LaunchTemplate_LaunchTemplateData `json:"LaunchTemplateData,omitempty" cfn:"required"`
	LaunchTemplateName any                                `json:"LaunchTemplateName,omitempty"`

	DefaultVersionNumber wetwire.AttrRef `json:"-" attr:"DefaultVersionNumber"`
	LatestVersionNumber  wetwire.AttrRef `json:"-" attr:"LatestVersionNumber"`
	LaunchTemplateId     wetwire.AttrRef `json:"-" attr:"LaunchTemplateId"`
}

// ResourceType returns the CloudFormation resource type.
func (r LaunchTemplate) ResourceType() string {
	return "AWS::EC2::LaunchTemplate"
}

// LaunchTemplate_LaunchTemplateData holds the instance configuration.
type LaunchTemplate_LaunchTemplateData struct {
	BlockDeviceMappings []any                              `json:"BlockDeviceMappings,omitempty"`
	IamInstanceProfile  *LaunchTemplate_IamInstanceProfile `json:"IamInstanceProfile,omitempty"`
	ImageId             any                                `json:"ImageId,omitempty"`
	InstanceType        any                                `json:"InstanceType,omitempty"`
	KeyName             any                                `json:"KeyName,omitempty"`
	MetadataOptions     *LaunchTemplate_MetadataOptions    `json:"MetadataOptions,omitempty"`
	SecurityGroupIds    []any                              `json:"SecurityGroupIds,omitempty"`
	TagSpecifications   []any                              `json:"TagSpecifications,omitempty"`
	UserData            any                                `json:"UserData,omitempty"`
}

// LaunchTemplate_IamInstanceProfile attaches an instance profile by ARN or name.
type LaunchTemplate_IamInstanceProfile struct {
	Arn  any `json:"Arn,omitempty"`
	Name any `json:"Name,omitempty"`
}

// LaunchTemplate_MetadataOptions configures IMDS.
type LaunchTemplate_MetadataOptions struct {
	HttpEndpoint            any `json:"HttpEndpoint,omitempty"`
	HttpPutResponseHopLimit any `json:"HttpPutResponseHopLimit,omitempty"`
	HttpTokens              any `json:"HttpTokens,omitempty"`
}
