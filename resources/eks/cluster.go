// Package eks provides property bags for AWS::EKS::* resources.
package eks

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// Cluster represents an AWS::EKS::Cluster resource.
type Cluster struct {
	ResourcesVpcConfig *Cluster_ResourcesVpcConfig `json:"ResourcesVpcConfig,omitempty" cfn:"required"`
	RoleArn            any                         `json:"RoleArn,omitempty" cfn:"required"`

	AccessConfig               *Cluster_AccessConfig            `json:"AccessConfig,omitempty"`
	BootstrapSelfManagedAddons any                              `json:"BootstrapSelfManagedAddons,omitempty"`
	EncryptionConfig           []any                            `json:"EncryptionConfig,omitempty"`
	KubernetesNetworkConfig    *Cluster_KubernetesNetworkConfig `json:"KubernetesNetworkConfig,omitempty"`
	Logging                    *Cluster_Logging                 `json:"Logging,omitempty"`
	Name                       any                              `json:"Name,omitempty"`
	OutpostConfig              any                              `json:"OutpostConfig,omitempty"`
	Tags                       []any                            `json:"Tags,omitempty"`
	UpgradePolicy              any                              `json:"UpgradePolicy,omitempty"`
	Version                    any                              `json:"Version,omitempty"`

	Arn                      wetwire.AttrRef `json:"-" attr:"Arn"`
	CertificateAuthorityData wetwire.AttrRef `json:"-" attr:"CertificateAuthorityData"`
	ClusterSecurityGroupId   wetwire.AttrRef `json:"-" attr:"ClusterSecurityGroupId"`
	EncryptionConfigKeyArn   wetwire.AttrRef `json:"-" attr:"EncryptionConfigKeyArn"`
	Endpoint                 wetwire.AttrRef `json:"-" attr:"Endpoint"`
	Id                       wetwire.AttrRef `json:"-" attr:"Id"`
	OpenIdConnectIssuerUrl   wetwire.AttrRef `json:"-" attr:"OpenIdConnectIssuerUrl"`
}

// ResourceType returns the CloudFormation resource type.
func (r Cluster) ResourceType() string {
	return "AWS::EKS::Cluster"
}

// Cluster_ResourcesVpcConfig places the control plane ENIs.
type Cluster_ResourcesVpcConfig struct {
	SubnetIds             []any `json:"SubnetIds,omitempty" cfn:"required"`
	EndpointPrivateAccess any   `json:"EndpointPrivateAccess,omitempty"`
	EndpointPublicAccess  any   `json:"EndpointPublicAccess,omitempty"`
	PublicAccessCidrs     []any `json:"PublicAccessCidrs,omitempty"`
	SecurityGroupIds      []any `json:"SecurityGroupIds,omitempty"`
}

// Cluster_AccessConfig selects how IAM principals authenticate to the cluster.
type Cluster_AccessConfig struct {
	// AuthenticationMode is CONFIG_MAP, API or API_AND_CONFIG_MAP.
	AuthenticationMode                      any `json:"AuthenticationMode,omitempty"`
	BootstrapClusterCreatorAdminPermissions any `json:"BootstrapClusterCreatorAdminPermissions,omitempty"`
}

// Cluster_EncryptionConfig enables envelope encryption of Kubernetes secrets.
type Cluster_EncryptionConfig struct {
	Provider  *Cluster_Provider `json:"Provider,omitempty"`
	Resources []any             `json:"Resources,omitempty"`
}

// Cluster_Provider names the KMS key used for envelope encryption.
type Cluster_Provider struct {
	KeyArn any `json:"KeyArn,omitempty"`
}

// Cluster_KubernetesNetworkConfig configures service addressing.
type Cluster_KubernetesNetworkConfig struct {
	IpFamily        any `json:"IpFamily,omitempty"`
	ServiceIpv4Cidr any `json:"ServiceIpv4Cidr,omitempty"`
}

// Cluster_Logging configures control plane log export.
type Cluster_Logging struct {
	ClusterLogging *Cluster_ClusterLogging `json:"ClusterLogging,omitempty"`
}

// Cluster_ClusterLogging lists the enabled log types.
type Cluster_ClusterLogging struct {
	EnabledTypes []any `json:"EnabledTypes,omitempty"`
}

// Cluster_LoggingTypeConfig is one of api, audit, authenticator,
// controllerManager or scheduler.
type Cluster_LoggingTypeConfig struct {
	Type_ any `json:"Type,omitempty"`
}
