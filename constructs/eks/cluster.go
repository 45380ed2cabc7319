// Package eks provides constructs for Amazon EKS clusters and the
// Kubernetes objects deployed into them.
//
// A Cluster declares the control plane, its IAM role and security group,
// and optional default capacity. Kubernetes objects, Helm charts and
// patches are applied by a kubectl Lambda provider that the cluster creates
// on first use:
//
//	cluster, err := eks.NewCluster(stack, "Cluster", eks.ClusterProps{
//		Version: eks.V1_30,
//	})
//	_, err = cluster.AddManifest("hello", map[string]any{
//		"apiVersion": "v1",
//		"kind":       "ConfigMap",
//		"metadata":   map[string]any{"name": "hello"},
//	})
//
// Resources created here reference each other through tokens, so nothing
// needs to be known until deploy time.
package eks

import (
	"fmt"
	"net/netip"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/constructs/ec2"
	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	ec2res "github.com/lex00/wetwire-cdk-go/resources/ec2"
	eksres "github.com/lex00/wetwire-cdk-go/resources/eks"
)

// Defaults applied by NewCluster.
const (
	DefaultCapacitySize     = 2
	DefaultCapacityInstance = "m5.large"
)

// ICluster is a cluster that Kubernetes resources can be deployed to,
// either managed by this app or imported with FromClusterAttributes.
type ICluster interface {
	core.Construct
	ClusterName() string
	ClusterArn() string
	// Vpc returns the cluster VPC. Imported clusters may return nil.
	Vpc() ec2.IVpc
	// Prune reports whether manifests prune objects removed between
	// deployments by default.
	Prune() bool
	KubectlProvider() (*KubectlProvider, error)
	OpenIdConnectProvider() (IOpenIdConnectProvider, error)

	AddManifest(id string, objects ...map[string]any) (*KubernetesManifest, error)
	AddHelmChart(id string, props HelmChartProps) (*HelmChart, error)
	AddServiceAccount(id string, props ServiceAccountProps) (*ServiceAccount, error)
	AddPatch(id string, props KubernetesPatchProps) (*KubernetesPatch, error)

	base() *clusterBase
}

// clusterBase holds what managed and imported clusters share.
type clusterBase struct {
	node *core.Node
	self ICluster

	clusterName string
	clusterArn  string
	vpc         ec2.IVpc
	prune       bool

	// kubectlRoleArn is set for imported clusters; managed clusters create
	// the role with the provider.
	kubectlRoleArn  string
	kubectlLayerArn string
	kubectlEnv      map[string]string
	kubectl         *KubectlProvider

	issuerURL string
	oidc      IOpenIdConnectProvider

	// Kubectl resources wait for the last Fargate profile; profiles are
	// chained, so that covers all of them.
	lastFargateProfile *FargateProfile
	kubectlResources   []*core.CfnResource
}

// attachKubectlResource makes res wait for the cluster's Fargate profiles.
func (b *clusterBase) attachKubectlResource(res *core.CfnResource) {
	if b.lastFargateProfile != nil {
		res.AddDependsOn(b.lastFargateProfile.resource)
	}
	b.kubectlResources = append(b.kubectlResources, res)
}

// attachFargateProfile records fp as the last profile and makes every
// kubectl resource defined so far wait for it.
func (b *clusterBase) attachFargateProfile(fp *FargateProfile) {
	if prev := b.lastFargateProfile; prev != nil {
		fp.resource.AddDependsOn(prev.resource)
	}
	b.lastFargateProfile = fp
	for _, res := range b.kubectlResources {
		res.AddDependsOn(fp.resource)
	}
}

func (b *clusterBase) base() *clusterBase { return b }

// Node returns the construct node.
func (b *clusterBase) Node() *core.Node { return b.node }

// ClusterName returns the cluster name.
func (b *clusterBase) ClusterName() string { return b.clusterName }

// ClusterArn returns the cluster ARN.
func (b *clusterBase) ClusterArn() string { return b.clusterArn }

// Vpc returns the cluster VPC.
func (b *clusterBase) Vpc() ec2.IVpc { return b.vpc }

// Prune reports the default prune setting for manifests.
func (b *clusterBase) Prune() bool { return b.prune }

// KubectlProvider returns the provider that applies Kubernetes resources,
// creating it on first use.
func (b *clusterBase) KubectlProvider() (*KubectlProvider, error) {
	if b.kubectl == nil {
		p, err := newKubectlProvider(b)
		if err != nil {
			return nil, err
		}
		b.kubectl = p
	}
	return b.kubectl, nil
}

// KubectlRoleArn returns the ARN of the role kubectl assumes to reach the
// cluster.
func (b *clusterBase) KubectlRoleArn() (string, error) {
	p, err := b.KubectlProvider()
	if err != nil {
		return "", err
	}
	return p.RoleArn(), nil
}

// OpenIdConnectProvider returns the IAM OIDC provider for the cluster
// issuer, creating it on first use.
func (b *clusterBase) OpenIdConnectProvider() (IOpenIdConnectProvider, error) {
	if b.oidc != nil {
		return b.oidc, nil
	}
	if b.issuerURL == "" {
		return nil, fmt.Errorf("cluster %s has no OpenID Connect provider; set OpenIdConnectProviderArn when importing it", b.node.Path())
	}
	p, err := NewOpenIdConnectProvider(b.node, "OpenIdConnectProvider", OpenIdConnectProviderProps{URL: b.issuerURL})
	if err != nil {
		return nil, err
	}
	b.oidc = p
	return p, nil
}

// AddManifest applies Kubernetes objects to the cluster.
func (b *clusterBase) AddManifest(id string, objects ...map[string]any) (*KubernetesManifest, error) {
	return NewKubernetesManifest(b.node, "manifest-"+id, KubernetesManifestProps{
		Cluster:  b.self,
		Manifest: objects,
	})
}

// AddHelmChart installs a Helm chart. props.Cluster is ignored.
func (b *clusterBase) AddHelmChart(id string, props HelmChartProps) (*HelmChart, error) {
	props.Cluster = b.self
	return NewHelmChart(b.node, "chart-"+id, props)
}

// AddServiceAccount creates a service account bound to an IAM role.
// props.Cluster is ignored.
func (b *clusterBase) AddServiceAccount(id string, props ServiceAccountProps) (*ServiceAccount, error) {
	props.Cluster = b.self
	return NewServiceAccount(b.node, id, props)
}

// AddPatch patches an existing Kubernetes object. props.Cluster is ignored.
func (b *clusterBase) AddPatch(id string, props KubernetesPatchProps) (*KubernetesPatch, error) {
	props.Cluster = b.self
	return NewKubernetesPatch(b.node, id, props)
}

// ClusterProps configures a Cluster.
type ClusterProps struct {
	// Version is required.
	Version KubernetesVersion
	// ClusterName is generated by CloudFormation when empty.
	ClusterName string

	// Vpc defaults to a new VPC with public and private subnets in two
	// availability zones.
	Vpc ec2.IVpc
	// Role defaults to a role trusted by EKS with AmazonEKSClusterPolicy.
	Role iam.IRole
	// SecurityGroupID defaults to a new control plane security group.
	SecurityGroupID string
	EndpointAccess  EndpointAccess

	// DefaultCapacity is the number of instances allocated with the
	// cluster. Zero disables default capacity. Default 2.
	DefaultCapacity         *int
	DefaultCapacityInstance string
	DefaultCapacityType     DefaultCapacityType

	ClusterLogging          []ClusterLoggingType
	SecretsEncryptionKeyArn string

	// MastersRole is mapped to system:masters in aws-auth.
	MastersRole          iam.IRole
	OutputClusterName    bool
	OutputConfigCommand  *bool
	OutputMastersRoleArn bool

	KubectlLayerArn    string
	KubectlEnvironment map[string]string
	// Prune sets the default for manifests. Default true.
	Prune *bool

	Tags               map[string]string
	CoreDnsComputeType CoreDnsComputeType
	ServiceIpv4Cidr    string
	IpFamily           IpFamily
	AuthenticationMode AuthenticationMode
}

var clusterNamePattern = regexp.MustCompile(`^[0-9A-Za-z][A-Za-z0-9\-_]{0,99}$`)

// Validate checks the props and returns every problem found.
func (p ClusterProps) Validate() error {
	err := p.Version.validate()
	err = multierr.Append(err, p.EndpointAccess.validate())
	if p.ClusterName != "" && !core.IsUnresolved(p.ClusterName) && !clusterNamePattern.MatchString(p.ClusterName) {
		err = multierr.Append(err, fmt.Errorf("ClusterName %q must be 1 to 100 letters, digits, hyphens or underscores and start with a letter or digit", p.ClusterName))
	}
	if p.DefaultCapacity != nil && *p.DefaultCapacity < 0 {
		err = multierr.Append(err, fmt.Errorf("DefaultCapacity must be zero or positive, got %d", *p.DefaultCapacity))
	}
	switch p.DefaultCapacityType {
	case "", DefaultCapacityNodegroup, DefaultCapacityEC2:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown DefaultCapacityType %q", p.DefaultCapacityType))
	}
	if p.ServiceIpv4Cidr != "" {
		if prefix, perr := netip.ParsePrefix(p.ServiceIpv4Cidr); perr != nil || !prefix.Addr().Is4() {
			err = multierr.Append(err, fmt.Errorf("ServiceIpv4Cidr must be an IPv4 CIDR block, got %q", p.ServiceIpv4Cidr))
		}
	}
	switch p.IpFamily {
	case "", IpFamilyIPv4, IpFamilyIPv6:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown IpFamily %q", p.IpFamily))
	}
	switch p.AuthenticationMode {
	case "", AuthConfigMap, AuthAPI, AuthAPIAndConfigMap:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown AuthenticationMode %q", p.AuthenticationMode))
	}
	if p.AuthenticationMode == AuthAPI && p.MastersRole != nil {
		err = multierr.Append(err, fmt.Errorf("MastersRole requires an authentication mode that reads the aws-auth ConfigMap"))
	}
	return err
}

func (p ClusterProps) defaultCapacity() int {
	if p.DefaultCapacity == nil {
		return DefaultCapacitySize
	}
	return *p.DefaultCapacity
}

// Cluster is an AWS::EKS::Cluster with its supporting resources.
type Cluster struct {
	*clusterBase

	props           ClusterProps
	resource        *core.CfnResource
	cfn             *eksres.Cluster
	role            iam.IRole
	securityGroupID string
	awsAuth         *AwsAuth

	// DefaultNodegroup is set when default capacity is a managed node group.
	DefaultNodegroup *Nodegroup
	// DefaultCapacity is set when default capacity is self-managed EC2.
	DefaultCapacity *AutoScalingGroupCapacity
}

// NewCluster creates a cluster.
func NewCluster(scope core.Construct, id string, props ClusterProps) (*Cluster, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("cluster %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	stack, err := core.StackOf(node)
	if err != nil {
		return nil, err
	}

	c := &Cluster{
		clusterBase: &clusterBase{
			node:            node,
			prune:           props.Prune == nil || *props.Prune,
			kubectlLayerArn: props.KubectlLayerArn,
			kubectlEnv:      props.KubectlEnvironment,
		},
		props: props,
	}
	c.self = c

	c.vpc = props.Vpc
	if c.vpc == nil {
		vpc, err := ec2.NewVpc(node, "DefaultVpc", ec2.VpcProps{})
		if err != nil {
			return nil, err
		}
		c.vpc = vpc
	}
	access := props.EndpointAccess.orDefault()
	privateSubnets := c.vpc.PrivateSubnetIDs()
	if access.private && !access.public && len(privateSubnets) == 0 {
		return nil, fmt.Errorf("cluster %s: private endpoint access requires the VPC to have private subnets", id)
	}
	var subnets []any
	if access.public {
		subnets = append(subnets, toAnySlice(c.vpc.PublicSubnetIDs())...)
	}
	subnets = append(subnets, toAnySlice(privateSubnets)...)
	if len(subnets) == 0 {
		return nil, fmt.Errorf("cluster %s: the VPC has no subnets", id)
	}

	c.role = props.Role
	if c.role == nil {
		role, err := iam.NewRole(node, "Role", iam.RoleProps{
			AssumedBy:       intrinsics.ServicePrincipal{"eks.amazonaws.com"},
			ManagedPolicies: []string{"AmazonEKSClusterPolicy"},
		})
		if err != nil {
			return nil, err
		}
		c.role = role
	}

	c.securityGroupID = props.SecurityGroupID
	if c.securityGroupID == "" {
		sg := &ec2res.SecurityGroup{
			GroupDescription: "EKS Control Plane Security Group",
			VpcId:            c.vpc.VpcID(),
			SecurityGroupEgress: []any{ec2res.SecurityGroup_Rule{
				IpProtocol:  "-1",
				CidrIp:      "0.0.0.0/0",
				Description: "Allow all outbound traffic by default",
			}},
		}
		if _, err := core.NewCfnResource(node, "ControlPlaneSecurityGroup", sg); err != nil {
			return nil, err
		}
		c.securityGroupID = core.AsString(sg.GroupId)
	}

	authMode := props.AuthenticationMode
	if authMode == "" {
		authMode = defaultAuthentication
	}
	cfn := &eksres.Cluster{
		Version: props.Version.String(),
		RoleArn: c.role.RoleArn(),
		ResourcesVpcConfig: &eksres.Cluster_ResourcesVpcConfig{
			SubnetIds:             subnets,
			SecurityGroupIds:      []any{c.securityGroupID},
			EndpointPublicAccess:  access.public,
			EndpointPrivateAccess: access.private,
			PublicAccessCidrs:     toAnySlice(access.publicCidrs),
		},
		AccessConfig: &eksres.Cluster_AccessConfig{
			AuthenticationMode:                      string(authMode),
			BootstrapClusterCreatorAdminPermissions: true,
		},
	}
	if props.ClusterName != "" {
		cfn.Name = props.ClusterName
	}
	if props.SecretsEncryptionKeyArn != "" {
		cfn.EncryptionConfig = []any{eksres.Cluster_EncryptionConfig{
			Provider:  &eksres.Cluster_Provider{KeyArn: props.SecretsEncryptionKeyArn},
			Resources: []any{"secrets"},
		}}
	}
	if props.IpFamily != "" || props.ServiceIpv4Cidr != "" {
		cfn.KubernetesNetworkConfig = &eksres.Cluster_KubernetesNetworkConfig{}
		if props.IpFamily != "" {
			cfn.KubernetesNetworkConfig.IpFamily = string(props.IpFamily)
		}
		if props.ServiceIpv4Cidr != "" {
			cfn.KubernetesNetworkConfig.ServiceIpv4Cidr = props.ServiceIpv4Cidr
		}
	}
	if len(props.ClusterLogging) > 0 {
		var types []any
		for _, t := range props.ClusterLogging {
			types = append(types, eksres.Cluster_LoggingTypeConfig{Type_: string(t)})
		}
		cfn.Logging = &eksres.Cluster_Logging{ClusterLogging: &eksres.Cluster_ClusterLogging{EnabledTypes: types}}
	}
	cfn.Tags = sortedTags(props.Tags)

	if c.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	c.cfn = cfn
	c.clusterName = c.resource.RefString()
	c.clusterArn = core.AsString(cfn.Arn)
	c.issuerURL = core.AsString(cfn.OpenIdConnectIssuerUrl)

	if vpc, ok := c.vpc.(*ec2.Vpc); ok && props.ClusterName != "" {
		vpc.TagSubnets("kubernetes.io/cluster/"+props.ClusterName, "shared")
	}

	if props.MastersRole != nil {
		auth, err := c.AwsAuth()
		if err != nil {
			return nil, err
		}
		if err := auth.AddMastersRole(props.MastersRole, ""); err != nil {
			return nil, err
		}
	}

	if n := props.defaultCapacity(); n > 0 {
		instance := props.DefaultCapacityInstance
		if instance == "" {
			instance = DefaultCapacityInstance
		}
		if props.DefaultCapacityType == DefaultCapacityEC2 {
			c.DefaultCapacity, err = c.AddAutoScalingGroupCapacity("DefaultCapacity", AutoScalingGroupCapacityOptions{
				InstanceType: instance,
				MinCapacity:  &n,
			})
		} else {
			c.DefaultNodegroup, err = c.AddNodegroupCapacity("DefaultCapacity", NodegroupOptions{
				InstanceTypes: []string{instance},
				MinSize:       &n,
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if props.CoreDnsComputeType == CoreDnsComputeFargate {
		if err := c.defineCoreDnsComputeType(CoreDnsComputeFargate); err != nil {
			return nil, err
		}
	}

	if err := c.addOutputs(stack); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cluster) addOutputs(stack *core.Stack) error {
	if c.props.OutputClusterName {
		if _, err := core.NewCfnOutput(c.node, "ClusterName", core.CfnOutputProps{Value: c.clusterName}); err != nil {
			return err
		}
	}
	if c.props.OutputMastersRoleArn && c.props.MastersRole != nil {
		if _, err := core.NewCfnOutput(c.node, "MastersRoleArn", core.CfnOutputProps{Value: c.props.MastersRole.RoleArn()}); err != nil {
			return err
		}
	}
	if c.props.OutputConfigCommand != nil && !*c.props.OutputConfigCommand {
		return nil
	}
	opts := "--region " + stack.Region()
	if c.props.MastersRole != nil {
		opts += " --role-arn " + c.props.MastersRole.RoleArn()
	}
	if _, err := core.NewCfnOutput(c.node, "ConfigCommand", core.CfnOutputProps{
		Value: "aws eks update-kubeconfig --name " + c.clusterName + " " + opts,
	}); err != nil {
		return err
	}
	_, err := core.NewCfnOutput(c.node, "GetTokenCommand", core.CfnOutputProps{
		Value: "aws eks get-token --cluster-name " + c.clusterName + " " + opts,
	})
	return err
}

// defineCoreDnsComputeType patches the coredns deployment so its pods
// schedule on the given compute type.
func (c *Cluster) defineCoreDnsComputeType(t CoreDnsComputeType) error {
	renderPatch := func(t CoreDnsComputeType) map[string]any {
		return map[string]any{
			"spec": map[string]any{
				"template": map[string]any{
					"metadata": map[string]any{
						"annotations": map[string]any{
							"eks.amazonaws.com/compute-type": string(t),
						},
					},
				},
			},
		}
	}
	_, err := c.AddPatch("CoreDnsComputeTypePatch", KubernetesPatchProps{
		ResourceName:      "deployment/coredns",
		ResourceNamespace: "kube-system",
		ApplyPatch:        renderPatch(t),
		RestorePatch:      renderPatch(CoreDnsComputeEC2),
	})
	return err
}

// Resource returns the AWS::EKS::Cluster resource.
func (c *Cluster) Resource() *core.CfnResource { return c.resource }

// Role returns the cluster service role.
func (c *Cluster) Role() iam.IRole { return c.role }

// SecurityGroupID returns the control plane security group id.
func (c *Cluster) SecurityGroupID() string { return c.securityGroupID }

// ClusterEndpoint returns the API server endpoint.
func (c *Cluster) ClusterEndpoint() string { return core.AsString(c.cfn.Endpoint) }

// ClusterCertificateAuthorityData returns the base64 encoded cluster CA.
func (c *Cluster) ClusterCertificateAuthorityData() string {
	return core.AsString(c.cfn.CertificateAuthorityData)
}

// ClusterSecurityGroupID returns the security group EKS created for the
// cluster.
func (c *Cluster) ClusterSecurityGroupID() string {
	return core.AsString(c.cfn.ClusterSecurityGroupId)
}

// ClusterEncryptionConfigKeyArn returns the KMS key used for secrets.
func (c *Cluster) ClusterEncryptionConfigKeyArn() string {
	return core.AsString(c.cfn.EncryptionConfigKeyArn)
}

// ClusterOpenIdConnectIssuerUrl returns the issuer URL, with https://.
func (c *Cluster) ClusterOpenIdConnectIssuerUrl() string { return c.issuerURL }

// ClusterOpenIdConnectIssuer returns the issuer without the scheme.
func (c *Cluster) ClusterOpenIdConnectIssuer() string {
	return issuerFromURL(c.issuerURL)
}

// AwsAuth returns the aws-auth ConfigMap manager, creating it on first use.
func (c *Cluster) AwsAuth() (*AwsAuth, error) {
	if c.awsAuth == nil {
		a, err := NewAwsAuth(c.node, "AwsAuth", AwsAuthProps{Cluster: c})
		if err != nil {
			return nil, err
		}
		c.awsAuth = a
	}
	return c.awsAuth, nil
}

// AddNodegroupCapacity adds a managed node group.
func (c *Cluster) AddNodegroupCapacity(id string, opts NodegroupOptions) (*Nodegroup, error) {
	return NewNodegroup(c.node, "Nodegroup"+id, NodegroupProps{NodegroupOptions: opts, Cluster: c})
}

// AddAutoScalingGroupCapacity adds self-managed EC2 capacity.
func (c *Cluster) AddAutoScalingGroupCapacity(id string, opts AutoScalingGroupCapacityOptions) (*AutoScalingGroupCapacity, error) {
	return newAutoScalingGroupCapacity(c, id, opts)
}

// AddFargateProfile adds a Fargate profile.
func (c *Cluster) AddFargateProfile(id string, opts FargateProfileOptions) (*FargateProfile, error) {
	return NewFargateProfile(c.node, "fargate-profile-"+id, FargateProfileProps{FargateProfileOptions: opts, Cluster: c})
}

// AddAddon installs an EKS add-on.
func (c *Cluster) AddAddon(id string, props AddonProps) (*Addon, error) {
	props.Cluster = c
	return NewAddon(c.node, id, props)
}

// issuerFromURL strips "https://" from an issuer URL token.
func issuerFromURL(url string) string {
	if !core.IsUnresolved(url) {
		return strings.TrimPrefix(url, "https://")
	}
	return core.AsString(intrinsics.Select{
		Index: 1,
		List:  intrinsics.Split{Delimiter: "https://", Source: url},
	})
}

func toAnySlice(in []string) []any {
	if len(in) == 0 {
		return nil
	}
	out := make([]any, len(in))
	for i, s := range in {
		out[i] = s
	}
	return out
}

func sortedTags(tags map[string]string) []any {
	if len(tags) == 0 {
		return nil
	}
	keys := sortedKeys(tags)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = intrinsics.Tag{Key: k, Value: tags[k]}
	}
	return out
}

func stringMap(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
