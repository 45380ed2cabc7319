package eks

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	eksres "github.com/lex00/wetwire-cdk-go/resources/eks"
)

// Managed policies every worker node role needs.
var workerNodePolicies = []string{
	"AmazonEKSWorkerNodePolicy",
	"AmazonEKS_CNI_Policy",
	"AmazonEC2ContainerRegistryReadOnly",
}

// Taint is a Kubernetes taint applied to every node of a node group.
type Taint struct {
	Effect TaintEffect
	Key    string
	Value  string
}

// NodegroupRemoteAccess enables SSH to the nodes.
type NodegroupRemoteAccess struct {
	SshKeyName             string
	SourceSecurityGroupIDs []string
}

// LaunchTemplateSpec references an EC2 launch template.
type LaunchTemplateSpec struct {
	ID      string
	Version string
}

// NodegroupOptions configures a node group added with
// Cluster.AddNodegroupCapacity.
type NodegroupOptions struct {
	NodegroupName string
	// Subnets default to the cluster's private subnets.
	Subnets []string
	// AmiType defaults from the architecture of InstanceTypes.
	AmiType       NodegroupAmiType
	InstanceTypes []string
	CapacityType  CapacityType
	DiskSize      int

	// MinSize defaults to 1.
	MinSize *int
	// DesiredSize defaults to the larger of MinSize and 2.
	DesiredSize *int
	// MaxSize defaults to DesiredSize.
	MaxSize *int

	// NodeRole defaults to a role with the worker node policies.
	NodeRole       iam.IRole
	Labels         map[string]string
	Taints         []Taint
	Tags           map[string]string
	RemoteAccess   *NodegroupRemoteAccess
	LaunchTemplate *LaunchTemplateSpec
	ReleaseVersion string
	// ForceUpdate defaults to true.
	ForceUpdate *bool

	MaxUnavailable           int
	MaxUnavailablePercentage int
}

// NodegroupProps configures a Nodegroup.
type NodegroupProps struct {
	NodegroupOptions
	Cluster ICluster
}

func (o NodegroupOptions) sizes() (minSize, desired, maxSize int) {
	minSize = 1
	if o.MinSize != nil {
		minSize = *o.MinSize
	}
	desired = minSize
	if desired < 2 {
		desired = 2
	}
	if o.DesiredSize != nil {
		desired = *o.DesiredSize
	}
	maxSize = desired
	if o.MaxSize != nil {
		maxSize = *o.MaxSize
	}
	return minSize, desired, maxSize
}

// Validate checks the props.
func (p NodegroupProps) Validate() error {
	var err error
	if p.Cluster == nil {
		err = multierr.Append(err, errors.New("Cluster is required"))
	}
	minSize, desired, maxSize := p.sizes()
	if maxSize < 1 {
		err = multierr.Append(err, errors.New("Maximum capacity must be greater than zero"))
	}
	if minSize < 0 {
		err = multierr.Append(err, fmt.Errorf("Minimum capacity must not be negative, got %d", minSize))
	}
	if minSize > desired {
		err = multierr.Append(err, fmt.Errorf("Minimum capacity %d can't be greater than desired size %d", minSize, desired))
	}
	if desired > maxSize {
		err = multierr.Append(err, fmt.Errorf("Desired capacity %d can't be greater than max size %d", desired, maxSize))
	}
	if p.DiskSize != 0 && p.LaunchTemplate != nil {
		err = multierr.Append(err, errors.New("diskSize must be specified within the launch template"))
	}
	if p.LaunchTemplate != nil && p.LaunchTemplate.ID == "" {
		err = multierr.Append(err, errors.New("LaunchTemplate.ID is required"))
	}
	if arch, archErr := instancesArch(p.InstanceTypes); archErr != nil {
		err = multierr.Append(err, archErr)
	} else if p.AmiType != "" && p.AmiType != AmiCustom && len(p.InstanceTypes) > 0 {
		if amiArch[p.AmiType] != arch {
			err = multierr.Append(err, fmt.Errorf("The specified AMI %s does not match the %s architecture of the instance types", p.AmiType, arch))
		}
	}
	if p.AmiType == AmiCustom && p.LaunchTemplate == nil {
		err = multierr.Append(err, errors.New("AmiType CUSTOM requires a launch template"))
	}
	if p.MaxUnavailable != 0 && p.MaxUnavailablePercentage != 0 {
		err = multierr.Append(err, errors.New("maxUnavailable and maxUnavailablePercentage are not allowed to be defined together"))
	}
	if p.MaxUnavailable != 0 && (p.MaxUnavailable < 1 || p.MaxUnavailable > 100) {
		err = multierr.Append(err, fmt.Errorf("maxUnavailable must be between 1 and 100, got %d", p.MaxUnavailable))
	}
	if p.MaxUnavailablePercentage != 0 && (p.MaxUnavailablePercentage < 1 || p.MaxUnavailablePercentage > 100) {
		err = multierr.Append(err, fmt.Errorf("maxUnavailablePercentage must be between 1 and 100, got %d", p.MaxUnavailablePercentage))
	}
	for _, t := range p.Taints {
		switch t.Effect {
		case TaintNoSchedule, TaintPreferNoSchedule, TaintNoExecute:
		default:
			err = multierr.Append(err, fmt.Errorf("taint %q: unknown effect %q", t.Key, t.Effect))
		}
	}
	return err
}

// instancesArch returns the architecture shared by all instance types.
func instancesArch(types []string) (CpuArch, error) {
	if len(types) == 0 {
		return CpuArchX86_64, nil
	}
	arch := InstanceArch(types[0])
	for _, t := range types[1:] {
		if InstanceArch(t) != arch {
			return "", errors.New("instanceTypes of different architectures is not allowed")
		}
	}
	return arch, nil
}

// defaultAmiType picks the Amazon Linux 2 AMI matching the instances.
func defaultAmiType(types []string) NodegroupAmiType {
	if len(types) == 0 {
		return ""
	}
	arch, _ := instancesArch(types)
	if arch == CpuArchArm64 {
		return AmiAL2Arm64
	}
	for _, t := range types {
		if IsGpuInstance(t) {
			return AmiAL2X86_64GPU
		}
	}
	return AmiAL2X86_64
}

// Nodegroup is an EKS managed node group.
type Nodegroup struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *eksres.Nodegroup
	role     iam.IRole
}

// NewNodegroup creates a managed node group.
func NewNodegroup(scope core.Construct, id string, props NodegroupProps) (*Nodegroup, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("nodegroup %s: %w", id, err)
	}
	subnets := props.Subnets
	if len(subnets) == 0 {
		if vpc := props.Cluster.Vpc(); vpc != nil {
			subnets = vpc.PrivateSubnetIDs()
		}
	}
	if len(subnets) == 0 {
		return nil, fmt.Errorf("nodegroup %s: Subnets is required when the cluster has no private subnets", id)
	}

	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	ng := &Nodegroup{node: node, role: props.NodeRole}
	if ng.role == nil {
		role, err := iam.NewRole(node, "NodeGroupRole", iam.RoleProps{
			AssumedBy:       intrinsics.ServicePrincipal{"ec2.amazonaws.com"},
			ManagedPolicies: workerNodePolicies,
		})
		if err != nil {
			return nil, err
		}
		ng.role = role
	}

	minSize, desired, maxSize := props.sizes()
	amiType := props.AmiType
	if amiType == "" && props.LaunchTemplate == nil {
		amiType = defaultAmiType(props.InstanceTypes)
	}
	cfn := &eksres.Nodegroup{
		ClusterName: props.Cluster.ClusterName(),
		NodeRole:    ng.role.RoleArn(),
		Subnets:     toAnySlice(subnets),
		ScalingConfig: &eksres.Nodegroup_ScalingConfig{
			MinSize:     minSize,
			DesiredSize: desired,
			MaxSize:     maxSize,
		},
		ForceUpdateEnabled: props.ForceUpdate == nil || *props.ForceUpdate,
		InstanceTypes:      toAnySlice(props.InstanceTypes),
		Labels:             stringMap(props.Labels),
		Tags:               stringMap(props.Tags),
	}
	if props.NodegroupName != "" {
		cfn.NodegroupName = props.NodegroupName
	}
	if amiType != "" {
		cfn.AmiType = string(amiType)
	}
	if props.CapacityType != "" {
		cfn.CapacityType = string(props.CapacityType)
	}
	if props.DiskSize != 0 {
		cfn.DiskSize = props.DiskSize
	}
	if props.ReleaseVersion != "" {
		cfn.ReleaseVersion = props.ReleaseVersion
	}
	if props.RemoteAccess != nil {
		cfn.RemoteAccess = &eksres.Nodegroup_RemoteAccess{
			Ec2SshKey:            props.RemoteAccess.SshKeyName,
			SourceSecurityGroups: toAnySlice(props.RemoteAccess.SourceSecurityGroupIDs),
		}
	}
	if lt := props.LaunchTemplate; lt != nil {
		cfn.LaunchTemplate = &eksres.Nodegroup_LaunchTemplateSpec{Id: lt.ID}
		if lt.Version != "" {
			cfn.LaunchTemplate.Version = lt.Version
		}
	}
	for _, t := range props.Taints {
		taint := eksres.Nodegroup_Taint{Effect: string(t.Effect), Key: t.Key}
		if t.Value != "" {
			taint.Value = t.Value
		}
		cfn.Taints = append(cfn.Taints, taint)
	}
	if props.MaxUnavailable != 0 {
		cfn.UpdateConfig = &eksres.Nodegroup_UpdateConfig{MaxUnavailable: props.MaxUnavailable}
	} else if props.MaxUnavailablePercentage != 0 {
		cfn.UpdateConfig = &eksres.Nodegroup_UpdateConfig{MaxUnavailablePercentage: props.MaxUnavailablePercentage}
	}

	if ng.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	ng.cfn = cfn

	// Managed node groups write their own aws-auth entry; mapping the role
	// here keeps it when the ConfigMap is overwritten.
	if cluster, ok := props.Cluster.(*Cluster); ok && cluster.props.AuthenticationMode != AuthAPI {
		auth, err := cluster.AwsAuth()
		if err != nil {
			return nil, err
		}
		if err := auth.AddRoleMapping(ng.role, AwsAuthMapping{
			Username: "system:node:{{EC2PrivateDNSName}}",
			Groups:   []string{GroupBootstrappers, GroupNodes},
		}); err != nil {
			return nil, err
		}
	}
	return ng, nil
}

// Node returns the construct node.
func (n *Nodegroup) Node() *core.Node { return n.node }

// Resource returns the AWS::EKS::Nodegroup resource.
func (n *Nodegroup) Resource() *core.CfnResource { return n.resource }

// Role returns the node role.
func (n *Nodegroup) Role() iam.IRole { return n.role }

// NodegroupName returns the node group name.
func (n *Nodegroup) NodegroupName() string { return core.AsString(n.cfn.NodegroupName_) }

// NodegroupArn returns the node group ARN.
func (n *Nodegroup) NodegroupArn() string { return core.AsString(n.cfn.Arn) }
