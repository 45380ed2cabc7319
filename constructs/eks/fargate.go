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

const maxFargateSelectors = 5

// Selector matches pods that run on a Fargate profile.
type Selector struct {
	// Namespace is required.
	Namespace string
	Labels    map[string]string
}

// FargateProfileOptions configures a Fargate profile.
type FargateProfileOptions struct {
	// Selectors lists 1 to 5 pod selectors.
	Selectors          []Selector
	FargateProfileName string
	// PodExecutionRole defaults to a role with
	// AmazonEKSFargatePodExecutionRolePolicy.
	PodExecutionRole iam.IRole
	// Subnets default to the cluster's private subnets. Fargate does not
	// run pods in public subnets.
	Subnets []string
	Tags    map[string]string
}

// FargateProfileProps configures a FargateProfile.
type FargateProfileProps struct {
	FargateProfileOptions
	Cluster *Cluster
}

// Validate checks the props.
func (p FargateProfileProps) Validate() error {
	var err error
	if p.Cluster == nil {
		err = multierr.Append(err, errors.New("Cluster is required"))
	}
	if n := len(p.Selectors); n < 1 || n > maxFargateSelectors {
		err = multierr.Append(err, fmt.Errorf("Fargate profile requires between 1 and %d selectors, got %d", maxFargateSelectors, n))
	}
	for i, s := range p.Selectors {
		if s.Namespace == "" {
			err = multierr.Append(err, fmt.Errorf("selector %d: Namespace is required", i))
		}
	}
	return err
}

// FargateProfile runs matching pods on AWS Fargate.
type FargateProfile struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *eksres.FargateProfile
	role     iam.IRole
}

// NewFargateProfile creates a Fargate profile. Profiles of one cluster are
// chained with DependsOn because EKS creates them one at a time.
func NewFargateProfile(scope core.Construct, id string, props FargateProfileProps) (*FargateProfile, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("fargate profile %s: %w", id, err)
	}
	cluster := props.Cluster
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	fp := &FargateProfile{node: node, role: props.PodExecutionRole}
	if fp.role == nil {
		role, err := iam.NewRole(node, "PodExecutionRole", iam.RoleProps{
			AssumedBy:       intrinsics.ServicePrincipal{"eks-fargate-pods.amazonaws.com"},
			ManagedPolicies: []string{"AmazonEKSFargatePodExecutionRolePolicy"},
		})
		if err != nil {
			return nil, err
		}
		fp.role = role
	}

	subnets := props.Subnets
	if len(subnets) == 0 && cluster.vpc != nil {
		subnets = cluster.vpc.PrivateSubnetIDs()
	}

	cfn := &eksres.FargateProfile{
		ClusterName:         cluster.ClusterName(),
		PodExecutionRoleArn: fp.role.RoleArn(),
		Subnets:             toAnySlice(subnets),
		Tags:                sortedTags(props.Tags),
	}
	if props.FargateProfileName != "" {
		cfn.FargateProfileName = props.FargateProfileName
	}
	for _, s := range props.Selectors {
		sel := eksres.FargateProfile_Selector{Namespace: s.Namespace}
		for _, k := range sortedKeys(s.Labels) {
			sel.Labels = append(sel.Labels, eksres.FargateProfile_Label{Key: k, Value: s.Labels[k]})
		}
		cfn.Selectors = append(cfn.Selectors, sel)
	}

	if fp.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	fp.cfn = cfn
	cluster.attachFargateProfile(fp)

	if cluster.props.AuthenticationMode != AuthAPI {
		auth, err := cluster.AwsAuth()
		if err != nil {
			return nil, err
		}
		if err := auth.AddRoleMapping(fp.role, AwsAuthMapping{
			Username: "system:node:{{SessionName}}",
			Groups:   []string{GroupBootstrappers, GroupNodes, GroupNodeProxier},
		}); err != nil {
			return nil, err
		}
	}
	return fp, nil
}

// Node returns the construct node.
func (f *FargateProfile) Node() *core.Node { return f.node }

// Resource returns the AWS::EKS::FargateProfile resource.
func (f *FargateProfile) Resource() *core.CfnResource { return f.resource }

// PodExecutionRole returns the role pods run with.
func (f *FargateProfile) PodExecutionRole() iam.IRole { return f.role }

// FargateProfileName returns the profile name as a token. The profile's Ref
// is "<cluster>|<profile>".
func (f *FargateProfile) FargateProfileName() string {
	return core.AsString(intrinsics.Select{
		Index: 1,
		List:  intrinsics.Split{Delimiter: "|", Source: f.resource.RefString()},
	})
}

// FargateProfileArn returns the profile ARN.
func (f *FargateProfile) FargateProfileArn() string { return core.AsString(f.cfn.Arn) }

// FargateClusterProps configures a FargateCluster.
type FargateClusterProps struct {
	ClusterProps
	// DefaultProfile replaces the profile that selects the "default" and
	// "kube-system" namespaces.
	DefaultProfile *FargateProfileOptions
}

// FargateCluster is a cluster with no EC2 capacity whose pods, including
// CoreDNS, run on Fargate.
type FargateCluster struct {
	*Cluster
	DefaultProfile *FargateProfile
}

// NewFargateCluster creates a Fargate-only cluster.
func NewFargateCluster(scope core.Construct, id string, props FargateClusterProps) (*FargateCluster, error) {
	none := 0
	clusterProps := props.ClusterProps
	clusterProps.DefaultCapacity = &none
	clusterProps.CoreDnsComputeType = CoreDnsComputeFargate
	cluster, err := NewCluster(scope, id, clusterProps)
	if err != nil {
		return nil, err
	}
	opts := FargateProfileOptions{
		Selectors: []Selector{{Namespace: "default"}, {Namespace: "kube-system"}},
	}
	if props.DefaultProfile != nil {
		opts = *props.DefaultProfile
	}
	profile, err := cluster.AddFargateProfile("default", opts)
	if err != nil {
		return nil, err
	}
	return &FargateCluster{Cluster: cluster, DefaultProfile: profile}, nil
}
