package eks

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"text/template"

	sprig "github.com/Masterminds/sprig/v3"
	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	"github.com/lex00/wetwire-cdk-go/resources/autoscaling"
	ec2res "github.com/lex00/wetwire-cdk-go/resources/ec2"
	iamres "github.com/lex00/wetwire-cdk-go/resources/iam"
)

//go:embed templates/bootstrap.sh.tmpl
var templates embed.FS

var bootstrapTemplate = mustTemplate("templates/bootstrap.sh.tmpl")

func mustTemplate(name string) *template.Template {
	content, err := templates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return template.Must(template.New(name).Funcs(sprig.HermeticTxtFuncMap()).Parse(string(content)))
}

// BootstrapOptions customize the /etc/eks/bootstrap.sh invocation of
// self-managed nodes.
type BootstrapOptions struct {
	// UseMaxPods defaults to true.
	UseMaxPods       *bool
	DNSClusterIP     string
	KubeletExtraArgs []string
	// AdditionalArgs are appended verbatim.
	AdditionalArgs string
}

type bootstrapData struct {
	ClusterName          string
	Endpoint             string
	CertificateAuthority string
	DNSClusterIP         string
	UseMaxPods           bool
	KubeletExtraArgs     []string
	AdditionalArgs       string
}

// RenderBootstrapUserData returns the user data script that joins an EC2
// instance to the cluster. Arguments may be tokens.
func RenderBootstrapUserData(clusterName, endpoint, ca string, opts BootstrapOptions) (string, error) {
	data := bootstrapData{
		ClusterName:          clusterName,
		Endpoint:             endpoint,
		CertificateAuthority: ca,
		DNSClusterIP:         opts.DNSClusterIP,
		UseMaxPods:           opts.UseMaxPods == nil || *opts.UseMaxPods,
		KubeletExtraArgs:     append([]string{"--node-labels lifecycle=OnDemand"}, opts.KubeletExtraArgs...),
		AdditionalArgs:       opts.AdditionalArgs,
	}
	var buf bytes.Buffer
	if err := bootstrapTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render bootstrap user data: %w", err)
	}
	return buf.String(), nil
}

// AutoScalingGroupCapacityOptions configure self-managed EC2 capacity.
type AutoScalingGroupCapacityOptions struct {
	// InstanceType is required.
	InstanceType string
	// MinCapacity defaults to 1.
	MinCapacity *int
	// DesiredCapacity defaults to MinCapacity.
	DesiredCapacity *int
	// MaxCapacity defaults to DesiredCapacity.
	MaxCapacity *int

	// MachineImageID defaults to the EKS optimized Amazon Linux 2 AMI for
	// the cluster version, resolved from SSM at deploy time.
	MachineImageID string
	KeyName        string
	// BootstrapEnabled defaults to true.
	BootstrapEnabled *bool
	BootstrapOptions BootstrapOptions
	// MapRole maps the instance role in aws-auth. Default true.
	MapRole *bool
}

func (o AutoScalingGroupCapacityOptions) sizes() (minCap, desired, maxCap int) {
	minCap = 1
	if o.MinCapacity != nil {
		minCap = *o.MinCapacity
	}
	desired = minCap
	if o.DesiredCapacity != nil {
		desired = *o.DesiredCapacity
	}
	maxCap = desired
	if o.MaxCapacity != nil {
		maxCap = *o.MaxCapacity
	}
	return minCap, desired, maxCap
}

// Validate checks the options.
func (o AutoScalingGroupCapacityOptions) Validate() error {
	var err error
	if o.InstanceType == "" {
		err = multierr.Append(err, errors.New("InstanceType is required"))
	}
	minCap, desired, maxCap := o.sizes()
	if maxCap < 1 {
		err = multierr.Append(err, errors.New("MaxCapacity must be greater than zero"))
	}
	if minCap > desired || desired > maxCap {
		err = multierr.Append(err, fmt.Errorf("capacity must satisfy min <= desired <= max, got %d, %d, %d", minCap, desired, maxCap))
	}
	return err
}

// AutoScalingGroupCapacity is a self-managed node group: an Auto Scaling
// group whose instances run the EKS bootstrap script.
type AutoScalingGroupCapacity struct {
	node           *core.Node
	role           *iam.Role
	launchTemplate *core.CfnResource
	asg            *core.CfnResource
}

func newAutoScalingGroupCapacity(cluster *Cluster, id string, opts AutoScalingGroupCapacityOptions) (*AutoScalingGroupCapacity, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("capacity %s: %w", id, err)
	}
	subnets := cluster.vpc.PrivateSubnetIDs()
	if len(subnets) == 0 {
		subnets = cluster.vpc.PublicSubnetIDs()
	}

	node, err := core.NewNode(cluster.node, id)
	if err != nil {
		return nil, err
	}
	c := &AutoScalingGroupCapacity{node: node}

	c.role, err = iam.NewRole(node, "InstanceRole", iam.RoleProps{
		AssumedBy:       intrinsics.ServicePrincipal{"ec2.amazonaws.com"},
		ManagedPolicies: workerNodePolicies,
	})
	if err != nil {
		return nil, err
	}
	profile := &iamres.InstanceProfile{Roles: []any{c.role.RoleName()}}
	if _, err := core.NewCfnResource(node, "InstanceProfile", profile); err != nil {
		return nil, err
	}

	data := &ec2res.LaunchTemplate_LaunchTemplateData{
		ImageId:            opts.MachineImageID,
		InstanceType:       opts.InstanceType,
		IamInstanceProfile: &ec2res.LaunchTemplate_IamInstanceProfile{Arn: profile.Arn},
		SecurityGroupIds:   []any{cluster.ClusterSecurityGroupID()},
		MetadataOptions: &ec2res.LaunchTemplate_MetadataOptions{
			HttpEndpoint:            "enabled",
			HttpTokens:              "required",
			HttpPutResponseHopLimit: 2,
		},
	}
	if opts.MachineImageID == "" {
		data.ImageId = optimizedAmiParameter(cluster.props.Version, opts.InstanceType)
	}
	if opts.KeyName != "" {
		data.KeyName = opts.KeyName
	}
	if opts.BootstrapEnabled == nil || *opts.BootstrapEnabled {
		script, err := RenderBootstrapUserData(cluster.ClusterName(), cluster.ClusterEndpoint(), cluster.ClusterCertificateAuthorityData(), opts.BootstrapOptions)
		if err != nil {
			return nil, err
		}
		data.UserData = intrinsics.Base64{Value: script}
	}
	lt := &ec2res.LaunchTemplate{LaunchTemplateData: data}
	if c.launchTemplate, err = core.NewCfnResource(node, "LaunchTemplate", lt); err != nil {
		return nil, err
	}

	minCap, desired, maxCap := opts.sizes()
	c.asg, err = core.NewCfnResource(node, "ASG", &autoscaling.AutoScalingGroup{
		MinSize:         fmt.Sprint(minCap),
		MaxSize:         fmt.Sprint(maxCap),
		DesiredCapacity: fmt.Sprint(desired),
		LaunchTemplate: &autoscaling.AutoScalingGroup_LaunchTemplateSpecification{
			LaunchTemplateId: lt.LaunchTemplateId,
			Version:          lt.LatestVersionNumber,
		},
		VPCZoneIdentifier: toAnySlice(subnets),
		Tags: []any{
			autoscaling.AutoScalingGroup_TagProperty{Key: "Name", Value: node.Path(), PropagateAtLaunch: true},
			autoscaling.AutoScalingGroup_TagProperty{Key: "kubernetes.io/cluster/" + cluster.ClusterName(), Value: "owned", PropagateAtLaunch: true},
		},
	})
	if err != nil {
		return nil, err
	}

	if (opts.MapRole == nil || *opts.MapRole) && cluster.props.AuthenticationMode != AuthAPI {
		auth, err := cluster.AwsAuth()
		if err != nil {
			return nil, err
		}
		if err := auth.AddRoleMapping(c.role, AwsAuthMapping{
			Username: "system:node:{{EC2PrivateDNSName}}",
			Groups:   []string{GroupBootstrappers, GroupNodes},
		}); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// optimizedAmiParameter returns an SSM dynamic reference to the EKS
// optimized AMI matching the instance type.
func optimizedAmiParameter(version KubernetesVersion, instanceType string) string {
	variant := "amazon-linux-2"
	switch {
	case InstanceArch(instanceType) == CpuArchArm64:
		variant = "amazon-linux-2-arm64"
	case IsGpuInstance(instanceType):
		variant = "amazon-linux-2-gpu"
	}
	return fmt.Sprintf("{{resolve:ssm:/aws/service/eks/optimized-ami/%s/%s/recommended/image_id}}", version, variant)
}

// Node returns the construct node.
func (c *AutoScalingGroupCapacity) Node() *core.Node { return c.node }

// Role returns the instance role.
func (c *AutoScalingGroupCapacity) Role() *iam.Role { return c.role }

// LaunchTemplate returns the launch template resource.
func (c *AutoScalingGroupCapacity) LaunchTemplate() *core.CfnResource { return c.launchTemplate }

// AutoScalingGroup returns the Auto Scaling group resource.
func (c *AutoScalingGroupCapacity) AutoScalingGroup() *core.CfnResource { return c.asg }
