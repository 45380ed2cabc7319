package eks

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/constructs/ec2"
	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

func newStack(t *testing.T) *core.Stack {
	t.Helper()
	t.Setenv(core.EnvOutdir, "")
	t.Setenv(core.EnvContext, "")
	app, err := core.NewApp(nil)
	require.NoError(t, err)
	stack, err := core.NewStack(app, "Platform", nil)
	require.NoError(t, err)
	return stack
}

func synth(t *testing.T, stack *core.Stack) *wetwire.Template {
	t.Helper()
	tmpl, err := stack.Synthesize()
	require.NoError(t, err)
	return tmpl
}

func testVpc(t *testing.T) ec2.IVpc {
	t.Helper()
	vpc, err := ec2.FromVpcAttributes(ec2.VpcAttributes{
		VpcID:            "vpc-1234",
		PublicSubnetIDs:  []string{"subnet-pub-a", "subnet-pub-b"},
		PrivateSubnetIDs: []string{"subnet-priv-a", "subnet-priv-b"},
	})
	require.NoError(t, err)
	return vpc
}

func ptr[T any](v T) *T { return &v }

// newTestCluster creates a cluster without default capacity in an
// imported VPC.
func newTestCluster(t *testing.T, stack *core.Stack, props ClusterProps) *Cluster {
	t.Helper()
	if props.Version.IsZero() {
		props.Version = V1_30
	}
	if props.Vpc == nil {
		props.Vpc = testVpc(t)
	}
	if props.DefaultCapacity == nil {
		props.DefaultCapacity = ptr(0)
	}
	cluster, err := NewCluster(stack, "Cluster", props)
	require.NoError(t, err)
	return cluster
}

func ofType(tmpl *wetwire.Template, typ string) map[string]wetwire.ResourceDef {
	out := map[string]wetwire.ResourceDef{}
	for id, def := range tmpl.Resources {
		if def.Type == typ {
			out[id] = def
		}
	}
	return out
}

func only(t *testing.T, tmpl *wetwire.Template, typ string) wetwire.ResourceDef {
	t.Helper()
	defs := ofType(tmpl, typ)
	require.Len(t, defs, 1, "resources of type %s", typ)
	for _, def := range defs {
		return def
	}
	return wetwire.ResourceDef{}
}

// output finds an output by the readable prefix of its logical ID.
func output(tmpl *wetwire.Template, prefix string) (wetwire.Output, bool) {
	for id, out := range tmpl.Outputs {
		if strings.HasPrefix(id, prefix) && len(id) == len(prefix)+8 {
			return out, true
		}
	}
	return wetwire.Output{}, false
}

func hasOutput(tmpl *wetwire.Template, prefix string) bool {
	_, ok := output(tmpl, prefix)
	return ok
}

// manifestObjects decodes the Manifest property of a literal manifest.
func manifestObjects(t *testing.T, def wetwire.ResourceDef) []map[string]any {
	t.Helper()
	raw, ok := def.Properties["Manifest"].(string)
	require.True(t, ok, "Manifest is not a literal string: %#v", def.Properties["Manifest"])
	var objects []map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &objects))
	return objects
}

func TestNewCluster_Minimal(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	tmpl := synth(t, stack)
	assert.Len(t, tmpl.Resources, 3)
	def := only(t, tmpl, "AWS::EKS::Cluster")
	assert.Equal(t, "1.30", def.Properties["Version"])

	vpcConfig := def.Properties["ResourcesVpcConfig"].(map[string]any)
	assert.Equal(t, []any{"subnet-pub-a", "subnet-pub-b", "subnet-priv-a", "subnet-priv-b"}, vpcConfig["SubnetIds"])
	assert.Equal(t, true, vpcConfig["EndpointPublicAccess"])

	access := def.Properties["AccessConfig"].(map[string]any)
	assert.Equal(t, "API_AND_CONFIG_MAP", access["AuthenticationMode"])

	sg := only(t, tmpl, "AWS::EC2::SecurityGroup")
	assert.Equal(t, "vpc-1234", sg.Properties["VpcId"])

	assert.True(t, hasOutput(tmpl, "ClusterConfigCommand"))
	assert.True(t, hasOutput(tmpl, "ClusterGetTokenCommand"))

	assert.True(t, core.IsUnresolved(cluster.ClusterName()))
	assert.True(t, core.IsUnresolved(cluster.ClusterArn()))
	assert.Nil(t, cluster.DefaultNodegroup)
	assert.Nil(t, cluster.DefaultCapacity)
}

func TestNewCluster_Options(t *testing.T) {
	stack := newStack(t)
	newTestCluster(t, stack, ClusterProps{
		ClusterName:             "platform",
		EndpointAccess:          EndpointPublicAndPrivate.OnlyFrom("203.0.113.0/24"),
		ClusterLogging:          []ClusterLoggingType{LoggingAPI, LoggingAudit},
		SecretsEncryptionKeyArn: "arn:aws:kms:us-east-1:123456789012:key/abc",
		ServiceIpv4Cidr:         "172.20.0.0/16",
		Tags:                    map[string]string{"team": "platform", "env": "prod"},
		OutputConfigCommand:     ptr(false),
		OutputClusterName:       true,
	})

	tmpl := synth(t, stack)
	def := only(t, tmpl, "AWS::EKS::Cluster")
	assert.Equal(t, "platform", def.Properties["Name"])

	vpcConfig := def.Properties["ResourcesVpcConfig"].(map[string]any)
	assert.Equal(t, true, vpcConfig["EndpointPrivateAccess"])
	assert.Equal(t, []any{"203.0.113.0/24"}, vpcConfig["PublicAccessCidrs"])

	assert.Equal(t, map[string]any{
		"ClusterLogging": map[string]any{
			"EnabledTypes": []any{
				map[string]any{"Type": "api"},
				map[string]any{"Type": "audit"},
			},
		},
	}, def.Properties["Logging"])
	assert.Equal(t, []any{map[string]any{
		"Provider":  map[string]any{"KeyArn": "arn:aws:kms:us-east-1:123456789012:key/abc"},
		"Resources": []any{"secrets"},
	}}, def.Properties["EncryptionConfig"])
	assert.Equal(t, map[string]any{"ServiceIpv4Cidr": "172.20.0.0/16"}, def.Properties["KubernetesNetworkConfig"])
	assert.Equal(t, []any{
		map[string]any{"Key": "env", "Value": "prod"},
		map[string]any{"Key": "team", "Value": "platform"},
	}, def.Properties["Tags"])

	assert.True(t, hasOutput(tmpl, "ClusterClusterName"))
	assert.False(t, hasOutput(tmpl, "ClusterConfigCommand"))
}

func TestClusterProps_Validate(t *testing.T) {
	tests := []struct {
		name  string
		props ClusterProps
		want  string
	}{
		{"missing version", ClusterProps{}, "Version is required"},
		{"bad version", ClusterProps{Version: KubernetesVersionOf("v1")}, "Kubernetes minor version"},
		{"bad name", ClusterProps{Version: V1_30, ClusterName: "-bad"}, "ClusterName"},
		{"negative capacity", ClusterProps{Version: V1_30, DefaultCapacity: ptr(-1)}, "DefaultCapacity"},
		{"capacity type", ClusterProps{Version: V1_30, DefaultCapacityType: "SPOT"}, "DefaultCapacityType"},
		{"ipv6 service cidr", ClusterProps{Version: V1_30, ServiceIpv4Cidr: "fd00::/108"}, "ServiceIpv4Cidr"},
		{"ip family", ClusterProps{Version: V1_30, IpFamily: "ipv5"}, "IpFamily"},
		{"auth mode", ClusterProps{Version: V1_30, AuthenticationMode: "IAM"}, "AuthenticationMode"},
		{
			"private cidrs",
			ClusterProps{Version: V1_30, EndpointAccess: EndpointPrivate.OnlyFrom("10.0.0.0/8")},
			"public access is disabled",
		},
		{
			"masters role with api auth",
			ClusterProps{Version: V1_30, AuthenticationMode: AuthAPI, MastersRole: iam.FromRoleArn("arn:aws:iam::123456789012:role/admin")},
			"MastersRole",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, ClusterProps{Version: V1_31}.Validate())
}

func TestNewCluster_PrivateEndpointNeedsPrivateSubnets(t *testing.T) {
	stack := newStack(t)
	vpc, err := ec2.FromVpcAttributes(ec2.VpcAttributes{
		VpcID:           "vpc-1234",
		PublicSubnetIDs: []string{"subnet-pub-a"},
	})
	require.NoError(t, err)
	_, err = NewCluster(stack, "Cluster", ClusterProps{
		Version:        V1_30,
		Vpc:            vpc,
		EndpointAccess: EndpointPrivate,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "private subnets")
}

func TestNewCluster_DefaultVpcAndCapacity(t *testing.T) {
	stack := newStack(t)
	cluster, err := NewCluster(stack, "Cluster", ClusterProps{Version: V1_30})
	require.NoError(t, err)
	require.NotNil(t, cluster.DefaultNodegroup)

	tmpl := synth(t, stack)
	assert.Len(t, ofType(tmpl, "AWS::EC2::VPC"), 1)

	ng := only(t, tmpl, "AWS::EKS::Nodegroup")
	assert.Equal(t, []any{"m5.large"}, ng.Properties["InstanceTypes"])
	assert.Equal(t, "AL2_x86_64", ng.Properties["AmiType"])
	assert.Equal(t, map[string]any{
		"MinSize":     float64(2),
		"DesiredSize": float64(2),
		"MaxSize":     float64(2),
	}, ng.Properties["ScalingConfig"])

	// The node role is mapped in aws-auth, which brings in the kubectl
	// provider.
	manifests := ofType(tmpl, KubernetesResourceType)
	require.Len(t, manifests, 1)
	assert.Len(t, ofType(tmpl, "AWS::Lambda::Function"), 1)
	assert.Contains(t, tmpl.Parameters, ParamKubectlLayerArn)
	assert.Contains(t, tmpl.Parameters, ParamHandlerS3Bucket)
	assert.Contains(t, tmpl.Parameters, ParamHandlerS3Key)
}

func TestNewCluster_EC2DefaultCapacity(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{
		DefaultCapacity:         ptr(3),
		DefaultCapacityType:     DefaultCapacityEC2,
		DefaultCapacityInstance: "m6g.large",
	})
	require.NotNil(t, cluster.DefaultCapacity)
	assert.Nil(t, cluster.DefaultNodegroup)

	tmpl := synth(t, stack)
	asg := only(t, tmpl, "AWS::AutoScaling::AutoScalingGroup")
	assert.Equal(t, "3", asg.Properties["MinSize"])
	assert.Equal(t, "3", asg.Properties["MaxSize"])
	assert.Equal(t, []any{"subnet-priv-a", "subnet-priv-b"}, asg.Properties["VPCZoneIdentifier"])

	lt := only(t, tmpl, "AWS::EC2::LaunchTemplate")
	data := lt.Properties["LaunchTemplateData"].(map[string]any)
	assert.Equal(t, "{{resolve:ssm:/aws/service/eks/optimized-ami/1.30/amazon-linux-2-arm64/recommended/image_id}}", data["ImageId"])
	assert.Contains(t, data, "UserData")
	assert.Len(t, ofType(tmpl, "AWS::IAM::InstanceProfile"), 1)
}

func TestNewCluster_MastersRole(t *testing.T) {
	stack := newStack(t)
	admin := iam.FromRoleArn("arn:aws:iam::123456789012:role/admin")
	cluster := newTestCluster(t, stack, ClusterProps{
		MastersRole:          admin,
		OutputMastersRoleArn: true,
	})

	auth, err := cluster.AwsAuth()
	require.NoError(t, err)
	require.Len(t, auth.roles, 1)
	assert.Equal(t, roleMapping{
		RoleArn:  "arn:aws:iam::123456789012:role/admin",
		Username: "arn:aws:iam::123456789012:role/admin",
		Groups:   []string{GroupMasters},
	}, auth.roles[0])

	tmpl := synth(t, stack)
	out, ok := output(tmpl, "ClusterMastersRoleArn")
	require.True(t, ok)
	assert.Equal(t, "arn:aws:iam::123456789012:role/admin", out.Value)
	assert.Len(t, ofType(tmpl, KubernetesResourceType), 1)
}

func TestNewCluster_FargateCoreDns(t *testing.T) {
	stack := newStack(t)
	newTestCluster(t, stack, ClusterProps{CoreDnsComputeType: CoreDnsComputeFargate})

	tmpl := synth(t, stack)
	patch := only(t, tmpl, KubernetesPatchType)
	assert.Equal(t, "deployment/coredns", patch.Properties["ResourceName"])
	assert.Equal(t, "kube-system", patch.Properties["ResourceNamespace"])
	assert.Equal(t, "strategic", patch.Properties["PatchType"])
	assert.JSONEq(t,
		`{"spec":{"template":{"metadata":{"annotations":{"eks.amazonaws.com/compute-type":"fargate"}}}}}`,
		patch.Properties["ApplyPatchJson"].(string))
	assert.JSONEq(t,
		`{"spec":{"template":{"metadata":{"annotations":{"eks.amazonaws.com/compute-type":"ec2"}}}}}`,
		patch.Properties["RestorePatchJson"].(string))
}

func TestIssuerFromURL(t *testing.T) {
	assert.Equal(t, "oidc.eks.us-east-1.amazonaws.com/id/ABC", issuerFromURL("https://oidc.eks.us-east-1.amazonaws.com/id/ABC"))

	token := core.AsString(intrinsics.GetAtt{LogicalName: "Cluster", Attribute: "OpenIdConnectIssuerUrl"})
	resolved, err := core.Resolve(issuerFromURL(token))
	require.NoError(t, err)
	data, err := json.Marshal(resolved)
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"Fn::Select":[1,{"Fn::Split":["https://",{"Fn::GetAtt":["Cluster","OpenIdConnectIssuerUrl"]}]}]}`,
		string(data))
}
