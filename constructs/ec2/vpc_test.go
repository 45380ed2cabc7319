package ec2

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

func newStack(t *testing.T) *core.Stack {
	t.Helper()
	t.Setenv(core.EnvOutdir, "")
	t.Setenv(core.EnvContext, "")
	app, err := core.NewApp(nil)
	require.NoError(t, err)
	stack, err := core.NewStack(app, "Network", nil)
	require.NoError(t, err)
	return stack
}

func countTypes(tmpl *wetwire.Template) map[string]int {
	counts := map[string]int{}
	for _, def := range tmpl.Resources {
		counts[def.Type]++
	}
	return counts
}

func TestNewVpc_Defaults(t *testing.T) {
	stack := newStack(t)
	vpc, err := NewVpc(stack, "Vpc", VpcProps{})
	require.NoError(t, err)

	require.Len(t, vpc.PublicSubnets, 2)
	require.Len(t, vpc.PrivateSubnets, 2)
	assert.True(t, core.IsUnresolved(vpc.VpcID()))
	assert.Len(t, vpc.PrivateSubnetIDs(), 2)

	tmpl, err := stack.Synthesize()
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"AWS::EC2::VPC":                         1,
		"AWS::EC2::InternetGateway":             1,
		"AWS::EC2::VPCGatewayAttachment":        1,
		"AWS::EC2::Subnet":                      4,
		"AWS::EC2::RouteTable":                  4,
		"AWS::EC2::SubnetRouteTableAssociation": 4,
		"AWS::EC2::Route":                       4,
		"AWS::EC2::EIP":                         1,
		"AWS::EC2::NatGateway":                  1,
	}, countTypes(tmpl))

	vpcDef := tmpl.Resources[vpc.Resource().LogicalID()]
	assert.Equal(t, DefaultCidr, vpcDef.Properties["CidrBlock"])

	var cidrs []any
	for _, s := range append(vpc.PublicSubnets, vpc.PrivateSubnets...) {
		def := tmpl.Resources[s.Node().TryFindChild("Subnet").Resource().LogicalID()]
		cidrs = append(cidrs, def.Properties["CidrBlock"])
	}
	assert.Equal(t, []any{"10.0.0.0/18", "10.0.64.0/18", "10.0.128.0/18", "10.0.192.0/18"}, cidrs)

	publicRoute := tmpl.Resources[vpc.PublicSubnets[0].Node().TryFindChild("DefaultRoute").Resource().LogicalID()]
	assert.Len(t, publicRoute.DependsOn, 1)
	assert.Contains(t, publicRoute.Properties, "GatewayId")

	privateRoute := tmpl.Resources[vpc.PrivateSubnets[1].Node().TryFindChild("DefaultRoute").Resource().LogicalID()]
	nat := vpc.PublicSubnets[0].Node().TryFindChild("NATGateway").Resource()
	assert.Equal(t, map[string]any{"Ref": nat.LogicalID()}, privateRoute.Properties["NatGatewayId"])
}

func TestNewVpc_NoNat(t *testing.T) {
	stack := newStack(t)
	vpc, err := NewVpc(stack, "Vpc", VpcProps{MaxAzs: 3, NatGateways: intrinsics.IntPtr(0)})
	require.NoError(t, err)
	assert.Nil(t, vpc.PrivateSubnets[0].Node().TryFindChild("DefaultRoute"))

	tmpl, err := stack.Synthesize()
	require.NoError(t, err)
	counts := countTypes(tmpl)
	assert.Equal(t, 6, counts["AWS::EC2::Subnet"])
	assert.Equal(t, 3, counts["AWS::EC2::Route"])
	assert.Zero(t, counts["AWS::EC2::NatGateway"])
}

func TestVpc_TagSubnets(t *testing.T) {
	stack := newStack(t)
	vpc, err := NewVpc(stack, "Vpc", VpcProps{MaxAzs: 1})
	require.NoError(t, err)
	vpc.TagSubnets("kubernetes.io/cluster/prod", "shared")

	tmpl, err := stack.Synthesize()
	require.NoError(t, err)
	def := tmpl.Resources[vpc.PrivateSubnets[0].Node().TryFindChild("Subnet").Resource().LogicalID()]
	assert.Contains(t, def.Properties["Tags"], map[string]any{"Key": "kubernetes.io/cluster/prod", "Value": "shared"})
	assert.Contains(t, def.Properties["Tags"], map[string]any{"Key": TagInternalELB, "Value": "1"})
}

func TestVpcProps_Validate(t *testing.T) {
	tests := []struct {
		name    string
		props   VpcProps
		wantErr string
	}{
		{"bad cidr", VpcProps{CidrBlock: "10.0.0.0"}, "must be an IPv4 CIDR block"},
		{"ipv6", VpcProps{CidrBlock: "fd00::/48"}, "must be an IPv4 CIDR block"},
		{"too large", VpcProps{CidrBlock: "10.0.0.0/8"}, "between /16 and /24"},
		{"too many nat gateways", VpcProps{MaxAzs: 2, NatGateways: intrinsics.IntPtr(3)}, "NatGateways must be between 0 and MaxAzs"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack := newStack(t)
			_, err := NewVpc(stack, "Vpc", tt.props)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestFromVpcAttributes(t *testing.T) {
	_, err := FromVpcAttributes(VpcAttributes{})
	require.Error(t, err)

	vpc, err := FromVpcAttributes(VpcAttributes{VpcID: "vpc-123", PrivateSubnetIDs: []string{"subnet-a"}})
	require.NoError(t, err)
	assert.Equal(t, "vpc-123", vpc.VpcID())
	assert.Equal(t, []string{"subnet-a"}, vpc.PrivateSubnetIDs())
	assert.Empty(t, vpc.PublicSubnetIDs())
}

func TestSplitCidr_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maskBits := rapid.IntRange(16, 24).Draw(t, "mask")
		n := rapid.IntRange(1, 16).Draw(t, "n")

		out, err := splitCidr("10.1.0.0/"+strconv.Itoa(maskBits), n)
		if maskBits+bitsFor(n) > 28 {
			if err == nil {
				t.Fatalf("expected error for /%d split %d ways", maskBits, n)
			}
			return
		}
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != n {
			t.Fatalf("got %d subnets, want %d", len(out), n)
		}
		seen := map[string]bool{}
		for _, c := range out {
			if seen[c] {
				t.Fatalf("duplicate subnet %s", c)
			}
			seen[c] = true
		}
	})
}

func bitsFor(n int) int {
	b := 0
	for (1 << b) < n {
		b++
	}
	return b
}
