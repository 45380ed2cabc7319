// Package ec2 provides the VPC construct EKS clusters are placed in.
//
// NewVpc lays out one public and one private subnet per availability zone,
// an internet gateway and NAT gateways for private egress, the way the
// EKS user guide recommends:
//
//	vpc, err := ec2.NewVpc(stack, "Vpc", ec2.VpcProps{MaxAzs: 3})
//	vpc.PrivateSubnetIDs() // tokens for the private subnets
package ec2

import (
	"errors"
	"fmt"
	"math/bits"
	"net/netip"

	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	ec2res "github.com/lex00/wetwire-cdk-go/resources/ec2"
)

// Defaults applied by NewVpc.
const (
	DefaultCidr        = "10.0.0.0/16"
	DefaultMaxAzs      = 2
	DefaultNatGateways = 1
)

// Subnet tags the AWS load balancer controller uses for discovery.
const (
	TagPublicELB   = "kubernetes.io/role/elb"
	TagInternalELB = "kubernetes.io/role/internal-elb"
)

// IVpc is a VPC managed by this app or imported by id.
type IVpc interface {
	VpcID() string
	PublicSubnetIDs() []string
	PrivateSubnetIDs() []string
}

// VpcProps configures a Vpc.
type VpcProps struct {
	// CidrBlock is an IPv4 block of /16 to /24. Default 10.0.0.0/16.
	CidrBlock string
	// MaxAzs is the number of availability zones to span. Default 2.
	MaxAzs int
	// NatGateways is the number of NAT gateways, at most MaxAzs. Default 1;
	// zero leaves private subnets without internet egress.
	NatGateways *int
}

func (p *VpcProps) applyDefaults() {
	if p.CidrBlock == "" {
		p.CidrBlock = DefaultCidr
	}
	if p.MaxAzs == 0 {
		p.MaxAzs = DefaultMaxAzs
	}
	if p.NatGateways == nil {
		n := DefaultNatGateways
		p.NatGateways = &n
	}
}

// Validate checks the props after defaults are applied.
func (p VpcProps) Validate() error {
	prefix, err := netip.ParsePrefix(p.CidrBlock)
	if err != nil || !prefix.Addr().Is4() {
		return fmt.Errorf("CidrBlock must be an IPv4 CIDR block, got %q", p.CidrBlock)
	}
	if prefix.Bits() < 16 || prefix.Bits() > 24 {
		return fmt.Errorf("CidrBlock netmask must be between /16 and /24, got /%d", prefix.Bits())
	}
	if p.MaxAzs < 1 {
		return fmt.Errorf("MaxAzs must be at least 1, got %d", p.MaxAzs)
	}
	if p.NatGateways != nil && (*p.NatGateways < 0 || *p.NatGateways > p.MaxAzs) {
		return fmt.Errorf("NatGateways must be between 0 and MaxAzs (%d), got %d", p.MaxAzs, *p.NatGateways)
	}
	return nil
}

// Subnet is one subnet of a Vpc together with its route table.
type Subnet struct {
	node   *core.Node
	cfn    *ec2res.Subnet
	Public bool
}

// Node returns the construct node.
func (s *Subnet) Node() *core.Node { return s.node }

// SubnetID returns the subnet id as a string token.
func (s *Subnet) SubnetID() string {
	return s.node.TryFindChild("Subnet").Resource().RefString()
}

// AddTag appends a tag to the subnet.
func (s *Subnet) AddTag(key string, value any) {
	s.cfn.Tags = append(s.cfn.Tags, intrinsics.Tag{Key: key, Value: value})
}

// Vpc is an AWS::EC2::VPC with public and private subnets.
type Vpc struct {
	node     *core.Node
	resource *core.CfnResource

	PublicSubnets  []*Subnet
	PrivateSubnets []*Subnet
}

// NewVpc creates a VPC.
func NewVpc(scope core.Construct, id string, props VpcProps) (*Vpc, error) {
	props.applyDefaults()
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("vpc %s: %w", id, err)
	}
	cidrs, err := splitCidr(props.CidrBlock, 2*props.MaxAzs)
	if err != nil {
		return nil, fmt.Errorf("vpc %s: %w", id, err)
	}

	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	v := &Vpc{node: node}

	vpcRes := &ec2res.VPC{
		CidrBlock:          props.CidrBlock,
		EnableDnsHostnames: true,
		EnableDnsSupport:   true,
		InstanceTenancy:    "default",
		Tags:               []any{intrinsics.Tag{Key: "Name", Value: node.Path()}},
	}
	if v.resource, err = core.NewCfnResource(node, "Resource", vpcRes); err != nil {
		return nil, err
	}

	igw := &ec2res.InternetGateway{Tags: []any{intrinsics.Tag{Key: "Name", Value: node.Path()}}}
	igwRes, err := core.NewCfnResource(node, "IGW", igw)
	if err != nil {
		return nil, err
	}
	attachment, err := core.NewCfnResource(node, "VPCGW", &ec2res.VPCGatewayAttachment{
		VpcId:             v.resource.Ref(),
		InternetGatewayId: igwRes.Ref(),
	})
	if err != nil {
		return nil, err
	}

	var nats []*core.CfnResource
	for i := 0; i < props.MaxAzs; i++ {
		s, route, err := v.addSubnet(fmt.Sprintf("PublicSubnet%d", i+1), cidrs[i], i, true)
		if err != nil {
			return nil, err
		}
		if _, err := newRoute(s.node, route, "DefaultRoute", &ec2res.Route{GatewayId: igwRes.Ref()}, attachment); err != nil {
			return nil, err
		}
		if i < *props.NatGateways {
			eip, err := core.NewCfnResource(s.node, "EIP", &ec2res.EIP{
				Domain: "vpc",
				Tags:   []any{intrinsics.Tag{Key: "Name", Value: s.node.Path()}},
			})
			if err != nil {
				return nil, err
			}
			nat, err := core.NewCfnResource(s.node, "NATGateway", &ec2res.NatGateway{
				SubnetId:     s.SubnetID(),
				AllocationId: eip.GetAtt("AllocationId"),
				Tags:         []any{intrinsics.Tag{Key: "Name", Value: s.node.Path()}},
			})
			if err != nil {
				return nil, err
			}
			nats = append(nats, nat)
		}
		v.PublicSubnets = append(v.PublicSubnets, s)
	}

	for i := 0; i < props.MaxAzs; i++ {
		s, route, err := v.addSubnet(fmt.Sprintf("PrivateSubnet%d", i+1), cidrs[props.MaxAzs+i], i, false)
		if err != nil {
			return nil, err
		}
		if len(nats) > 0 {
			nat := nats[i%len(nats)]
			if _, err := newRoute(s.node, route, "DefaultRoute", &ec2res.Route{NatGatewayId: nat.Ref()}); err != nil {
				return nil, err
			}
		}
		v.PrivateSubnets = append(v.PrivateSubnets, s)
	}
	return v, nil
}

func (v *Vpc) addSubnet(id, cidr string, az int, public bool) (*Subnet, *core.CfnResource, error) {
	node, err := core.NewNode(v.node, id)
	if err != nil {
		return nil, nil, err
	}
	subnetType, elbTag := "Private", TagInternalELB
	if public {
		subnetType, elbTag = "Public", TagPublicELB
	}
	cfn := &ec2res.Subnet{
		VpcId:               v.resource.Ref(),
		CidrBlock:           cidr,
		AvailabilityZone:    intrinsics.Select{Index: az, List: intrinsics.GetAZs{}},
		MapPublicIpOnLaunch: public,
		Tags: []any{
			intrinsics.Tag{Key: "Name", Value: node.Path()},
			intrinsics.Tag{Key: "aws-cdk:subnet-type", Value: subnetType},
			intrinsics.Tag{Key: elbTag, Value: "1"},
		},
	}
	subnetRes, err := core.NewCfnResource(node, "Subnet", cfn)
	if err != nil {
		return nil, nil, err
	}
	table, err := core.NewCfnResource(node, "RouteTable", &ec2res.RouteTable{
		VpcId: v.resource.Ref(),
		Tags:  []any{intrinsics.Tag{Key: "Name", Value: node.Path()}},
	})
	if err != nil {
		return nil, nil, err
	}
	if _, err := core.NewCfnResource(node, "RouteTableAssociation", &ec2res.SubnetRouteTableAssociation{
		RouteTableId: table.Ref(),
		SubnetId:     subnetRes.Ref(),
	}); err != nil {
		return nil, nil, err
	}
	return &Subnet{node: node, cfn: cfn, Public: public}, table, nil
}

func newRoute(scope *core.Node, table *core.CfnResource, id string, route *ec2res.Route, deps ...*core.CfnResource) (*core.CfnResource, error) {
	route.RouteTableId = table.Ref()
	route.DestinationCidrBlock = "0.0.0.0/0"
	res, err := core.NewCfnResource(scope, id, route)
	if err != nil {
		return nil, err
	}
	res.AddDependsOn(deps...)
	return res, nil
}

// Node returns the construct node.
func (v *Vpc) Node() *core.Node { return v.node }

// Resource returns the AWS::EC2::VPC resource.
func (v *Vpc) Resource() *core.CfnResource { return v.resource }

// VpcID returns the VPC id as a string token.
func (v *Vpc) VpcID() string { return v.resource.RefString() }

// PublicSubnetIDs returns the public subnet ids as tokens.
func (v *Vpc) PublicSubnetIDs() []string { return subnetIDs(v.PublicSubnets) }

// PrivateSubnetIDs returns the private subnet ids as tokens.
func (v *Vpc) PrivateSubnetIDs() []string { return subnetIDs(v.PrivateSubnets) }

// TagSubnets appends a tag to every subnet.
func (v *Vpc) TagSubnets(key string, value any) {
	for _, s := range append(append([]*Subnet{}, v.PublicSubnets...), v.PrivateSubnets...) {
		s.AddTag(key, value)
	}
}

func subnetIDs(subnets []*Subnet) []string {
	ids := make([]string, len(subnets))
	for i, s := range subnets {
		ids[i] = s.SubnetID()
	}
	return ids
}

// VpcAttributes identify an existing VPC.
type VpcAttributes struct {
	VpcID            string
	PublicSubnetIDs  []string
	PrivateSubnetIDs []string
}

type importedVpc struct {
	attrs VpcAttributes
}

// FromVpcAttributes references an existing VPC.
func FromVpcAttributes(attrs VpcAttributes) (IVpc, error) {
	if attrs.VpcID == "" {
		return nil, errors.New("VpcID is required")
	}
	return &importedVpc{attrs: attrs}, nil
}

func (v *importedVpc) VpcID() string              { return v.attrs.VpcID }
func (v *importedVpc) PublicSubnetIDs() []string  { return v.attrs.PublicSubnetIDs }
func (v *importedVpc) PrivateSubnetIDs() []string { return v.attrs.PrivateSubnetIDs }

// splitCidr divides block into n equal subnets, rounding n up to a power
// of two.
func splitCidr(block string, n int) ([]string, error) {
	prefix, err := netip.ParsePrefix(block)
	if err != nil {
		return nil, err
	}
	prefix = prefix.Masked()
	extra := bits.Len(uint(n - 1))
	size := prefix.Bits() + extra
	if size > 28 {
		return nil, fmt.Errorf("cannot fit %d subnets in %s", n, block)
	}
	a4 := prefix.Addr().As4()
	base := uint32(a4[0])<<24 | uint32(a4[1])<<16 | uint32(a4[2])<<8 | uint32(a4[3])
	step := uint32(1) << (32 - size)

	out := make([]string, n)
	for i := 0; i < n; i++ {
		addr := base + uint32(i)*step
		ip := netip.AddrFrom4([4]byte{byte(addr >> 24), byte(addr >> 16), byte(addr >> 8), byte(addr)})
		out[i] = netip.PrefixFrom(ip, size).String()
	}
	return out, nil
}
