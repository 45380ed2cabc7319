package eks

import (
	"fmt"
	"net/netip"
)

// EndpointAccess controls who can reach the Kubernetes API server.
type EndpointAccess struct {
	set         bool
	public      bool
	private     bool
	publicCidrs []string
}

var (
	// EndpointPublic exposes the API server to the internet. Worker nodes
	// reach it through the public endpoint too.
	EndpointPublic = EndpointAccess{set: true, public: true}
	// EndpointPrivate restricts the API server to the VPC.
	EndpointPrivate = EndpointAccess{set: true, private: true}
	// EndpointPublicAndPrivate exposes the API server publicly while worker
	// nodes use the private endpoint.
	EndpointPublicAndPrivate = EndpointAccess{set: true, public: true, private: true}
)

// OnlyFrom restricts public access to the given CIDR blocks.
func (e EndpointAccess) OnlyFrom(cidrs ...string) EndpointAccess {
	e.publicCidrs = append([]string(nil), cidrs...)
	return e
}

func (e EndpointAccess) orDefault() EndpointAccess {
	if !e.set {
		return EndpointPublic
	}
	return e
}

// Public reports whether the public endpoint is enabled.
func (e EndpointAccess) Public() bool { return e.orDefault().public }

// Private reports whether the private endpoint is enabled.
func (e EndpointAccess) Private() bool { return e.orDefault().private }

// PublicCidrs returns the CIDR blocks allowed to reach the public endpoint.
func (e EndpointAccess) PublicCidrs() []string { return e.publicCidrs }

func (e EndpointAccess) validate() error {
	e = e.orDefault()
	if len(e.publicCidrs) > 0 && !e.public {
		return fmt.Errorf("cannot restrict public access to endpoint when public access is disabled; use EndpointPublicAndPrivate.OnlyFrom() instead")
	}
	for _, c := range e.publicCidrs {
		if _, err := netip.ParsePrefix(c); err != nil {
			return fmt.Errorf("invalid public access CIDR %q: %w", c, err)
		}
	}
	return nil
}

// DefaultCapacityType selects how default capacity is provisioned.
type DefaultCapacityType string

const (
	DefaultCapacityNodegroup DefaultCapacityType = "NODEGROUP"
	DefaultCapacityEC2       DefaultCapacityType = "EC2"
)

// ClusterLoggingType is a control plane log type.
type ClusterLoggingType string

const (
	LoggingAPI               ClusterLoggingType = "api"
	LoggingAudit             ClusterLoggingType = "audit"
	LoggingAuthenticator     ClusterLoggingType = "authenticator"
	LoggingControllerManager ClusterLoggingType = "controllerManager"
	LoggingScheduler         ClusterLoggingType = "scheduler"
)

// CoreDnsComputeType is where CoreDNS pods run.
type CoreDnsComputeType string

const (
	CoreDnsComputeEC2     CoreDnsComputeType = "ec2"
	CoreDnsComputeFargate CoreDnsComputeType = "fargate"
)

// IpFamily is the address family of pod and service IPs.
type IpFamily string

const (
	IpFamilyIPv4 IpFamily = "ipv4"
	IpFamilyIPv6 IpFamily = "ipv6"
)

// AuthenticationMode selects where the cluster reads IAM principal
// mappings from.
type AuthenticationMode string

const (
	AuthConfigMap         AuthenticationMode = "CONFIG_MAP"
	AuthAPI               AuthenticationMode = "API"
	AuthAPIAndConfigMap   AuthenticationMode = "API_AND_CONFIG_MAP"
	defaultAuthentication                    = AuthAPIAndConfigMap
)

// CapacityType is the purchase option of managed node group instances.
type CapacityType string

const (
	CapacityOnDemand CapacityType = "ON_DEMAND"
	CapacitySpot     CapacityType = "SPOT"
)

// NodegroupAmiType is the AMI family of a managed node group.
type NodegroupAmiType string

const (
	AmiAL2X86_64                NodegroupAmiType = "AL2_x86_64"
	AmiAL2X86_64GPU             NodegroupAmiType = "AL2_x86_64_GPU"
	AmiAL2Arm64                 NodegroupAmiType = "AL2_ARM_64"
	AmiAL2023X86_64Standard     NodegroupAmiType = "AL2023_x86_64_STANDARD"
	AmiAL2023X86_64Neuron       NodegroupAmiType = "AL2023_x86_64_NEURON"
	AmiAL2023X86_64Nvidia       NodegroupAmiType = "AL2023_x86_64_NVIDIA"
	AmiAL2023Arm64Standard      NodegroupAmiType = "AL2023_ARM_64_STANDARD"
	AmiBottlerocketX86_64       NodegroupAmiType = "BOTTLEROCKET_x86_64"
	AmiBottlerocketX86_64Nvidia NodegroupAmiType = "BOTTLEROCKET_x86_64_NVIDIA"
	AmiBottlerocketArm64        NodegroupAmiType = "BOTTLEROCKET_ARM_64"
	AmiBottlerocketArm64Nvidia  NodegroupAmiType = "BOTTLEROCKET_ARM_64_NVIDIA"
	AmiWindowsCore2022X86_64    NodegroupAmiType = "WINDOWS_CORE_2022_x86_64"
	AmiWindowsFull2022X86_64    NodegroupAmiType = "WINDOWS_FULL_2022_x86_64"
	AmiCustom                   NodegroupAmiType = "CUSTOM"
)

var amiArch = map[NodegroupAmiType]CpuArch{
	AmiAL2X86_64:                CpuArchX86_64,
	AmiAL2X86_64GPU:             CpuArchX86_64,
	AmiAL2Arm64:                 CpuArchArm64,
	AmiAL2023X86_64Standard:     CpuArchX86_64,
	AmiAL2023X86_64Neuron:       CpuArchX86_64,
	AmiAL2023X86_64Nvidia:       CpuArchX86_64,
	AmiAL2023Arm64Standard:      CpuArchArm64,
	AmiBottlerocketX86_64:       CpuArchX86_64,
	AmiBottlerocketX86_64Nvidia: CpuArchX86_64,
	AmiBottlerocketArm64:        CpuArchArm64,
	AmiBottlerocketArm64Nvidia:  CpuArchArm64,
	AmiWindowsCore2022X86_64:    CpuArchX86_64,
	AmiWindowsFull2022X86_64:    CpuArchX86_64,
}

// TaintEffect is the scheduling effect of a node taint.
type TaintEffect string

const (
	TaintNoSchedule       TaintEffect = "NO_SCHEDULE"
	TaintPreferNoSchedule TaintEffect = "PREFER_NO_SCHEDULE"
	TaintNoExecute        TaintEffect = "NO_EXECUTE"
)

// PatchType is the kubectl patch strategy.
type PatchType string

const (
	PatchStrategic PatchType = "strategic"
	PatchJSON      PatchType = "json"
	PatchMerge     PatchType = "merge"
)
