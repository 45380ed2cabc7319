package eks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestNodegroupProps_Validate(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	tests := []struct {
		name string
		opts NodegroupOptions
		want string
	}{
		{"zero max", NodegroupOptions{MinSize: ptr(0), DesiredSize: ptr(0), MaxSize: ptr(0)}, "Maximum capacity must be greater than zero"},
		{"min over desired", NodegroupOptions{MinSize: ptr(3), DesiredSize: ptr(2), MaxSize: ptr(4)}, "Minimum capacity 3 can't be greater than desired size 2"},
		{"desired over max", NodegroupOptions{DesiredSize: ptr(5), MaxSize: ptr(4)}, "Desired capacity 5 can't be greater than max size 4"},
		{"disk with template", NodegroupOptions{DiskSize: 50, LaunchTemplate: &LaunchTemplateSpec{ID: "lt-1"}}, "diskSize must be specified within the launch template"},
		{"mixed arch", NodegroupOptions{InstanceTypes: []string{"m5.large", "m6g.large"}}, "instanceTypes of different architectures is not allowed"},
		{"ami mismatch", NodegroupOptions{InstanceTypes: []string{"m5.large"}, AmiType: AmiAL2Arm64}, "does not match the x86_64 architecture"},
		{"custom ami", NodegroupOptions{AmiType: AmiCustom}, "AmiType CUSTOM requires a launch template"},
		{"both unavailable", NodegroupOptions{MaxUnavailable: 1, MaxUnavailablePercentage: 10}, "not allowed to be defined together"},
		{"unavailable range", NodegroupOptions{MaxUnavailable: 101}, "maxUnavailable must be between 1 and 100"},
		{"percentage range", NodegroupOptions{MaxUnavailablePercentage: -5}, "maxUnavailablePercentage must be between 1 and 100"},
		{"taint effect", NodegroupOptions{Taints: []Taint{{Key: "gpu", Effect: "NoSchedule"}}}, "unknown effect"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NodegroupProps{NodegroupOptions: tt.opts, Cluster: cluster}.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, NodegroupProps{Cluster: cluster}.Validate())
	assert.Error(t, NodegroupProps{}.Validate())
}

func TestNodegroupOptions_Sizes(t *testing.T) {
	minSize, desired, maxSize := NodegroupOptions{}.sizes()
	assert.Equal(t, []int{1, 2, 2}, []int{minSize, desired, maxSize})

	minSize, desired, maxSize = NodegroupOptions{MinSize: ptr(4)}.sizes()
	assert.Equal(t, []int{4, 4, 4}, []int{minSize, desired, maxSize})

	rapid.Check(t, func(t *rapid.T) {
		opts := NodegroupOptions{MinSize: ptr(rapid.IntRange(0, 50).Draw(t, "min"))}
		minSize, desired, maxSize := opts.sizes()
		if minSize > desired || desired > maxSize {
			t.Fatalf("defaults violate min <= desired <= max: %d %d %d", minSize, desired, maxSize)
		}
	})
}

func TestDefaultAmiType(t *testing.T) {
	assert.Equal(t, NodegroupAmiType(""), defaultAmiType(nil))
	assert.Equal(t, AmiAL2X86_64, defaultAmiType([]string{"m5.large", "c5.xlarge"}))
	assert.Equal(t, AmiAL2Arm64, defaultAmiType([]string{"m6g.large"}))
	assert.Equal(t, AmiAL2X86_64GPU, defaultAmiType([]string{"g4dn.xlarge"}))
}

func TestNewNodegroup(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{AuthenticationMode: AuthAPI})

	ng, err := cluster.AddNodegroupCapacity("Spot", NodegroupOptions{
		InstanceTypes:  []string{"c6g.large", "m6g.large"},
		CapacityType:   CapacitySpot,
		MinSize:        ptr(1),
		MaxSize:        ptr(10),
		Labels:         map[string]string{"lifecycle": "spot"},
		Taints:         []Taint{{Key: "spot", Value: "true", Effect: TaintNoSchedule}},
		MaxUnavailable: 2,
	})
	require.NoError(t, err)
	assert.NotNil(t, ng.Role())

	tmpl := synth(t, stack)
	def := only(t, tmpl, "AWS::EKS::Nodegroup")
	assert.Equal(t, "AL2_ARM_64", def.Properties["AmiType"])
	assert.Equal(t, "SPOT", def.Properties["CapacityType"])
	assert.Equal(t, []any{"subnet-priv-a", "subnet-priv-b"}, def.Properties["Subnets"])
	assert.Equal(t, map[string]any{"lifecycle": "spot"}, def.Properties["Labels"])
	assert.Equal(t, []any{map[string]any{"Effect": "NO_SCHEDULE", "Key": "spot", "Value": "true"}}, def.Properties["Taints"])
	assert.Equal(t, map[string]any{"MaxUnavailable": float64(2)}, def.Properties["UpdateConfig"])
	assert.Equal(t, map[string]any{
		"MinSize":     float64(1),
		"DesiredSize": float64(2),
		"MaxSize":     float64(10),
	}, def.Properties["ScalingConfig"])

	// API-only clusters do not use aws-auth.
	assert.Empty(t, ofType(tmpl, KubernetesResourceType))
}

func TestNewNodegroup_LaunchTemplate(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{AuthenticationMode: AuthAPI})

	_, err := cluster.AddNodegroupCapacity("Custom", NodegroupOptions{
		AmiType:        AmiCustom,
		LaunchTemplate: &LaunchTemplateSpec{ID: "lt-0123", Version: "3"},
	})
	require.NoError(t, err)

	def := only(t, synth(t, stack), "AWS::EKS::Nodegroup")
	assert.Equal(t, "CUSTOM", def.Properties["AmiType"])
	assert.Equal(t, map[string]any{"Id": "lt-0123", "Version": "3"}, def.Properties["LaunchTemplate"])
}
