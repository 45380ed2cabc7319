package eks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderBootstrapUserData(t *testing.T) {
	tests := []struct {
		name string
		opts BootstrapOptions
		want string
	}{
		{
			name: "defaults",
			want: "#!/bin/bash\nset -o xtrace\n" +
				"/etc/eks/bootstrap.sh prod --apiserver-endpoint https://api --b64-cluster-ca Q0E=" +
				" --kubelet-extra-args '--node-labels lifecycle=OnDemand'\n",
		},
		{
			name: "all options",
			opts: BootstrapOptions{
				UseMaxPods:       ptr(false),
				DNSClusterIP:     "172.20.0.10",
				KubeletExtraArgs: []string{"--max-pods=110"},
				AdditionalArgs:   "--container-runtime containerd",
			},
			want: "#!/bin/bash\nset -o xtrace\n" +
				"/etc/eks/bootstrap.sh prod --apiserver-endpoint https://api --b64-cluster-ca Q0E=" +
				" --dns-cluster-ip 172.20.0.10 --use-max-pods false" +
				" --kubelet-extra-args '--node-labels lifecycle=OnDemand --max-pods=110'" +
				" --container-runtime containerd\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RenderBootstrapUserData("prod", "https://api", "Q0E=", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAutoScalingGroupCapacityOptions_Validate(t *testing.T) {
	assert.NoError(t, AutoScalingGroupCapacityOptions{InstanceType: "m5.large"}.Validate())

	err := AutoScalingGroupCapacityOptions{}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "InstanceType is required")

	err = AutoScalingGroupCapacityOptions{InstanceType: "m5.large", MinCapacity: ptr(3), MaxCapacity: ptr(2)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "min <= desired <= max")

	err = AutoScalingGroupCapacityOptions{InstanceType: "m5.large", MinCapacity: ptr(0)}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MaxCapacity must be greater than zero")
}

func TestOptimizedAmiParameter(t *testing.T) {
	assert.Equal(t,
		"{{resolve:ssm:/aws/service/eks/optimized-ami/1.29/amazon-linux-2/recommended/image_id}}",
		optimizedAmiParameter(V1_29, "m5.large"))
	assert.Equal(t,
		"{{resolve:ssm:/aws/service/eks/optimized-ami/1.29/amazon-linux-2-gpu/recommended/image_id}}",
		optimizedAmiParameter(V1_29, "p3.2xlarge"))
	assert.Equal(t,
		"{{resolve:ssm:/aws/service/eks/optimized-ami/1.29/amazon-linux-2-arm64/recommended/image_id}}",
		optimizedAmiParameter(V1_29, "t4g.medium"))
}

func TestAddAutoScalingGroupCapacity(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	capacity, err := cluster.AddAutoScalingGroupCapacity("Workers", AutoScalingGroupCapacityOptions{
		InstanceType:   "c5.xlarge",
		MinCapacity:    ptr(2),
		MaxCapacity:    ptr(6),
		MachineImageID: "ami-0abc",
		KeyName:        "ops",
	})
	require.NoError(t, err)
	assert.NotNil(t, capacity.Role())

	tmpl := synth(t, stack)
	asg := tmpl.Resources[capacity.AutoScalingGroup().LogicalID()]
	assert.Equal(t, "2", asg.Properties["MinSize"])
	assert.Equal(t, "2", asg.Properties["DesiredCapacity"])
	assert.Equal(t, "6", asg.Properties["MaxSize"])
	ltRef := asg.Properties["LaunchTemplate"].(map[string]any)
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{capacity.LaunchTemplate().LogicalID(), "LaunchTemplateId"}}, ltRef["LaunchTemplateId"])
	assert.Equal(t, map[string]any{"Fn::GetAtt": []any{capacity.LaunchTemplate().LogicalID(), "LatestVersionNumber"}}, ltRef["Version"])

	lt := tmpl.Resources[capacity.LaunchTemplate().LogicalID()]
	data := lt.Properties["LaunchTemplateData"].(map[string]any)
	assert.Equal(t, "ami-0abc", data["ImageId"])
	assert.Equal(t, "ops", data["KeyName"])
	assert.Equal(t, "required", data["MetadataOptions"].(map[string]any)["HttpTokens"])

	// The instance role joins the cluster through aws-auth.
	auth, err := cluster.AwsAuth()
	require.NoError(t, err)
	require.Len(t, auth.roles, 1)
	assert.Equal(t, "system:node:{{EC2PrivateDNSName}}", auth.roles[0].Username)
	assert.Equal(t, []string{GroupBootstrappers, GroupNodes}, auth.roles[0].Groups)
}
