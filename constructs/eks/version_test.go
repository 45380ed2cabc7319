package eks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestInstanceArch(t *testing.T) {
	tests := []struct {
		instance string
		arch     CpuArch
		gpu      bool
	}{
		{"m5.large", CpuArchX86_64, false},
		{"m6g.large", CpuArchArm64, false},
		{"c7gn.xlarge", CpuArchArm64, false},
		{"t4g.micro", CpuArchArm64, false},
		{"a1.medium", CpuArchArm64, false},
		{"r6gd.2xlarge", CpuArchArm64, false},
		{"p3.2xlarge", CpuArchX86_64, true},
		{"g4dn.xlarge", CpuArchX86_64, true},
		{"inf1.xlarge", CpuArchX86_64, true},
		{"trn1.32xlarge", CpuArchX86_64, true},
		{"M5.LARGE", CpuArchX86_64, false},
	}
	for _, tt := range tests {
		t.Run(tt.instance, func(t *testing.T) {
			assert.Equal(t, tt.arch, InstanceArch(tt.instance))
			assert.Equal(t, tt.gpu, IsGpuInstance(tt.instance))
		})
	}
}

func TestInstanceArch_GravitonFamilies(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		class := rapid.SampledFrom([]string{"m", "c", "r", "t", "x"}).Draw(t, "class")
		gen := rapid.IntRange(6, 8).Draw(t, "generation")
		attrs := rapid.SampledFrom([]string{"", "d", "n", "dn"}).Draw(t, "attrs")
		size := rapid.SampledFrom([]string{"medium", "large", "4xlarge"}).Draw(t, "size")

		intel := class + string(rune('0'+gen)) + attrs + "." + size
		graviton := class + string(rune('0'+gen)) + "g" + attrs + "." + size
		if InstanceArch(graviton) != CpuArchArm64 {
			t.Fatalf("%s should be arm64", graviton)
		}
		if attrs != "" && attrs[0] == 'g' {
			return
		}
		if InstanceArch(intel) != CpuArchX86_64 {
			t.Fatalf("%s should be x86_64", intel)
		}
	})
}

func TestKubernetesVersion(t *testing.T) {
	assert.Equal(t, "1.30", V1_30.String())
	assert.NoError(t, KubernetesVersionOf("1.32").validate())
	assert.Error(t, KubernetesVersion{}.validate())
	assert.Error(t, KubernetesVersionOf("1.30.1").validate())
}

func TestEndpointAccess(t *testing.T) {
	var unset EndpointAccess
	assert.True(t, unset.Public())
	assert.False(t, unset.Private())

	restricted := EndpointPublicAndPrivate.OnlyFrom("10.0.0.0/8", "192.168.0.0/16")
	assert.True(t, restricted.Private())
	assert.Equal(t, []string{"10.0.0.0/8", "192.168.0.0/16"}, restricted.PublicCidrs())
	assert.NoError(t, restricted.validate())
	assert.Empty(t, EndpointPublicAndPrivate.PublicCidrs(), "OnlyFrom returns a copy")

	assert.Error(t, EndpointPublic.OnlyFrom("not-a-cidr").validate())
	assert.Error(t, EndpointPrivate.OnlyFrom("10.0.0.0/8").validate())
}
