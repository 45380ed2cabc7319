package eks

import (
	"fmt"
	"regexp"
	"strings"
)

// KubernetesVersion is a Kubernetes minor version supported by EKS.
type KubernetesVersion struct {
	version string
}

// Supported versions. Use KubernetesVersionOf for versions released after
// this package.
var (
	V1_27 = KubernetesVersion{"1.27"}
	V1_28 = KubernetesVersion{"1.28"}
	V1_29 = KubernetesVersion{"1.29"}
	V1_30 = KubernetesVersion{"1.30"}
	V1_31 = KubernetesVersion{"1.31"}
)

var versionPattern = regexp.MustCompile(`^\d+\.\d+$`)

// KubernetesVersionOf returns a custom version such as "1.32".
func KubernetesVersionOf(v string) KubernetesVersion {
	return KubernetesVersion{version: v}
}

// String returns the version string.
func (v KubernetesVersion) String() string { return v.version }

// IsZero reports whether no version was set.
func (v KubernetesVersion) IsZero() bool { return v.version == "" }

func (v KubernetesVersion) validate() error {
	if v.IsZero() {
		return fmt.Errorf("Version is required")
	}
	if !versionPattern.MatchString(v.version) {
		return fmt.Errorf("Version must be a Kubernetes minor version such as \"1.30\", got %q", v.version)
	}
	return nil
}

// CpuArch is the processor architecture of an instance type.
type CpuArch string

const (
	CpuArchX86_64 CpuArch = "x86_64"
	CpuArchArm64  CpuArch = "arm64"
)

// instanceFamilyPattern splits "m6gd.large" into class "m", generation "6"
// and attributes "gd".
var instanceFamilyPattern = regexp.MustCompile(`^([a-z]+?)(\d+)([a-z-]*)$`)

// InstanceArch returns the CPU architecture of an EC2 instance type.
// Graviton families carry a "g" attribute (c6g, m7gd, t4g); a1 is the
// first generation Graviton.
func InstanceArch(instanceType string) CpuArch {
	family, _, _ := strings.Cut(strings.ToLower(instanceType), ".")
	if family == "a1" {
		return CpuArchArm64
	}
	m := instanceFamilyPattern.FindStringSubmatch(family)
	if m != nil && strings.HasPrefix(m[3], "g") {
		return CpuArchArm64
	}
	return CpuArchX86_64
}

// IsGpuInstance reports whether the instance type has GPU or Neuron
// accelerators and needs an accelerated AMI.
func IsGpuInstance(instanceType string) bool {
	family, _, _ := strings.Cut(strings.ToLower(instanceType), ".")
	m := instanceFamilyPattern.FindStringSubmatch(family)
	if m == nil {
		return false
	}
	switch m[1] {
	case "p", "g", "inf", "trn", "dl":
		return true
	}
	return false
}
