package serialize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testNodegroup struct {
	ClusterName   any                `json:"ClusterName,omitempty" cfn:"required"`
	NodeRole      any                `json:"NodeRole,omitempty" cfn:"required"`
	Subnets       []any              `json:"Subnets,omitempty" cfn:"required"`
	Labels        map[string]any     `json:"Labels,omitempty"`
	ScalingConfig *testScalingConfig `json:"ScalingConfig,omitempty"`
	Taints        []testTaint        `json:"Taints,omitempty"`
	ForceUpdate   any                `json:"ForceUpdateEnabled,omitempty"`
	UpdateConfig  testUpdateConfig   `json:"UpdateConfig,omitempty"`
	internal      string
}

type testScalingConfig struct {
	MinSize     any `json:"MinSize,omitempty"`
	DesiredSize any `json:"DesiredSize,omitempty"`
}

type testTaint struct {
	Key    any `json:"Key,omitempty"`
	Effect any `json:"Effect,omitempty" cfn:"required"`
}

type testUpdateConfig struct {
	MaxUnavailable any `json:"MaxUnavailable,omitempty"`
}

type refValue struct{ name string }

func (r refValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"Ref": r.name})
}

func TestResource_SimpleStruct(t *testing.T) {
	props, err := Resource(testNodegroup{ClusterName: "prod"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"ClusterName": "prod"}, props)
}

func TestResource_NestedAndMarshalers(t *testing.T) {
	ng := &testNodegroup{
		ClusterName:   refValue{"Cluster"},
		ScalingConfig: &testScalingConfig{MinSize: 1, DesiredSize: 2},
		Taints:        []testTaint{{Key: "dedicated", Effect: "NO_SCHEDULE"}},
		Labels:        map[string]any{"role": "web"},
	}

	props, err := Resource(ng)
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"Ref": "Cluster"}, props["ClusterName"])
	assert.Equal(t, map[string]any{"MinSize": int64(1), "DesiredSize": int64(2)}, props["ScalingConfig"])
	assert.Equal(t, []any{map[string]any{"Key": "dedicated", "Effect": "NO_SCHEDULE"}}, props["Taints"])
	assert.Equal(t, map[string]any{"role": "web"}, props["Labels"])
}

func TestResource_OmitsZeroValues(t *testing.T) {
	props, err := Resource(testNodegroup{internal: "x"})
	require.NoError(t, err)

	// Empty value struct UpdateConfig is dropped too.
	assert.Empty(t, props)
}

func TestResource_KeepsExplicitFalse(t *testing.T) {
	props, err := Resource(testNodegroup{ForceUpdate: false})
	require.NoError(t, err)

	assert.Equal(t, false, props["ForceUpdateEnabled"])
}

func TestResource_RejectsNonStruct(t *testing.T) {
	_, err := Resource("nope")
	assert.Error(t, err)
}

func TestMissingRequired(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected []string
	}{
		{
			name:     "all missing",
			input:    testNodegroup{},
			expected: []string{"ClusterName", "NodeRole", "Subnets"},
		},
		{
			name:     "empty string counts as missing",
			input:    &testNodegroup{ClusterName: "", NodeRole: "arn", Subnets: []any{"s-1"}},
			expected: []string{"ClusterName"},
		},
		{
			name: "nested list element",
			input: testNodegroup{
				ClusterName: "c", NodeRole: "r", Subnets: []any{"s-1"},
				Taints: []testTaint{{Effect: "NO_EXECUTE"}, {Key: "k"}},
			},
			expected: []string{"Taints[1].Effect"},
		},
		{
			name:     "complete",
			input:    testNodegroup{ClusterName: "c", NodeRole: "r", Subnets: []any{"s-1"}},
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MissingRequired(tt.input))
		})
	}
}
