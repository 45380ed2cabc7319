package eks

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lex00/wetwire-cdk-go/core"
)

func TestHelmChartProps_Validate(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	tests := []struct {
		name  string
		props HelmChartProps
		want  string
	}{
		{"no chart", HelmChartProps{}, "one of Chart, ChartAsset or ChartDir is required"},
		{"chart and asset", HelmChartProps{Chart: "nginx", ChartAsset: "s3://bucket/nginx.tgz"}, "mutually exclusive"},
		{"dir without source", HelmChartProps{ChartDir: "./charts/app"}, "ChartDir requires"},
		{"asset scheme", HelmChartProps{ChartAsset: "https://example.com/nginx.tgz"}, "s3:// URL"},
		{"timeout", HelmChartProps{Chart: "nginx", Timeout: core.Minutes(16)}, "Helm chart timeout cannot be higher than 15 minutes"},
		{"release name", HelmChartProps{Chart: "nginx", Release: "Not_Valid"}, "Release"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.props.Cluster = cluster
			err := tt.props.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, HelmChartProps{Cluster: cluster, Chart: "nginx", Timeout: core.Minutes(15)}.Validate())
}

func TestAddHelmChart(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	chart, err := cluster.AddHelmChart("Ingress", HelmChartProps{
		Chart:      "ingress-nginx",
		Repository: "https://kubernetes.github.io/ingress-nginx",
		Version:    "4.9.0",
		Namespace:  "ingress",
		Values: map[string]any{
			"controller": map[string]any{"replicaCount": 2},
		},
		ValuesYAML: "controller:\n  replicaCount: 1\n  service:\n    type: NLB\n",
		Wait:       true,
		Timeout:    core.Minutes(10),
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(chart.Release()), releaseNameMaxLen)
	assert.Equal(t, strings.ToLower(chart.Release()), chart.Release())

	def := synth(t, stack).Resources[chart.Resource().LogicalID()]
	assert.Equal(t, HelmChartType, def.Type)
	assert.Equal(t, "ingress-nginx", def.Properties["Chart"])
	assert.Equal(t, "4.9.0", def.Properties["Version"])
	assert.Equal(t, "ingress", def.Properties["Namespace"])
	assert.Equal(t, true, def.Properties["CreateNamespace"])
	assert.Equal(t, true, def.Properties["Wait"])
	assert.Equal(t, "600s", def.Properties["Timeout"])
	assert.Equal(t, chart.Release(), def.Properties["Release"])

	var values map[string]any
	require.NoError(t, json.Unmarshal([]byte(def.Properties["Values"].(string)), &values))
	assert.Equal(t, map[string]any{
		"controller": map[string]any{
			"replicaCount": float64(2),
			"service":      map[string]any{"type": "NLB"},
		},
	}, values)
}

func TestNewHelmChart_ChartDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Chart.yaml"), []byte(
		"apiVersion: v2\nname: shop\nversion: 1.2.3\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "values.yaml"), []byte("replicas: 1\n"), 0o644))

	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})
	chart, err := cluster.AddHelmChart("Shop", HelmChartProps{
		ChartDir:   dir,
		Repository: "oci://registry.example.com/charts",
		Release:    "shop",
	})
	require.NoError(t, err)
	assert.Equal(t, "shop", chart.Chart())
	assert.Equal(t, "1.2.3", chart.Version())
	assert.Equal(t, "shop", chart.Release())

	_, err = cluster.AddHelmChart("Missing", HelmChartProps{
		ChartDir:   filepath.Join(dir, "missing"),
		Repository: "oci://registry.example.com/charts",
	})
	assert.Error(t, err)
}

func TestMergeValues(t *testing.T) {
	base := map[string]any{"a": 1, "nested": map[string]any{"x": 1, "y": 2}}
	override := map[string]any{"b": 2, "nested": map[string]any{"y": 3}}
	merged := mergeValues(base, override)
	assert.Equal(t, map[string]any{"a": 1, "b": 2, "nested": map[string]any{"x": 1, "y": 3}}, merged)
	assert.Equal(t, map[string]any{"x": 1, "y": 2}, base["nested"], "inputs are not modified")

	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOf(rapid.StringMatching(`[a-e]`))
		b := map[string]any{}
		for _, k := range keys.Draw(t, "base") {
			b[k] = "base"
		}
		o := map[string]any{}
		for _, k := range keys.Draw(t, "override") {
			o[k] = "override"
		}
		out := mergeValues(b, o)
		for k := range o {
			if out[k] != "override" {
				t.Fatalf("override key %q lost", k)
			}
		}
		for k := range b {
			if _, ok := out[k]; !ok {
				t.Fatalf("base key %q lost", k)
			}
		}
	})
}

func TestAddPatch_Validate(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	_, err := cluster.AddPatch("Bad", KubernetesPatchProps{
		ResourceName: "deployment/web",
		ApplyPatch:   map[string]any{"op": "replace"},
		RestorePatch: map[string]any{"op": "replace"},
		PatchType:    PatchJSON,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ApplyPatch must be a list of operations")
	assert.Contains(t, err.Error(), "RestorePatch must be a list of operations")

	_, err = cluster.AddPatch("Unknown", KubernetesPatchProps{
		ResourceName: "deployment/web",
		ApplyPatch:   map[string]any{},
		RestorePatch: map[string]any{},
		PatchType:    "apply",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown PatchType "apply"`)

	patch, err := cluster.AddPatch("Scale", KubernetesPatchProps{
		ResourceName: "deployment/web",
		ApplyPatch:   []any{map[string]any{"op": "replace", "path": "/spec/replicas", "value": 3}},
		RestorePatch: []any{map[string]any{"op": "replace", "path": "/spec/replicas", "value": 1}},
		PatchType:    PatchJSON,
	})
	require.NoError(t, err)
	def := synth(t, stack).Resources[patch.Resource().LogicalID()]
	assert.Equal(t, "default", def.Properties["ResourceNamespace"])
	assert.Equal(t, "json", def.Properties["PatchType"])
	assert.JSONEq(t, `[{"op":"replace","path":"/spec/replicas","value":3}]`, def.Properties["ApplyPatchJson"].(string))
}

func TestNewKubernetesObjectValue(t *testing.T) {
	stack := newStack(t)
	cluster := newTestCluster(t, stack, ClusterProps{})

	_, err := NewKubernetesObjectValue(cluster, "Missing", KubernetesObjectValueProps{Cluster: cluster})
	require.Error(t, err)

	value, err := NewKubernetesObjectValue(cluster, "LoadBalancer", KubernetesObjectValueProps{
		Cluster:    cluster,
		ObjectType: "service",
		ObjectName: "web",
		JsonPath:   ".status.loadBalancer.ingress[0].hostname",
	})
	require.NoError(t, err)
	assert.True(t, core.IsUnresolved(value.Value()))

	def := synth(t, stack).Resources[value.Resource().LogicalID()]
	assert.Equal(t, KubernetesObjectValueType, def.Type)
	assert.Equal(t, "default", def.Properties["ObjectNamespace"])
	assert.Equal(t, float64(300), def.Properties["TimeoutSeconds"])
}
