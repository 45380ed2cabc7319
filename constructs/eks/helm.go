package eks

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/chartutil"

	"github.com/lex00/wetwire-cdk-go/core"
)

// maxHelmTimeout is bounded by the kubectl handler's Lambda timeout.
const maxHelmTimeout = 15 * 60

// releaseNameMaxLen is Helm's limit on release names.
const releaseNameMaxLen = 53

// HelmChartProps configures a HelmChart.
type HelmChartProps struct {
	Cluster ICluster

	// Chart is the chart name, or an OCI reference when Repository is
	// empty. Required unless ChartAsset or ChartDir is set.
	Chart string
	// ChartAsset is an S3 URL of a packaged chart.
	ChartAsset string
	// ChartDir is a local chart directory. It is loaded to validate the
	// chart and to default Chart and Version; the packaged chart must be
	// published to ChartAsset or Repository.
	ChartDir string

	// Release defaults to the last 53 characters of the construct's unique
	// id in lower case.
	Release    string
	Version    string
	Repository string
	// Namespace defaults to "default".
	Namespace string

	Values map[string]any
	// ValuesYAML is merged under Values; keys in Values win.
	ValuesYAML string

	Wait bool
	// Timeout is passed to helm --timeout, at most 15 minutes.
	Timeout core.Duration
	// CreateNamespace defaults to true.
	CreateNamespace *bool
	SkipCrds        bool
	Atomic          bool
}

// Validate checks the props without touching the file system.
func (p HelmChartProps) Validate() error {
	var err error
	if p.Cluster == nil {
		err = multierr.Append(err, errors.New("Cluster is required"))
	}
	if p.Chart == "" && p.ChartAsset == "" && p.ChartDir == "" {
		err = multierr.Append(err, errors.New("one of Chart, ChartAsset or ChartDir is required"))
	}
	if p.Chart != "" && p.ChartAsset != "" {
		err = multierr.Append(err, errors.New("Chart and ChartAsset are mutually exclusive"))
	}
	if p.ChartDir != "" && p.ChartAsset == "" && p.Repository == "" {
		err = multierr.Append(err, errors.New("ChartDir requires ChartAsset or Repository to serve the packaged chart"))
	}
	if p.ChartAsset != "" && !core.IsUnresolved(p.ChartAsset) && !strings.HasPrefix(p.ChartAsset, "s3://") {
		err = multierr.Append(err, fmt.Errorf("ChartAsset must be an s3:// URL, got %q", p.ChartAsset))
	}
	if p.Timeout.Seconds() > maxHelmTimeout {
		err = multierr.Append(err, fmt.Errorf("Helm chart timeout cannot be higher than 15 minutes, got %s", p.Timeout.ToHumanString()))
	}
	if p.Release != "" && !core.IsUnresolved(p.Release) {
		if verr := chartutil.ValidateReleaseName(p.Release); verr != nil {
			err = multierr.Append(err, fmt.Errorf("Release %q: %w", p.Release, verr))
		}
	}
	return err
}

// HelmChart installs or upgrades a Helm release through the kubectl
// provider.
type HelmChart struct {
	node     *core.Node
	resource *core.CfnResource
	release  string
	chart    string
	version  string
}

// NewHelmChart creates a Helm release.
func NewHelmChart(scope core.Construct, id string, props HelmChartProps) (*HelmChart, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("helm chart %s: %w", id, err)
	}
	if props.ChartDir != "" {
		ch, err := loader.LoadDir(props.ChartDir)
		if err != nil {
			return nil, fmt.Errorf("helm chart %s: load %s: %w", id, props.ChartDir, err)
		}
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("helm chart %s: %w", id, err)
		}
		if props.Chart == "" && props.ChartAsset == "" {
			props.Chart = ch.Metadata.Name
		}
		if props.Version == "" {
			props.Version = ch.Metadata.Version
		}
	}

	values := props.Values
	if props.ValuesYAML != "" {
		base, err := chartutil.ReadValues([]byte(props.ValuesYAML))
		if err != nil {
			return nil, fmt.Errorf("helm chart %s: values: %w", id, err)
		}
		values = mergeValues(base.AsMap(), props.Values)
	}

	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	h := &HelmChart{node: node, release: props.Release, chart: props.Chart, version: props.Version}
	if h.release == "" {
		h.release = defaultReleaseName(node)
	}

	namespace := props.Namespace
	if namespace == "" {
		namespace = "default"
	}
	properties := map[string]any{
		"Release":         h.release,
		"Namespace":       namespace,
		"CreateNamespace": props.CreateNamespace == nil || *props.CreateNamespace,
	}
	if props.Chart != "" {
		properties["Chart"] = props.Chart
	}
	if props.ChartAsset != "" {
		properties["ChartAssetURL"] = props.ChartAsset
	}
	if props.Version != "" {
		properties["Version"] = props.Version
	}
	if props.Repository != "" {
		properties["Repository"] = props.Repository
	}
	if len(values) > 0 {
		properties["Values"] = core.ToJSONString(values)
	}
	if props.Wait {
		properties["Wait"] = true
	}
	if !props.Timeout.IsZero() {
		properties["Timeout"] = strconv.FormatInt(props.Timeout.Seconds(), 10) + "s"
	}
	if props.SkipCrds {
		properties["SkipCrds"] = true
	}
	if props.Atomic {
		properties["Atomic"] = true
	}

	if h.resource, err = newKubectlResource(node, "Resource", props.Cluster, HelmChartType, properties); err != nil {
		return nil, err
	}
	return h, nil
}

func defaultReleaseName(node *core.Node) string {
	id := strings.ToLower(node.UniqueID())
	if len(id) > releaseNameMaxLen {
		id = id[len(id)-releaseNameMaxLen:]
	}
	return id
}

// mergeValues returns base overlaid with override. Nested maps are merged;
// neither input is modified.
func mergeValues(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		if om, ok := v.(map[string]any); ok {
			if bm, ok := out[k].(map[string]any); ok {
				out[k] = mergeValues(bm, om)
				continue
			}
		}
		out[k] = v
	}
	return out
}

// Node returns the construct node.
func (h *HelmChart) Node() *core.Node { return h.node }

// Resource returns the custom resource.
func (h *HelmChart) Resource() *core.CfnResource { return h.resource }

// Release returns the release name.
func (h *HelmChart) Release() string { return h.release }

// Chart returns the chart name.
func (h *HelmChart) Chart() string { return h.chart }

// Version returns the chart version.
func (h *HelmChart) Version() string { return h.version }
