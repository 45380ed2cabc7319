package eks

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/util/validation"
	k8syaml "k8s.io/apimachinery/pkg/util/yaml"
	"sigs.k8s.io/yaml"

	"github.com/lex00/wetwire-cdk-go/core"
)

// Custom resource types handled by the kubectl provider.
const (
	KubernetesResourceType    = "Custom::AWSCDK-EKS-KubernetesResource"
	KubernetesPatchType       = "Custom::AWSCDK-EKS-KubernetesPatch"
	KubernetesObjectValueType = "Custom::AWSCDK-EKS-KubernetesObjectValue"
	HelmChartType             = "Custom::AWSCDK-EKS-HelmChart"
)

// PruneLabelPrefix starts the label that marks objects owned by a manifest.
const PruneLabelPrefix = "aws.cdk.eks/prune-"

// KubernetesManifestProps configures a KubernetesManifest.
type KubernetesManifestProps struct {
	Cluster ICluster
	// Manifest holds one or more Kubernetes objects. Field values may be
	// tokens.
	Manifest []map[string]any
	// Overwrite replaces objects that already exist instead of failing.
	Overwrite bool
	// Prune deletes objects removed from the manifest between deployments.
	// Defaults to the cluster setting.
	Prune *bool
	// SkipValidation disables server-side validation of the objects.
	SkipValidation bool
	// IngressAlb waits for an ALB ingress to be ready.
	IngressAlb bool
}

// Validate checks the props.
func (p KubernetesManifestProps) Validate() error {
	if p.Cluster == nil {
		return errors.New("Cluster is required")
	}
	if len(p.Manifest) == 0 {
		return errors.New("Manifest must contain at least one object")
	}
	var err error
	for i, obj := range p.Manifest {
		if verr := validateObject(obj); verr != nil {
			err = multierr.Append(err, fmt.Errorf("object %d: %w", i, verr))
		}
	}
	return err
}

// KubernetesManifest applies Kubernetes objects through kubectl.
type KubernetesManifest struct {
	node       *core.Node
	resource   *core.CfnResource
	pruneLabel string
}

// NewKubernetesManifest creates a manifest resource.
func NewKubernetesManifest(scope core.Construct, id string, props KubernetesManifestProps) (*KubernetesManifest, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	m := &KubernetesManifest{node: node}

	objects := props.Manifest
	prune := props.Cluster.Prune()
	if props.Prune != nil {
		prune = *props.Prune
	}
	if prune {
		m.pruneLabel = PruneLabelPrefix + node.Addr()
		objects = injectPruneLabel(objects, m.pruneLabel)
	}

	properties := map[string]any{
		"Manifest": core.ToJSONString(objects),
	}
	if m.pruneLabel != "" {
		properties["PruneLabel"] = m.pruneLabel
	}
	if props.Overwrite {
		properties["Overwrite"] = true
	}
	if props.SkipValidation {
		properties["SkipValidation"] = true
	}
	if props.IngressAlb {
		properties["IngressAlb"] = true
	}

	m.resource, err = newKubectlResource(node, "Resource", props.Cluster, KubernetesResourceType, properties)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Node returns the construct node.
func (m *KubernetesManifest) Node() *core.Node { return m.node }

// Resource returns the custom resource.
func (m *KubernetesManifest) Resource() *core.CfnResource { return m.resource }

// PruneLabel returns the label added to every object, or "" when pruning
// is off.
func (m *KubernetesManifest) PruneLabel() string { return m.pruneLabel }

// injectPruneLabel returns copies of objects carrying the prune label. The
// caller's maps are not modified.
func injectPruneLabel(objects []map[string]any, label string) []map[string]any {
	out := make([]map[string]any, len(objects))
	for i, obj := range objects {
		cp := make(map[string]any, len(obj))
		for k, v := range obj {
			cp[k] = v
		}
		meta := map[string]any{}
		if existing, ok := obj["metadata"].(map[string]any); ok {
			for k, v := range existing {
				meta[k] = v
			}
		}
		labels := map[string]any{}
		switch existing := meta["labels"].(type) {
		case map[string]any:
			for k, v := range existing {
				labels[k] = v
			}
		case map[string]string:
			for k, v := range existing {
				labels[k] = v
			}
		}
		labels[label] = ""
		meta["labels"] = labels
		cp["metadata"] = meta
		out[i] = cp
	}
	return out
}

func validateObject(obj map[string]any) error {
	var err error
	if s, _ := obj["apiVersion"].(string); s == "" {
		err = multierr.Append(err, errors.New("apiVersion is required"))
	}
	if s, _ := obj["kind"].(string); s == "" {
		err = multierr.Append(err, errors.New("kind is required"))
	}
	meta, _ := obj["metadata"].(map[string]any)
	if name, ok := meta["name"].(string); ok && !core.IsUnresolved(name) {
		for _, msg := range validation.IsDNS1123Subdomain(name) {
			err = multierr.Append(err, fmt.Errorf("metadata.name %q: %s", name, msg))
		}
	}
	if ns, ok := meta["namespace"].(string); ok && !core.IsUnresolved(ns) {
		for _, msg := range validation.IsDNS1123Label(ns) {
			err = multierr.Append(err, fmt.Errorf("metadata.namespace %q: %s", ns, msg))
		}
	}
	return err
}

// ManifestsFromYAML parses a multi-document YAML stream into objects.
// Empty documents are skipped.
func ManifestsFromYAML(data []byte) ([]map[string]any, error) {
	reader := k8syaml.NewYAMLReader(bufio.NewReader(bytes.NewReader(data)))
	var out []map[string]any
	for i := 0; ; i++ {
		doc, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(strings.TrimSpace(string(doc))) == 0 {
			continue
		}
		var obj map[string]any
		if err := yaml.Unmarshal(doc, &obj); err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if len(obj) == 0 {
			continue
		}
		out = append(out, obj)
	}
	return out, nil
}

// ObjectFrom converts a typed Kubernetes object, such as a corev1.ConfigMap,
// into a manifest object.
func ObjectFrom(obj runtime.Object) (map[string]any, error) {
	out, err := runtime.DefaultUnstructuredConverter.ToUnstructured(obj)
	if err != nil {
		return nil, err
	}
	if meta, ok := out["metadata"].(map[string]any); ok {
		if ts, exists := meta["creationTimestamp"]; exists && ts == nil {
			delete(meta, "creationTimestamp")
		}
	}
	return out, nil
}
