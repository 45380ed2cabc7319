package eks

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
)

// KubernetesPatchProps configures a KubernetesPatch.
type KubernetesPatchProps struct {
	Cluster ICluster
	// ResourceName is "<kind>/<name>", for example "deployment/coredns".
	ResourceName string
	// ResourceNamespace defaults to "default".
	ResourceNamespace string
	// ApplyPatch is applied on create and update.
	ApplyPatch any
	// RestorePatch is applied on delete.
	RestorePatch any
	// PatchType defaults to PatchStrategic.
	PatchType PatchType
}

// Validate checks the props.
func (p KubernetesPatchProps) Validate() error {
	var err error
	if p.Cluster == nil {
		err = multierr.Append(err, errors.New("Cluster is required"))
	}
	if p.ResourceName == "" {
		err = multierr.Append(err, errors.New("ResourceName is required"))
	}
	if p.ApplyPatch == nil {
		err = multierr.Append(err, errors.New("ApplyPatch is required"))
	}
	if p.RestorePatch == nil {
		err = multierr.Append(err, errors.New("RestorePatch is required"))
	}
	switch p.PatchType {
	case "", PatchStrategic, PatchMerge:
	case PatchJSON:
		// JSON patches are operation lists.
		patches := []struct {
			name  string
			patch any
		}{{"ApplyPatch", p.ApplyPatch}, {"RestorePatch", p.RestorePatch}}
		for _, pt := range patches {
			switch pt.patch.(type) {
			case nil, []any, []map[string]any:
			default:
				err = multierr.Append(err, fmt.Errorf("%s must be a list of operations for json patches", pt.name))
			}
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown PatchType %q", p.PatchType))
	}
	return err
}

// KubernetesPatch patches an object that already exists in the cluster,
// and restores it when the patch is removed.
type KubernetesPatch struct {
	node     *core.Node
	resource *core.CfnResource
}

// NewKubernetesPatch creates a patch resource.
func NewKubernetesPatch(scope core.Construct, id string, props KubernetesPatchProps) (*KubernetesPatch, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("patch %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	namespace := props.ResourceNamespace
	if namespace == "" {
		namespace = "default"
	}
	patchType := props.PatchType
	if patchType == "" {
		patchType = PatchStrategic
	}
	res, err := newKubectlResource(node, "Resource", props.Cluster, KubernetesPatchType, map[string]any{
		"ResourceName":      props.ResourceName,
		"ResourceNamespace": namespace,
		"ApplyPatchJson":    core.ToJSONString(props.ApplyPatch),
		"RestorePatchJson":  core.ToJSONString(props.RestorePatch),
		"PatchType":         string(patchType),
	})
	if err != nil {
		return nil, err
	}
	return &KubernetesPatch{node: node, resource: res}, nil
}

// Node returns the construct node.
func (p *KubernetesPatch) Node() *core.Node { return p.node }

// Resource returns the custom resource.
func (p *KubernetesPatch) Resource() *core.CfnResource { return p.resource }
