package eks

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
)

// KubernetesObjectValueProps configures a KubernetesObjectValue.
type KubernetesObjectValueProps struct {
	Cluster ICluster
	// ObjectType is the kubectl resource type, such as "service".
	ObjectType string
	ObjectName string
	// ObjectNamespace defaults to "default".
	ObjectNamespace string
	// JsonPath selects the value, for example ".status.loadBalancer.ingress[0].hostname".
	JsonPath string
	// Timeout bounds how long to wait for the value. Default 5 minutes.
	Timeout core.Duration
}

// Validate checks the props.
func (p KubernetesObjectValueProps) Validate() error {
	var err error
	if p.Cluster == nil {
		err = multierr.Append(err, errors.New("Cluster is required"))
	}
	if p.ObjectType == "" {
		err = multierr.Append(err, errors.New("ObjectType is required"))
	}
	if p.ObjectName == "" {
		err = multierr.Append(err, errors.New("ObjectName is required"))
	}
	if p.JsonPath == "" {
		err = multierr.Append(err, errors.New("JsonPath is required"))
	}
	return err
}

// KubernetesObjectValue reads a value from a live Kubernetes object at
// deploy time.
type KubernetesObjectValue struct {
	node     *core.Node
	resource *core.CfnResource
}

// NewKubernetesObjectValue creates the lookup.
func NewKubernetesObjectValue(scope core.Construct, id string, props KubernetesObjectValueProps) (*KubernetesObjectValue, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("object value %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	namespace := props.ObjectNamespace
	if namespace == "" {
		namespace = "default"
	}
	timeout := props.Timeout
	if timeout.IsZero() {
		timeout = core.Minutes(5)
	}
	res, err := newKubectlResource(node, "Resource", props.Cluster, KubernetesObjectValueType, map[string]any{
		"ObjectType":      props.ObjectType,
		"ObjectName":      props.ObjectName,
		"ObjectNamespace": namespace,
		"JsonPath":        props.JsonPath,
		"TimeoutSeconds":  timeout.Seconds(),
	})
	if err != nil {
		return nil, err
	}
	return &KubernetesObjectValue{node: node, resource: res}, nil
}

// Node returns the construct node.
func (v *KubernetesObjectValue) Node() *core.Node { return v.node }

// Resource returns the custom resource.
func (v *KubernetesObjectValue) Resource() *core.CfnResource { return v.resource }

// Value returns the looked up value as a string token.
func (v *KubernetesObjectValue) Value() string {
	return v.resource.GetAttString("Value")
}
