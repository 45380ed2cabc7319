package eks

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
	eksres "github.com/lex00/wetwire-cdk-go/resources/eks"
)

// ResolveConflicts controls how an add-on update treats fields changed in
// the cluster.
type ResolveConflicts string

const (
	ResolveNone      ResolveConflicts = "NONE"
	ResolveOverwrite ResolveConflicts = "OVERWRITE"
	ResolvePreserve  ResolveConflicts = "PRESERVE"
)

// AddonProps configures an Addon.
type AddonProps struct {
	Cluster *Cluster
	// AddonName is required, for example "vpc-cni" or "aws-ebs-csi-driver".
	AddonName    string
	AddonVersion string
	// ConfigurationValues are rendered as a JSON document.
	ConfigurationValues   map[string]any
	PreserveOnDelete      *bool
	ResolveConflicts      ResolveConflicts
	ServiceAccountRoleArn string
}

// Validate checks the props.
func (p AddonProps) Validate() error {
	var err error
	if p.Cluster == nil {
		err = multierr.Append(err, errors.New("Cluster is required"))
	}
	if p.AddonName == "" {
		err = multierr.Append(err, errors.New("AddonName is required"))
	}
	switch p.ResolveConflicts {
	case "", ResolveNone, ResolveOverwrite, ResolvePreserve:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown ResolveConflicts %q", p.ResolveConflicts))
	}
	return err
}

// Addon is an EKS managed add-on.
type Addon struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *eksres.Addon
}

// NewAddon installs an add-on into a cluster.
func NewAddon(scope core.Construct, id string, props AddonProps) (*Addon, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("addon %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	cfn := &eksres.Addon{
		AddonName:   props.AddonName,
		ClusterName: props.Cluster.ClusterName(),
	}
	if props.AddonVersion != "" {
		cfn.AddonVersion = props.AddonVersion
	}
	if len(props.ConfigurationValues) > 0 {
		cfn.ConfigurationValues = core.ToJSONString(props.ConfigurationValues)
	}
	if props.PreserveOnDelete != nil {
		cfn.PreserveOnDelete = *props.PreserveOnDelete
	}
	if props.ResolveConflicts != "" {
		cfn.ResolveConflicts = string(props.ResolveConflicts)
	}
	if props.ServiceAccountRoleArn != "" {
		cfn.ServiceAccountRoleArn = props.ServiceAccountRoleArn
	}
	a := &Addon{node: node, cfn: cfn}
	if a.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	return a, nil
}

// Node returns the construct node.
func (a *Addon) Node() *core.Node { return a.node }

// Resource returns the AWS::EKS::Addon resource.
func (a *Addon) Resource() *core.CfnResource { return a.resource }

// AddonName returns the add-on name.
func (a *Addon) AddonName() string { return core.AsString(a.cfn.AddonName) }

// AddonArn returns the add-on ARN.
func (a *Addon) AddonArn() string { return core.AsString(a.cfn.Arn) }
