package eks

import (
	"errors"

	"github.com/lex00/wetwire-cdk-go/constructs/ec2"
	"github.com/lex00/wetwire-cdk-go/core"
)

// ClusterAttributes describe a cluster created outside this app.
type ClusterAttributes struct {
	// ClusterName is required.
	ClusterName string
	// ClusterArn defaults to the ARN of ClusterName in the stack's account
	// and region.
	ClusterArn string
	Vpc        ec2.IVpc
	// KubectlRoleArn is a role with cluster admin access. It is required to
	// deploy manifests, charts or patches.
	KubectlRoleArn     string
	KubectlLayerArn    string
	KubectlEnvironment map[string]string
	// OpenIdConnectProviderArn is required to add service accounts.
	OpenIdConnectProviderArn string
	// Prune defaults to true.
	Prune *bool
}

// ImportedCluster is a reference to an existing cluster.
type ImportedCluster struct {
	*clusterBase
}

// FromClusterAttributes imports an existing cluster.
func FromClusterAttributes(scope core.Construct, id string, attrs ClusterAttributes) (*ImportedCluster, error) {
	if attrs.ClusterName == "" {
		return nil, errors.New("imported cluster: ClusterName is required")
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	arn := attrs.ClusterArn
	if arn == "" {
		stack, err := core.StackOf(node)
		if err != nil {
			return nil, err
		}
		arn = stack.FormatArn("eks", stack.Region(), stack.Account(), "cluster/"+attrs.ClusterName)
	}
	c := &ImportedCluster{clusterBase: &clusterBase{
		node:            node,
		clusterName:     attrs.ClusterName,
		clusterArn:      arn,
		vpc:             attrs.Vpc,
		prune:           attrs.Prune == nil || *attrs.Prune,
		kubectlRoleArn:  attrs.KubectlRoleArn,
		kubectlLayerArn: attrs.KubectlLayerArn,
		kubectlEnv:      attrs.KubectlEnvironment,
	}}
	c.self = c
	if attrs.OpenIdConnectProviderArn != "" {
		c.oidc = FromOpenIdConnectProviderArn(attrs.OpenIdConnectProviderArn)
	}
	return c, nil
}
