package eks

import (
	"fmt"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	"github.com/lex00/wetwire-cdk-go/resources/cloudformation"
	eksres "github.com/lex00/wetwire-cdk-go/resources/eks"
	"github.com/lex00/wetwire-cdk-go/resources/lambda"
)

// Template parameters through which the kubectl handler code and layer are
// supplied at deploy time. They are shared by every cluster in a stack.
const (
	ParamKubectlLayerArn = "KubectlLayerArn"
	ParamHandlerS3Bucket = "KubectlHandlerS3Bucket"
	ParamHandlerS3Key    = "KubectlHandlerS3Key"
)

const (
	kubectlRuntime    = "python3.11"
	kubectlHandler    = "index.handler"
	kubectlTimeout    = 900
	kubectlMemorySize = 1024

	clusterAdminPolicy = "AmazonEKSClusterAdminPolicy"
)

// KubectlProvider is the Lambda function that applies manifests, charts
// and patches to a cluster, together with the role it assumes to
// authenticate with the cluster.
type KubectlProvider struct {
	node        *core.Node
	handler     *core.CfnResource
	handlerRole *iam.Role
	roleArn     string
	accessEntry *core.CfnResource
}

func newKubectlProvider(cluster *clusterBase) (*KubectlProvider, error) {
	_, managed := cluster.self.(*Cluster)
	if !managed && cluster.kubectlRoleArn == "" {
		return nil, fmt.Errorf("cluster %s: kubectl operations on an imported cluster require KubectlRoleArn", cluster.node.Path())
	}

	node, err := core.NewNode(cluster.node, "KubectlProvider")
	if err != nil {
		return nil, err
	}
	p := &KubectlProvider{node: node}

	p.handlerRole, err = iam.NewRole(node, "HandlerRole", iam.RoleProps{
		AssumedBy:       intrinsics.ServicePrincipal{"lambda.amazonaws.com"},
		ManagedPolicies: []string{"service-role/AWSLambdaBasicExecutionRole"},
	})
	if err != nil {
		return nil, err
	}
	if err := p.handlerRole.AddToPrincipalPolicy(intrinsics.Allow([]string{"eks:DescribeCluster"}, cluster.clusterArn)); err != nil {
		return nil, err
	}

	p.roleArn = cluster.kubectlRoleArn
	if managed {
		trust := intrinsics.NewPolicyDocument()
		trust.AddStatements(intrinsics.AssumeRoleStatement(intrinsics.AWSPrincipal{p.handlerRole.RoleArn()}))
		kubectlRole, err := iam.NewRole(node, "KubectlRole", iam.RoleProps{AssumeRolePolicy: trust})
		if err != nil {
			return nil, err
		}
		p.roleArn = kubectlRole.RoleArn()

		stack, err := core.StackOf(node)
		if err != nil {
			return nil, err
		}
		p.accessEntry, err = core.NewCfnResource(node, "AccessEntry", &eksres.AccessEntry{
			ClusterName:  cluster.clusterName,
			PrincipalArn: p.roleArn,
			AccessPolicies: []any{eksres.AccessEntry_AccessPolicy{
				AccessScope: &eksres.AccessEntry_AccessScope{Type_: "cluster"},
				PolicyArn:   stack.FormatArn("eks", "", "aws", "cluster-access-policy/"+clusterAdminPolicy),
			}},
		})
		if err != nil {
			return nil, err
		}
	}
	if err := p.handlerRole.AddToPrincipalPolicy(intrinsics.Allow([]string{"sts:AssumeRole"}, p.roleArn)); err != nil {
		return nil, err
	}

	layer := cluster.kubectlLayerArn
	if layer == "" {
		if layer, err = stackParameter(node, ParamKubectlLayerArn, "ARN of a Lambda layer providing kubectl and helm"); err != nil {
			return nil, err
		}
	}
	bucket, err := stackParameter(node, ParamHandlerS3Bucket, "S3 bucket holding the kubectl handler code")
	if err != nil {
		return nil, err
	}
	key, err := stackParameter(node, ParamHandlerS3Key, "S3 key of the kubectl handler code")
	if err != nil {
		return nil, err
	}

	env := map[string]any{"AWS_STS_REGIONAL_ENDPOINTS": "regional"}
	for k, v := range cluster.kubectlEnv {
		env[k] = v
	}
	fn := &lambda.Function{
		Code:        &lambda.Function_Code{S3Bucket: bucket, S3Key: key},
		Role:        p.handlerRole.RoleArn(),
		Description: "onEvent handler for EKS kubectl resource provider",
		Handler:     kubectlHandler,
		Runtime:     kubectlRuntime,
		Timeout:     kubectlTimeout,
		MemorySize:  kubectlMemorySize,
		Layers:      []any{layer},
		Environment: &lambda.Function_Environment{Variables: env},
	}
	if p.handler, err = core.NewCfnResource(node, "Handler", fn); err != nil {
		return nil, err
	}
	// The handler must not run before it may call the cluster.
	p.handler.AddDependsOn(p.handlerRole.Node().TryFindChild("DefaultPolicy").TryFindChild("Resource").Resource())
	return p, nil
}

// stackParameter returns a token for the stack-level parameter id,
// declaring it on first use.
func stackParameter(scope core.Construct, id, description string) (string, error) {
	stack, err := core.StackOf(scope)
	if err != nil {
		return "", err
	}
	if stack.Node().TryFindChild(id) != nil {
		// Top-level elements keep their id as logical ID.
		return core.AsString(intrinsics.Ref{LogicalName: id}), nil
	}
	param, err := core.NewCfnParameter(stack, id, wetwire.Parameter{
		Type:        "String",
		Description: description,
	})
	if err != nil {
		return "", err
	}
	return param.ValueAsString(), nil
}

// Node returns the construct node.
func (p *KubectlProvider) Node() *core.Node { return p.node }

// ServiceToken returns the handler ARN custom resources are sent to.
func (p *KubectlProvider) ServiceToken() string {
	return p.handler.GetAttString("Arn")
}

// Handler returns the handler function resource.
func (p *KubectlProvider) Handler() *core.CfnResource { return p.handler }

// HandlerRole returns the handler's execution role.
func (p *KubectlProvider) HandlerRole() *iam.Role { return p.handlerRole }

// RoleArn returns the ARN of the role kubectl assumes.
func (p *KubectlProvider) RoleArn() string { return p.roleArn }

// AccessEntry returns the EKS access entry granting the kubectl role
// cluster admin, or nil for imported clusters.
func (p *KubectlProvider) AccessEntry() *core.CfnResource { return p.accessEntry }

// newKubectlResource creates a custom resource handled by the cluster's
// kubectl provider. It runs after the provider may reach the cluster.
func newKubectlResource(scope core.Construct, id string, cluster ICluster, resourceType string, props map[string]any) (*core.CfnResource, error) {
	if cluster == nil {
		return nil, fmt.Errorf("%s: Cluster is required", id)
	}
	provider, err := cluster.KubectlProvider()
	if err != nil {
		return nil, err
	}
	all := map[string]any{
		"ClusterName": cluster.ClusterName(),
		"RoleArn":     provider.RoleArn(),
	}
	for k, v := range props {
		all[k] = v
	}
	res, err := core.NewCfnResource(scope, id, &cloudformation.CustomResource{
		Type:         resourceType,
		ServiceToken: provider.ServiceToken(),
		Properties:   all,
	})
	if err != nil {
		return nil, err
	}
	if provider.accessEntry != nil {
		res.AddDependsOn(provider.accessEntry)
	}
	cluster.base().attachKubectlResource(res)
	return res, nil
}
