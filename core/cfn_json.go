package core

import (
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	"github.com/lex00/wetwire-cdk-go/resources/cloudformation"
	"github.com/lex00/wetwire-cdk-go/resources/iam"
	"github.com/lex00/wetwire-cdk-go/resources/lambda"
)

// CfnJSONResourceType is the custom resource type backing CfnJson.
const CfnJSONResourceType = "Custom::AWSCDKCfnJson"

const cfnUtilsProviderID = "AWSCDKCfnUtilsProvider"

// cfnJSONHandler parses the Value property and returns it as the Value
// attribute.
const cfnJSONHandler = `import json
import cfnresponse


def handler(event, context):
    try:
        value = json.loads(event["ResourceProperties"]["Value"])
        cfnresponse.send(event, context, cfnresponse.SUCCESS, {"Value": value}, "CfnJson")
    except Exception as e:
        print(e)
        cfnresponse.send(event, context, cfnresponse.FAILED, {}, "CfnJson")
`

// CfnJson produces a JSON value at deploy time. Use it when map keys must
// contain tokens, such as IAM conditions keyed by an OIDC issuer.
type CfnJson struct {
	node     *Node
	resource *CfnResource
}

// NewCfnJson creates a custom resource whose Value attribute is value with
// every token resolved.
func NewCfnJson(scope Construct, id string, value any) (*CfnJson, error) {
	node, err := NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	provider, err := cfnUtilsProvider(node)
	if err != nil {
		return nil, err
	}
	res, err := NewCfnResource(node, "Resource", &cloudformation.CustomResource{
		Type:         CfnJSONResourceType,
		ServiceToken: provider.GetAtt("Arn"),
		Properties: map[string]any{
			"Value": ToJSONString(value),
		},
	})
	if err != nil {
		return nil, err
	}
	return &CfnJson{node: node, resource: res}, nil
}

// Node returns the construct node.
func (j *CfnJson) Node() *Node { return j.node }

// Resource returns the underlying custom resource.
func (j *CfnJson) Resource() *CfnResource { return j.resource }

// Value returns the deploy-time JSON value.
func (j *CfnJson) Value() intrinsics.GetAtt {
	return j.resource.GetAtt("Value")
}

// cfnUtilsProvider returns the stack's singleton handler function.
func cfnUtilsProvider(scope Construct) (*CfnResource, error) {
	stack, err := StackOf(scope)
	if err != nil {
		return nil, err
	}
	if existing := stack.node.TryFindChild(cfnUtilsProviderID); existing != nil {
		return existing.TryFindChild("Handler").Resource(), nil
	}

	node, err := NewNode(stack, cfnUtilsProviderID)
	if err != nil {
		return nil, err
	}
	role := &iam.Role{
		AssumeRolePolicyDocument: intrinsics.NewPolicyDocument(
			intrinsics.AssumeRoleStatement(intrinsics.ServicePrincipal{"lambda.amazonaws.com"}),
		),
		ManagedPolicyArns: []any{intrinsics.ManagedPolicyArn("service-role/AWSLambdaBasicExecutionRole")},
	}
	if _, err := NewCfnResource(node, "Role", role); err != nil {
		return nil, err
	}
	return NewCfnResource(node, "Handler", &lambda.Function{
		Code:    &lambda.Function_Code{ZipFile: cfnJSONHandler},
		Role:    role.Arn,
		Handler: "index.handler",
		Runtime: "python3.11",
		Timeout: 60,
	})
}
