package iam

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

func newStack(t *testing.T) *core.Stack {
	t.Helper()
	t.Setenv(core.EnvOutdir, "")
	t.Setenv(core.EnvContext, "")
	app, err := core.NewApp(nil)
	require.NoError(t, err)
	stack, err := core.NewStack(app, "Test", nil)
	require.NoError(t, err)
	return stack
}

func synth(t *testing.T, stack *core.Stack) *wetwire.Template {
	t.Helper()
	tmpl, err := stack.Synthesize()
	require.NoError(t, err)
	return tmpl
}

func TestNewRole(t *testing.T) {
	stack := newStack(t)
	role, err := NewRole(stack, "ClusterRole", RoleProps{
		AssumedBy:       intrinsics.ServicePrincipal{"eks.amazonaws.com"},
		ManagedPolicies: []string{"AmazonEKSClusterPolicy"},
		Path:            "/eks/",
	})
	require.NoError(t, err)

	tmpl := synth(t, stack)
	require.Len(t, tmpl.Resources, 1)
	def := tmpl.Resources[role.Resource().LogicalID()]
	assert.Equal(t, "AWS::IAM::Role", def.Type)
	assert.Equal(t, map[string]any{
		"Version": "2012-10-17",
		"Statement": []any{map[string]any{
			"Effect":    "Allow",
			"Principal": map[string]any{"Service": "eks.amazonaws.com"},
			"Action":    "sts:AssumeRole",
		}},
	}, def.Properties["AssumeRolePolicyDocument"])
	assert.Equal(t, []any{
		map[string]any{"Fn::Sub": "arn:${AWS::Partition}:iam::aws:policy/AmazonEKSClusterPolicy"},
	}, def.Properties["ManagedPolicyArns"])
	assert.Equal(t, "/eks/", def.Properties["Path"])
	assert.Equal(t, "Test/ClusterRole/Resource", def.Metadata[core.MetadataPath])
}

func TestRole_AddToPrincipalPolicy(t *testing.T) {
	stack := newStack(t)
	role, err := NewRole(stack, "HandlerRole", RoleProps{
		AssumedBy: intrinsics.ServicePrincipal{"lambda.amazonaws.com"},
	})
	require.NoError(t, err)

	describe := intrinsics.Allow([]string{"eks:DescribeCluster"})
	require.NoError(t, role.AddToPrincipalPolicy(describe))
	require.NoError(t, role.AddToPrincipalPolicy(describe, intrinsics.Allow([]string{"sts:AssumeRole"})))

	tmpl := synth(t, stack)
	require.Len(t, tmpl.Resources, 2)

	var policy wetwire.ResourceDef
	for _, def := range tmpl.Resources {
		if def.Type == "AWS::IAM::Policy" {
			policy = def
		}
	}
	require.NotNil(t, policy.Properties)
	assert.Equal(t, []any{map[string]any{"Ref": role.Resource().LogicalID()}}, policy.Properties["Roles"])
	doc := policy.Properties["PolicyDocument"].(map[string]any)
	assert.Len(t, doc["Statement"], 2)
	assert.Contains(t, policy.Properties["PolicyName"], "HandlerRoleDefaultPolicy")
	assert.Len(t, role.DefaultPolicy().Statement, 2)
}

func TestRoleProps_Validate(t *testing.T) {
	tests := []struct {
		name    string
		props   RoleProps
		wantErr string
	}{
		{"no principal", RoleProps{}, "one of AssumedBy or AssumeRolePolicy is required"},
		{"short session", RoleProps{AssumedBy: intrinsics.AccountRootPrincipal(), MaxSessionDuration: core.Minutes(10)}, "between 1 and 12 hours"},
		{"long session", RoleProps{AssumedBy: intrinsics.AccountRootPrincipal(), MaxSessionDuration: core.Hours(13)}, "between 1 and 12 hours"},
		{"bad path", RoleProps{AssumedBy: intrinsics.AccountRootPrincipal(), Path: "eks"}, "must begin and end with '/'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, RoleProps{AssumedBy: intrinsics.AccountRootPrincipal(), MaxSessionDuration: core.Hours(2)}.Validate())
}

func TestNewRole_CustomTrustPolicy(t *testing.T) {
	stack := newStack(t)
	trust := intrinsics.NewPolicyDocument()
	trust.AddStatements(intrinsics.AssumeRoleStatement(intrinsics.AccountRootPrincipal()))

	role, err := NewRole(stack, "Masters", RoleProps{AssumeRolePolicy: trust})
	require.NoError(t, err)
	assert.Same(t, trust, role.AssumeRolePolicy())

	role.AssumeRolePolicy().AddStatements(intrinsics.AssumeRoleStatement(intrinsics.ServicePrincipal{"ec2.amazonaws.com"}))
	tmpl := synth(t, stack)
	doc := tmpl.Resources[role.Resource().LogicalID()].Properties["AssumeRolePolicyDocument"].(map[string]any)
	assert.Len(t, doc["Statement"], 2)
}

func TestFromRoleArn(t *testing.T) {
	imported := FromRoleArn("arn:aws:iam::123456789012:role/admin")
	assert.Equal(t, "admin", imported.RoleName())
	assert.ErrorIs(t, imported.AddToPrincipalPolicy(intrinsics.Allow([]string{"s3:GetObject"})), ErrImmutableRole)

	tokenArn := core.AsString(intrinsics.GetAtt{LogicalName: "Role", Attribute: "Arn"})
	name, err := core.Resolve(FromRoleArn(tokenArn).RoleName())
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"Fn::Select": []any{float64(1), map[string]any{
			"Fn::Split": []any{"/", map[string]any{"Fn::GetAtt": []any{"Role", "Arn"}}},
		}},
	}, name)
}
