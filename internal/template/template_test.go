package template

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

func getAtt(id, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{id, attr}}
}

func ref(id string) map[string]any {
	return map[string]any{"Ref": id}
}

func TestBuilder_Build_SimpleResource(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddResource("ClusterRole", wetwire.ResourceDef{
		Type:       "AWS::IAM::Role",
		Properties: map[string]any{"RoleName": "cluster-role"},
	}))

	result, err := b.Build()
	require.NoError(t, err)

	tmpl := result.Template
	assert.Equal(t, "2010-09-09", tmpl.AWSTemplateFormatVersion)
	assert.Len(t, tmpl.Resources, 1)
	assert.Equal(t, "AWS::IAM::Role", tmpl.Resources["ClusterRole"].Type)
	assert.Equal(t, "cluster-role", tmpl.Resources["ClusterRole"].Properties["RoleName"])
	assert.Equal(t, []string{"ClusterRole"}, result.Order)
}

func TestBuilder_Build_WithDependencies(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddResource("Cluster", wetwire.ResourceDef{
		Type: "AWS::EKS::Cluster",
		Properties: map[string]any{
			"RoleArn": getAtt("ClusterRole", "Arn"),
			"ResourcesVpcConfig": map[string]any{
				"SubnetIds": []any{ref("SubnetA"), ref("SubnetB")},
			},
		},
	}))
	require.NoError(t, b.AddResource("ClusterRole", wetwire.ResourceDef{Type: "AWS::IAM::Role"}))
	require.NoError(t, b.AddResource("SubnetA", wetwire.ResourceDef{Type: "AWS::EC2::Subnet"}))
	require.NoError(t, b.AddResource("SubnetB", wetwire.ResourceDef{Type: "AWS::EC2::Subnet"}))
	require.NoError(t, b.AddResource("Nodegroup", wetwire.ResourceDef{
		Type:       "AWS::EKS::Nodegroup",
		Properties: map[string]any{"ClusterName": ref("Cluster")},
		DependsOn:  wetwire.DependsOn{"SubnetB", "SubnetA", "SubnetB"},
	}))

	result, err := b.Build()
	require.NoError(t, err)

	assert.Equal(t, []string{"ClusterRole", "SubnetA", "SubnetB", "Cluster", "Nodegroup"}, result.Order)
	assert.Equal(t, wetwire.DependsOn{"SubnetA", "SubnetB"}, result.Template.Resources["Nodegroup"].DependsOn)
	assert.Equal(t, []string{"ClusterRole", "SubnetA", "SubnetB"}, b.Dependencies("Cluster"))
}

func TestBuilder_Build_SubReferences(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddParameter("Env", wetwire.Parameter{Type: "String"}))
	require.NoError(t, b.AddResource("Api", wetwire.ResourceDef{Type: "AWS::AppSync::GraphQLApi"}))
	require.NoError(t, b.AddResource("Key", wetwire.ResourceDef{
		Type: "AWS::AppSync::ApiKey",
		Properties: map[string]any{
			"ApiId":       map[string]any{"Fn::Sub": "${Api.ApiId}"},
			"Description": map[string]any{"Fn::Sub": "${Env}-${AWS::Region}-${!Literal}"},
			"Expires": map[string]any{"Fn::Sub": []any{
				"${Custom}",
				map[string]any{"Custom": ref("Env")},
			}},
		},
	}))

	result, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Api", "Key"}, result.Order)
	assert.Equal(t, []string{"Api"}, b.Dependencies("Key"))
}

func TestBuilder_Build_CircularDependency(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddResource("A", wetwire.ResourceDef{Type: "AWS::IAM::Role", Properties: map[string]any{"Path": ref("B")}}))
	require.NoError(t, b.AddResource("B", wetwire.ResourceDef{Type: "AWS::IAM::Role", Properties: map[string]any{"Path": ref("C")}}))
	require.NoError(t, b.AddResource("C", wetwire.ResourceDef{Type: "AWS::IAM::Role", Properties: map[string]any{"Path": ref("A")}}))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular dependency")
	for _, id := range []string{"A", "B", "C"} {
		assert.Contains(t, err.Error(), id)
	}
}

func TestBuilder_Build_UndefinedReferences(t *testing.T) {
	tests := []struct {
		name    string
		def     wetwire.ResourceDef
		wantErr string
	}{
		{
			name:    "ref",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", Properties: map[string]any{"RoleArn": ref("Missing")}},
			wantErr: `Ref references undefined resource "Missing"`,
		},
		{
			name:    "getatt",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", Properties: map[string]any{"RoleArn": getAtt("Missing", "Arn")}},
			wantErr: `Fn::GetAtt references undefined resource "Missing"`,
		},
		{
			name:    "getatt dotted",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", Properties: map[string]any{"RoleArn": map[string]any{"Fn::GetAtt": "Missing.Arn"}}},
			wantErr: `Fn::GetAtt references undefined resource "Missing"`,
		},
		{
			name:    "sub",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", Properties: map[string]any{"Name": map[string]any{"Fn::Sub": "${Missing}-cluster"}}},
			wantErr: `Fn::Sub references undefined resource "Missing"`,
		},
		{
			name:    "depends on",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", DependsOn: wetwire.DependsOn{"Missing"}},
			wantErr: `DependsOn references undefined resource "Missing"`,
		},
		{
			name:    "condition",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", Condition: "IsProd"},
			wantErr: `undefined condition "IsProd"`,
		},
		{
			name:    "getatt on parameter",
			def:     wetwire.ResourceDef{Type: "AWS::EKS::Cluster", Properties: map[string]any{"RoleArn": getAtt("Param", "Arn")}},
			wantErr: `Fn::GetAtt references undefined resource "Param"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBuilder()
			require.NoError(t, b.AddParameter("Param", wetwire.Parameter{Type: "String"}))
			require.NoError(t, b.AddResource("Cluster", tt.def))

			_, err := b.Build()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBuilder_Build_PseudoParametersAndParameters(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddParameter("KubectlLayerArn", wetwire.Parameter{Type: "String"}))
	require.NoError(t, b.AddResource("Handler", wetwire.ResourceDef{
		Type: "AWS::Lambda::Function",
		Properties: map[string]any{
			"Layers":       []any{ref("KubectlLayerArn")},
			"FunctionName": map[string]any{"Fn::Join": []any{"-", []any{ref("AWS::StackName"), "kubectl"}}},
		},
	}))

	result, err := b.Build()
	require.NoError(t, err)
	assert.Contains(t, result.Template.Parameters, "KubectlLayerArn")
	assert.Empty(t, b.Dependencies("Handler"))
}

func TestBuilder_DuplicateLogicalIDs(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddResource("Cluster", wetwire.ResourceDef{Type: "AWS::EKS::Cluster"}))

	err := b.AddResource("Cluster", wetwire.ResourceDef{Type: "AWS::EKS::Cluster"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate logical ID "Cluster"`)

	err = b.AddOutput("Cluster", wetwire.Output{Value: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already used by a resource")
}

func TestBuilder_Outputs(t *testing.T) {
	b := NewBuilder()
	require.NoError(t, b.AddResource("Cluster", wetwire.ResourceDef{Type: "AWS::EKS::Cluster"}))
	require.NoError(t, b.AddOutput("ClusterName", wetwire.Output{
		Value:  ref("Cluster"),
		Export: &wetwire.OutputExport{Name: map[string]any{"Fn::Sub": "${AWS::StackName}-ClusterName"}},
	}))
	require.NoError(t, b.AddOutput("Broken", wetwire.Output{Value: getAtt("Nope", "Arn")}))

	_, err := b.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output Broken")
	assert.NotContains(t, err.Error(), "output ClusterName")
}

func TestReferences(t *testing.T) {
	refs := References(map[string]any{
		"b": getAtt("Role", "Arn"),
		"a": []any{ref("Vpc"), map[string]any{"Fn::Sub": "${Cluster.Endpoint}/${AWS::URLSuffix}"}},
	})
	assert.Equal(t, []Reference{
		{Kind: RefRef, Target: "Vpc"},
		{Kind: SubRef, Target: "Cluster", Attribute: "Endpoint"},
		{Kind: SubRef, Target: "AWS::URLSuffix"},
		{Kind: GetAttRef, Target: "Role", Attribute: "Arn"},
	}, refs)
}

func TestToJSON(t *testing.T) {
	tmpl := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Resources: map[string]wetwire.ResourceDef{
			"Resolver": {
				Type: "AWS::AppSync::Resolver",
				Properties: map[string]any{
					"RequestMappingTemplate": "#if($ctx.args.limit > 0 && $ctx.args.limit < 100)",
				},
			},
		},
	}

	data, err := ToJSON(tmpl)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{\n  \"AWSTemplateFormatVersion\""))
	assert.Contains(t, string(data), "> 0 && $ctx.args.limit < 100")

	var roundTrip wetwire.Template
	require.NoError(t, json.Unmarshal(data, &roundTrip))
	assert.Equal(t, tmpl.Resources["Resolver"].Properties, roundTrip.Resources["Resolver"].Properties)
}

func TestToYAML(t *testing.T) {
	tmpl := &wetwire.Template{
		AWSTemplateFormatVersion: FormatVersion,
		Resources: map[string]wetwire.ResourceDef{
			"Cluster": {
				Type:      "AWS::EKS::Cluster",
				DependsOn: wetwire.DependsOn{"Role"},
			},
			"Role": {Type: "AWS::IAM::Role"},
		},
	}

	data, err := ToYAML(tmpl)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AWSTemplateFormatVersion:")
	assert.Contains(t, string(data), "2010-09-09")

	var roundTrip wetwire.Template
	require.NoError(t, yaml.Unmarshal(data, &roundTrip))
	assert.Equal(t, wetwire.DependsOn{"Role"}, roundTrip.Resources["Cluster"].DependsOn)
}
