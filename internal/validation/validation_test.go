package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/lex00/cfn-lint-go/pkg/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

func TestCfnLintResult_TotalIssues(t *testing.T) {
	tests := []struct {
		name     string
		result   CfnLintResult
		expected int
	}{
		{
			name:     "empty result",
			result:   CfnLintResult{},
			expected: 0,
		},
		{
			name: "errors only",
			result: CfnLintResult{
				Errors: []string{"error1", "error2"},
			},
			expected: 2,
		},
		{
			name: "mixed issues",
			result: CfnLintResult{
				Errors:        []string{"error1"},
				Warnings:      []string{"warning1", "warning2"},
				Informational: []string{"info1"},
			},
			expected: 4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.TotalIssues())
		})
	}
}

func TestFormatMatch(t *testing.T) {
	tests := []struct {
		name     string
		match    lint.Match
		expected string
	}{
		{
			name: "simple match",
			match: lint.Match{
				Rule:    lint.MatchRule{ID: "E3001"},
				Message: "Invalid resource type",
			},
			expected: "E3001: Invalid resource type",
		},
		{
			name: "match with path",
			match: lint.Match{
				Rule:    lint.MatchRule{ID: "W2001"},
				Message: "Parameter not used",
				Location: lint.MatchLocation{
					Path: []any{"Resources", "Cluster", "Properties"},
				},
			},
			expected: "W2001: Parameter not used (at Resources/Cluster/Properties)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatMatch(tt.match))
		})
	}
}

func TestRunCfnLint_FileNotFound(t *testing.T) {
	result, err := RunCfnLint("/nonexistent/template.yaml")
	require.NoError(t, err)
	assert.False(t, result.Passed)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Template file not found")
}

func TestCheckReferences(t *testing.T) {
	tmpl := &wetwire.Template{
		Parameters: map[string]wetwire.Parameter{
			"KubectlLayerArn": {Type: "String"},
		},
		Resources: map[string]wetwire.ResourceDef{
			"ClusterRole": {Type: "AWS::IAM::Role"},
			"Cluster": {
				Type: "AWS::EKS::Cluster",
				Properties: map[string]any{
					"RoleArn": map[string]any{"Fn::GetAtt": []any{"ClusterRole", "Arn"}},
				},
			},
			"Handler": {
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"Layers": []any{map[string]any{"Ref": "KubectlLayerArn"}},
					"Role":   map[string]any{"Fn::GetAtt": []any{"MissingRole", "Arn"}},
				},
				DependsOn: wetwire.DependsOn{"Ghost"},
			},
		},
		Outputs: map[string]wetwire.Output{
			"Endpoint": {Value: map[string]any{"Fn::GetAtt": []any{"Cluster", "Endpoint"}}},
			"Stale":    {Value: map[string]any{"Ref": "OldCluster"}},
		},
	}

	msgs := CheckReferences(tmpl)
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0], `"MissingRole"`)
	assert.Contains(t, msgs[1], `"Ghost"`)
	assert.Contains(t, msgs[2], `"OldCluster"`)
}

func TestCheckReferences_Cycle(t *testing.T) {
	tmpl := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"A": {Type: "AWS::SQS::Queue", DependsOn: wetwire.DependsOn{"B"}},
			"B": {Type: "AWS::SQS::Queue", DependsOn: wetwire.DependsOn{"A"}},
		},
	}
	msgs := CheckReferences(tmpl)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "circular dependency")
}

func TestValidate_Structural(t *testing.T) {
	tmpl := &wetwire.Template{
		Resources: map[string]wetwire.ResourceDef{
			"Manifest": {Type: "Custom::AWSCDK-EKS-KubernetesResource", Properties: map[string]any{"Manifest": "[]"}},
			"Odd":      {Type: "Vendor::Thing::Widget"},
			"Api":      {Type: "AWS::AppSync::GraphQLApi"},
		},
		Outputs: map[string]wetwire.Output{
			"A": {Value: map[string]any{"Ref": "Api"}, Export: &wetwire.OutputExport{Name: "api"}},
			"B": {Value: map[string]any{"Ref": "Api"}, Export: &wetwire.OutputExport{Name: "api"}},
		},
	}

	result, err := Validate(tmpl, Options{SkipCfnLint: true})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 3, result.Resources)
	assert.Equal(t, []string{
		"resource Manifest: custom resource Custom::AWSCDK-EKS-KubernetesResource has no ServiceToken",
		`output B: export name "api" already used by output A`,
	}, result.Errors)
	assert.Equal(t, []string{`resource Odd: unrecognized resource type "Vendor::Thing::Widget"`}, result.Warnings)
}

func TestValidateFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "template.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`AWSTemplateFormatVersion: '2010-09-09'
Resources:
  Table:
    Type: AWS::DynamoDB::Table
    Properties:
      BillingMode: PAY_PER_REQUEST
      KeySchema:
        - AttributeName: id
          KeyType: HASH
      AttributeDefinitions:
        - AttributeName: id
          AttributeType: S
Outputs:
  TableName:
    Value:
      Ref: Table
`), 0o644))

	result, err := ValidateFile(path, Options{SkipCfnLint: true})
	require.NoError(t, err)
	assert.True(t, result.Success, "errors: %v", result.Errors)
	assert.Equal(t, 1, result.Resources)

	_, err = ValidateFile(filepath.Join(dir, "missing.yaml"), Options{})
	assert.Error(t, err)
}
