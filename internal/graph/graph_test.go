package graph

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	wetwire "github.com/lex00/wetwire-cdk-go"
)

func clusterTemplate() *wetwire.Template {
	return &wetwire.Template{
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
			"Nodegroup": {
				Type: "AWS::EKS::Nodegroup",
				Properties: map[string]any{
					"ClusterName": map[string]any{"Ref": "Cluster"},
				},
				DependsOn: wetwire.DependsOn{"Cluster", "ClusterRole"},
			},
			"Handler": {
				Type: "AWS::Lambda::Function",
				Properties: map[string]any{
					"Layers": []any{map[string]any{"Ref": "KubectlLayerArn"}},
				},
			},
			"Manifest": {
				Type:      "Custom::AWSCDK-EKS-KubernetesResource",
				DependsOn: wetwire.DependsOn{"Handler"},
			},
		},
	}
}

func TestGenerator_Generate_SimpleGraph(t *testing.T) {
	gen := &Generator{}
	var sb strings.Builder
	if err := gen.Generate(clusterTemplate(), &sb); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	output := sb.String()

	if !strings.Contains(output, "digraph") {
		t.Error("expected digraph declaration")
	}
	for _, id := range []string{"Cluster", "ClusterRole", "Nodegroup", "Handler", "Manifest"} {
		if !strings.Contains(output, id) {
			t.Errorf("expected %s node", id)
		}
	}
	if !strings.Contains(output, "AWS::EKS::Cluster") {
		t.Error("expected resource type in label")
	}
	// GetAtt edges are blue, DependsOn-only edges dashed.
	if !strings.Contains(output, "blue") {
		t.Error("expected blue color for GetAtt edge")
	}
	if !strings.Contains(output, "dashed") {
		t.Error("expected dashed DependsOn edge")
	}
	if strings.Contains(output, "ellipse") {
		t.Error("parameters are excluded by default")
	}
}

func TestGenerator_Generate_WithParameters(t *testing.T) {
	gen := &Generator{IncludeParameters: true}
	output, err := gen.GenerateString(clusterTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "KubectlLayerArn") {
		t.Error("expected KubectlLayerArn parameter node")
	}
	if !strings.Contains(output, "ellipse") {
		t.Error("expected ellipse shape for parameter")
	}
}

func TestGenerator_Generate_ClusterByType(t *testing.T) {
	gen := &Generator{ClusterByType: true}
	output, err := gen.GenerateString(clusterTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "cluster_") || !strings.Contains(output, `label="EKS"`) {
		t.Errorf("expected EKS cluster subgraph, got:\n%s", output)
	}
	// A single IAM resource does not get its own box.
	if strings.Contains(output, `label="IAM"`) {
		t.Error("unexpected IAM cluster subgraph")
	}
	// Edges attach to the nodes inside the subgraph, not to unlabeled
	// copies on the root graph.
	for _, id := range []string{"Cluster", "Nodegroup", "ClusterRole", "Handler"} {
		if strings.Contains(output, `label="`+id+`"`) {
			t.Errorf("resource %s rendered twice:\n%s", id, output)
		}
	}
}

func TestGenerator_Generate_ClusterByType_Edges(t *testing.T) {
	gen := &Generator{ClusterByType: true}
	graph := gen.buildGraph(clusterTemplate())
	output := graph.String()
	// Cluster->ClusterRole, Nodegroup->Cluster, Nodegroup->ClusterRole and
	// Manifest->Handler. The parameter edge is dropped without -p.
	assert.Equal(t, 4, strings.Count(output, "->"))
}

func TestGenerator_Generate_MermaidFormat(t *testing.T) {
	gen := &Generator{Format: FormatMermaid}
	output, err := gen.GenerateString(clusterTemplate())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "graph") && !strings.Contains(output, "flowchart") {
		t.Errorf("expected mermaid graph/flowchart, got:\n%s", output)
	}
	if strings.Contains(output, "digraph") {
		t.Error("expected mermaid format, not DOT")
	}
}

func TestEdges(t *testing.T) {
	tmpl := clusterTemplate()
	assert.Equal(t, []edge{
		{target: "Cluster", kind: edgeRef},
		{target: "ClusterRole", kind: edgeDependsOn},
	}, edges(tmpl, "Nodegroup"))
	assert.Equal(t, []edge{{target: "ClusterRole", kind: edgeGetAtt}}, edges(tmpl, "Cluster"))
	assert.Equal(t, []edge{{target: "KubectlLayerArn", kind: edgeRef}}, edges(tmpl, "Handler"))
	assert.Empty(t, edges(tmpl, "ClusterRole"))
}

func TestService(t *testing.T) {
	tests := map[string]string{
		"AWS::EKS::Cluster":                     "EKS",
		"AWS::AppSync::GraphQLApi":              "AppSync",
		"Custom::AWSCDK-EKS-KubernetesResource": "Custom",
		"AWS::CloudFormation::CustomResource":   "CloudFormation",
		"Alexa::ASK::Skill::Extra":              "Other",
	}
	for in, want := range tests {
		assert.Equal(t, want, Service(in), in)
	}
}
