// Package graph generates DOT and Mermaid dependency graphs from
// synthesized CloudFormation templates.
package graph

import (
	"io"
	"sort"
	"strings"

	"github.com/emicklei/dot"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/template"
)

// Format specifies the output format for the graph.
type Format string

const (
	// FormatDOT outputs Graphviz DOT format.
	FormatDOT Format = "dot"
	// FormatMermaid outputs Mermaid format for GitHub/markdown rendering.
	FormatMermaid Format = "mermaid"
)

// Generator creates dependency graphs from templates.
type Generator struct {
	// IncludeParameters includes parameter references in the graph.
	IncludeParameters bool

	// Format specifies the output format (dot or mermaid). Defaults to dot.
	Format Format

	// ClusterByType groups resources by AWS service, e.g. all AWS::EKS::*
	// resources in one EKS cluster box.
	ClusterByType bool
}

// Generate creates a dependency graph and writes it to w.
func (g *Generator) Generate(t *wetwire.Template, w io.Writer) error {
	graph := g.buildGraph(t)

	var output string
	if g.Format == FormatMermaid {
		output = dot.MermaidGraph(graph, dot.MermaidTopToBottom)
	} else {
		output = graph.String()
	}

	_, err := io.WriteString(w, output)
	return err
}

// GenerateString is a convenience method that returns the graph as a string.
func (g *Generator) GenerateString(t *wetwire.Template) (string, error) {
	var sb strings.Builder
	if err := g.Generate(t, &sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

type edgeKind int

const (
	edgeRef edgeKind = iota
	edgeGetAtt
	edgeDependsOn
)

func (g *Generator) buildGraph(t *wetwire.Template) *dot.Graph {
	graph := dot.NewGraph(dot.Directed)
	graph.Attr("rankdir", "TB")

	graph.NodeInitializer(func(n dot.Node) {
		n.Attr("shape", "box")
		n.Attr("fontname", "Arial")
	})
	graph.EdgeInitializer(func(e dot.Edge) {
		e.Attr("fontname", "Arial")
		e.Attr("fontsize", "10")
	})

	// Nodes live in the graph or subgraph that created them; edges must
	// use those nodes rather than look them up on the root graph again.
	nodes := map[string]dot.Node{}
	ids := sortedKeys(t.Resources)
	if g.ClusterByType {
		g.addClusteredNodes(graph, t, ids, nodes)
	} else {
		for _, id := range ids {
			nodes[id] = graph.Node(id).Label(label(id, t.Resources[id].Type))
		}
	}

	if g.IncludeParameters {
		for _, name := range sortedKeys(t.Parameters) {
			n := graph.Node(name)
			n.Attr("shape", "ellipse")
			n.Attr("style", "dashed")
			nodes[name] = n.Label(name)
		}
	}

	for _, id := range ids {
		for _, dep := range edges(t, id) {
			to, ok := nodes[dep.target]
			if !ok {
				continue
			}
			e := graph.Edge(nodes[id], to)
			switch dep.kind {
			case edgeGetAtt:
				e.Attr("color", "blue")
			case edgeDependsOn:
				e.Attr("style", "dashed")
			}
		}
	}
	return graph
}

type edge struct {
	target string
	kind   edgeKind
}

// edges lists the resources and parameters id points at, each once. A
// GetAtt reference wins over a Ref, and both win over DependsOn.
func edges(t *wetwire.Template, id string) []edge {
	def := t.Resources[id]
	kinds := map[string]edgeKind{}
	var order []string
	add := func(target string, kind edgeKind) {
		if target == id {
			return
		}
		_, isResource := t.Resources[target]
		_, isParam := t.Parameters[target]
		if !isResource && !isParam {
			return
		}
		prev, seen := kinds[target]
		if !seen {
			order = append(order, target)
			kinds[target] = kind
			return
		}
		if kind == edgeGetAtt || prev == edgeDependsOn {
			kinds[target] = kind
		}
	}
	for _, ref := range template.References(def.Properties) {
		kind := edgeRef
		if ref.Kind == template.GetAttRef || ref.Attribute != "" {
			kind = edgeGetAtt
		}
		add(ref.Target, kind)
	}
	for _, dep := range def.DependsOn {
		add(dep, edgeDependsOn)
	}
	sort.Strings(order)
	out := make([]edge, len(order))
	for i, target := range order {
		out[i] = edge{target: target, kind: kinds[target]}
	}
	return out
}

func (g *Generator) addClusteredNodes(graph *dot.Graph, t *wetwire.Template, ids []string, nodes map[string]dot.Node) {
	byService := map[string][]string{}
	for _, id := range ids {
		svc := Service(t.Resources[id].Type)
		byService[svc] = append(byService[svc], id)
	}
	for _, svc := range sortedKeys(byService) {
		members := byService[svc]
		target := graph
		if len(members) > 1 {
			target = graph.Subgraph("cluster_"+svc, dot.ClusterOption{})
			target.Attr("label", svc)
			target.Attr("style", "rounded")
			target.Attr("bgcolor", "lightyellow")
		}
		for _, id := range members {
			nodes[id] = target.Node(id).Label(label(id, t.Resources[id].Type))
		}
	}
}

// Service returns the service part of a resource type: "EKS" for
// "AWS::EKS::Cluster", "Custom" for custom resources.
func Service(resourceType string) string {
	parts := strings.Split(resourceType, "::")
	switch {
	case len(parts) == 3:
		return parts[1]
	case strings.HasPrefix(resourceType, "Custom::"):
		return "Custom"
	}
	return "Other"
}

func label(id, resourceType string) string {
	return id + "\\n[" + resourceType + "]"
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
