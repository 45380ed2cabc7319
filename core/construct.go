// Package core implements the construct tree that CloudFormation templates
// are synthesized from.
//
// Every construct owns a Node. Nodes form a tree rooted at an App; Stacks
// are nodes that collect the CloudFormation elements created beneath them.
//
//	app := core.NewApp(nil)
//	stack, _ := core.NewStack(app, "Platform", nil)
//	res, _ := core.NewCfnResource(stack, "Cluster", &eks.Cluster{...})
//	asm, err := app.Synth()
package core

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/multierr"
)

// PathSeparator joins construct ids into a path.
const PathSeparator = "/"

// Construct is anything that owns a node in the construct tree.
type Construct interface {
	Node() *Node
}

// Node is a construct's position in the tree.
type Node struct {
	id       string
	scope    *Node
	children []*Node
	byID     map[string]*Node

	app      *App
	stack    *Stack
	resource *CfnResource

	deps        []Construct
	validations []func() error
	metadata    map[string]any
}

// NewNode attaches a new node with the given id beneath scope.
func NewNode(scope Construct, id string) (*Node, error) {
	if scope == nil || scope.Node() == nil {
		return nil, fmt.Errorf("construct %q: scope is required", id)
	}
	if id == "" {
		return nil, fmt.Errorf("construct id must not be empty (scope %s)", scope.Node().displayPath())
	}
	if strings.Contains(id, PathSeparator) {
		return nil, fmt.Errorf("construct id %q must not contain %q", id, PathSeparator)
	}

	parent := scope.Node()
	if _, exists := parent.byID[id]; exists {
		return nil, fmt.Errorf("There is already a Construct with name '%s' in %s", id, parent.displayPath())
	}

	n := &Node{id: id, scope: parent}
	if parent.byID == nil {
		parent.byID = make(map[string]*Node)
	}
	parent.byID[id] = n
	parent.children = append(parent.children, n)
	return n, nil
}

func newRootNode(app *App) *Node {
	return &Node{app: app}
}

// Node returns n itself, so a bare *Node can serve as a scope.
func (n *Node) Node() *Node { return n }

// ID returns the node id within its scope.
func (n *Node) ID() string { return n.id }

// Scope returns the parent node, or nil for the root.
func (n *Node) Scope() *Node { return n.scope }

// Children returns direct children in insertion order.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// TryFindChild returns the child with the given id, or nil.
func (n *Node) TryFindChild(id string) *Node {
	return n.byID[id]
}

// FindAll returns n and all of its descendants in pre-order.
func (n *Node) FindAll() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(c *Node) {
		out = append(out, c)
		for _, child := range c.children {
			walk(child)
		}
	}
	walk(n)
	return out
}

// Scopes returns the nodes from the root down to n, inclusive.
func (n *Node) Scopes() []*Node {
	var out []*Node
	for c := n; c != nil; c = c.scope {
		out = append([]*Node{c}, out...)
	}
	return out
}

// PathComponents returns the ids from below the root down to n.
func (n *Node) PathComponents() []string {
	var parts []string
	for _, s := range n.Scopes() {
		if s.scope != nil {
			parts = append(parts, s.id)
		}
	}
	return parts
}

// Path returns the slash-joined ids from below the root down to n.
func (n *Node) Path() string {
	return strings.Join(n.PathComponents(), PathSeparator)
}

func (n *Node) displayPath() string {
	if p := n.Path(); p != "" {
		return p
	}
	return "App"
}

// Addr returns a stable 42 character address derived from the node path.
// "Default" components are skipped so wrapping a construct in a Default
// child does not change it.
func (n *Node) Addr() string {
	h := sha1.New()
	for _, c := range n.PathComponents() {
		if c == defaultChildID {
			continue
		}
		h.Write([]byte(c))
		h.Write([]byte("\n"))
	}
	return "c8" + hex.EncodeToString(h.Sum(nil))
}

// UniqueID returns an id derived from the full path that is unique within
// the app and safe for use in names.
func (n *Node) UniqueID() string {
	id, err := MakeUniqueID(n.PathComponents())
	if err != nil {
		return ""
	}
	return id
}

// Root returns the root node.
func (n *Node) Root() *Node {
	c := n
	for c.scope != nil {
		c = c.scope
	}
	return c
}

// App returns the app at the root of the tree, if any.
func (n *Node) App() *App {
	return n.Root().app
}

// Resource returns the CfnResource owning this node, if any.
func (n *Node) Resource() *CfnResource {
	return n.resource
}

// AddDependency makes every resource beneath n depend on every resource
// beneath each of deps.
func (n *Node) AddDependency(deps ...Construct) {
	for _, d := range deps {
		if d != nil && d.Node() != nil {
			n.deps = append(n.deps, d)
		}
	}
}

// Dependencies returns the explicit dependencies added to n.
func (n *Node) Dependencies() []Construct {
	return n.deps
}

// AddValidation registers a check that runs before synthesis.
func (n *Node) AddValidation(fn func() error) {
	n.validations = append(n.validations, fn)
}

// SetMetadata attaches a metadata entry. Resource nodes emit it as
// template metadata.
func (n *Node) SetMetadata(key string, value any) {
	if n.metadata == nil {
		n.metadata = make(map[string]any)
	}
	n.metadata[key] = value
}

// Validate runs every validation registered in n's subtree and returns
// the combined errors, each prefixed with the path of its construct.
func (n *Node) Validate() error {
	var err error
	for _, c := range n.FindAll() {
		for _, v := range c.validations {
			if verr := v(); verr != nil {
				err = multierr.Append(err, fmt.Errorf("[%s] %w", c.displayPath(), verr))
			}
		}
	}
	return err
}

// IsAncestorOf reports whether n is other or one of its scopes.
func (n *Node) IsAncestorOf(other *Node) bool {
	for c := other; c != nil; c = c.scope {
		if c == n {
			return true
		}
	}
	return false
}

// Resources returns the CfnResources in n's subtree in pre-order.
func (n *Node) Resources() []*CfnResource {
	var out []*CfnResource
	for _, c := range n.FindAll() {
		if c.resource != nil {
			out = append(out, c.resource)
		}
	}
	return out
}
