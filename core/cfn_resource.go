package core

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/internal/serialize"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

// Deletion and replacement policies.
const (
	PolicyDelete   = "Delete"
	PolicyRetain   = "Retain"
	PolicySnapshot = "Snapshot"
)

// MetadataPath is the resource metadata key holding the construct path.
const MetadataPath = "aws:cdk:path"

// CfnResource places a property bag in a stack under a logical ID.
type CfnResource struct {
	node      *Node
	stack     *Stack
	resource  wetwire.Resource
	logicalID string

	dependsOn           []*CfnResource
	condition           *CfnCondition
	deletionPolicy      string
	updateReplacePolicy string
	overrides           []override
}

type override struct {
	path  []string
	value any
	del   bool
}

// NewCfnResource adds res to the stack enclosing scope. res must be a
// pointer to a property bag; its attribute fields are bound to the new
// logical ID so they can be referenced right away.
func NewCfnResource(scope Construct, id string, res wetwire.Resource) (*CfnResource, error) {
	rv := reflect.ValueOf(res)
	if res == nil || rv.Kind() != reflect.Ptr || rv.IsNil() {
		return nil, fmt.Errorf("resource %q: expected a non-nil pointer, got %T", id, res)
	}

	stack, err := StackOf(scope)
	if err != nil {
		return nil, fmt.Errorf("resource %q: %w", id, err)
	}

	if err := wetwire.CheckRequired(res); err != nil {
		return nil, fmt.Errorf("%s/%s: %w", scope.Node().displayPath(), id, err)
	}

	node, err := NewNode(scope, id)
	if err != nil {
		return nil, err
	}

	logicalID, err := stack.AllocateLogicalID(node)
	if err != nil {
		return nil, err
	}

	r := &CfnResource{
		node:      node,
		stack:     stack,
		resource:  res,
		logicalID: logicalID,
	}
	r.bindAttributes()
	node.resource = r
	stack.resources = append(stack.resources, r)
	return r, nil
}

// bindAttributes fills every `attr` tagged AttrRef field with the logical ID.
func (r *CfnResource) bindAttributes() {
	v := reflect.ValueOf(r.resource).Elem()
	if v.Kind() != reflect.Struct {
		return
	}
	attrType := reflect.TypeOf(wetwire.AttrRef{})
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := f.Tag.Get("attr")
		if name == "" || f.Type != attrType || !v.Field(i).CanSet() {
			continue
		}
		v.Field(i).Set(reflect.ValueOf(wetwire.AttrRef{Resource: r.logicalID, Attribute: name}))
	}
}

// Node returns the construct node.
func (r *CfnResource) Node() *Node { return r.node }

// Stack returns the stack the resource belongs to.
func (r *CfnResource) Stack() *Stack { return r.stack }

// LogicalID returns the template logical ID.
func (r *CfnResource) LogicalID() string { return r.logicalID }

// Resource returns the underlying property bag.
func (r *CfnResource) Resource() wetwire.Resource { return r.resource }

// Type returns the CloudFormation resource type.
func (r *CfnResource) Type() string { return r.resource.ResourceType() }

// OverrideLogicalID replaces the allocated logical ID. Attribute fields are
// rebound, but values already copied out of the resource keep the old ID,
// so call this before the resource is referenced.
func (r *CfnResource) OverrideLogicalID(id string) error {
	if id == "" || removeNonAlphanumeric(id) != id {
		return fmt.Errorf("logical ID %q must be non-empty and alphanumeric", id)
	}
	r.logicalID = id
	r.bindAttributes()
	return nil
}

// Ref returns a Ref to the resource.
func (r *CfnResource) Ref() intrinsics.Ref {
	return intrinsics.Ref{LogicalName: r.logicalID}
}

// GetAtt returns an Fn::GetAtt of the named attribute.
func (r *CfnResource) GetAtt(attribute string) intrinsics.GetAtt {
	return intrinsics.GetAtt{LogicalName: r.logicalID, Attribute: attribute}
}

// RefString returns the Ref as a string token.
func (r *CfnResource) RefString() string {
	return AsString(r.Ref())
}

// GetAttString returns the attribute as a string token.
func (r *CfnResource) GetAttString(attribute string) string {
	return AsString(r.GetAtt(attribute))
}

// AddDependsOn adds explicit DependsOn entries.
func (r *CfnResource) AddDependsOn(others ...*CfnResource) {
	for _, o := range others {
		if o != nil && o != r {
			r.dependsOn = append(r.dependsOn, o)
		}
	}
}

// DependsOn returns the explicit dependencies.
func (r *CfnResource) DependsOn() []*CfnResource {
	return r.dependsOn
}

// SetCondition creates the resource only when c is true.
func (r *CfnResource) SetCondition(c *CfnCondition) {
	r.condition = c
}

// SetDeletionPolicy sets the DeletionPolicy attribute.
func (r *CfnResource) SetDeletionPolicy(p string) {
	r.deletionPolicy = p
}

// SetUpdateReplacePolicy sets the UpdateReplacePolicy attribute.
func (r *CfnResource) SetUpdateReplacePolicy(p string) {
	r.updateReplacePolicy = p
}

// ApplyRemovalPolicy sets both DeletionPolicy and UpdateReplacePolicy.
func (r *CfnResource) ApplyRemovalPolicy(p string) {
	r.deletionPolicy = p
	r.updateReplacePolicy = p
}

// AddMetadata adds a resource metadata entry.
func (r *CfnResource) AddMetadata(key string, value any) {
	r.node.SetMetadata(key, value)
}

// AddOverride sets a value in the rendered resource at a dot-separated path,
// e.g. "Properties.ResourcesVpcConfig.EndpointPrivateAccess". Literal dots
// are escaped with a backslash.
func (r *CfnResource) AddOverride(path string, value any) {
	r.overrides = append(r.overrides, override{path: splitOverridePath(path), value: value})
}

// AddPropertyOverride is AddOverride below "Properties".
func (r *CfnResource) AddPropertyOverride(path string, value any) {
	r.AddOverride("Properties."+path, value)
}

// AddDeletionOverride removes the value at path.
func (r *CfnResource) AddDeletionOverride(path string) {
	r.overrides = append(r.overrides, override{path: splitOverridePath(path), del: true})
}

func splitOverridePath(path string) []string {
	var parts []string
	var cur strings.Builder
	for i := 0; i < len(path); i++ {
		switch {
		case path[i] == '\\' && i+1 < len(path) && path[i+1] == '.':
			cur.WriteByte('.')
			i++
		case path[i] == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(path[i])
		}
	}
	return append(parts, cur.String())
}

// render produces the template entry for the resource.
func (r *CfnResource) render(extraDeps []string) (wetwire.ResourceDef, error) {
	props, err := serialize.Resource(r.resource)
	if err != nil {
		return wetwire.ResourceDef{}, fmt.Errorf("%s: %w", r.node.Path(), err)
	}
	resolved, err := Resolve(props)
	if err != nil {
		return wetwire.ResourceDef{}, fmt.Errorf("%s: %w", r.node.Path(), err)
	}

	out := map[string]any{"Type": r.Type()}
	if m, ok := resolved.(map[string]any); ok && len(m) > 0 {
		out["Properties"] = m
	}

	deps := append([]string{}, extraDeps...)
	for _, d := range r.dependsOn {
		if d.stack == r.stack {
			deps = append(deps, d.logicalID)
		}
	}
	if sorted := wetwire.DependsOn(deps).Sorted(); len(sorted) > 0 {
		out["DependsOn"] = []string(sorted)
	}
	if r.condition != nil {
		out["Condition"] = r.condition.LogicalID()
	}
	if r.deletionPolicy != "" {
		out["DeletionPolicy"] = r.deletionPolicy
	}
	if r.updateReplacePolicy != "" {
		out["UpdateReplacePolicy"] = r.updateReplacePolicy
	}

	metadata := map[string]any{MetadataPath: r.node.Path()}
	for k, v := range r.node.metadata {
		metadata[k] = v
	}
	resolvedMeta, err := Resolve(metadata)
	if err != nil {
		return wetwire.ResourceDef{}, fmt.Errorf("%s: metadata: %w", r.node.Path(), err)
	}
	out["Metadata"] = resolvedMeta

	for _, o := range r.overrides {
		if err := applyOverride(out, o); err != nil {
			return wetwire.ResourceDef{}, fmt.Errorf("%s: %w", r.node.Path(), err)
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return wetwire.ResourceDef{}, err
	}
	var def wetwire.ResourceDef
	if err := json.Unmarshal(data, &def); err != nil {
		return wetwire.ResourceDef{}, fmt.Errorf("%s: invalid override: %w", r.node.Path(), err)
	}
	return def, nil
}

func applyOverride(target map[string]any, o override) error {
	var value any
	if !o.del {
		var err error
		value, err = Resolve(o.value)
		if err != nil {
			return fmt.Errorf("override %s: %w", strings.Join(o.path, "."), err)
		}
	}

	cur := target
	for i, key := range o.path {
		if i == len(o.path)-1 {
			if o.del {
				delete(cur, key)
			} else {
				cur[key] = value
			}
			return nil
		}
		next, ok := cur[key].(map[string]any)
		if !ok {
			if o.del {
				return nil
			}
			next = make(map[string]any)
			cur[key] = next
		}
		cur = next
	}
	return nil
}

// sortedResourceIDs returns the logical IDs of rs, sorted.
func sortedResourceIDs(rs map[*CfnResource]bool) []string {
	ids := make([]string, 0, len(rs))
	for r := range rs {
		ids = append(ids, r.logicalID)
	}
	sort.Strings(ids)
	return ids
}
