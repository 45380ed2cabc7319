// Package cloudformation provides the AWS::CloudFormation::CustomResource
// property bag, which also backs every Custom::* resource type.
package cloudformation

import (
	"strings"
)

// CustomResource is a custom resource backed by a Lambda provider.
// Type defaults to AWS::CloudFormation::CustomResource; set it to a
// Custom::<Name> type to give the resource a descriptive type.
type CustomResource struct {
	Type         string
	ServiceToken any `cfn:"required"`
	Properties   map[string]any
}

// ResourceType returns the CloudFormation resource type.
func (r CustomResource) ResourceType() string {
	if r.Type == "" {
		return "AWS::CloudFormation::CustomResource"
	}
	return r.Type
}

// CfnProperties flattens ServiceToken and the free-form properties into the
// resource's Properties block.
func (r CustomResource) CfnProperties() map[string]any {
	props := make(map[string]any, len(r.Properties)+1)
	for k, v := range r.Properties {
		if v != nil {
			props[k] = v
		}
	}
	props["ServiceToken"] = r.ServiceToken
	return props
}

// IsCustomType reports whether t is a valid custom resource type name.
func IsCustomType(t string) bool {
	if t == "AWS::CloudFormation::CustomResource" {
		return true
	}
	name, ok := strings.CutPrefix(t, "Custom::")
	if !ok || name == "" || len(name) > 60 {
		return false
	}
	for _, r := range name {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '_' || r == '@' || r == '-') {
			return false
		}
	}
	return true
}
