package advisor

import (
	"fmt"
	"strings"
)

var rulesByType = map[string][]Rule{
	"AWS::EKS::Cluster":            eksClusterRules,
	"AWS::EKS::Nodegroup":          nodegroupRules,
	"Custom::AWSCDK-EKS-HelmChart": helmChartRules,
	"AWS::AppSync::GraphQLApi":     graphqlApiRules,
	"AWS::AppSync::ApiCache":       apiCacheRules,
	"AWS::DynamoDB::Table":         tableRules,
	"AWS::IAM::Policy":             {iamWildcardRule("AWS::IAM::Policy")},
	"AWS::IAM::Role":               {iamWildcardRule("AWS::IAM::Role"), iamAdminRule},
}

var eksClusterRules = []Rule{
	{
		ID:       "EKS-001",
		Category: CategorySecurity,
		Severity: SeverityHigh,
		Type:     "AWS::EKS::Cluster",
		Title:    "Cluster API endpoint is open to the internet",
		Check: func(props map[string]any) (string, string, bool) {
			public, set := lookup(props, "ResourcesVpcConfig", "EndpointPublicAccess")
			if set && !isTrue(public) {
				return "", "", false
			}
			cidrs := asList(get(props, "ResourcesVpcConfig", "PublicAccessCidrs"))
			if len(cidrs) > 0 && !containsString(cidrs, "0.0.0.0/0") {
				return "", "", false
			}
			return "The Kubernetes API endpoint accepts connections from any address",
				"Use EndpointPublicAndPrivate.OnlyFrom(...) with your CIDR ranges, or EndpointPrivate.",
				true
		},
	},
	{
		ID:       "EKS-002",
		Category: CategorySecurity,
		Severity: SeverityMedium,
		Type:     "AWS::EKS::Cluster",
		Title:    "Kubernetes secrets are not envelope-encrypted",
		Check: func(props map[string]any) (string, string, bool) {
			if len(asList(props["EncryptionConfig"])) > 0 {
				return "", "", false
			}
			return "Kubernetes secrets are stored without KMS envelope encryption",
				"Set ClusterProps.SecretsEncryptionKeyArn to a KMS key ARN.",
				true
		},
	},
	{
		ID:       "EKS-003",
		Category: CategoryOperations,
		Severity: SeverityMedium,
		Type:     "AWS::EKS::Cluster",
		Title:    "Control plane logging is disabled",
		Check: func(props map[string]any) (string, string, bool) {
			enabled := asList(get(props, "Logging", "ClusterLogging", "EnabledTypes"))
			for _, t := range enabled {
				if asString(get(asMap(t), "Type")) == "audit" {
					return "", "", false
				}
			}
			if len(enabled) == 0 {
				return "No control plane log types are sent to CloudWatch",
					"Set ClusterProps.ClusterLogging to include at least ClusterLoggingApi and ClusterLoggingAudit.",
					true
			}
			return "Control plane audit logs are not sent to CloudWatch",
				"Add ClusterLoggingAudit to ClusterProps.ClusterLogging.",
				true
		},
	},
}

var nodegroupRules = []Rule{
	{
		ID:       "EKS-NG-001",
		Category: CategoryReliability,
		Severity: SeverityMedium,
		Type:     "AWS::EKS::Nodegroup",
		Title:    "Node group can shrink to a single node",
		Check: func(props map[string]any) (string, string, bool) {
			minSize, ok := number(get(props, "ScalingConfig", "MinSize"))
			if !ok {
				minSize = 1
			}
			if minSize >= 2 {
				return "", "", false
			}
			return fmt.Sprintf("Node group can scale down to %d node(s); one instance failure leaves no capacity", int(minSize)),
				"Set NodegroupProps.MinSize to at least 2.",
				true
		},
	},
	{
		ID:       "EKS-NG-002",
		Category: CategoryOperations,
		Severity: SeverityLow,
		Type:     "AWS::EKS::Nodegroup",
		Title:    "Node group uses an Amazon Linux 2 AMI",
		Check: func(props map[string]any) (string, string, bool) {
			ami := asString(props["AmiType"])
			if !strings.HasPrefix(ami, "AL2_") {
				return "", "", false
			}
			return fmt.Sprintf("AMI type %s is based on Amazon Linux 2, which is approaching end of support", ami),
				"Use the matching AL2023 AMI type.",
				true
		},
	},
	{
		ID:       "EKS-NG-003",
		Category: CategoryCost,
		Severity: SeverityLow,
		Type:     "AWS::EKS::Nodegroup",
		Title:    "Large on-demand node group",
		Check: func(props map[string]any) (string, string, bool) {
			if asString(props["CapacityType"]) == "SPOT" {
				return "", "", false
			}
			maxSize, ok := number(get(props, "ScalingConfig", "MaxSize"))
			if !ok || maxSize < 10 {
				return "", "", false
			}
			return fmt.Sprintf("On-demand node group scales to %d nodes", int(maxSize)),
				"Move interruptible workloads to a node group with CapacityType SPOT.",
				true
		},
	},
}

var helmChartRules = []Rule{
	{
		ID:       "EKS-HELM-001",
		Category: CategoryReliability,
		Severity: SeverityMedium,
		Type:     "Custom::AWSCDK-EKS-HelmChart",
		Title:    "Helm chart version is not pinned",
		Check: func(props map[string]any) (string, string, bool) {
			if asString(props["Chart"]) == "" || props["Version"] != nil {
				return "", "", false
			}
			return fmt.Sprintf("Chart %s is installed at whatever version the repository serves", asString(props["Chart"])),
				"Set HelmChartProps.Version.",
				true
		},
	},
	{
		ID:       "EKS-HELM-002",
		Category: CategoryOperations,
		Severity: SeverityLow,
		Type:     "Custom::AWSCDK-EKS-HelmChart",
		Title:    "Helm release is not awaited",
		Check: func(props map[string]any) (string, string, bool) {
			if isTrue(props["Wait"]) {
				return "", "", false
			}
			return "The stack reports success before the release's workloads are ready",
				"Set HelmChartProps.Wait to true.",
				true
		},
	},
}

var graphqlApiRules = []Rule{
	{
		ID:       "APPSYNC-001",
		Category: CategorySecurity,
		Severity: SeverityMedium,
		Type:     "AWS::AppSync::GraphQLApi",
		Title:    "API key is the default authorization mode",
		Check: func(props map[string]any) (string, string, bool) {
			if asString(props["AuthenticationType"]) != "API_KEY" {
				return "", "", false
			}
			return "Every request can authenticate with a long-lived shared API key",
				"Make AWS_IAM or AMAZON_COGNITO_USER_POOLS the default mode and keep API_KEY as an additional mode if clients need it.",
				true
		},
	},
	{
		ID:       "APPSYNC-002",
		Category: CategoryOperations,
		Severity: SeverityMedium,
		Type:     "AWS::AppSync::GraphQLApi",
		Title:    "Request logging is disabled",
		Check: func(props map[string]any) (string, string, bool) {
			if props["LogConfig"] != nil {
				return "", "", false
			}
			return "Resolver errors are not logged to CloudWatch",
				"Set GraphqlApiProps.LogConfig with FieldLogLevel ERROR.",
				true
		},
	},
	{
		ID:       "APPSYNC-003",
		Category: CategorySecurity,
		Severity: SeverityMedium,
		Type:     "AWS::AppSync::GraphQLApi",
		Title:    "Verbose field logging",
		Check: func(props map[string]any) (string, string, bool) {
			if asString(get(props, "LogConfig", "FieldLogLevel")) != "ALL" || isTrue(get(props, "LogConfig", "ExcludeVerboseContent")) {
				return "", "", false
			}
			return "Field logging at ALL writes request headers and resolver payloads to CloudWatch",
				"Set LogConfig.ExcludeVerboseContent or lower FieldLogLevel to ERROR.",
				true
		},
	},
	{
		ID:       "APPSYNC-004",
		Category: CategoryOperations,
		Severity: SeverityLow,
		Type:     "AWS::AppSync::GraphQLApi",
		Title:    "X-Ray tracing is disabled",
		Check: func(props map[string]any) (string, string, bool) {
			if isTrue(props["XrayEnabled"]) {
				return "", "", false
			}
			return "Resolver latency cannot be traced",
				"Set GraphqlApiProps.XrayEnabled.",
				true
		},
	},
	{
		ID:       "APPSYNC-005",
		Category: CategorySecurity,
		Severity: SeverityLow,
		Type:     "AWS::AppSync::GraphQLApi",
		Title:    "Query depth is unlimited",
		Check: func(props map[string]any) (string, string, bool) {
			if n, ok := number(props["QueryDepthLimit"]); ok && n > 0 {
				return "", "", false
			}
			return "Clients can send arbitrarily nested queries",
				"Set GraphqlApiProps.QueryDepthLimit.",
				true
		},
	},
}

var apiCacheRules = []Rule{
	{
		ID:       "APPSYNC-CACHE-001",
		Category: CategorySecurity,
		Severity: SeverityMedium,
		Type:     "AWS::AppSync::ApiCache",
		Title:    "API cache is not encrypted",
		Check: func(props map[string]any) (string, string, bool) {
			var missing []string
			if !isTrue(props["AtRestEncryptionEnabled"]) {
				missing = append(missing, "at rest")
			}
			if !isTrue(props["TransitEncryptionEnabled"]) {
				missing = append(missing, "in transit")
			}
			if len(missing) == 0 {
				return "", "", false
			}
			return "Cached responses are not encrypted " + strings.Join(missing, " or "),
				"Set CacheProps.AtRestEncryptionEnabled and CacheProps.TransitEncryptionEnabled.",
				true
		},
	},
}

var tableRules = []Rule{
	{
		ID:       "DDB-001",
		Category: CategoryReliability,
		Severity: SeverityMedium,
		Type:     "AWS::DynamoDB::Table",
		Title:    "Point-in-time recovery is disabled",
		Check: func(props map[string]any) (string, string, bool) {
			if isTrue(get(props, "PointInTimeRecoverySpecification", "PointInTimeRecoveryEnabled")) {
				return "", "", false
			}
			return "Table data cannot be restored to an earlier point in time",
				"Enable PointInTimeRecoverySpecification on the table.",
				true
		},
	},
}

func iamWildcardRule(resourceType string) Rule {
	return Rule{
		ID:       "IAM-001",
		Category: CategorySecurity,
		Severity: SeverityHigh,
		Type:     resourceType,
		Title:    "Policy grants every action on every resource",
		Check: func(props map[string]any) (string, string, bool) {
			var docs []any
			if resourceType == "AWS::IAM::Policy" {
				docs = append(docs, props["PolicyDocument"])
			} else {
				for _, p := range asList(props["Policies"]) {
					docs = append(docs, get(asMap(p), "PolicyDocument"))
				}
			}
			for _, doc := range docs {
				for _, s := range asList(get(asMap(doc), "Statement")) {
					stmt := asMap(s)
					if asString(stmt["Effect"]) != "Allow" {
						continue
					}
					if containsString(asList(stmt["Action"]), "*") && containsString(asList(stmt["Resource"]), "*") {
						return `A statement allows "*" on "*"`,
							"Grant the specific actions and resource ARNs the principal needs.",
							true
					}
				}
			}
			return "", "", false
		},
	}
}

var iamAdminRule = Rule{
	ID:       "IAM-002",
	Category: CategorySecurity,
	Severity: SeverityHigh,
	Type:     "AWS::IAM::Role",
	Title:    "Role has AdministratorAccess",
	Check: func(props map[string]any) (string, string, bool) {
		for _, arn := range asList(props["ManagedPolicyArns"]) {
			if strings.HasSuffix(strings.Join(literals(arn), ""), ":iam::aws:policy/AdministratorAccess") {
				return "The role has the AdministratorAccess managed policy attached",
					"Attach narrower managed policies or add statements with AddToPrincipalPolicy.",
					true
			}
		}
		return "", "", false
	},
}

// get follows a path of map keys and returns nil when any step is missing.
func get(v any, path ...string) any {
	out, _ := lookup(asMap(v), path...)
	return out
}

func lookup(m map[string]any, path ...string) (any, bool) {
	var cur any = m
	for _, key := range path {
		next, ok := asMap(cur)[key]
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// asList treats a scalar as a one-element list, matching how policy
// documents render single actions and resources.
func asList(v any) []any {
	switch val := v.(type) {
	case nil:
		return nil
	case []any:
		return val
	case []string:
		out := make([]any, len(val))
		for i, s := range val {
			out[i] = s
		}
		return out
	default:
		return []any{val}
	}
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func isTrue(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		return strings.EqualFold(val, "true")
	}
	return false
}

func number(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	}
	return 0, false
}

func containsString(list []any, want string) bool {
	for _, v := range list {
		if s, ok := v.(string); ok && s == want {
			return true
		}
	}
	return false
}

// literals returns the string leaves of a value in order, which recovers
// the literal parts of an Fn::Join.
func literals(v any) []string {
	switch val := v.(type) {
	case string:
		return []string{val}
	case []any:
		var out []string
		for _, e := range val {
			out = append(out, literals(e)...)
		}
		return out
	case map[string]any:
		if join, ok := val["Fn::Join"].([]any); ok && len(join) == 2 {
			return literals(join[1])
		}
	}
	return nil
}
