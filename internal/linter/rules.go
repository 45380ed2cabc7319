// Rules:
//
//	WCDK001: Use pseudo-parameter constants instead of hardcoded strings
//	WCDK002: Use intrinsic types instead of raw map[string]any
//	WCDK003: Construct errors must not be discarded
//	WCDK004: Construct IDs must be unique within a scope
//	WCDK005: Avoid hardcoded account IDs
//	WCDK006: Pin Helm chart versions
//	WCDK007: Avoid Kubernetes versions past standard support
//	WCDK008: Split files that declare too many constructs
package linter

import (
	"fmt"
	"go/ast"
	"go/token"
	"regexp"
	"strconv"
	"strings"
)

// Rule is the interface for lint rules.
type Rule interface {
	ID() string
	Description() string
	Check(file *ast.File, fset *token.FileSet) []Issue
}

// AllRules returns every rule with default settings.
func AllRules() []Rule {
	return []Rule{
		HardcodedPseudoParameter{},
		MapShouldBeIntrinsic{},
		IgnoredConstructError{},
		DuplicateConstructID{},
		HardcodedAccountID{},
		UnpinnedHelmChart{},
		UnsupportedKubernetesVersion{MinMinor: 29},
		FileTooLarge{MaxConstructs: 40},
	}
}

func issueAt(fset *token.FileSet, pos token.Pos, rule Rule, sev Severity, msg, suggestion string) Issue {
	p := fset.Position(pos)
	return Issue{
		Rule:       rule.ID(),
		Message:    msg,
		Suggestion: suggestion,
		File:       p.Filename,
		Line:       p.Line,
		Column:     p.Column,
		Severity:   sev,
	}
}

// stringLit returns the value of a string literal.
func stringLit(e ast.Expr) (string, bool) {
	lit, ok := e.(*ast.BasicLit)
	if !ok || lit.Kind != token.STRING {
		return "", false
	}
	s, err := strconv.Unquote(lit.Value)
	if err != nil {
		return "", false
	}
	return s, true
}

// callName returns the called function or method name.
func callName(call *ast.CallExpr) string {
	switch fn := call.Fun.(type) {
	case *ast.Ident:
		return fn.Name
	case *ast.SelectorExpr:
		return fn.Sel.Name
	}
	return ""
}

// exprString renders simple identifier chains such as cluster or
// platform.Cluster; other expressions render as "".
func exprString(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.SelectorExpr:
		if x := exprString(v.X); x != "" {
			return x + "." + v.Sel.Name
		}
	}
	return ""
}

// isConstructCall reports whether call looks like a construct constructor
// (eks.NewCluster, appsync.NewGraphqlApi) or a construct factory method
// (cluster.AddManifest, api.AddDynamoDbDataSource).
func isConstructCall(call *ast.CallExpr) bool {
	name := callName(call)
	return strings.HasPrefix(name, "New") || strings.HasPrefix(name, "Add") || strings.HasPrefix(name, "From")
}

// HardcodedPseudoParameter detects hardcoded AWS pseudo-parameter strings.
type HardcodedPseudoParameter struct{}

func (r HardcodedPseudoParameter) ID() string { return "WCDK001" }
func (r HardcodedPseudoParameter) Description() string {
	return "Use pseudo-parameter constants instead of hardcoded strings"
}

var pseudoParams = map[string]string{
	"AWS::Region":           "intrinsics.AWS_REGION",
	"AWS::AccountId":        "intrinsics.AWS_ACCOUNT_ID",
	"AWS::StackName":        "intrinsics.AWS_STACK_NAME",
	"AWS::StackId":          "intrinsics.AWS_STACK_ID",
	"AWS::Partition":        "intrinsics.AWS_PARTITION",
	"AWS::URLSuffix":        "intrinsics.AWS_URL_SUFFIX",
	"AWS::NoValue":          "intrinsics.AWS_NO_VALUE",
	"AWS::NotificationARNs": "intrinsics.AWS_NOTIFICATION_ARNS",
}

func (r HardcodedPseudoParameter) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		value, ok := stringLit(asExpr(n))
		if !ok {
			return true
		}
		if constant, found := pseudoParams[value]; found {
			issues = append(issues, issueAt(fset, n.Pos(), r, SeverityWarning,
				fmt.Sprintf("Use %s instead of %q", constant, value), constant))
		}
		return true
	})
	return issues
}

func asExpr(n ast.Node) ast.Expr {
	e, _ := n.(ast.Expr)
	return e
}

// MapShouldBeIntrinsic detects map[string]any literals that spell out an
// intrinsic function.
type MapShouldBeIntrinsic struct{}

func (r MapShouldBeIntrinsic) ID() string { return "WCDK002" }
func (r MapShouldBeIntrinsic) Description() string {
	return "Use intrinsic types instead of raw map[string]any"
}

var intrinsicKeys = map[string]string{
	"Ref":             "Ref",
	"Fn::Sub":         "Sub",
	"Fn::Join":        "Join",
	"Fn::Select":      "Select",
	"Fn::GetAZs":      "GetAZs",
	"Fn::GetAtt":      "GetAtt",
	"Fn::If":          "If",
	"Fn::Equals":      "Equals",
	"Fn::Base64":      "Base64",
	"Fn::Split":       "Split",
	"Fn::ImportValue": "ImportValue",
	"Fn::FindInMap":   "FindInMap",
	"Fn::Cidr":        "Cidr",
}

func (r MapShouldBeIntrinsic) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		comp, ok := n.(*ast.CompositeLit)
		if !ok || len(comp.Elts) != 1 {
			return true
		}
		if _, isMap := comp.Type.(*ast.MapType); !isMap {
			return true
		}
		kv, ok := comp.Elts[0].(*ast.KeyValueExpr)
		if !ok {
			return true
		}
		key, ok := stringLit(kv.Key)
		if !ok {
			return true
		}
		if name, found := intrinsicKeys[key]; found {
			issues = append(issues, issueAt(fset, comp.Pos(), r, SeverityWarning,
				fmt.Sprintf("Use intrinsics.%s instead of a map with key %q", name, key), "intrinsics."+name))
		}
		return true
	})
	return issues
}

// IgnoredConstructError detects construct calls whose error result is
// assigned to the blank identifier. A construct that failed validation
// leaves a half-built tree behind.
type IgnoredConstructError struct{}

func (r IgnoredConstructError) ID() string { return "WCDK003" }
func (r IgnoredConstructError) Description() string {
	return "Construct errors must not be discarded"
}

func (r IgnoredConstructError) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		assign, ok := n.(*ast.AssignStmt)
		if !ok || len(assign.Rhs) != 1 || len(assign.Lhs) < 2 {
			return true
		}
		call, ok := assign.Rhs[0].(*ast.CallExpr)
		if !ok || !isConstructCall(call) {
			return true
		}
		if last, ok := assign.Lhs[len(assign.Lhs)-1].(*ast.Ident); ok && last.Name == "_" {
			issues = append(issues, issueAt(fset, assign.Pos(), r, SeverityError,
				fmt.Sprintf("Error from %s is discarded", callName(call)),
				"Check the error and stop synthesis when it is non-nil."))
		}
		return true
	})
	return issues
}

// DuplicateConstructID detects two constructs created with the same ID in
// the same scope within one function.
type DuplicateConstructID struct{}

func (r DuplicateConstructID) ID() string { return "WCDK004" }
func (r DuplicateConstructID) Description() string {
	return "Construct IDs must be unique within a scope"
}

func (r DuplicateConstructID) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	for _, decl := range file.Decls {
		fn, ok := decl.(*ast.FuncDecl)
		if !ok || fn.Body == nil {
			continue
		}
		first := map[string]token.Position{}
		ast.Inspect(fn.Body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok || !isConstructCall(call) {
				return true
			}
			scope, id := constructScopeAndID(call)
			if scope == "" || id == "" {
				return true
			}
			key := scope + "/" + id
			if prev, dup := first[key]; dup {
				issues = append(issues, issueAt(fset, call.Pos(), r, SeverityError,
					fmt.Sprintf("Construct ID %q is already used in scope %s (line %d)", id, scope, prev.Line),
					"Give each construct in a scope a distinct ID."))
				return true
			}
			first[key] = fset.Position(call.Pos())
			return true
		})
	}
	return issues
}

// constructScopeAndID extracts the scope and ID of New*(scope, "id", ...)
// and scope.Add*("id", ...) calls.
func constructScopeAndID(call *ast.CallExpr) (string, string) {
	name := callName(call)
	if strings.HasPrefix(name, "New") && len(call.Args) >= 2 {
		id, _ := stringLit(call.Args[1])
		return exprString(call.Args[0]), id
	}
	if sel, ok := call.Fun.(*ast.SelectorExpr); ok && strings.HasPrefix(name, "Add") && len(call.Args) >= 1 {
		id, _ := stringLit(call.Args[0])
		return exprString(sel.X), id
	}
	return "", ""
}

// HardcodedAccountID detects 12-digit account IDs in string literals.
type HardcodedAccountID struct{}

func (r HardcodedAccountID) ID() string { return "WCDK005" }
func (r HardcodedAccountID) Description() string {
	return "Avoid hardcoded account IDs"
}

var accountPattern = regexp.MustCompile(`(^|:)(\d{12})(:|$)`)

func (r HardcodedAccountID) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		value, ok := stringLit(asExpr(n))
		if !ok {
			return true
		}
		if m := accountPattern.FindStringSubmatch(value); m != nil {
			issues = append(issues, issueAt(fset, n.Pos(), r, SeverityWarning,
				fmt.Sprintf("Account ID %s is hardcoded", m[2]),
				"Use stack.Account() or stack.FormatArn so the stack deploys to any account."))
		}
		return true
	})
	return issues
}

// UnpinnedHelmChart detects HelmChartProps literals that name a chart from
// a repository without a version.
type UnpinnedHelmChart struct{}

func (r UnpinnedHelmChart) ID() string { return "WCDK006" }
func (r UnpinnedHelmChart) Description() string {
	return "Pin Helm chart versions"
}

func (r UnpinnedHelmChart) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	ast.Inspect(file, func(n ast.Node) bool {
		comp, ok := n.(*ast.CompositeLit)
		if !ok || typeName(comp.Type) != "HelmChartProps" {
			return true
		}
		fields := map[string]bool{}
		for _, elt := range comp.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				if key, ok := kv.Key.(*ast.Ident); ok {
					fields[key.Name] = true
				}
			}
		}
		if fields["Chart"] && fields["Repository"] && !fields["Version"] {
			issues = append(issues, issueAt(fset, comp.Pos(), r, SeverityWarning,
				"Helm chart has no Version; each deployment installs the latest release",
				"Set Version to the chart release you tested."))
		}
		return true
	})
	return issues
}

func typeName(e ast.Expr) string {
	switch t := e.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.SelectorExpr:
		return t.Sel.Name
	}
	return ""
}

// UnsupportedKubernetesVersion detects Kubernetes versions older than
// MinMinor, written as eks.V1_NN or eks.KubernetesVersionOf("1.NN").
type UnsupportedKubernetesVersion struct {
	MinMinor int
}

func (r UnsupportedKubernetesVersion) ID() string { return "WCDK007" }
func (r UnsupportedKubernetesVersion) Description() string {
	return "Avoid Kubernetes versions past standard support"
}

var versionIdent = regexp.MustCompile(`^V1_(\d+)$`)

func (r UnsupportedKubernetesVersion) Check(file *ast.File, fset *token.FileSet) []Issue {
	var issues []Issue
	report := func(pos token.Pos, minor int) {
		issues = append(issues, issueAt(fset, pos, r, SeverityWarning,
			fmt.Sprintf("Kubernetes 1.%d is past EKS standard support", minor),
			fmt.Sprintf("Upgrade to 1.%d or later.", r.MinMinor)))
	}
	ast.Inspect(file, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.SelectorExpr:
			if m := versionIdent.FindStringSubmatch(v.Sel.Name); m != nil {
				if minor, _ := strconv.Atoi(m[1]); minor < r.MinMinor {
					report(v.Pos(), minor)
				}
			}
		case *ast.CallExpr:
			if callName(v) != "KubernetesVersionOf" || len(v.Args) != 1 {
				return true
			}
			s, ok := stringLit(v.Args[0])
			if !ok || !strings.HasPrefix(s, "1.") {
				return true
			}
			if minor, err := strconv.Atoi(strings.TrimPrefix(s, "1.")); err == nil && minor < r.MinMinor {
				report(v.Pos(), minor)
			}
		}
		return true
	})
	return issues
}

// FileTooLarge detects files that create too many constructs.
type FileTooLarge struct {
	MaxConstructs int
}

func (r FileTooLarge) ID() string { return "WCDK008" }
func (r FileTooLarge) Description() string {
	return "Split files that declare too many constructs"
}

func (r FileTooLarge) Check(file *ast.File, fset *token.FileSet) []Issue {
	count := 0
	ast.Inspect(file, func(n ast.Node) bool {
		if call, ok := n.(*ast.CallExpr); ok && strings.HasPrefix(callName(call), "New") {
			count++
		}
		return true
	})
	if count <= r.MaxConstructs {
		return nil
	}
	return []Issue{issueAt(fset, file.Package, r, SeverityInfo,
		fmt.Sprintf("File creates %d constructs (max %d)", count, r.MaxConstructs),
		"Group related constructs into their own construct or file.")}
}
