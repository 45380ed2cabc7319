// Package appsync provides constructs for AWS AppSync GraphQL APIs: the API
// with its schema and keys, data sources, resolvers, pipeline functions,
// caching and custom domains.
package appsync

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	appsyncres "github.com/lex00/wetwire-cdk-go/resources/appsync"
	lambdares "github.com/lex00/wetwire-cdk-go/resources/lambda"
)

// FieldLogLevel controls which resolver fields are logged.
type FieldLogLevel string

const (
	FieldLogNone  FieldLogLevel = "NONE"
	FieldLogError FieldLogLevel = "ERROR"
	FieldLogInfo  FieldLogLevel = "INFO"
	FieldLogDebug FieldLogLevel = "DEBUG"
	FieldLogAll   FieldLogLevel = "ALL"
)

// Visibility controls whether the endpoint is reachable from the internet.
type Visibility string

const (
	VisibilityGlobal  Visibility = "GLOBAL"
	VisibilityPrivate Visibility = "PRIVATE"
)

const appsyncPrincipal = "appsync.amazonaws.com"

// LogConfig enables CloudWatch logging for an API.
type LogConfig struct {
	ExcludeVerboseContent bool
	// FieldLogLevel defaults to NONE.
	FieldLogLevel FieldLogLevel
	// Role is assumed by AppSync to write logs. Defaults to a new role with
	// AWSAppSyncPushToCloudWatchLogs.
	Role iam.IRole
}

// GraphqlApiProps configures a GraphqlApi.
type GraphqlApiProps struct {
	Name                string
	Schema              *Schema
	AuthorizationConfig *AuthorizationConfig
	LogConfig           *LogConfig
	XrayEnabled         bool
	Visibility          Visibility
	// QueryDepthLimit is 0 (unlimited) to 75.
	QueryDepthLimit int
	Tags            map[string]string
}

// Validate checks the props against the time now, used for API key expiry.
func (p GraphqlApiProps) Validate(now time.Time) error {
	var err error
	if p.Name == "" {
		err = multierr.Append(err, errors.New("Name is required"))
	}
	if e := p.Schema.validate(); e != nil {
		err = multierr.Append(err, e)
	}
	if e := p.AuthorizationConfig.validate(now); e != nil {
		err = multierr.Append(err, e)
	}
	switch p.Visibility {
	case "", VisibilityGlobal, VisibilityPrivate:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown Visibility %q", p.Visibility))
	}
	if p.LogConfig != nil {
		switch p.LogConfig.FieldLogLevel {
		case "", FieldLogNone, FieldLogError, FieldLogInfo, FieldLogDebug, FieldLogAll:
		default:
			err = multierr.Append(err, fmt.Errorf("unknown FieldLogLevel %q", p.LogConfig.FieldLogLevel))
		}
	}
	if p.QueryDepthLimit < 0 || p.QueryDepthLimit > 75 {
		err = multierr.Append(err, fmt.Errorf("QueryDepthLimit must be between 0 and 75, got %d", p.QueryDepthLimit))
	}
	return err
}

// GraphqlApi is an AppSync GraphQL API with its schema.
type GraphqlApi struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *appsyncres.GraphQLApi
	schema   *core.CfnResource
	apiKey   *core.CfnResource
	keyCfn   *appsyncres.ApiKey
	logRole  iam.IRole
	cache    *ApiCache
	modes    []AuthorizationMode
}

// NewGraphqlApi creates an API, its schema and, when an API_KEY mode is
// configured, an API key.
func NewGraphqlApi(scope core.Construct, id string, props GraphqlApiProps) (*GraphqlApi, error) {
	if scope == nil || scope.Node() == nil {
		return nil, errors.New("no scope given")
	}
	now := time.Now()
	if app := scope.Node().App(); app != nil {
		now = app.Now()
	}
	if err := props.Validate(now); err != nil {
		return nil, fmt.Errorf("graphql api %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	stack, err := core.StackOf(node)
	if err != nil {
		return nil, err
	}

	api := &GraphqlApi{node: node, modes: props.AuthorizationConfig.modes()}
	def := api.modes[0]
	cfn := &appsyncres.GraphQLApi{
		Name:               props.Name,
		AuthenticationType: string(def.Type),
		Tags:               sortedTags(props.Tags),
	}
	switch def.Type {
	case AuthUserPool:
		cfn.UserPoolConfig = def.userPoolConfig(stack.Region(), true)
	case AuthOIDC:
		cfn.OpenIDConnectConfig = def.openIDConnectConfig()
	case AuthLambda:
		cfn.LambdaAuthorizerConfig = def.lambdaAuthorizerConfig()
	}
	for _, m := range api.modes[1:] {
		cfn.AdditionalAuthenticationProviders = append(cfn.AdditionalAuthenticationProviders, m.additionalProvider(stack.Region()))
	}
	if props.XrayEnabled {
		cfn.XrayEnabled = true
	}
	if props.Visibility != "" {
		cfn.Visibility = string(props.Visibility)
	}
	if props.QueryDepthLimit > 0 {
		cfn.QueryDepthLimit = props.QueryDepthLimit
	}
	if props.LogConfig != nil {
		if err := api.configureLogging(cfn, *props.LogConfig); err != nil {
			return nil, err
		}
	}
	api.cfn = cfn
	if api.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}

	if api.schema, err = core.NewCfnResource(node, "Schema", &appsyncres.GraphQLSchema{
		ApiId:      cfn.ApiId,
		Definition: props.Schema.Definition(),
	}); err != nil {
		return nil, err
	}

	for _, m := range api.modes {
		switch m.Type {
		case AuthApiKey:
			if err := api.createApiKey(m.ApiKeyConfig, now); err != nil {
				return nil, err
			}
		case AuthLambda:
			if _, err := core.NewCfnResource(node, "LambdaAuthorizerPermission", &lambdares.Permission{
				Action:       "lambda:InvokeFunction",
				FunctionName: m.LambdaAuthorizerConfig.FunctionArn,
				Principal:    appsyncPrincipal,
				SourceArn:    cfn.Arn,
			}); err != nil {
				return nil, err
			}
		}
	}
	return api, nil
}

func (a *GraphqlApi) configureLogging(cfn *appsyncres.GraphQLApi, cfg LogConfig) error {
	role := cfg.Role
	if role == nil {
		r, err := iam.NewRole(a.node, "ApiLogsRole", iam.RoleProps{
			AssumedBy:       intrinsics.ServicePrincipal{appsyncPrincipal},
			ManagedPolicies: []string{"service-role/AWSAppSyncPushToCloudWatchLogs"},
		})
		if err != nil {
			return err
		}
		role = r
	}
	a.logRole = role
	level := cfg.FieldLogLevel
	if level == "" {
		level = FieldLogNone
	}
	cfn.LogConfig = &appsyncres.GraphQLApi_LogConfig{
		CloudWatchLogsRoleArn: role.RoleArn(),
		FieldLogLevel:         string(level),
		ExcludeVerboseContent: cfg.ExcludeVerboseContent,
	}
	return nil
}

func (a *GraphqlApi) createApiKey(cfg *ApiKeyConfig, now time.Time) error {
	if cfg == nil {
		cfg = &ApiKeyConfig{}
	}
	expires := cfg.Expires
	if expires.IsZero() {
		expires = now.Add(defaultApiKeyExpiry)
	}
	id := "DefaultApiKey"
	if cfg.Name != "" {
		id = cfg.Name
	}
	key := &appsyncres.ApiKey{
		ApiId:   a.cfn.ApiId,
		Expires: expires.Truncate(time.Hour).Unix(),
	}
	if cfg.Description != "" {
		key.Description = cfg.Description
	}
	res, err := core.NewCfnResource(a.node, id, key)
	if err != nil {
		return err
	}
	res.AddDependsOn(a.schema)
	a.apiKey, a.keyCfn = res, key
	return nil
}

// Node returns the construct node.
func (a *GraphqlApi) Node() *core.Node { return a.node }

// Resource returns the AWS::AppSync::GraphQLApi resource.
func (a *GraphqlApi) Resource() *core.CfnResource { return a.resource }

// SchemaResource returns the AWS::AppSync::GraphQLSchema resource.
func (a *GraphqlApi) SchemaResource() *core.CfnResource { return a.schema }

// ApiKeyResource returns the API key resource, or nil when no API_KEY mode
// is configured.
func (a *GraphqlApi) ApiKeyResource() *core.CfnResource { return a.apiKey }

// ApiID returns the API id as a string token.
func (a *GraphqlApi) ApiID() string { return core.AsString(a.cfn.ApiId) }

// Arn returns the API ARN as a string token.
func (a *GraphqlApi) Arn() string { return core.AsString(a.cfn.Arn) }

// GraphqlURL returns the GraphQL endpoint URL as a string token.
func (a *GraphqlApi) GraphqlURL() string { return core.AsString(a.cfn.GraphQLUrl) }

// ApiKey returns the API key value as a string token, or "" when no API
// key exists.
func (a *GraphqlApi) ApiKey() string {
	if a.keyCfn == nil {
		return ""
	}
	return core.AsString(a.keyCfn.ApiKey_)
}

// LogRole returns the CloudWatch logging role, or nil.
func (a *GraphqlApi) LogRole() iam.IRole { return a.logRole }

// Modes returns the configured authorization modes, default first.
func (a *GraphqlApi) Modes() []AuthorizationMode { return a.modes }

// HasMode reports whether the API accepts the authorization type.
func (a *GraphqlApi) HasMode(t AuthorizationType) bool {
	for _, m := range a.modes {
		if m.Type == t {
			return true
		}
	}
	return false
}

// Grant allows a role to call appsync:GraphQL on fields of a type. With no
// fields the whole type is granted.
func (a *GraphqlApi) Grant(grantee iam.IRole, typeName string, fields ...string) error {
	if !a.HasMode(AuthIAM) {
		return errors.New("grants require an AWS_IAM authorization mode")
	}
	var resources []any
	if len(fields) == 0 {
		resources = append(resources, a.Arn()+"/types/"+typeName+"/*")
	}
	for _, f := range fields {
		resources = append(resources, a.Arn()+"/types/"+typeName+"/fields/"+f)
	}
	return grantee.AddToPrincipalPolicy(intrinsics.Allow([]string{"appsync:GraphQL"}, resources...))
}

// GrantQuery grants Query fields.
func (a *GraphqlApi) GrantQuery(grantee iam.IRole, fields ...string) error {
	return a.Grant(grantee, "Query", fields...)
}

// GrantMutation grants Mutation fields.
func (a *GraphqlApi) GrantMutation(grantee iam.IRole, fields ...string) error {
	return a.Grant(grantee, "Mutation", fields...)
}

// GrantSubscription grants Subscription fields.
func (a *GraphqlApi) GrantSubscription(grantee iam.IRole, fields ...string) error {
	return a.Grant(grantee, "Subscription", fields...)
}

var namePattern = regexp.MustCompile(`^[_A-Za-z][_0-9A-Za-z]*$`)

func validateName(kind, name string) error {
	if !namePattern.MatchString(name) {
		return fmt.Errorf("%s name %q must contain only alphanumeric characters and underscores", kind, name)
	}
	return nil
}

func sortedTags(tags map[string]string) []any {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, len(keys))
	for i, k := range keys {
		out[i] = intrinsics.Tag{Key: k, Value: tags[k]}
	}
	return out
}
