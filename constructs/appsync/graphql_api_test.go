package appsync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wetwire "github.com/lex00/wetwire-cdk-go"
	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

var now = time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)

const testSchema = `
type Order { id: ID! total: Float }
type Query { getOrder(id: ID!): Order listOrders: [Order] }
type Mutation { putOrder(id: ID!, total: Float): Order }
`

func newStack(t *testing.T) *core.Stack {
	t.Helper()
	t.Setenv(core.EnvOutdir, "")
	t.Setenv(core.EnvContext, "")
	app, err := core.NewApp(&core.AppProps{Now: func() time.Time { return now }})
	require.NoError(t, err)
	stack, err := core.NewStack(app, "Api", nil)
	require.NoError(t, err)
	return stack
}

func newTestApi(t *testing.T, stack *core.Stack, props GraphqlApiProps) *GraphqlApi {
	t.Helper()
	if props.Name == "" {
		props.Name = "orders"
	}
	if props.Schema == nil {
		props.Schema = SchemaFromString(testSchema)
	}
	api, err := NewGraphqlApi(stack, "Orders", props)
	require.NoError(t, err)
	return api
}

func synth(t *testing.T, stack *core.Stack) *wetwire.Template {
	t.Helper()
	tmpl, err := stack.Synthesize()
	require.NoError(t, err)
	return tmpl
}

func ofType(tmpl *wetwire.Template, typ string) map[string]wetwire.ResourceDef {
	out := map[string]wetwire.ResourceDef{}
	for id, def := range tmpl.Resources {
		if def.Type == typ {
			out[id] = def
		}
	}
	return out
}

func only(t *testing.T, tmpl *wetwire.Template, typ string) wetwire.ResourceDef {
	t.Helper()
	defs := ofType(tmpl, typ)
	require.Len(t, defs, 1, "resources of type %s", typ)
	for _, def := range defs {
		return def
	}
	return wetwire.ResourceDef{}
}

func getAtt(id, attr string) map[string]any {
	return map[string]any{"Fn::GetAtt": []any{id, attr}}
}

func TestNewGraphqlApi_Defaults(t *testing.T) {
	stack := newStack(t)
	api := newTestApi(t, stack, GraphqlApiProps{})

	tmpl := synth(t, stack)
	assert.Len(t, tmpl.Resources, 3)
	apiID := api.Resource().LogicalID()

	def := tmpl.Resources[apiID]
	assert.Equal(t, "AWS::AppSync::GraphQLApi", def.Type)
	assert.Equal(t, "orders", def.Properties["Name"])
	assert.Equal(t, "API_KEY", def.Properties["AuthenticationType"])
	assert.NotContains(t, def.Properties, "LogConfig")

	schema := tmpl.Resources[api.SchemaResource().LogicalID()]
	assert.Equal(t, testSchema, schema.Properties["Definition"])
	assert.Equal(t, getAtt(apiID, "ApiId"), schema.Properties["ApiId"])

	key := only(t, tmpl, "AWS::AppSync::ApiKey")
	want := now.Add(7 * 24 * time.Hour).Truncate(time.Hour).Unix()
	assert.Equal(t, float64(want), key.Properties["Expires"])
	assert.Contains(t, []string(key.DependsOn), api.SchemaResource().LogicalID())

	assert.True(t, core.IsUnresolved(api.ApiKey()))
	assert.True(t, core.IsUnresolved(api.GraphqlURL()))
	assert.True(t, api.HasMode(AuthApiKey))
	assert.False(t, api.HasMode(AuthIAM))
}

func TestGraphqlApiProps_Validate(t *testing.T) {
	schema := SchemaFromString(testSchema)
	lambdaMode := AuthorizationMode{Type: AuthLambda, LambdaAuthorizerConfig: &LambdaAuthorizerConfig{FunctionArn: "arn:aws:lambda:us-east-1:123456789012:function:auth"}}
	tests := []struct {
		name  string
		props GraphqlApiProps
		want  string
	}{
		{"no name", GraphqlApiProps{Schema: schema}, "Name is required"},
		{"no schema", GraphqlApiProps{Name: "a"}, "Schema is required"},
		{"blank schema", GraphqlApiProps{Name: "a", Schema: SchemaFromString("  \n")}, "Schema is required"},
		{"two api keys", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			AdditionalAuthorizationModes: []AuthorizationMode{{Type: AuthApiKey}},
		}}, "duplicate API_KEY"},
		{"two iam", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization:         &AuthorizationMode{Type: AuthIAM},
			AdditionalAuthorizationModes: []AuthorizationMode{{Type: AuthIAM}},
		}}, "duplicate IAM"},
		{"two lambdas", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization:         &lambdaMode,
			AdditionalAuthorizationModes: []AuthorizationMode{lambdaMode},
		}}, "single AWS Lambda function"},
		{"user pool without config", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{Type: AuthUserPool},
		}}, "UserPoolConfig.UserPoolID"},
		{"additional user pool default action", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			AdditionalAuthorizationModes: []AuthorizationMode{{Type: AuthUserPool, UserPoolConfig: &UserPoolConfig{UserPoolID: "pool", DefaultAction: UserPoolDeny}}},
		}}, "DefaultAction is only allowed"},
		{"oidc without config", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{Type: AuthOIDC},
		}}, "OpenIdConnectConfig.OidcProvider"},
		{"lambda without config", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{Type: AuthLambda},
		}}, "LambdaAuthorizerConfig.FunctionArn"},
		{"key expires too soon", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{Type: AuthApiKey, ApiKeyConfig: &ApiKeyConfig{Expires: now.Add(time.Hour)}},
		}}, "between 1 and 365 days"},
		{"key expires too late", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{Type: AuthApiKey, ApiKeyConfig: &ApiKeyConfig{Expires: now.AddDate(1, 1, 0)}},
		}}, "between 1 and 365 days"},
		{"unknown mode", GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{Type: "BASIC"},
		}}, `unknown authorization type "BASIC"`},
		{"visibility", GraphqlApiProps{Name: "a", Schema: schema, Visibility: "INTERNAL"}, "Visibility"},
		{"depth", GraphqlApiProps{Name: "a", Schema: schema, QueryDepthLimit: 76}, "QueryDepthLimit"},
		{"log level", GraphqlApiProps{Name: "a", Schema: schema, LogConfig: &LogConfig{FieldLogLevel: "TRACE"}}, "FieldLogLevel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate(now)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	assert.NoError(t, GraphqlApiProps{Name: "a", Schema: schema, AuthorizationConfig: &AuthorizationConfig{
		DefaultAuthorization: &AuthorizationMode{Type: AuthApiKey, ApiKeyConfig: &ApiKeyConfig{Expires: now.AddDate(0, 0, 365)}},
	}}.Validate(now))
}

func TestNewGraphqlApi_AuthModes(t *testing.T) {
	stack := newStack(t)
	authorizer := "arn:aws:lambda:us-east-1:123456789012:function:auth"
	noCache := core.Seconds(0)
	api := newTestApi(t, stack, GraphqlApiProps{
		AuthorizationConfig: &AuthorizationConfig{
			DefaultAuthorization: &AuthorizationMode{
				Type:           AuthUserPool,
				UserPoolConfig: &UserPoolConfig{UserPoolID: "us-east-1_abc"},
			},
			AdditionalAuthorizationModes: []AuthorizationMode{
				{Type: AuthIAM},
				{Type: AuthOIDC, OpenIdConnectConfig: &OpenIdConnectConfig{
					OidcProvider:        "https://issuer.example.com",
					TokenExpiryFromAuth: core.Hours(1),
				}},
				{Type: AuthLambda, LambdaAuthorizerConfig: &LambdaAuthorizerConfig{FunctionArn: authorizer, ResultsCacheTtl: &noCache}},
			},
		},
		XrayEnabled: true,
		Visibility:  VisibilityPrivate,
	})
	assert.Empty(t, api.ApiKey())
	assert.Nil(t, api.ApiKeyResource())

	tmpl := synth(t, stack)
	assert.Empty(t, ofType(tmpl, "AWS::AppSync::ApiKey"))

	def := tmpl.Resources[api.Resource().LogicalID()]
	assert.Equal(t, "AMAZON_COGNITO_USER_POOLS", def.Properties["AuthenticationType"])
	assert.Equal(t, true, def.Properties["XrayEnabled"])
	assert.Equal(t, "PRIVATE", def.Properties["Visibility"])
	assert.Equal(t, map[string]any{
		"UserPoolId":    "us-east-1_abc",
		"AwsRegion":     map[string]any{"Ref": "AWS::Region"},
		"DefaultAction": "ALLOW",
	}, def.Properties["UserPoolConfig"])

	additional := def.Properties["AdditionalAuthenticationProviders"].([]any)
	require.Len(t, additional, 3)
	assert.Equal(t, map[string]any{"AuthenticationType": "AWS_IAM"}, additional[0])
	assert.Equal(t, map[string]any{
		"AuthenticationType":  "OPENID_CONNECT",
		"OpenIDConnectConfig": map[string]any{"Issuer": "https://issuer.example.com", "AuthTTL": float64(3600000)},
	}, additional[1])
	assert.Equal(t, map[string]any{
		"AuthenticationType": "AWS_LAMBDA",
		"LambdaAuthorizerConfig": map[string]any{
			"AuthorizerUri":                authorizer,
			"AuthorizerResultTtlInSeconds": float64(0),
		},
	}, additional[2])

	perm := only(t, tmpl, "AWS::Lambda::Permission")
	assert.Equal(t, authorizer, perm.Properties["FunctionName"])
	assert.Equal(t, "appsync.amazonaws.com", perm.Properties["Principal"])
	assert.Equal(t, getAtt(api.Resource().LogicalID(), "Arn"), perm.Properties["SourceArn"])
}

func TestNewGraphqlApi_LogConfig(t *testing.T) {
	stack := newStack(t)
	api := newTestApi(t, stack, GraphqlApiProps{LogConfig: &LogConfig{FieldLogLevel: FieldLogAll}})
	role, ok := api.LogRole().(*iam.Role)
	require.True(t, ok)

	tmpl := synth(t, stack)
	logConfig := tmpl.Resources[api.Resource().LogicalID()].Properties["LogConfig"].(map[string]any)
	assert.Equal(t, "ALL", logConfig["FieldLogLevel"])
	assert.Equal(t, false, logConfig["ExcludeVerboseContent"])
	assert.Equal(t, getAtt(role.Resource().LogicalID(), "Arn"), logConfig["CloudWatchLogsRoleArn"])

	roleDef := tmpl.Resources[role.Resource().LogicalID()]
	assert.Len(t, roleDef.Properties["ManagedPolicyArns"], 1)

	imported := iam.FromRoleArn("arn:aws:iam::123456789012:role/logs")
	other, err := NewGraphqlApi(stack, "Other", GraphqlApiProps{
		Name:      "other",
		Schema:    SchemaFromString(testSchema),
		LogConfig: &LogConfig{Role: imported},
	})
	require.NoError(t, err)
	assert.Same(t, imported, other.LogRole())
}

func TestGraphqlApi_Grant(t *testing.T) {
	stack := newStack(t)
	role, err := iam.NewRole(stack, "Client", iam.RoleProps{AssumedBy: intrinsics.ServicePrincipal{"lambda.amazonaws.com"}})
	require.NoError(t, err)

	keyOnly := newTestApi(t, stack, GraphqlApiProps{})
	assert.Error(t, keyOnly.GrantQuery(role, "getOrder"))

	api, err := NewGraphqlApi(stack, "Internal", GraphqlApiProps{
		Name:                "internal",
		Schema:              SchemaFromString(testSchema),
		AuthorizationConfig: &AuthorizationConfig{DefaultAuthorization: &AuthorizationMode{Type: AuthIAM}},
	})
	require.NoError(t, err)
	require.NoError(t, api.GrantQuery(role, "getOrder", "listOrders"))
	require.NoError(t, api.GrantMutation(role))

	tmpl := synth(t, stack)
	policy := only(t, tmpl, "AWS::IAM::Policy")
	statements := policy.Properties["PolicyDocument"].(map[string]any)["Statement"].([]any)
	require.Len(t, statements, 2)

	arn := getAtt(api.Resource().LogicalID(), "Arn")
	query := statements[0].(map[string]any)
	assert.Equal(t, "appsync:GraphQL", query["Action"])
	assert.Equal(t, []any{
		map[string]any{"Fn::Join": []any{"", []any{arn, "/types/Query/fields/getOrder"}}},
		map[string]any{"Fn::Join": []any{"", []any{arn, "/types/Query/fields/listOrders"}}},
	}, query["Resource"])
	mutation := statements[1].(map[string]any)
	assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{arn, "/types/Mutation/*"}}}, mutation["Resource"])
}
