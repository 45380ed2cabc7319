package appsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lex00/wetwire-cdk-go/core"
)

func TestCreateResolver_Unit(t *testing.T) {
	stack := newStack(t)
	api := newTestApi(t, stack, GraphqlApiProps{})
	ds, err := api.AddLambdaDataSource("Handler", LambdaDataSourceProps{
		FunctionArn: "arn:aws:lambda:us-east-1:123456789012:function:orders",
	})
	require.NoError(t, err)

	r, err := ds.CreateResolver("GetOrder", BaseResolverProps{
		TypeName:                "Query",
		FieldName:               "getOrder",
		RequestMappingTemplate:  LambdaRequest(""),
		ResponseMappingTemplate: LambdaResult(),
		CachingConfig: &CachingConfig{
			Ttl:         core.Minutes(1),
			CachingKeys: []string{"$context.arguments.id"},
		},
		MaxBatchSize: 10,
	})
	require.NoError(t, err)
	assert.True(t, core.IsUnresolved(r.Arn()))

	def := synth(t, stack).Resources[r.Resource().LogicalID()]
	assert.Equal(t, "AWS::AppSync::Resolver", def.Type)
	assert.Equal(t, "UNIT", def.Properties["Kind"])
	assert.Equal(t, "Handler", def.Properties["DataSourceName"])
	assert.Equal(t, LambdaRequest("").RenderTemplate(), def.Properties["RequestMappingTemplate"])
	assert.Equal(t, "$util.toJson($ctx.result)", def.Properties["ResponseMappingTemplate"])
	assert.Equal(t, float64(10), def.Properties["MaxBatchSize"])
	assert.Equal(t, map[string]any{
		"Ttl":         float64(60),
		"CachingKeys": []any{"$context.arguments.id"},
	}, def.Properties["CachingConfig"])
	assert.Contains(t, []string(def.DependsOn), api.SchemaResource().LogicalID())
	assert.Contains(t, []string(def.DependsOn), ds.Resource().LogicalID())
}

func TestCreateResolver_Pipeline(t *testing.T) {
	stack := newStack(t)
	api := newTestApi(t, stack, GraphqlApiProps{})
	ds, err := api.AddNoneDataSource("Local", DataSourceOptions{})
	require.NoError(t, err)

	validate, err := ds.CreateFunction("validate_order", BaseFunctionProps{
		RequestMappingTemplate:  MappingTemplateFromString(`{"version": "2018-05-29", "payload": $util.toJson($ctx.args)}`),
		ResponseMappingTemplate: MappingTemplateFromString("$util.toJson($ctx.result)"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ValidateOrder", validate.Name())

	enrich, err := ds.CreateFunction("Enrich", BaseFunctionProps{
		Code: CodeFromInline("export function request(ctx) { return {} }\nexport function response(ctx) { return ctx.prev.result }"),
	})
	require.NoError(t, err)

	r, err := api.CreateResolver("PutOrder", BaseResolverProps{
		TypeName:       "Mutation",
		FieldName:      "putOrder",
		PipelineConfig: []*AppsyncFunction{validate, enrich},
		Code:           CodeFromInline("export function request(ctx) { return {} }\nexport function response(ctx) { return ctx.prev.result }"),
	})
	require.NoError(t, err)

	tmpl := synth(t, stack)
	def := tmpl.Resources[r.Resource().LogicalID()]
	assert.Equal(t, "PIPELINE", def.Properties["Kind"])
	assert.NotContains(t, def.Properties, "DataSourceName")
	assert.Equal(t, map[string]any{"Functions": []any{
		getAtt(validate.Resource().LogicalID(), "FunctionId"),
		getAtt(enrich.Resource().LogicalID(), "FunctionId"),
	}}, def.Properties["PipelineConfig"])
	assert.Equal(t, map[string]any{"Name": "APPSYNC_JS", "RuntimeVersion": "1.0.0"}, def.Properties["Runtime"])

	vtl := tmpl.Resources[validate.Resource().LogicalID()]
	assert.Equal(t, "AWS::AppSync::FunctionConfiguration", vtl.Type)
	assert.Equal(t, "ValidateOrder", vtl.Properties["Name"])
	assert.Equal(t, "2018-05-29", vtl.Properties["FunctionVersion"])
	assert.Equal(t, getAtt(ds.Resource().LogicalID(), "Name"), vtl.Properties["DataSourceName"])
	assert.NotContains(t, vtl.Properties, "Runtime")

	js := tmpl.Resources[enrich.Resource().LogicalID()]
	assert.NotContains(t, js.Properties, "FunctionVersion")
	assert.NotContains(t, js.Properties, "RequestMappingTemplate")
	assert.Contains(t, js.Properties["Code"], "ctx.prev.result")
}

func TestResolverProps_Validate(t *testing.T) {
	stack := newStack(t)
	api := newTestApi(t, stack, GraphqlApiProps{})
	ds, err := api.AddNoneDataSource("Local", DataSourceOptions{})
	require.NoError(t, err)
	fn, err := ds.CreateFunction("Step", BaseFunctionProps{})
	require.NoError(t, err)

	base := BaseResolverProps{TypeName: "Query", FieldName: "getOrder"}
	with := func(mutate func(*ResolverProps)) ResolverProps {
		p := ResolverProps{BaseResolverProps: base, DataSource: ds}
		mutate(&p)
		return p
	}
	tests := []struct {
		name  string
		props ResolverProps
		want  string
	}{
		{"no type", with(func(p *ResolverProps) { p.TypeName = "" }), "TypeName is required"},
		{"no field", with(func(p *ResolverProps) { p.FieldName = "" }), "FieldName is required"},
		{"no backend", with(func(p *ResolverProps) { p.DataSource = nil }), "needs a DataSource or a PipelineConfig"},
		{"both", with(func(p *ResolverProps) { p.PipelineConfig = []*AppsyncFunction{fn} }), "cannot have a DataSource"},
		{"code and template", with(func(p *ResolverProps) {
			p.Code = CodeFromInline("x")
			p.RequestMappingTemplate = DynamoDbResultItem()
		}), "mutually exclusive"},
		{"batch size", with(func(p *ResolverProps) { p.MaxBatchSize = 2001 }), "MaxBatchSize"},
		{"ttl", with(func(p *ResolverProps) { p.CachingConfig = &CachingConfig{} }), "TTL must be between 1 and 3600"},
		{"ttl high", with(func(p *ResolverProps) { p.CachingConfig = &CachingConfig{Ttl: core.Hours(2)} }), "Received: 7200"},
		{"caching key", with(func(p *ResolverProps) {
			p.CachingConfig = &CachingConfig{Ttl: core.Seconds(30), CachingKeys: []string{"$ctx.args.id"}}
		}), "must begin with"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.props.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.NoError(t, with(func(*ResolverProps) {}).Validate())

	_, err = NewResolver(nil, "Orphan", with(func(*ResolverProps) {}))
	assert.Error(t, err)
	_, err = NewAppsyncFunction(api, "NoSource", AppsyncFunctionProps{})
	assert.Error(t, err)
	_, err = ds.CreateFunction("BadName", BaseFunctionProps{Name: "bad-name"})
	assert.Error(t, err)
}

func TestResolver_ForeignApi(t *testing.T) {
	stack := newStack(t)
	api := newTestApi(t, stack, GraphqlApiProps{})
	other, err := NewGraphqlApi(stack, "Other", GraphqlApiProps{Name: "other", Schema: SchemaFromString(testSchema)})
	require.NoError(t, err)

	ds, err := other.AddNoneDataSource("Local", DataSourceOptions{})
	require.NoError(t, err)
	fn, err := ds.CreateFunction("Step", BaseFunctionProps{})
	require.NoError(t, err)

	_, err = NewResolver(api, "Cross", ResolverProps{
		BaseResolverProps: BaseResolverProps{TypeName: "Query", FieldName: "getOrder"},
		DataSource:        ds,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to another API")

	_, err = api.CreateResolver("CrossPipeline", BaseResolverProps{
		TypeName:       "Query",
		FieldName:      "getOrder",
		PipelineConfig: []*AppsyncFunction{fn},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "belongs to another API")
}
