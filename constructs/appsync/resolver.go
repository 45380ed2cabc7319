package appsync

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iancoleman/strcase"
	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
	appsyncres "github.com/lex00/wetwire-cdk-go/resources/appsync"
)

const (
	runtimeJS        = "APPSYNC_JS"
	runtimeJSVersion = "1.0.0"
	functionVersion  = "2018-05-29"
	maxBatchSize     = 2000
)

var cachingKeyPrefixes = []string{"$context.arguments", "$context.source", "$context.identity"}

// CachingConfig enables per-resolver caching. The API needs a cache with
// PER_RESOLVER_CACHING behavior.
type CachingConfig struct {
	Ttl         core.Duration
	CachingKeys []string
}

func (c *CachingConfig) validate() error {
	if c == nil {
		return nil
	}
	var err error
	if s := c.Ttl.Seconds(); s < 1 || s > 3600 {
		err = multierr.Append(err, fmt.Errorf("Caching config TTL must be between 1 and 3600 seconds. Received: %d", s))
	}
	for _, k := range c.CachingKeys {
		if !hasAnyPrefix(k, cachingKeyPrefixes) {
			err = multierr.Append(err, fmt.Errorf("caching key %q must begin with one of %s", k, strings.Join(cachingKeyPrefixes, ", ")))
		}
	}
	return err
}

func (c *CachingConfig) render() *appsyncres.Resolver_CachingConfig {
	if c == nil {
		return nil
	}
	out := &appsyncres.Resolver_CachingConfig{Ttl: c.Ttl.Seconds()}
	for _, k := range c.CachingKeys {
		out.CachingKeys = append(out.CachingKeys, k)
	}
	return out
}

// BaseResolverProps are the resolver settings independent of where it is
// attached.
type BaseResolverProps struct {
	TypeName                string
	FieldName               string
	RequestMappingTemplate  *MappingTemplate
	ResponseMappingTemplate *MappingTemplate
	// Code selects the APPSYNC_JS runtime and excludes mapping templates.
	Code           *Code
	PipelineConfig []*AppsyncFunction
	CachingConfig  *CachingConfig
	MaxBatchSize   int
}

// ResolverProps configures a Resolver. A nil DataSource with a non-empty
// PipelineConfig creates a pipeline resolver.
type ResolverProps struct {
	BaseResolverProps
	DataSource *DataSource
}

// Validate checks the props.
func (p ResolverProps) Validate() error {
	var err error
	if p.TypeName == "" {
		err = multierr.Append(err, errors.New("TypeName is required"))
	}
	if p.FieldName == "" {
		err = multierr.Append(err, errors.New("FieldName is required"))
	}
	switch {
	case p.DataSource == nil && len(p.PipelineConfig) == 0:
		err = multierr.Append(err, errors.New("a resolver needs a DataSource or a PipelineConfig"))
	case p.DataSource != nil && len(p.PipelineConfig) > 0:
		err = multierr.Append(err, errors.New("pipeline resolvers cannot have a DataSource"))
	}
	if p.Code != nil && (p.RequestMappingTemplate != nil || p.ResponseMappingTemplate != nil) {
		err = multierr.Append(err, errors.New("Code and mapping templates are mutually exclusive"))
	}
	if p.MaxBatchSize < 0 || p.MaxBatchSize > maxBatchSize {
		err = multierr.Append(err, fmt.Errorf("MaxBatchSize must be between 0 and %d, got %d", maxBatchSize, p.MaxBatchSize))
	}
	for i, fn := range p.PipelineConfig {
		if fn == nil {
			err = multierr.Append(err, fmt.Errorf("PipelineConfig[%d] is nil", i))
		}
	}
	if e := p.CachingConfig.validate(); e != nil {
		err = multierr.Append(err, e)
	}
	return err
}

// Resolver connects a schema field to a data source or a pipeline of
// functions.
type Resolver struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *appsyncres.Resolver
}

// NewResolver creates a resolver on api.
func NewResolver(api *GraphqlApi, id string, props ResolverProps) (*Resolver, error) {
	if api == nil {
		return nil, fmt.Errorf("resolver %s: api is required", id)
	}
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("resolver %s: %w", id, err)
	}
	if props.DataSource != nil && props.DataSource.api != api {
		return nil, fmt.Errorf("resolver %s: data source %s belongs to another API", id, props.DataSource.name)
	}
	for _, fn := range props.PipelineConfig {
		if fn.api != api {
			return nil, fmt.Errorf("resolver %s: function %s belongs to another API", id, fn.name)
		}
	}
	node, err := core.NewNode(api.node, id)
	if err != nil {
		return nil, err
	}

	cfn := &appsyncres.Resolver{
		ApiId:         api.cfn.ApiId,
		TypeName:      props.TypeName,
		FieldName:     props.FieldName,
		Kind:          "UNIT",
		CachingConfig: props.CachingConfig.render(),
	}
	if props.DataSource != nil {
		cfn.DataSourceName = props.DataSource.name
	} else {
		cfn.Kind = "PIPELINE"
		cfg := &appsyncres.Resolver_PipelineConfig{}
		for _, fn := range props.PipelineConfig {
			cfg.Functions = append(cfg.Functions, fn.cfn.FunctionId)
		}
		cfn.PipelineConfig = cfg
	}
	applyTemplates(props.RequestMappingTemplate, props.ResponseMappingTemplate, props.Code,
		&cfn.RequestMappingTemplate, &cfn.ResponseMappingTemplate, &cfn.Code, &cfn.Runtime)
	if props.MaxBatchSize > 0 {
		cfn.MaxBatchSize = props.MaxBatchSize
	}

	r := &Resolver{node: node, cfn: cfn}
	if r.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	r.resource.AddDependsOn(api.schema)
	if props.DataSource != nil {
		r.resource.AddDependsOn(props.DataSource.resource)
	}
	return r, nil
}

// CreateResolver attaches a pipeline resolver to the API.
func (a *GraphqlApi) CreateResolver(id string, props BaseResolverProps) (*Resolver, error) {
	return NewResolver(a, id, ResolverProps{BaseResolverProps: props})
}

// Node returns the construct node.
func (r *Resolver) Node() *core.Node { return r.node }

// Resource returns the AWS::AppSync::Resolver resource.
func (r *Resolver) Resource() *core.CfnResource { return r.resource }

// Arn returns the resolver ARN as a string token.
func (r *Resolver) Arn() string { return core.AsString(r.cfn.ResolverArn) }

// BaseFunctionProps are the pipeline function settings independent of
// the data source.
type BaseFunctionProps struct {
	// Name defaults to the construct id in CamelCase.
	Name                    string
	Description             string
	RequestMappingTemplate  *MappingTemplate
	ResponseMappingTemplate *MappingTemplate
	Code                    *Code
	MaxBatchSize            int
}

// AppsyncFunctionProps configures an AppsyncFunction.
type AppsyncFunctionProps struct {
	BaseFunctionProps
	DataSource *DataSource
}

// Validate checks the props.
func (p AppsyncFunctionProps) Validate() error {
	var err error
	if p.DataSource == nil {
		err = multierr.Append(err, errors.New("DataSource is required"))
	}
	if p.Name != "" {
		if e := validateName("function", p.Name); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if p.Code != nil && (p.RequestMappingTemplate != nil || p.ResponseMappingTemplate != nil) {
		err = multierr.Append(err, errors.New("Code and mapping templates are mutually exclusive"))
	}
	if p.MaxBatchSize < 0 || p.MaxBatchSize > maxBatchSize {
		err = multierr.Append(err, fmt.Errorf("MaxBatchSize must be between 0 and %d, got %d", maxBatchSize, p.MaxBatchSize))
	}
	return err
}

// AppsyncFunction is a reusable step of a pipeline resolver.
type AppsyncFunction struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *appsyncres.FunctionConfiguration
	api      *GraphqlApi
	name     string
}

// NewAppsyncFunction creates a pipeline function on api.
func NewAppsyncFunction(api *GraphqlApi, id string, props AppsyncFunctionProps) (*AppsyncFunction, error) {
	if api == nil {
		return nil, fmt.Errorf("function %s: api is required", id)
	}
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("function %s: %w", id, err)
	}
	if props.DataSource.api != api {
		return nil, fmt.Errorf("function %s: data source %s belongs to another API", id, props.DataSource.name)
	}
	name := props.Name
	if name == "" {
		name = strcase.ToCamel(id)
		if err := validateName("function", name); err != nil {
			return nil, err
		}
	}
	node, err := core.NewNode(api.node, id)
	if err != nil {
		return nil, err
	}
	cfn := &appsyncres.FunctionConfiguration{
		ApiId:          api.cfn.ApiId,
		Name:           name,
		DataSourceName: props.DataSource.cfn.Name_,
	}
	if props.Description != "" {
		cfn.Description = props.Description
	}
	if props.Code == nil {
		cfn.FunctionVersion = functionVersion
	}
	applyTemplates(props.RequestMappingTemplate, props.ResponseMappingTemplate, props.Code,
		&cfn.RequestMappingTemplate, &cfn.ResponseMappingTemplate, &cfn.Code, &cfn.Runtime)
	if props.MaxBatchSize > 0 {
		cfn.MaxBatchSize = props.MaxBatchSize
	}

	fn := &AppsyncFunction{node: node, cfn: cfn, api: api, name: name}
	if fn.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	fn.resource.AddDependsOn(api.schema)
	return fn, nil
}

// Node returns the construct node.
func (f *AppsyncFunction) Node() *core.Node { return f.node }

// Resource returns the AWS::AppSync::FunctionConfiguration resource.
func (f *AppsyncFunction) Resource() *core.CfnResource { return f.resource }

// Name returns the function name.
func (f *AppsyncFunction) Name() string { return f.name }

// FunctionID returns the function id as a string token.
func (f *AppsyncFunction) FunctionID() string { return core.AsString(f.cfn.FunctionId) }

// FunctionArn returns the function ARN as a string token.
func (f *AppsyncFunction) FunctionArn() string { return core.AsString(f.cfn.FunctionArn) }

func applyTemplates(req, resp *MappingTemplate, code *Code, reqOut, respOut, codeOut *any, runtime **appsyncres.Resolver_AppSyncRuntime) {
	if code != nil {
		*codeOut = code.Source()
		*runtime = &appsyncres.Resolver_AppSyncRuntime{Name: runtimeJS, RuntimeVersion: runtimeJSVersion}
		return
	}
	if req != nil {
		*reqOut = req.RenderTemplate()
	}
	if resp != nil {
		*respOut = resp.RenderTemplate()
	}
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
