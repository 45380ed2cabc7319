package appsync

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
	appsyncres "github.com/lex00/wetwire-cdk-go/resources/appsync"
)

// CachingBehavior selects what the API cache stores.
type CachingBehavior string

const (
	FullRequestCaching CachingBehavior = "FULL_REQUEST_CACHING"
	PerResolverCaching CachingBehavior = "PER_RESOLVER_CACHING"
)

// CacheProps configures an ApiCache.
type CacheProps struct {
	ApiCachingBehavior CachingBehavior
	// Type is the cache instance type, for example SMALL or LARGE_2X.
	// Defaults to SMALL.
	Type                     string
	Ttl                      core.Duration
	AtRestEncryptionEnabled  bool
	TransitEncryptionEnabled bool
}

// Validate checks the props.
func (p CacheProps) Validate() error {
	var err error
	switch p.ApiCachingBehavior {
	case FullRequestCaching, PerResolverCaching:
	case "":
		err = multierr.Append(err, errors.New("ApiCachingBehavior is required"))
	default:
		err = multierr.Append(err, fmt.Errorf("unknown ApiCachingBehavior %q", p.ApiCachingBehavior))
	}
	if s := p.Ttl.Seconds(); s < 1 || s > 3600 {
		err = multierr.Append(err, fmt.Errorf("Caching config TTL must be between 1 and 3600 seconds. Received: %d", s))
	}
	return err
}

// ApiCache is the server-side cache of an API.
type ApiCache struct {
	node     *core.Node
	resource *core.CfnResource
}

// AddCache creates the API cache. An API has at most one.
func (a *GraphqlApi) AddCache(id string, props CacheProps) (*ApiCache, error) {
	if a.cache != nil {
		return nil, fmt.Errorf("cache %s: API already has cache %s", id, a.cache.node.Path())
	}
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("cache %s: %w", id, err)
	}
	node, err := core.NewNode(a.node, id)
	if err != nil {
		return nil, err
	}
	kind := props.Type
	if kind == "" {
		kind = "SMALL"
	}
	res, err := core.NewCfnResource(node, "Resource", &appsyncres.ApiCache{
		ApiId:                    a.cfn.ApiId,
		ApiCachingBehavior:       string(props.ApiCachingBehavior),
		Ttl:                      props.Ttl.Seconds(),
		Type_:                    kind,
		AtRestEncryptionEnabled:  props.AtRestEncryptionEnabled,
		TransitEncryptionEnabled: props.TransitEncryptionEnabled,
	})
	if err != nil {
		return nil, err
	}
	res.AddDependsOn(a.schema)
	a.cache = &ApiCache{node: node, resource: res}
	return a.cache, nil
}

// Node returns the construct node.
func (c *ApiCache) Node() *core.Node { return c.node }

// Resource returns the AWS::AppSync::ApiCache resource.
func (c *ApiCache) Resource() *core.CfnResource { return c.resource }
