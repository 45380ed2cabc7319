package eks

import (
	"errors"
	"strings"

	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	iamres "github.com/lex00/wetwire-cdk-go/resources/iam"
)

// DefaultOidcThumbprint is the root CA thumbprint of the EKS OIDC issuers.
const DefaultOidcThumbprint = "9e99a48a9960b14926bb7f3b02e22da2b0ab7280"

// STSAudience is the client id service account tokens are issued for.
const STSAudience = "sts.amazonaws.com"

// IOpenIdConnectProvider is an IAM OIDC identity provider.
type IOpenIdConnectProvider interface {
	// ProviderArn returns the provider ARN.
	ProviderArn() string
	// Issuer returns the issuer host and path, without https://.
	Issuer() string
}

// OpenIdConnectProviderProps configures an OpenIdConnectProvider.
type OpenIdConnectProviderProps struct {
	// URL is the issuer URL, normally the cluster's OpenIdConnectIssuerUrl.
	URL         string
	ClientIDs   []string
	Thumbprints []string
}

// OpenIdConnectProvider is an AWS::IAM::OIDCProvider trusting a cluster's
// service account issuer.
type OpenIdConnectProvider struct {
	node     *core.Node
	resource *core.CfnResource
	url      string
}

// NewOpenIdConnectProvider creates an OIDC provider.
func NewOpenIdConnectProvider(scope core.Construct, id string, props OpenIdConnectProviderProps) (*OpenIdConnectProvider, error) {
	if props.URL == "" {
		return nil, errors.New("oidc provider: URL is required")
	}
	if !core.IsUnresolved(props.URL) && !strings.HasPrefix(props.URL, "https://") {
		return nil, errors.New("oidc provider: URL must start with https://")
	}
	clients := props.ClientIDs
	if len(clients) == 0 {
		clients = []string{STSAudience}
	}
	thumbprints := props.Thumbprints
	if len(thumbprints) == 0 {
		thumbprints = []string{DefaultOidcThumbprint}
	}

	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	res, err := core.NewCfnResource(node, "Resource", &iamres.OIDCProvider{
		Url:            props.URL,
		ClientIdList:   toAnySlice(clients),
		ThumbprintList: toAnySlice(thumbprints),
	})
	if err != nil {
		return nil, err
	}
	return &OpenIdConnectProvider{node: node, resource: res, url: props.URL}, nil
}

// Node returns the construct node.
func (p *OpenIdConnectProvider) Node() *core.Node { return p.node }

// Resource returns the AWS::IAM::OIDCProvider resource.
func (p *OpenIdConnectProvider) Resource() *core.CfnResource { return p.resource }

// ProviderArn returns the provider ARN. Ref of an OIDC provider is its ARN.
func (p *OpenIdConnectProvider) ProviderArn() string { return p.resource.RefString() }

// Issuer returns the issuer without the scheme.
func (p *OpenIdConnectProvider) Issuer() string { return issuerFromURL(p.url) }

type importedOidcProvider struct {
	arn string
}

// FromOpenIdConnectProviderArn references an existing provider. The issuer
// is the part of the ARN after "oidc-provider/".
func FromOpenIdConnectProviderArn(arn string) IOpenIdConnectProvider {
	return &importedOidcProvider{arn: arn}
}

func (p *importedOidcProvider) ProviderArn() string { return p.arn }

func (p *importedOidcProvider) Issuer() string {
	const marker = ":oidc-provider/"
	if !core.IsUnresolved(p.arn) {
		if _, issuer, ok := strings.Cut(p.arn, marker); ok {
			return issuer
		}
		return p.arn
	}
	return core.AsString(intrinsics.Select{
		Index: 1,
		List:  intrinsics.Split{Delimiter: marker, Source: p.arn},
	})
}
