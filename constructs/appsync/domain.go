package appsync

import (
	"errors"
	"fmt"

	"github.com/lex00/wetwire-cdk-go/core"
	appsyncres "github.com/lex00/wetwire-cdk-go/resources/appsync"
)

// DomainOptions configures a custom domain for an API. The certificate
// must live in us-east-1.
type DomainOptions struct {
	DomainName     string
	CertificateArn string
	Description    string
}

// Domain is a custom domain associated with an API.
type Domain struct {
	node        *core.Node
	domain      *core.CfnResource
	association *core.CfnResource
	cfn         *appsyncres.DomainName
}

// AddDomainName creates a custom domain and associates it with the API.
// Point a CNAME for the domain at AppSyncDomainName.
func (a *GraphqlApi) AddDomainName(id string, opts DomainOptions) (*Domain, error) {
	if opts.DomainName == "" || opts.CertificateArn == "" {
		return nil, fmt.Errorf("domain %s: %w", id, errors.New("DomainName and CertificateArn are required"))
	}
	node, err := core.NewNode(a.node, id)
	if err != nil {
		return nil, err
	}
	cfn := &appsyncres.DomainName{
		DomainName:     opts.DomainName,
		CertificateArn: opts.CertificateArn,
	}
	if opts.Description != "" {
		cfn.Description = opts.Description
	}
	d := &Domain{node: node, cfn: cfn}
	if d.domain, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	if d.association, err = core.NewCfnResource(node, "Association", &appsyncres.DomainNameApiAssociation{
		ApiId:      a.cfn.ApiId,
		DomainName: opts.DomainName,
	}); err != nil {
		return nil, err
	}
	d.association.AddDependsOn(d.domain)
	return d, nil
}

// Node returns the construct node.
func (d *Domain) Node() *core.Node { return d.node }

// Resource returns the AWS::AppSync::DomainName resource.
func (d *Domain) Resource() *core.CfnResource { return d.domain }

// Association returns the AWS::AppSync::DomainNameApiAssociation resource.
func (d *Domain) Association() *core.CfnResource { return d.association }

// AppSyncDomainName returns the CloudFront domain to target with a CNAME.
func (d *Domain) AppSyncDomainName() string { return core.AsString(d.cfn.AppSyncDomainName) }
