package appsync

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
	appsyncres "github.com/lex00/wetwire-cdk-go/resources/appsync"
)

// AuthorizationType is an AppSync authorization mode.
type AuthorizationType string

const (
	AuthApiKey   AuthorizationType = "API_KEY"
	AuthIAM      AuthorizationType = "AWS_IAM"
	AuthUserPool AuthorizationType = "AMAZON_COGNITO_USER_POOLS"
	AuthOIDC     AuthorizationType = "OPENID_CONNECT"
	AuthLambda   AuthorizationType = "AWS_LAMBDA"
)

// UserPoolDefaultAction applies to user pool requests that match no
// group directive in the schema.
type UserPoolDefaultAction string

const (
	UserPoolAllow UserPoolDefaultAction = "ALLOW"
	UserPoolDeny  UserPoolDefaultAction = "DENY"
)

const (
	defaultApiKeyExpiry = 7 * 24 * time.Hour
	minApiKeyExpiry     = 24 * time.Hour
	maxApiKeyExpiry     = 365 * 24 * time.Hour
)

// ApiKeyConfig configures the API key created for an API_KEY mode.
type ApiKeyConfig struct {
	Name        string
	Description string
	// Expires defaults to seven days after App.Now.
	Expires time.Time
}

// UserPoolConfig configures Cognito user pool authorization.
type UserPoolConfig struct {
	UserPoolID       string
	AppIdClientRegex string
	// AwsRegion defaults to the stack region.
	AwsRegion string
	// DefaultAction is only used by the default mode and defaults to ALLOW.
	DefaultAction UserPoolDefaultAction
}

// OpenIdConnectConfig configures OIDC authorization.
type OpenIdConnectConfig struct {
	OidcProvider         string
	ClientID             string
	TokenExpiryFromAuth  core.Duration
	TokenExpiryFromIssue core.Duration
}

// LambdaAuthorizerConfig configures a Lambda authorizer. AppSync is
// granted permission to invoke the function.
type LambdaAuthorizerConfig struct {
	FunctionArn string
	// ResultsCacheTtl defaults to five minutes; zero disables caching.
	ResultsCacheTtl *core.Duration
	ValidationRegex string
}

// AuthorizationMode is one authorization mode of an API.
type AuthorizationMode struct {
	Type                   AuthorizationType
	ApiKeyConfig           *ApiKeyConfig
	UserPoolConfig         *UserPoolConfig
	OpenIdConnectConfig    *OpenIdConnectConfig
	LambdaAuthorizerConfig *LambdaAuthorizerConfig
}

// AuthorizationConfig lists the default and additional modes.
type AuthorizationConfig struct {
	// DefaultAuthorization defaults to API_KEY.
	DefaultAuthorization         *AuthorizationMode
	AdditionalAuthorizationModes []AuthorizationMode
}

func (c *AuthorizationConfig) modes() []AuthorizationMode {
	def := AuthorizationMode{Type: AuthApiKey}
	if c != nil && c.DefaultAuthorization != nil {
		def = *c.DefaultAuthorization
	}
	modes := []AuthorizationMode{def}
	if c != nil {
		modes = append(modes, c.AdditionalAuthorizationModes...)
	}
	return modes
}

// validate checks every mode against the time now.
func (c *AuthorizationConfig) validate(now time.Time) error {
	var err error
	counts := map[AuthorizationType]int{}
	for i, m := range c.modes() {
		counts[m.Type]++
		if e := m.validate(now, i == 0); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if counts[AuthApiKey] > 1 {
		err = multierr.Append(err, errors.New("You can't duplicate API_KEY configuration. See https://docs.aws.amazon.com/appsync/latest/devguide/security.html"))
	}
	if counts[AuthIAM] > 1 {
		err = multierr.Append(err, errors.New("You can't duplicate IAM configuration. See https://docs.aws.amazon.com/appsync/latest/devguide/security.html"))
	}
	if counts[AuthLambda] > 1 {
		err = multierr.Append(err, errors.New("You can only have a single AWS Lambda function configured to authorize your API"))
	}
	return err
}

func (m AuthorizationMode) validate(now time.Time, isDefault bool) error {
	var err error
	switch m.Type {
	case AuthApiKey:
		if m.ApiKeyConfig != nil && !m.ApiKeyConfig.Expires.IsZero() {
			d := m.ApiKeyConfig.Expires.Sub(now)
			if d < minApiKeyExpiry || d > maxApiKeyExpiry {
				err = multierr.Append(err, errors.New("API key expiration must be between 1 and 365 days from now"))
			}
		}
	case AuthIAM:
	case AuthUserPool:
		if m.UserPoolConfig == nil || m.UserPoolConfig.UserPoolID == "" {
			err = multierr.Append(err, errors.New("AMAZON_COGNITO_USER_POOLS authorization requires UserPoolConfig.UserPoolID"))
		} else if !isDefault && m.UserPoolConfig.DefaultAction != "" {
			err = multierr.Append(err, errors.New("UserPoolConfig.DefaultAction is only allowed on the default authorization mode"))
		}
	case AuthOIDC:
		if m.OpenIdConnectConfig == nil || m.OpenIdConnectConfig.OidcProvider == "" {
			err = multierr.Append(err, errors.New("OPENID_CONNECT authorization requires OpenIdConnectConfig.OidcProvider"))
		}
	case AuthLambda:
		cfg := m.LambdaAuthorizerConfig
		if cfg == nil || cfg.FunctionArn == "" {
			err = multierr.Append(err, errors.New("AWS_LAMBDA authorization requires LambdaAuthorizerConfig.FunctionArn"))
		} else if ttl := cfg.ResultsCacheTtl; ttl != nil && ttl.Seconds() > 3600 {
			err = multierr.Append(err, fmt.Errorf("Lambda authorizer cache TTL must be at most 3600 seconds, got %d", ttl.Seconds()))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("unknown authorization type %q", m.Type))
	}
	return err
}

func (m AuthorizationMode) userPoolConfig(region string, isDefault bool) *appsyncres.GraphQLApi_UserPoolConfig {
	cfg := m.UserPoolConfig
	out := &appsyncres.GraphQLApi_UserPoolConfig{
		UserPoolId: cfg.UserPoolID,
		AwsRegion:  region,
	}
	if cfg.AwsRegion != "" {
		out.AwsRegion = cfg.AwsRegion
	}
	if cfg.AppIdClientRegex != "" {
		out.AppIdClientRegex = cfg.AppIdClientRegex
	}
	if isDefault {
		action := cfg.DefaultAction
		if action == "" {
			action = UserPoolAllow
		}
		out.DefaultAction = string(action)
	}
	return out
}

func (m AuthorizationMode) openIDConnectConfig() *appsyncres.GraphQLApi_OpenIDConnectConfig {
	cfg := m.OpenIdConnectConfig
	out := &appsyncres.GraphQLApi_OpenIDConnectConfig{Issuer: cfg.OidcProvider}
	if cfg.ClientID != "" {
		out.ClientId = cfg.ClientID
	}
	if !cfg.TokenExpiryFromAuth.IsZero() {
		out.AuthTTL = cfg.TokenExpiryFromAuth.Std().Milliseconds()
	}
	if !cfg.TokenExpiryFromIssue.IsZero() {
		out.IatTTL = cfg.TokenExpiryFromIssue.Std().Milliseconds()
	}
	return out
}

func (m AuthorizationMode) lambdaAuthorizerConfig() *appsyncres.GraphQLApi_LambdaAuthorizerConfig {
	cfg := m.LambdaAuthorizerConfig
	ttl := core.Minutes(5)
	if cfg.ResultsCacheTtl != nil {
		ttl = *cfg.ResultsCacheTtl
	}
	out := &appsyncres.GraphQLApi_LambdaAuthorizerConfig{
		AuthorizerUri:                cfg.FunctionArn,
		AuthorizerResultTtlInSeconds: ttl.Seconds(),
	}
	if cfg.ValidationRegex != "" {
		out.IdentityValidationExpression = cfg.ValidationRegex
	}
	return out
}

func (m AuthorizationMode) additionalProvider(region string) appsyncres.GraphQLApi_AdditionalAuthenticationProvider {
	out := appsyncres.GraphQLApi_AdditionalAuthenticationProvider{AuthenticationType: string(m.Type)}
	switch m.Type {
	case AuthUserPool:
		pool := m.userPoolConfig(region, false)
		out.UserPoolConfig = &appsyncres.GraphQLApi_CognitoUserPoolConfig{
			AppIdClientRegex: pool.AppIdClientRegex,
			AwsRegion:        pool.AwsRegion,
			UserPoolId:       pool.UserPoolId,
		}
	case AuthOIDC:
		out.OpenIDConnectConfig = m.openIDConnectConfig()
	case AuthLambda:
		out.LambdaAuthorizerConfig = m.lambdaAuthorizerConfig()
	}
	return out
}
