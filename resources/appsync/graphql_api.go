package appsync

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// GraphQLApi represents an AWS::AppSync::GraphQLApi resource.
type GraphQLApi struct {
	// Name is the API name.
	Name any `json:"Name,omitempty" cfn:"required"`
	// AuthenticationType is one of API_KEY, AWS_IAM, AMAZON_COGNITO_USER_POOLS,
	// OPENID_CONNECT or AWS_LAMBDA.
	AuthenticationType                any                                `json:"AuthenticationType,omitempty" cfn:"required"`
	AdditionalAuthenticationProviders []any                              `json:"AdditionalAuthenticationProviders,omitempty"`
	ApiType                           any                                `json:"ApiType,omitempty"`
	EnhancedMetricsConfig             *GraphQLApi_EnhancedMetricsConfig  `json:"EnhancedMetricsConfig,omitempty"`
	EnvironmentVariables              map[string]any                     `json:"EnvironmentVariables,omitempty"`
	IntrospectionConfig               any                                `json:"IntrospectionConfig,omitempty"`
	LambdaAuthorizerConfig            *GraphQLApi_LambdaAuthorizerConfig `json:"LambdaAuthorizerConfig,omitempty"`
	LogConfig                         *GraphQLApi_LogConfig              `json:"LogConfig,omitempty"`
	MergedApiExecutionRoleArn         any                                `json:"MergedApiExecutionRoleArn,omitempty"`
	OpenIDConnectConfig               *GraphQLApi_OpenIDConnectConfig    `json:"OpenIDConnectConfig,omitempty"`
	OwnerContact                      any                                `json:"OwnerContact,omitempty"`
	QueryDepthLimit                   any                                `json:"QueryDepthLimit,omitempty"`
	ResolverCountLimit                any                                `json:"ResolverCountLimit,omitempty"`
	Tags                              []any                              `json:"Tags,omitempty"`
	UserPoolConfig                    *GraphQLApi_UserPoolConfig         `json:"UserPoolConfig,omitempty"`
	Visibility                        any                                `json:"Visibility,omitempty"`
	XrayEnabled                       any                                `json:"XrayEnabled,omitempty"`

	ApiId              wetwire.AttrRef `json:"-" attr:"ApiId"`
	Arn                wetwire.AttrRef `json:"-" attr:"Arn"`
	GraphQLDns         wetwire.AttrRef `json:"-" attr:"GraphQLDns"`
	GraphQLEndpointArn wetwire.AttrRef `json:"-" attr:"GraphQLEndpointArn"`
	GraphQLUrl         wetwire.AttrRef `json:"-" attr:"GraphQLUrl"`
	RealtimeDns        wetwire.AttrRef `json:"-" attr:"RealtimeDns"`
	RealtimeUrl        wetwire.AttrRef `json:"-" attr:"RealtimeUrl"`
}

// ResourceType returns the CloudFormation resource type.
func (r GraphQLApi) ResourceType() string {
	return "AWS::AppSync::GraphQLApi"
}

// GraphQLApi_AdditionalAuthenticationProvider is an extra authorization mode.
type GraphQLApi_AdditionalAuthenticationProvider struct {
	AuthenticationType     any                                `json:"AuthenticationType,omitempty" cfn:"required"`
	LambdaAuthorizerConfig *GraphQLApi_LambdaAuthorizerConfig `json:"LambdaAuthorizerConfig,omitempty"`
	OpenIDConnectConfig    *GraphQLApi_OpenIDConnectConfig    `json:"OpenIDConnectConfig,omitempty"`
	UserPoolConfig         *GraphQLApi_CognitoUserPoolConfig  `json:"UserPoolConfig,omitempty"`
}

// GraphQLApi_LambdaAuthorizerConfig configures an AWS_LAMBDA authorizer.
type GraphQLApi_LambdaAuthorizerConfig struct {
	AuthorizerResultTtlInSeconds any `json:"AuthorizerResultTtlInSeconds,omitempty"`
	AuthorizerUri                any `json:"AuthorizerUri,omitempty"`
	IdentityValidationExpression any `json:"IdentityValidationExpression,omitempty"`
}

// GraphQLApi_LogConfig configures CloudWatch logging.
type GraphQLApi_LogConfig struct {
	CloudWatchLogsRoleArn any `json:"CloudWatchLogsRoleArn,omitempty"`
	ExcludeVerboseContent any `json:"ExcludeVerboseContent,omitempty"`
	// FieldLogLevel is NONE, ERROR, INFO, DEBUG or ALL.
	FieldLogLevel any `json:"FieldLogLevel,omitempty"`
}

// GraphQLApi_OpenIDConnectConfig configures an OPENID_CONNECT authorizer.
type GraphQLApi_OpenIDConnectConfig struct {
	AuthTTL  any `json:"AuthTTL,omitempty"`
	ClientId any `json:"ClientId,omitempty"`
	IatTTL   any `json:"IatTTL,omitempty"`
	Issuer   any `json:"Issuer,omitempty"`
}

// GraphQLApi_UserPoolConfig configures the primary Cognito user pool authorizer.
type GraphQLApi_UserPoolConfig struct {
	AppIdClientRegex any `json:"AppIdClientRegex,omitempty"`
	AwsRegion        any `json:"AwsRegion,omitempty"`
	DefaultAction    any `json:"DefaultAction,omitempty"`
	UserPoolId       any `json:"UserPoolId,omitempty"`
}

// GraphQLApi_CognitoUserPoolConfig configures an additional Cognito user pool authorizer.
type GraphQLApi_CognitoUserPoolConfig struct {
	AppIdClientRegex any `json:"AppIdClientRegex,omitempty"`
	AwsRegion        any `json:"AwsRegion,omitempty"`
	UserPoolId       any `json:"UserPoolId,omitempty"`
}

// GraphQLApi_EnhancedMetricsConfig configures CloudWatch enhanced metrics.
type GraphQLApi_EnhancedMetricsConfig struct {
	DataSourceLevelMetricsBehavior any `json:"DataSourceLevelMetricsBehavior,omitempty" cfn:"required"`
	OperationLevelMetricsConfig    any `json:"OperationLevelMetricsConfig,omitempty" cfn:"required"`
	ResolverLevelMetricsBehavior   any `json:"ResolverLevelMetricsBehavior,omitempty" cfn:"required"`
}
