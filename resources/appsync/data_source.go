package appsync

import (
	wetwire "github.com/lex00/wetwire-cdk-go"
)

// DataSource represents an AWS::AppSync::DataSource resource.
type DataSource struct {
	ApiId any `json:"ApiId,omitempty" cfn:"required"`
	Name  any `json:"Name,omitempty" cfn:"required"`
	// Type_ is AWS_LAMBDA, AMAZON_DYNAMODB, AMAZON_ELASTICSEARCH,
	// AMAZON_OPENSEARCH_SERVICE, AMAZON_EVENTBRIDGE, NONE, HTTP or
	// RELATIONAL_DATABASE.
	Type_                    any                                  `json:"Type,omitempty" cfn:"required"`
	Description              any                                  `json:"Description,omitempty"`
	DynamoDBConfig           *DataSource_DynamoDBConfig           `json:"DynamoDBConfig,omitempty"`
	EventBridgeConfig        *DataSource_EventBridgeConfig        `json:"EventBridgeConfig,omitempty"`
	HttpConfig               *DataSource_HttpConfig               `json:"HttpConfig,omitempty"`
	LambdaConfig             *DataSource_LambdaConfig             `json:"LambdaConfig,omitempty"`
	MetricsConfig            any                                  `json:"MetricsConfig,omitempty"`
	OpenSearchServiceConfig  *DataSource_OpenSearchServiceConfig  `json:"OpenSearchServiceConfig,omitempty"`
	RelationalDatabaseConfig *DataSource_RelationalDatabaseConfig `json:"RelationalDatabaseConfig,omitempty"`
	ServiceRoleArn           any                                  `json:"ServiceRoleArn,omitempty"`

	DataSourceArn wetwire.AttrRef `json:"-" attr:"DataSourceArn"`
	Name_         wetwire.AttrRef `json:"-" attr:"Name"`
}

// ResourceType returns the CloudFormation resource type.
func (r DataSource) ResourceType() string {
	return "AWS::AppSync::DataSource"
}

// DataSource_DynamoDBConfig points a data source at a DynamoDB table.
type DataSource_DynamoDBConfig struct {
	AwsRegion            any `json:"AwsRegion,omitempty" cfn:"required"`
	TableName            any `json:"TableName,omitempty" cfn:"required"`
	DeltaSyncConfig      any `json:"DeltaSyncConfig,omitempty"`
	UseCallerCredentials any `json:"UseCallerCredentials,omitempty"`
	Versioned            any `json:"Versioned,omitempty"`
}

// DataSource_EventBridgeConfig points a data source at an event bus.
type DataSource_EventBridgeConfig struct {
	EventBusArn any `json:"EventBusArn,omitempty" cfn:"required"`
}

// DataSource_HttpConfig points a data source at an HTTP endpoint.
type DataSource_HttpConfig struct {
	Endpoint            any                             `json:"Endpoint,omitempty" cfn:"required"`
	AuthorizationConfig *DataSource_AuthorizationConfig `json:"AuthorizationConfig,omitempty"`
}

// DataSource_AuthorizationConfig signs HTTP data source requests.
type DataSource_AuthorizationConfig struct {
	AuthorizationType any                      `json:"AuthorizationType,omitempty" cfn:"required"`
	AwsIamConfig      *DataSource_AwsIamConfig `json:"AwsIamConfig,omitempty"`
}

// DataSource_AwsIamConfig holds the SigV4 signing parameters.
type DataSource_AwsIamConfig struct {
	SigningRegion      any `json:"SigningRegion,omitempty"`
	SigningServiceName any `json:"SigningServiceName,omitempty"`
}

// DataSource_LambdaConfig points a data source at a Lambda function.
type DataSource_LambdaConfig struct {
	LambdaFunctionArn any `json:"LambdaFunctionArn,omitempty" cfn:"required"`
}

// DataSource_OpenSearchServiceConfig points a data source at an OpenSearch domain.
type DataSource_OpenSearchServiceConfig struct {
	AwsRegion any `json:"AwsRegion,omitempty" cfn:"required"`
	Endpoint  any `json:"Endpoint,omitempty" cfn:"required"`
}

// DataSource_RelationalDatabaseConfig points a data source at an Aurora Serverless cluster.
type DataSource_RelationalDatabaseConfig struct {
	RelationalDatabaseSourceType any `json:"RelationalDatabaseSourceType,omitempty" cfn:"required"`
	RdsHttpEndpointConfig        any `json:"RdsHttpEndpointConfig,omitempty"`
}
