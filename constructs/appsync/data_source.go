package appsync

import (
	"errors"
	"fmt"

	"github.com/iancoleman/strcase"

	"github.com/lex00/wetwire-cdk-go/constructs/dynamodb"
	"github.com/lex00/wetwire-cdk-go/constructs/iam"
	"github.com/lex00/wetwire-cdk-go/core"
	"github.com/lex00/wetwire-cdk-go/intrinsics"
	appsyncres "github.com/lex00/wetwire-cdk-go/resources/appsync"
)

// DataSourceType is the kind of backend a data source talks to.
type DataSourceType string

const (
	DataSourceNone        DataSourceType = "NONE"
	DataSourceDynamoDB    DataSourceType = "AMAZON_DYNAMODB"
	DataSourceLambda      DataSourceType = "AWS_LAMBDA"
	DataSourceHTTP        DataSourceType = "HTTP"
	DataSourceEventBridge DataSourceType = "AMAZON_EVENTBRIDGE"
)

var (
	dynamoReadActions = []string{
		"dynamodb:BatchGetItem",
		"dynamodb:GetRecords",
		"dynamodb:GetShardIterator",
		"dynamodb:Query",
		"dynamodb:GetItem",
		"dynamodb:Scan",
		"dynamodb:ConditionCheckItem",
		"dynamodb:DescribeTable",
	}
	dynamoWriteActions = []string{
		"dynamodb:BatchWriteItem",
		"dynamodb:PutItem",
		"dynamodb:UpdateItem",
		"dynamodb:DeleteItem",
	}
)

// DataSourceOptions are shared by every data source.
type DataSourceOptions struct {
	// Name defaults to the construct id in CamelCase.
	Name        string
	Description string
	// ServiceRole is assumed by AppSync. Defaults to a new role holding
	// only the statements the data source needs.
	ServiceRole iam.IRole
}

// DynamoDbDataSourceProps configures a DynamoDB data source.
type DynamoDbDataSourceProps struct {
	DataSourceOptions
	Table                dynamodb.ITable
	ReadOnlyAccess       bool
	UseCallerCredentials bool
}

// LambdaDataSourceProps configures a Lambda data source.
type LambdaDataSourceProps struct {
	DataSourceOptions
	FunctionArn string
}

// HttpDataSourceProps configures an HTTP data source. Requests are signed
// with SigV4 when SigningRegion and SigningServiceName are set.
type HttpDataSourceProps struct {
	DataSourceOptions
	Endpoint           string
	SigningRegion      string
	SigningServiceName string
}

// EventBridgeDataSourceProps configures an EventBridge data source.
type EventBridgeDataSourceProps struct {
	DataSourceOptions
	EventBusArn string
}

// DataSource is an AppSync data source.
type DataSource struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *appsyncres.DataSource
	api      *GraphqlApi
	name     string
	kind     DataSourceType
	role     iam.IRole
}

// newDataSource creates the data source and, when statements are given,
// its service role.
func newDataSource(api *GraphqlApi, id string, kind DataSourceType, opts DataSourceOptions, statements []intrinsics.PolicyStatement, configure func(*appsyncres.DataSource)) (*DataSource, error) {
	name := opts.Name
	if name == "" {
		name = strcase.ToCamel(id)
	}
	if err := validateName("data source", name); err != nil {
		return nil, err
	}
	node, err := core.NewNode(api.node, id)
	if err != nil {
		return nil, err
	}
	ds := &DataSource{node: node, api: api, name: name, kind: kind, role: opts.ServiceRole}
	if ds.role == nil && len(statements) > 0 {
		role, err := iam.NewRole(node, "ServiceRole", iam.RoleProps{
			AssumedBy: intrinsics.ServicePrincipal{appsyncPrincipal},
		})
		if err != nil {
			return nil, err
		}
		ds.role = role
	}
	if ds.role != nil && len(statements) > 0 {
		if err := ds.role.AddToPrincipalPolicy(statements...); err != nil && !errors.Is(err, iam.ErrImmutableRole) {
			return nil, err
		}
	}

	cfn := &appsyncres.DataSource{
		ApiId: api.cfn.ApiId,
		Name:  name,
		Type_: string(kind),
	}
	if opts.Description != "" {
		cfn.Description = opts.Description
	}
	if ds.role != nil {
		cfn.ServiceRoleArn = ds.role.RoleArn()
	}
	if configure != nil {
		configure(cfn)
	}
	ds.cfn = cfn
	if ds.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	return ds, nil
}

// AddNoneDataSource adds a data source that resolves locally, for
// templates that only transform their input.
func (a *GraphqlApi) AddNoneDataSource(id string, opts DataSourceOptions) (*DataSource, error) {
	return newDataSource(a, id, DataSourceNone, opts, nil, nil)
}

// AddDynamoDbDataSource adds a DynamoDB table data source with read and,
// unless ReadOnlyAccess is set, write access to the table and its indexes.
func (a *GraphqlApi) AddDynamoDbDataSource(id string, props DynamoDbDataSourceProps) (*DataSource, error) {
	if props.Table == nil {
		return nil, fmt.Errorf("data source %s: Table is required", id)
	}
	table := props.Table
	actions := append([]string(nil), dynamoReadActions...)
	if !props.ReadOnlyAccess {
		actions = append(actions, dynamoWriteActions...)
	}
	stmt := intrinsics.Allow(actions, table.TableArn(), table.TableArn()+"/index/*")

	stack, err := core.StackOf(a.node)
	if err != nil {
		return nil, err
	}
	return newDataSource(a, id, DataSourceDynamoDB, props.DataSourceOptions, []intrinsics.PolicyStatement{stmt}, func(cfn *appsyncres.DataSource) {
		cfg := &appsyncres.DataSource_DynamoDBConfig{
			AwsRegion: stack.Region(),
			TableName: table.TableName(),
		}
		if props.UseCallerCredentials {
			cfg.UseCallerCredentials = true
		}
		cfn.DynamoDBConfig = cfg
	})
}

// AddLambdaDataSource adds a Lambda function data source.
func (a *GraphqlApi) AddLambdaDataSource(id string, props LambdaDataSourceProps) (*DataSource, error) {
	if props.FunctionArn == "" {
		return nil, fmt.Errorf("data source %s: FunctionArn is required", id)
	}
	stmt := intrinsics.Allow([]string{"lambda:InvokeFunction"}, props.FunctionArn, props.FunctionArn+":*")
	return newDataSource(a, id, DataSourceLambda, props.DataSourceOptions, []intrinsics.PolicyStatement{stmt}, func(cfn *appsyncres.DataSource) {
		cfn.LambdaConfig = &appsyncres.DataSource_LambdaConfig{LambdaFunctionArn: props.FunctionArn}
	})
}

// AddHttpDataSource adds an HTTP endpoint data source.
func (a *GraphqlApi) AddHttpDataSource(id string, props HttpDataSourceProps) (*DataSource, error) {
	if props.Endpoint == "" {
		return nil, fmt.Errorf("data source %s: Endpoint is required", id)
	}
	if (props.SigningRegion == "") != (props.SigningServiceName == "") {
		return nil, fmt.Errorf("data source %s: SigningRegion and SigningServiceName must be set together", id)
	}
	return newDataSource(a, id, DataSourceHTTP, props.DataSourceOptions, nil, func(cfn *appsyncres.DataSource) {
		cfg := &appsyncres.DataSource_HttpConfig{Endpoint: props.Endpoint}
		if props.SigningRegion != "" {
			cfg.AuthorizationConfig = &appsyncres.DataSource_AuthorizationConfig{
				AuthorizationType: "AWS_IAM",
				AwsIamConfig: &appsyncres.DataSource_AwsIamConfig{
					SigningRegion:      props.SigningRegion,
					SigningServiceName: props.SigningServiceName,
				},
			}
		}
		cfn.HttpConfig = cfg
	})
}

// AddEventBridgeDataSource adds an event bus data source allowed to put
// events on the bus.
func (a *GraphqlApi) AddEventBridgeDataSource(id string, props EventBridgeDataSourceProps) (*DataSource, error) {
	if props.EventBusArn == "" {
		return nil, fmt.Errorf("data source %s: EventBusArn is required", id)
	}
	stmt := intrinsics.Allow([]string{"events:PutEvents"}, props.EventBusArn)
	return newDataSource(a, id, DataSourceEventBridge, props.DataSourceOptions, []intrinsics.PolicyStatement{stmt}, func(cfn *appsyncres.DataSource) {
		cfn.EventBridgeConfig = &appsyncres.DataSource_EventBridgeConfig{EventBusArn: props.EventBusArn}
	})
}

// Node returns the construct node.
func (d *DataSource) Node() *core.Node { return d.node }

// Resource returns the AWS::AppSync::DataSource resource.
func (d *DataSource) Resource() *core.CfnResource { return d.resource }

// Name returns the data source name.
func (d *DataSource) Name() string { return d.name }

// Type returns the data source type.
func (d *DataSource) Type() DataSourceType { return d.kind }

// ServiceRole returns the role AppSync assumes, or nil for NONE and
// unsigned HTTP data sources.
func (d *DataSource) ServiceRole() iam.IRole { return d.role }

// Api returns the owning API.
func (d *DataSource) Api() *GraphqlApi { return d.api }

// GrantPrincipal adds statements to the service role.
func (d *DataSource) GrantPrincipal(statements ...intrinsics.PolicyStatement) error {
	if d.role == nil {
		return fmt.Errorf("data source %s has no service role", d.name)
	}
	return d.role.AddToPrincipalPolicy(statements...)
}

// CreateResolver attaches a unit resolver backed by this data source.
func (d *DataSource) CreateResolver(id string, props BaseResolverProps) (*Resolver, error) {
	return NewResolver(d.api, id, ResolverProps{BaseResolverProps: props, DataSource: d})
}

// CreateFunction adds a pipeline function backed by this data source.
func (d *DataSource) CreateFunction(id string, props BaseFunctionProps) (*AppsyncFunction, error) {
	return NewAppsyncFunction(d.api, id, AppsyncFunctionProps{BaseFunctionProps: props, DataSource: d})
}
