// Package dynamodb provides a minimal DynamoDB table construct used as an
// AppSync data source.
package dynamodb

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/lex00/wetwire-cdk-go/core"
	ddbres "github.com/lex00/wetwire-cdk-go/resources/dynamodb"
)

// AttributeType is the scalar type of a key attribute.
type AttributeType string

const (
	AttributeString AttributeType = "S"
	AttributeNumber AttributeType = "N"
	AttributeBinary AttributeType = "B"
)

// Attribute is a key attribute.
type Attribute struct {
	Name string
	Type AttributeType
}

// ITable is a table that can be read from or written to.
type ITable interface {
	TableName() string
	TableArn() string
}

// TableProps configures a Table.
type TableProps struct {
	PartitionKey Attribute
	SortKey      *Attribute
	TableName    string
}

// Validate checks the props.
func (p TableProps) Validate() error {
	var err error
	if p.PartitionKey.Name == "" {
		err = multierr.Append(err, errors.New("PartitionKey.Name is required"))
	}
	for _, a := range p.keys() {
		switch a.Type {
		case "", AttributeString, AttributeNumber, AttributeBinary:
		default:
			err = multierr.Append(err, fmt.Errorf("attribute %s: unknown type %q", a.Name, a.Type))
		}
	}
	return err
}

func (p TableProps) keys() []Attribute {
	keys := []Attribute{p.PartitionKey}
	if p.SortKey != nil {
		keys = append(keys, *p.SortKey)
	}
	return keys
}

// Table is an on-demand AWS::DynamoDB::Table.
type Table struct {
	node     *core.Node
	resource *core.CfnResource
	cfn      *ddbres.Table
}

// NewTable creates a table.
func NewTable(scope core.Construct, id string, props TableProps) (*Table, error) {
	if err := props.Validate(); err != nil {
		return nil, fmt.Errorf("table %s: %w", id, err)
	}
	node, err := core.NewNode(scope, id)
	if err != nil {
		return nil, err
	}
	cfn := &ddbres.Table{BillingMode: "PAY_PER_REQUEST"}
	for i, a := range props.keys() {
		keyType := "HASH"
		if i > 0 {
			keyType = "RANGE"
		}
		attrType := a.Type
		if attrType == "" {
			attrType = AttributeString
		}
		cfn.KeySchema = append(cfn.KeySchema, ddbres.Table_KeySchema{AttributeName: a.Name, KeyType: keyType})
		cfn.AttributeDefinitions = append(cfn.AttributeDefinitions, ddbres.Table_AttributeDefinition{
			AttributeName: a.Name,
			AttributeType: string(attrType),
		})
	}
	if props.TableName != "" {
		cfn.TableName = props.TableName
	}
	t := &Table{node: node, cfn: cfn}
	if t.resource, err = core.NewCfnResource(node, "Resource", cfn); err != nil {
		return nil, err
	}
	return t, nil
}

// Node returns the construct node.
func (t *Table) Node() *core.Node { return t.node }

// Resource returns the AWS::DynamoDB::Table resource.
func (t *Table) Resource() *core.CfnResource { return t.resource }

// TableName returns the table name as a string token.
func (t *Table) TableName() string { return t.resource.RefString() }

// TableArn returns the table ARN as a string token.
func (t *Table) TableArn() string { return core.AsString(t.cfn.Arn) }

type importedTable struct {
	name string
	arn  string
}

// FromTableName references an existing table in the stack's account and
// region.
func FromTableName(scope core.Construct, name string) (ITable, error) {
	if name == "" {
		return nil, errors.New("table name is required")
	}
	stack, err := core.StackOf(scope)
	if err != nil {
		return nil, err
	}
	return &importedTable{
		name: name,
		arn:  stack.FormatArn("dynamodb", stack.Region(), stack.Account(), "table/"+name),
	}, nil
}

func (t *importedTable) TableName() string { return t.name }
func (t *importedTable) TableArn() string  { return t.arn }
