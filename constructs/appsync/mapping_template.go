package appsync

import (
	"fmt"
	"os"
	"strings"
)

const resolverVersion = "2017-02-28"

// MappingTemplate is a VTL request or response template.
type MappingTemplate struct {
	template string
}

// MappingTemplateFromString wraps an inline template.
func MappingTemplateFromString(template string) *MappingTemplate {
	return &MappingTemplate{template: template}
}

// MappingTemplateFromFile reads a template from disk.
func MappingTemplateFromFile(path string) (*MappingTemplate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading mapping template: %w", err)
	}
	return &MappingTemplate{template: string(data)}, nil
}

// RenderTemplate returns the template text.
func (m *MappingTemplate) RenderTemplate() string { return m.template }

func dynamoKey(keyName, value string) string {
	return fmt.Sprintf(`"key": {"%s": $util.dynamodb.toDynamoDBJson(%s)}`, keyName, value)
}

func argument(name string) string {
	return "$ctx.args." + name
}

// DynamoDbGetItem reads the item whose keyName equals the idArg argument.
func DynamoDbGetItem(keyName, idArg string) *MappingTemplate {
	return MappingTemplateFromString(fmt.Sprintf(`{"version": "%s", "operation": "GetItem", %s}`,
		resolverVersion, dynamoKey(keyName, argument(idArg))))
}

// DynamoDbDeleteItem deletes the item whose keyName equals the idArg
// argument.
func DynamoDbDeleteItem(keyName, idArg string) *MappingTemplate {
	return MappingTemplateFromString(fmt.Sprintf(`{"version": "%s", "operation": "DeleteItem", %s}`,
		resolverVersion, dynamoKey(keyName, argument(idArg))))
}

// DynamoDbScanTable scans the whole table.
func DynamoDbScanTable(consistentRead bool) *MappingTemplate {
	return MappingTemplateFromString(fmt.Sprintf(`{"version": "%s", "operation": "Scan", "consistentRead": %t}`,
		resolverVersion, consistentRead))
}

// DynamoDbQuery queries the items whose keyName equals the arg argument.
func DynamoDbQuery(keyName, arg string) *MappingTemplate {
	return MappingTemplateFromString(fmt.Sprintf(
		`{"version": "%s", "operation": "Query", "query": {"expression": "#key = :key", "expressionNames": {"#key": "%s"}, "expressionValues": {":key": $util.dynamodb.toDynamoDBJson(%s)}}}`,
		resolverVersion, keyName, argument(arg)))
}

// DynamoDbPutItem writes an item. The key is taken from idArg, or
// generated with $util.autoId() when idArg is empty. Attribute values come
// from the valuesArg argument object, or from all arguments when empty.
func DynamoDbPutItem(keyName, idArg, valuesArg string) *MappingTemplate {
	key := "$util.autoId()"
	if idArg != "" {
		key = argument(idArg)
	}
	values := "$ctx.args"
	if valuesArg != "" {
		values = argument(valuesArg)
	}
	var b strings.Builder
	if idArg != "" && valuesArg == "" {
		// The key argument is not an attribute value as well.
		fmt.Fprintf(&b, "#set($values = $util.map.copyAndRemoveAllKeys(%s, [\"%s\"]))\n", values, idArg)
		values = "$values"
	}
	fmt.Fprintf(&b, `{"version": "%s", "operation": "PutItem", %s, "attributeValues": $util.dynamodb.toMapValuesJson(%s)}`,
		resolverVersion, dynamoKey(keyName, key), values)
	return MappingTemplateFromString(b.String())
}

// DynamoDbResultItem returns a single item.
func DynamoDbResultItem() *MappingTemplate {
	return MappingTemplateFromString("$util.toJson($ctx.result)")
}

// DynamoDbResultList returns the items of a scan or query.
func DynamoDbResultList() *MappingTemplate {
	return MappingTemplateFromString("$util.toJson($ctx.result.items)")
}

// LambdaRequest invokes a function with payload, which defaults to the
// whole resolver context.
func LambdaRequest(payload string) *MappingTemplate {
	if payload == "" {
		payload = "$util.toJson($ctx)"
	}
	return MappingTemplateFromString(fmt.Sprintf(`{"version": "%s", "operation": "Invoke", "payload": %s}`,
		resolverVersion, payload))
}

// LambdaResult returns the function result.
func LambdaResult() *MappingTemplate {
	return MappingTemplateFromString("$util.toJson($ctx.result)")
}

// Code is APPSYNC_JS resolver or function code.
type Code struct {
	source string
}

// CodeFromInline wraps inline JavaScript.
func CodeFromInline(source string) *Code {
	return &Code{source: source}
}

// CodeFromFile reads JavaScript from disk.
func CodeFromFile(path string) (*Code, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading resolver code: %w", err)
	}
	return &Code{source: string(data)}, nil
}

// Source returns the code.
func (c *Code) Source() string { return c.source }
