package appsync

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestDynamoDbTemplates(t *testing.T) {
	tests := []struct {
		name     string
		template *MappingTemplate
		want     string
	}{
		{"get", DynamoDbGetItem("id", "orderId"),
			`{"version": "2017-02-28", "operation": "GetItem", "key": {"id": $util.dynamodb.toDynamoDBJson($ctx.args.orderId)}}`},
		{"delete", DynamoDbDeleteItem("pk", "id"),
			`{"version": "2017-02-28", "operation": "DeleteItem", "key": {"pk": $util.dynamodb.toDynamoDBJson($ctx.args.id)}}`},
		{"put auto id", DynamoDbPutItem("id", "", "input"),
			`{"version": "2017-02-28", "operation": "PutItem", "key": {"id": $util.dynamodb.toDynamoDBJson($util.autoId())}, "attributeValues": $util.dynamodb.toMapValuesJson($ctx.args.input)}`},
		{"put from args", DynamoDbPutItem("id", "id", ""),
			"#set($values = $util.map.copyAndRemoveAllKeys($ctx.args, [\"id\"]))\n" +
				`{"version": "2017-02-28", "operation": "PutItem", "key": {"id": $util.dynamodb.toDynamoDBJson($ctx.args.id)}, "attributeValues": $util.dynamodb.toMapValuesJson($values)}`},
		{"result item", DynamoDbResultItem(), "$util.toJson($ctx.result)"},
		{"result list", DynamoDbResultList(), "$util.toJson($ctx.result.items)"},
		{"lambda request", LambdaRequest(""), `{"version": "2017-02-28", "operation": "Invoke", "payload": $util.toJson($ctx)}`},
		{"lambda payload", LambdaRequest("$util.toJson($ctx.args)"), `{"version": "2017-02-28", "operation": "Invoke", "payload": $util.toJson($ctx.args)}`},
		{"lambda result", LambdaResult(), "$util.toJson($ctx.result)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.template.RenderTemplate())
		})
	}
}

func TestDynamoDbScanTable(t *testing.T) {
	for _, consistent := range []bool{true, false} {
		var decoded map[string]any
		require.NoError(t, json.Unmarshal([]byte(DynamoDbScanTable(consistent).RenderTemplate()), &decoded))
		assert.Equal(t, "Scan", decoded["operation"])
		assert.Equal(t, consistent, decoded["consistentRead"])
	}
}

// Replacing the VTL expressions with a JSON literal must leave a valid
// JSON request document.
func TestDynamoDbKeyTemplates_AreJSON(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9_]{0,15}`).Draw(t, "key")
		arg := rapid.StringMatching(`[a-zA-Z][a-zA-Z0-9_]{0,15}`).Draw(t, "arg")
		for _, tmpl := range []*MappingTemplate{DynamoDbGetItem(key, arg), DynamoDbDeleteItem(key, arg), DynamoDbQuery(key, arg)} {
			text := tmpl.RenderTemplate()
			expr := "$util.dynamodb.toDynamoDBJson($ctx.args." + arg + ")"
			if !strings.Contains(text, expr) {
				t.Fatalf("%s does not reference argument %s", text, arg)
			}
			var decoded map[string]any
			if err := json.Unmarshal([]byte(strings.ReplaceAll(text, expr, `{"S": "x"}`)), &decoded); err != nil {
				t.Fatalf("%s: %v", text, err)
			}
		}
	})
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.graphql")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))

	schema, err := SchemaFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSchema, schema.Definition())

	tmpl, err := MappingTemplateFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSchema, tmpl.RenderTemplate())

	code, err := CodeFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, testSchema, code.Source())

	_, err = SchemaFromFile(filepath.Join(dir, "missing.graphql"))
	assert.Error(t, err)
	_, err = MappingTemplateFromFile(filepath.Join(dir, "missing.vtl"))
	assert.Error(t, err)
	_, err = CodeFromFile(filepath.Join(dir, "missing.js"))
	assert.Error(t, err)
}
