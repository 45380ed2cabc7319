package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/lex00/wetwire-cdk-go/intrinsics"
)

func clusterRef() map[string]any {
	return map[string]any{"Ref": "Cluster"}
}

func TestAsString_Plain(t *testing.T) {
	assert.Equal(t, "plain", AsString("plain"))
	assert.False(t, IsUnresolved("plain"))
}

func TestResolve(t *testing.T) {
	tok := AsString(intrinsics.Ref{LogicalName: "Cluster"})
	require.True(t, IsUnresolved(tok))

	tests := []struct {
		name  string
		input any
		want  any
	}{
		{
			name:  "whole token",
			input: tok,
			want:  clusterRef(),
		},
		{
			name:  "mixed string",
			input: "arn:" + tok + ":x",
			want:  map[string]any{"Fn::Join": []any{"", []any{"arn:", clusterRef(), ":x"}}},
		},
		{
			name:  "nested in map",
			input: map[string]any{"Name": tok, "Size": 3},
			want:  map[string]any{"Name": clusterRef(), "Size": float64(3)},
		},
		{
			name:  "lazy literal merges with neighbours",
			input: "a" + LazyString(func() any { return "b" }) + "c",
			want:  "abc",
		},
		{
			name:  "list token",
			input: map[string]any{"SubnetIds": AsList(intrinsics.Ref{LogicalName: "Subnets"})},
			want:  map[string]any{"SubnetIds": map[string]any{"Ref": "Subnets"}},
		},
		{
			name:  "lazy producing tokens",
			input: Lazy(func() any { return []any{tok, "x"} }),
			want:  []any{clusterRef(), "x"},
		},
		{
			name:  "join inside string is flattened",
			input: "prefix-" + AsString(intrinsics.Join{Delimiter: ".", Values: []any{"a", intrinsics.Ref{LogicalName: "B"}}}),
			want:  map[string]any{"Fn::Join": []any{"", []any{"prefix-a.", map[string]any{"Ref": "B"}}}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Resolve(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_TokenInMapKey(t *testing.T) {
	tok := AsString(intrinsics.Ref{LogicalName: "Issuer"})
	_, err := Resolve(map[string]any{tok + ":aud": "sts.amazonaws.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CfnJson")
}

func TestResolve_SelfReferencingLazy(t *testing.T) {
	var self string
	self = LazyString(func() any { return self })

	_, err := Resolve(self)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeded depth")
}

func TestToJSONString(t *testing.T) {
	tok := AsString(intrinsics.Ref{LogicalName: "Cluster"})

	t.Run("literal", func(t *testing.T) {
		got, err := Resolve(ToJSONString(map[string]any{"name": "x<y", "n": 1}))
		require.NoError(t, err)
		assert.Equal(t, `{"n":1,"name":"x<y"}`, got)
	})

	t.Run("token", func(t *testing.T) {
		got, err := Resolve(ToJSONString(map[string]any{"arn": tok}))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{
			`{"arn":"`, clusterRef(), `"}`,
		}}}, got)
	})

	t.Run("token in key", func(t *testing.T) {
		got, err := Resolve(ToJSONString(map[string]any{tok + ":sub": "system:serviceaccount:default:app"}))
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{
			`{"`, clusterRef(), `:sub":"system:serviceaccount:default:app"}`,
		}}}, got)
	})

	t.Run("json string inside json", func(t *testing.T) {
		inner := ToJSONString([]any{map[string]any{"rolearn": tok}})
		outer := ToJSONString(map[string]any{"data": map[string]any{"mapRoles": inner}})

		got, err := Resolve(outer)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"Fn::Join": []any{"", []any{
			`{"data":{"mapRoles":"[{\"rolearn\":\"`, clusterRef(), `\"}]"}}`,
		}}}, got)
	})

	t.Run("lazy list", func(t *testing.T) {
		lazy := LazyList(func() any { return []any{"a", "b"} })
		got, err := Resolve(ToJSONString(map[string]any{"items": lazy}))
		require.NoError(t, err)
		assert.Equal(t, `{"items":["a","b"]}`, got)
	})
}

func TestIsUnresolved(t *testing.T) {
	assert.True(t, IsUnresolved(intrinsics.Ref{LogicalName: "X"}))
	assert.True(t, IsUnresolved(Lazy(func() any { return 1 })))
	assert.True(t, IsUnresolved(AsList(intrinsics.Ref{LogicalName: "X"})))
	assert.False(t, IsUnresolved([]string{"a", "b"}))
	assert.False(t, IsUnresolved(42))
}

func TestResolve_LiteralStrings_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.String().Draw(t, "s")
		if strings.Contains(s, "${Token[") {
			return
		}
		got, err := Resolve(s)
		if err != nil {
			t.Fatal(err)
		}
		if got != s {
			t.Fatalf("Resolve(%q) = %v", s, got)
		}
	})
}

func TestResolve_MixedStrings_Property(t *testing.T) {
	tok := AsString(intrinsics.Ref{LogicalName: "Value"})
	literal := rapid.StringMatching(`[a-z:/.-]{1,12}`)

	rapid.Check(t, func(t *rapid.T) {
		prefix := literal.Draw(t, "prefix")
		suffix := literal.Draw(t, "suffix")

		got, err := Resolve(prefix + tok + suffix)
		if err != nil {
			t.Fatal(err)
		}
		want := map[string]any{"Fn::Join": []any{"", []any{prefix, map[string]any{"Ref": "Value"}, suffix}}}
		if !assert.ObjectsAreEqual(want, got) {
			t.Fatalf("got %v, want %v", got, want)
		}
	})
}
