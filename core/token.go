package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Tokens let deploy-time values (intrinsics, attribute references, values
// computed at synthesis) travel through code that only accepts strings,
// such as Kubernetes object fields or string concatenation. A token is
// encoded as a marker string and replaced when the value is resolved.

const (
	tokenBegin = "${Token[TOKEN."
	tokenEnd   = "]}"

	maxResolveDepth = 64
)

var tokenPattern = regexp.MustCompile(`\$\{Token\[TOKEN\.(\d+)\]\}`)

type tokenEntry struct {
	value any
	list  bool
}

var tokens = struct {
	mu      sync.Mutex
	entries []tokenEntry
}{}

func registerToken(v any, list bool) string {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	tokens.entries = append(tokens.entries, tokenEntry{value: v, list: list})
	return tokenBegin + strconv.Itoa(len(tokens.entries)-1) + tokenEnd
}

func lookupToken(id int) (tokenEntry, bool) {
	tokens.mu.Lock()
	defer tokens.mu.Unlock()
	if id < 0 || id >= len(tokens.entries) {
		return tokenEntry{}, false
	}
	return tokens.entries[id], true
}

// AsString encodes v as a string. Plain strings are returned unchanged;
// anything else (intrinsics, AttrRefs, lazy values) becomes a token marker.
func AsString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return registerToken(v, false)
}

// AsList encodes a list-valued v as a single-element list. When resolved
// the whole list is replaced by v.
func AsList(v any) []string {
	if l, ok := v.([]string); ok {
		return l
	}
	return []string{registerToken(v, true)}
}

// IsUnresolved reports whether v is or contains a token.
func IsUnresolved(v any) bool {
	switch val := v.(type) {
	case string:
		return tokenPattern.MatchString(val)
	case []string:
		for _, s := range val {
			if tokenPattern.MatchString(s) {
				return true
			}
		}
		return false
	case *LazyValue:
		return true
	case json.Marshaler:
		tree, err := toTree(val)
		if err != nil {
			return false
		}
		m, ok := tree.(map[string]any)
		return ok && isIntrinsicMap(m)
	}
	return false
}

// LazyValue is a value computed at synthesis time.
type LazyValue struct {
	produce func() any
}

// Lazy defers fn until the value is resolved. fn may return tokens.
func Lazy(fn func() any) *LazyValue {
	return &LazyValue{produce: fn}
}

// LazyString is AsString(Lazy(fn)).
func LazyString(fn func() any) string {
	return AsString(Lazy(fn))
}

// LazyList is AsList(Lazy(fn)).
func LazyList(fn func() any) []string {
	return AsList(Lazy(fn))
}

// MarshalJSON evaluates the producer.
func (l *LazyValue) MarshalJSON() ([]byte, error) {
	return marshalJSON(l.produce())
}

// Resolve converts v into its CloudFormation JSON form and replaces every
// token. A string that is exactly one marker becomes the token's value; a
// string mixing literals and markers becomes an Fn::Join.
func Resolve(v any) (any, error) {
	tree, err := toTree(v)
	if err != nil {
		return nil, err
	}
	return resolveTree(tree, 0)
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func toTree(v any) (any, error) {
	data, err := marshalJSON(v)
	if err != nil {
		return nil, err
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func resolveTree(v any, depth int) (any, error) {
	switch val := v.(type) {
	case string:
		return resolveString(val, depth)
	case []any:
		if len(val) == 1 {
			if s, ok := val[0].(string); ok {
				if id, ok := wholeMarker(s); ok {
					if entry, found := lookupToken(id); found && entry.list {
						return resolveToken(id, depth)
					}
				}
			}
		}
		out := make([]any, len(val))
		for i, elem := range val {
			r, err := resolveTree(elem, depth)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			if tokenPattern.MatchString(k) {
				return nil, fmt.Errorf("map key %q contains a token; wrap the value in a CfnJson", k)
			}
			r, err := resolveTree(elem, depth)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	}
	return v, nil
}

func resolveToken(id, depth int) (any, error) {
	if depth > maxResolveDepth {
		return nil, fmt.Errorf("token resolution exceeded depth %d: is a lazy value referring to itself?", maxResolveDepth)
	}
	entry, ok := lookupToken(id)
	if !ok {
		return nil, fmt.Errorf("unknown token %d", id)
	}
	tree, err := toTree(entry.value)
	if err != nil {
		return nil, fmt.Errorf("resolving token %d: %w", id, err)
	}
	return resolveTree(tree, depth+1)
}

func wholeMarker(s string) (int, bool) {
	m := tokenPattern.FindStringSubmatchIndex(s)
	if m == nil || m[0] != 0 || m[1] != len(s) {
		return 0, false
	}
	id, err := strconv.Atoi(s[m[2]:m[3]])
	if err != nil {
		return 0, false
	}
	return id, true
}

// fragment is a literal string or a deploy-time value.
type fragment struct {
	lit   string
	token any
	isLit bool
}

type fragments []fragment

func (f *fragments) addLiteral(s string) {
	if s == "" {
		return
	}
	if n := len(*f); n > 0 && (*f)[n-1].isLit {
		(*f)[n-1].lit += s
		return
	}
	*f = append(*f, fragment{lit: s, isLit: true})
}

func (f *fragments) addToken(v any) {
	*f = append(*f, fragment{token: v})
}

// join returns the CloudFormation value producing the concatenation.
func (f fragments) join() any {
	switch len(f) {
	case 0:
		return ""
	case 1:
		if f[0].isLit {
			return f[0].lit
		}
		return f[0].token
	}
	parts := make([]any, len(f))
	for i, frag := range f {
		if frag.isLit {
			parts[i] = frag.lit
		} else {
			parts[i] = frag.token
		}
	}
	return map[string]any{"Fn::Join": []any{"", parts}}
}

func resolveString(s string, depth int) (any, error) {
	if id, ok := wholeMarker(s); ok {
		return resolveToken(id, depth)
	}
	matches := tokenPattern.FindAllStringSubmatchIndex(s, -1)
	if matches == nil {
		return s, nil
	}

	var frags fragments
	last := 0
	for _, m := range matches {
		frags.addLiteral(s[last:m[0]])
		id, _ := strconv.Atoi(s[m[2]:m[3]])
		resolved, err := resolveToken(id, depth)
		if err != nil {
			return nil, err
		}
		if err := embed(&frags, resolved, 0); err != nil {
			return nil, err
		}
		last = m[1]
	}
	frags.addLiteral(s[last:])
	return frags.join(), nil
}

// embed appends a resolved value that yields a string at deploy time.
// Literal parts are JSON-escaped escapes times, so a value can be placed
// inside one or more levels of JSON string literals.
func embed(frags *fragments, v any, escapes int) error {
	switch val := v.(type) {
	case string:
		frags.addLiteral(escapeN(val, escapes))
		return nil
	case map[string]any:
		if join, ok := val["Fn::Join"].([]any); ok && len(val) == 1 && len(join) == 2 {
			delim, okDelim := join[0].(string)
			parts, okParts := join[1].([]any)
			if okDelim && okParts {
				for i, p := range parts {
					if i > 0 {
						frags.addLiteral(escapeN(delim, escapes))
					}
					if err := embed(frags, p, escapes); err != nil {
						return err
					}
				}
				return nil
			}
		}
		if isIntrinsicMap(val) {
			frags.addToken(val)
			return nil
		}
	case nil:
		return fmt.Errorf("token resolved to null inside a string")
	}
	text, err := marshalJSON(v)
	if err != nil {
		return err
	}
	frags.addLiteral(escapeN(string(text), escapes))
	return nil
}

func isIntrinsicMap(m map[string]any) bool {
	if len(m) != 1 {
		return false
	}
	for k := range m {
		return k == "Ref" || strings.HasPrefix(k, "Fn::")
	}
	return false
}

func escapeN(s string, n int) string {
	for i := 0; i < n; i++ {
		data, _ := marshalJSON(s)
		s = string(data[1 : len(data)-1])
	}
	return s
}

// ToJSONString returns a string token that resolves to the JSON encoding
// of v. Tokens inside v are spliced into the JSON text so the document is
// assembled at deploy time; JSON strings nested in JSON strings stay valid.
func ToJSONString(v any) string {
	return AsString(&jsonStringValue{value: v})
}

type jsonStringValue struct {
	value any
}

func (j *jsonStringValue) MarshalJSON() ([]byte, error) {
	tree, err := toTree(j.value)
	if err != nil {
		return nil, err
	}
	var frags fragments
	if err := emitJSON(&frags, tree, 0); err != nil {
		return nil, err
	}
	return marshalJSON(frags.join())
}

func emitJSON(frags *fragments, v any, depth int) error {
	switch val := v.(type) {
	case string:
		return emitJSONString(frags, val, depth)
	case []any:
		if len(val) == 1 {
			if s, ok := val[0].(string); ok {
				if id, ok := wholeMarker(s); ok {
					if entry, found := lookupToken(id); found && entry.list {
						resolved, err := resolveToken(id, depth)
						if err != nil {
							return err
						}
						return emitResolved(frags, resolved, depth)
					}
				}
			}
		}
		frags.addLiteral("[")
		for i, elem := range val {
			if i > 0 {
				frags.addLiteral(",")
			}
			if err := emitJSON(frags, elem, depth); err != nil {
				return err
			}
		}
		frags.addLiteral("]")
		return nil
	case map[string]any:
		if isIntrinsicMap(val) {
			resolved, err := resolveTree(val, depth)
			if err != nil {
				return err
			}
			return emitResolved(frags, resolved, depth)
		}
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		frags.addLiteral("{")
		for i, k := range keys {
			if i > 0 {
				frags.addLiteral(",")
			}
			if err := emitJSONString(frags, k, depth); err != nil {
				return err
			}
			frags.addLiteral(":")
			if err := emitJSON(frags, val[k], depth); err != nil {
				return err
			}
		}
		frags.addLiteral("}")
		return nil
	}
	text, err := marshalJSON(v)
	if err != nil {
		return err
	}
	frags.addLiteral(string(text))
	return nil
}

// emitJSONString writes a JSON string literal whose content may hold tokens.
func emitJSONString(frags *fragments, s string, depth int) error {
	if id, ok := wholeMarker(s); ok {
		resolved, err := resolveToken(id, depth)
		if err != nil {
			return err
		}
		return emitResolved(frags, resolved, depth)
	}
	resolved, err := resolveString(s, depth)
	if err != nil {
		return err
	}
	frags.addLiteral(`"`)
	if err := embed(frags, resolved, 1); err != nil {
		return err
	}
	frags.addLiteral(`"`)
	return nil
}

// emitResolved writes an already resolved value. Intrinsics are quoted
// because they produce strings at deploy time.
func emitResolved(frags *fragments, v any, depth int) error {
	switch val := v.(type) {
	case string:
		frags.addLiteral(`"` + escapeN(val, 1) + `"`)
		return nil
	case map[string]any:
		if isIntrinsicMap(val) {
			frags.addLiteral(`"`)
			if err := embed(frags, val, 1); err != nil {
				return err
			}
			frags.addLiteral(`"`)
			return nil
		}
	}
	return emitJSON(frags, v, depth+1)
}
