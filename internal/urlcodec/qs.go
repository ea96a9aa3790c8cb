package urlcodec

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/roach88/sieve/internal/filtererr"
	"github.com/roach88/sieve/internal/jsonschema"
)

// maxArrayIndex bounds the indices decoded as list positions. Larger
// indices decode as object keys so a crafted query cannot allocate a huge
// sparse list.
const maxArrayIndex = 20

// stringifyQuery encodes a nested value with bracket keys:
//
//	[[{n: f, o: is, v: x}]] -> 0[0][n]=f&0[0][o]=is&0[0][v]=x
//
// A null value is written as a bare key. Empty lists and objects produce
// nothing. Object keys are written in the given order for triples and
// sorted otherwise.
func stringifyQuery(root []any) string {
	var pairs []string
	for i, v := range root {
		pairs = appendPairs(pairs, strconv.Itoa(i), v)
	}
	return strings.Join(pairs, "&")
}

func appendPairs(pairs []string, key string, v any) []string {
	switch val := v.(type) {
	case nil:
		return append(pairs, key)
	case []any:
		for i, el := range val {
			pairs = appendPairs(pairs, key+"["+strconv.Itoa(i)+"]", el)
		}
		return pairs
	case orderedObject:
		for _, e := range val {
			pairs = appendPairs(pairs, key+"["+url.QueryEscape(e.key)+"]", e.value)
		}
		return pairs
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			pairs = appendPairs(pairs, key+"["+url.QueryEscape(k)+"]", val[k])
		}
		return pairs
	default:
		return append(pairs, key+"="+url.QueryEscape(jsonschema.Stringify(val)))
	}
}

// orderedObject is an object whose members are written in slice order.
type orderedObject []member

type member struct {
	key   string
	value any
}

// parseQuery decodes a bracket-key query string into nested maps and lists.
// Values stay strings; a bare key decodes to nil. Maps whose keys are
// exactly 0..n-1 become lists.
func parseQuery(query string) (any, error) {
	query = strings.TrimPrefix(query, "?")
	root := map[string]any{}
	for _, pair := range strings.Split(query, "&") {
		if pair == "" {
			continue
		}
		rawKey, rawValue, hasValue := strings.Cut(pair, "=")
		path, err := splitKey(rawKey)
		if err != nil {
			return nil, err
		}
		var value any
		if hasValue {
			s, err := url.QueryUnescape(rawValue)
			if err != nil {
				return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "value of %q: %v", rawKey, err)
			}
			value = s
		}
		if err := assign(root, path, value); err != nil {
			return nil, err
		}
	}
	return compact(root), nil
}

// splitKey turns "0[1][v][tag_key]" into [0 1 v tag_key]. Keys with
// percent-encoded brackets are unescaped first.
func splitKey(raw string) ([]string, error) {
	if !strings.Contains(raw, "[") {
		unescaped, err := url.QueryUnescape(raw)
		if err != nil {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "key %q: %v", raw, err)
		}
		raw = unescaped
	}

	head, rest, _ := strings.Cut(raw, "[")
	segments := []string{head}
	if rest != "" {
		rest = "[" + rest
	}
	for rest != "" {
		if rest[0] != '[' {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "malformed key %q", raw)
		}
		end := strings.IndexByte(rest, ']')
		if end < 0 {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "unterminated bracket in key %q", raw)
		}
		seg, err := url.QueryUnescape(rest[1:end])
		if err != nil {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "key %q: %v", raw, err)
		}
		segments = append(segments, seg)
		rest = rest[end+1:]
	}
	for _, seg := range segments {
		if seg == "" {
			return nil, filtererr.New(filtererr.ErrCodeInvalidURLState, "empty segment in key %q", raw)
		}
	}
	return segments, nil
}

func assign(node map[string]any, path []string, value any) error {
	key := path[0]
	if len(path) == 1 {
		if _, exists := node[key]; exists {
			return filtererr.New(filtererr.ErrCodeInvalidURLState, "duplicate key %q", key)
		}
		node[key] = value
		return nil
	}

	child, exists := node[key]
	if !exists {
		child = map[string]any{}
		node[key] = child
	}
	m, ok := child.(map[string]any)
	if !ok {
		return filtererr.New(filtererr.ErrCodeInvalidURLState, "key %q holds both a value and members", key)
	}
	return assign(m, path[1:], value)
}

func compact(v any) any {
	m, ok := v.(map[string]any)
	if !ok {
		return v
	}
	for k, child := range m {
		m[k] = compact(child)
	}
	if len(m) == 0 || len(m) > maxArrayIndex+1 {
		return m
	}
	list := make([]any, len(m))
	for k, child := range m {
		i, err := strconv.Atoi(k)
		if err != nil || i < 0 || i >= len(m) || strconv.Itoa(i) != k {
			return m
		}
		list[i] = child
	}
	return list
}
