package extract

import (
	"encoding/json"
	"fmt"
	"sort"
)

// FirstJSON returns the first balanced JSON value that opens with open
// ('{' or '['). Text before and after it, such as markdown fences or
// citation lists, is ignored.
func FirstJSON(text string, open byte) (string, error) {
	var closer byte
	switch open {
	case '{':
		closer = '}'
	case '[':
		closer = ']'
	default:
		return "", fmt.Errorf("unsupported opener %q", open)
	}

	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == open {
			start = i
			break
		}
	}
	if start < 0 {
		return "", ErrNoJSON
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closer:
			depth--
			if depth == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", ErrMalformedJSON
}

// numbers keeps the elements that are JSON numbers inside b.
func numbers(raw []json.RawMessage, b Bounds) []float64 {
	var out []float64
	for _, r := range raw {
		var v float64
		if err := json.Unmarshal(r, &v); err != nil {
			continue
		}
		if b.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// NumberArrayFilter reads a JSON array of numbers from a model response.
type NumberArrayFilter struct {
	Bounds Bounds
}

// Extract returns the in-bounds numbers. An empty array is valid and yields
// no observations without error.
func (f NumberArrayFilter) Extract(text string) ([]float64, error) {
	arr, err := FirstJSON(text, '[')
	if err != nil {
		return nil, err
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(arr), &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return numbers(raw, f.Bounds), nil
}

// KeyedArrays is a per-marketplace breakdown, keys sorted for stable output.
type KeyedArrays struct {
	Keys   []string
	Values map[string][]float64
}

// All flattens the breakdown in key order.
func (k KeyedArrays) All() []float64 {
	var out []float64
	for _, key := range k.Keys {
		out = append(out, k.Values[key]...)
	}
	return out
}

// Contributors lists keys with at least one observation.
func (k KeyedArrays) Contributors() []string {
	var out []string
	for _, key := range k.Keys {
		if len(k.Values[key]) > 0 {
			out = append(out, key)
		}
	}
	return out
}

// KeyedArrayFilter reads a JSON object whose values are number arrays.
type KeyedArrayFilter struct {
	Bounds Bounds
}

// ExtractKeyed parses the first object in text. Keys whose value is missing,
// null or not an array contribute nothing.
func (f KeyedArrayFilter) ExtractKeyed(text string) (KeyedArrays, error) {
	obj, err := FirstJSON(text, '{')
	if err != nil {
		return KeyedArrays{}, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return KeyedArrays{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	out := KeyedArrays{Values: make(map[string][]float64, len(raw))}
	for key, val := range raw {
		var arr []json.RawMessage
		if err := json.Unmarshal(val, &arr); err != nil {
			arr = nil
		}
		out.Keys = append(out.Keys, key)
		out.Values[key] = numbers(arr, f.Bounds)
	}
	sort.Strings(out.Keys)
	return out, nil
}

// Extract satisfies Filter by flattening the keyed breakdown.
func (f KeyedArrayFilter) Extract(text string) ([]float64, error) {
	k, err := f.ExtractKeyed(text)
	if err != nil {
		return nil, err
	}
	return k.All(), nil
}
