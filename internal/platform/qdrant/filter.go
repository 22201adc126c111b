package qdrant

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Pinecone-style metadata filter operators understood by the translator.
const (
	filterOpAnd = "$and"
	filterOpOr  = "$or"
	filterOpNot = "$not"
	filterOpIn  = "$in"
	filterOpEq  = "$eq"
	filterOpNe  = "$ne"
)

const filterTranslateOp = "filter_translate"

type translatedFilter struct {
	Must    []any
	Should  []any
	MustNot []any
}

func (f translatedFilter) asMap() map[string]any {
	out := map[string]any{}
	if len(f.Must) > 0 {
		out["must"] = f.Must
	}
	if len(f.Should) > 0 {
		out["should"] = f.Should
	}
	if len(f.MustNot) > 0 {
		out["must_not"] = f.MustNot
	}
	return out
}

func (f *translatedFilter) merge(src translatedFilter) {
	f.Must = append(f.Must, src.Must...)
	f.Should = append(f.Should, src.Should...)
	f.MustNot = append(f.MustNot, src.MustNot...)
}

func invalidFilter(format string, args ...any) error {
	return opErr(filterTranslateOp, OperationErrorValidation, fmt.Sprintf(format, args...), nil)
}

func unsupportedFilter(format string, args ...any) error {
	return opErr(filterTranslateOp, OperationErrorUnsupportedFilter, fmt.Sprintf(format, args...), nil)
}

// namespacedFilter scopes filter to a single qualified namespace.
func namespacedFilter(qualifiedNS string, filter map[string]any) (map[string]any, error) {
	base := translatedFilter{Must: []any{matchValue(payloadNamespaceKey, qualifiedNS)}}
	if len(filter) == 0 {
		return base.asMap(), nil
	}
	translated, err := translateFilterMap(filter)
	if err != nil {
		return nil, err
	}
	base.merge(translated)
	return base.asMap(), nil
}

func translateFilterMap(filter map[string]any) (translatedFilter, error) {
	out := translatedFilter{}
	for _, key := range sortedKeys(filter) {
		value := filter[key]
		k := strings.TrimSpace(key)
		if k == "" {
			continue
		}
		if !strings.HasPrefix(k, "$") {
			part, err := translateFieldFilter(k, value)
			if err != nil {
				return translatedFilter{}, err
			}
			out.merge(part)
			continue
		}

		switch strings.ToLower(k) {
		case filterOpAnd, filterOpOr:
			items, ok := toObjectSlice(value)
			if !ok {
				return translatedFilter{}, invalidFilter("operator %s expects array of objects", k)
			}
			for _, item := range items {
				sub, err := translateFilterMap(item)
				if err != nil {
					return translatedFilter{}, err
				}
				if strings.ToLower(k) == filterOpAnd {
					out.Must = append(out.Must, sub.asMap())
				} else {
					out.Should = append(out.Should, sub.asMap())
				}
			}
		case filterOpNot:
			item, ok := value.(map[string]any)
			if !ok {
				return translatedFilter{}, invalidFilter("operator %s expects an object", filterOpNot)
			}
			sub, err := translateFilterMap(item)
			if err != nil {
				return translatedFilter{}, err
			}
			out.MustNot = append(out.MustNot, sub.asMap())
		default:
			return translatedFilter{}, unsupportedFilter("unsupported top-level filter operator %q", k)
		}
	}
	return out, nil
}

func translateFieldFilter(field string, value any) (translatedFilter, error) {
	out := translatedFilter{}
	ops, isOpMap := value.(map[string]any)
	if !isOpMap {
		scalar, ok := toScalarValue(value)
		if !ok {
			return out, invalidFilter("field %q expects scalar value or operator object", field)
		}
		out.Must = append(out.Must, matchValue(field, scalar))
		return out, nil
	}
	if len(ops) == 0 {
		return out, invalidFilter("field %q has empty operator map", field)
	}

	for _, op := range sortedKeys(ops) {
		opVal := ops[op]
		switch strings.ToLower(strings.TrimSpace(op)) {
		case filterOpEq, filterOpNe:
			scalar, ok := toScalarValue(opVal)
			if !ok {
				return translatedFilter{}, invalidFilter("operator %s for field %q expects scalar value", op, field)
			}
			if strings.ToLower(op) == filterOpEq {
				out.Must = append(out.Must, matchValue(field, scalar))
			} else {
				out.MustNot = append(out.MustNot, matchValue(field, scalar))
			}
		case filterOpIn:
			values, ok := toScalarSlice(opVal)
			if !ok {
				return translatedFilter{}, invalidFilter("operator %s for field %q expects scalar array", filterOpIn, field)
			}
			if len(values) == 0 {
				return translatedFilter{}, invalidFilter("operator %s for field %q cannot be empty", filterOpIn, field)
			}
			out.Must = append(out.Must, map[string]any{
				"key":   field,
				"match": map[string]any{"any": values},
			})
		default:
			return translatedFilter{}, unsupportedFilter("unsupported filter operator %q for field %q", op, field)
		}
	}
	return out, nil
}

func matchValue(key string, value any) map[string]any {
	return map[string]any{
		"key":   key,
		"match": map[string]any{"value": value},
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func toObjectSlice(value any) ([]map[string]any, bool) {
	switch typed := value.(type) {
	case []map[string]any:
		return typed, true
	case []any:
		out := make([]map[string]any, 0, len(typed))
		for _, item := range typed {
			obj, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}
			out = append(out, obj)
		}
		return out, true
	default:
		return nil, false
	}
}

func anySlice[T any](in []T) []any {
	out := make([]any, 0, len(in))
	for _, v := range in {
		out = append(out, v)
	}
	return out
}

func toScalarSlice(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		out := make([]any, 0, len(typed))
		for _, v := range typed {
			scalar, ok := toScalarValue(v)
			if !ok {
				return nil, false
			}
			out = append(out, scalar)
		}
		return out, true
	case []string:
		return anySlice(typed), true
	case []int:
		return anySlice(typed), true
	case []int64:
		return anySlice(typed), true
	case []float64:
		return anySlice(typed), true
	case []bool:
		return anySlice(typed), true
	default:
		return nil, false
	}
}

func toScalarValue(value any) (any, bool) {
	switch typed := value.(type) {
	case string, bool, int, int64, uint, uint64, float64:
		return typed, true
	case int8:
		return int(typed), true
	case int16:
		return int(typed), true
	case int32:
		return int(typed), true
	case uint8:
		return uint(typed), true
	case uint16:
		return uint(typed), true
	case uint32:
		return uint(typed), true
	case float32:
		return float64(typed), true
	case json.Number:
		if i, err := typed.Int64(); err == nil {
			return i, true
		}
		if f, err := typed.Float64(); err == nil {
			return f, true
		}
		return nil, false
	default:
		return nil, false
	}
}
