package store

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/Laisky/errors/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// matches evaluates the filter subset the services use against doc:
// field equality (with array membership), $eq, $in, $regex/$options and $or.
func matches(doc bson.M, filter bson.M) (bool, error) {
	for key, cond := range filter {
		if key == "$or" {
			clauses, err := toFilters(cond)
			if err != nil {
				return false, err
			}
			ok, err := matchesAny(doc, clauses)
			if err != nil || !ok {
				return false, err
			}
			continue
		}
		if strings.HasPrefix(key, "$") {
			return false, errors.Errorf("unsupported operator %s", key)
		}

		val, present := doc[key]
		ok, err := matchField(val, present, cond)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchesAny(doc bson.M, clauses []bson.M) (bool, error) {
	for _, clause := range clauses {
		ok, err := matches(doc, clause)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func matchField(val any, present bool, cond any) (bool, error) {
	ops, ok := cond.(bson.M)
	if !ok || !isOperatorDoc(ops) {
		return equalsAny(val, present, cond), nil
	}

	for op, arg := range ops {
		switch op {
		case "$eq":
			if !equalsAny(val, present, arg) {
				return false, nil
			}
		case "$in":
			candidates, err := toSlice(arg)
			if err != nil {
				return false, err
			}
			found := false
			for _, candidate := range candidates {
				if equalsAny(val, present, candidate) {
					found = true
					break
				}
			}
			if !found {
				return false, nil
			}
		case "$regex":
			options, _ := ops["$options"].(string)
			re, err := compileRegex(arg, options)
			if err != nil {
				return false, err
			}
			if !regexAny(re, val) {
				return false, nil
			}
		case "$options":
		default:
			return false, errors.Errorf("unsupported operator %s", op)
		}
	}
	return true, nil
}

func isOperatorDoc(m bson.M) bool {
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return false
		}
	}
	return len(m) > 0
}

// equalsAny matches val against want; an array value matches when any of
// its elements does. A nil want matches a missing or null field.
func equalsAny(val any, present bool, want any) bool {
	if want == nil {
		return !present || val == nil
	}
	if arr, ok := val.(primitive.A); ok {
		for _, elem := range arr {
			if equal(elem, want) {
				return true
			}
		}
	}
	return equal(val, want)
}

func equal(a, b any) bool {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			return x == y
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func compileRegex(arg any, options string) (*regexp.Regexp, error) {
	var pattern string
	switch p := arg.(type) {
	case string:
		pattern = p
	case primitive.Regex:
		pattern = p.Pattern
		options += p.Options
	default:
		return nil, errors.Errorf("unsupported $regex value %T", arg)
	}
	if strings.Contains(options, "i") {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "compile regex %q", pattern)
	}
	return re, nil
}

func regexAny(re *regexp.Regexp, val any) bool {
	switch v := val.(type) {
	case string:
		return re.MatchString(v)
	case primitive.A:
		for _, elem := range v {
			if s, ok := elem.(string); ok && re.MatchString(s) {
				return true
			}
		}
	}
	return false
}

// toSlice flattens any slice value ($in arguments come as []string,
// []primitive.ObjectID, bson.A, ...). Arrays are rejected on purpose:
// primitive.ObjectID is itself a [12]byte.
func toSlice(v any) ([]any, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, errors.Errorf("$in needs a slice, got %T", v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

func toFilters(v any) ([]bson.M, error) {
	items, err := toSlice(v)
	if err != nil {
		return nil, errors.Wrap(err, "$or")
	}
	filters := make([]bson.M, 0, len(items))
	for _, item := range items {
		f, ok := item.(bson.M)
		if !ok {
			return nil, errors.Errorf("$or clause must be bson.M, got %T", item)
		}
		filters = append(filters, f)
	}
	return filters, nil
}
