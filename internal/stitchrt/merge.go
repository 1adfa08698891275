package stitchrt

import "fmt"

// mergeValues deep-merges the partial results several services returned for
// the same field. Objects are unioned key by key, lists element by element.
// A null from any service makes the merged value null, and for leaves the
// first service wins.
func mergeValues(values []any) (any, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := values[0]
	for _, v := range values[1:] {
		var err error
		if out, err = deepMerge(out, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func deepMerge(a, b any) (any, error) {
	if a == nil || b == nil {
		return nil, nil
	}
	switch av := a.(type) {
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot merge object with %T", b)
		}
		out := make(map[string]any, len(av)+len(bv))
		for k, v := range av {
			out[k] = v
		}
		for k, v := range bv {
			existing, ok := out[k]
			if !ok {
				out[k] = v
				continue
			}
			merged, err := deepMerge(existing, v)
			if err != nil {
				return nil, err
			}
			out[k] = merged
		}
		return out, nil
	case []any:
		bv, ok := b.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot merge list with %T", b)
		}
		if len(av) != len(bv) {
			return nil, fmt.Errorf("cannot merge lists of length %d and %d", len(av), len(bv))
		}
		out := make([]any, len(av))
		for i := range av {
			merged, err := deepMerge(av[i], bv[i])
			if err != nil {
				return nil, err
			}
			out[i] = merged
		}
		return out, nil
	default:
		return a, nil
	}
}
