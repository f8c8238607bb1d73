package disqus

import (
	"fmt"

	"github.com/google/go-querystring/query"
)

// ParamsFromStruct builds Params from a struct with `url` tags, e.g.
//
//	type ListThreads struct {
//		Forum string `url:"forum"`
//		Limit int    `url:"limit,omitempty"`
//	}
//
// Params holds one value per key, so fields that encode to several values
// (slices without a comma or space option) are rejected.
func ParamsFromStruct(v any) (Params, error) {
	values, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode params: %w", err)
	}

	params := make(Params, len(values))
	for key, vals := range values {
		switch len(vals) {
		case 0:
		case 1:
			params[key] = vals[0]
		default:
			return nil, fmt.Errorf("param %q has %d values, only one is supported", key, len(vals))
		}
	}
	return params, nil
}
