package watch

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/engram/internal/item"
)

// Filter is a watcher's filter specification. A nil/absent dimension
// places no constraint; an empty Filter matches every change.
//
// The JSON field names are the wire names of the watch API.
type Filter struct {
	Categories  []string `json:"categories,omitempty"`
	Priorities  []string `json:"priorities,omitempty"`
	KeyPatterns []string `json:"keys,omitempty"`
}

// IsEmpty reports whether the filter constrains nothing.
func (f Filter) IsEmpty() bool {
	return len(f.Categories) == 0 && len(f.Priorities) == 0 && len(f.KeyPatterns) == 0
}

// Validate checks the filter's shape: every present dimension must be a
// non-empty list of non-empty values, and priorities must come from the
// closed priority set. Key patterns have no invalid syntax beyond
// emptiness - only `*` is special, everything else is literal. An
// entirely absent filter is valid and matches everything.
//
// All violations are reported as ErrCodeInvalidFilter.
func (f Filter) Validate() error {
	if f.Categories != nil && len(f.Categories) == 0 {
		return NewInvalidFilterError("categories must not be an empty list")
	}
	for i, c := range f.Categories {
		if c == "" {
			return NewInvalidFilterError(fmt.Sprintf("categories[%d] must not be empty", i))
		}
	}
	if f.Priorities != nil && len(f.Priorities) == 0 {
		return NewInvalidFilterError("priorities must not be an empty list")
	}
	for i, p := range f.Priorities {
		if !item.Priority(p).Valid() {
			return NewInvalidFilterError(fmt.Sprintf(
				"priorities[%d] = %q: must be one of %v", i, p, item.ValidPriorities))
		}
	}
	if f.KeyPatterns != nil && len(f.KeyPatterns) == 0 {
		return NewInvalidFilterError("keys must not be an empty list")
	}
	for i, pattern := range f.KeyPatterns {
		if pattern == "" {
			return NewInvalidFilterError(fmt.Sprintf("keys[%d] must not be empty", i))
		}
	}
	return nil
}

// normalized returns a copy of the filter with key patterns in NFC
// normal form, matching how item keys are stored.
func (f Filter) normalized() Filter {
	if len(f.KeyPatterns) == 0 {
		return f
	}
	out := f
	out.KeyPatterns = make([]string, len(f.KeyPatterns))
	for i, p := range f.KeyPatterns {
		out.KeyPatterns[i] = item.NormalizeKey(p)
	}
	return out
}

// MarshalJSONString encodes the filter for storage. An empty filter
// encodes as "{}" so stored rows always hold valid JSON.
func (f Filter) MarshalJSONString() (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal filter: %w", err)
	}
	return string(data), nil
}

// ParseFilter decodes a stored filter JSON blob.
func ParseFilter(data string) (Filter, error) {
	var f Filter
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		return Filter{}, fmt.Errorf("parse filter: %w", err)
	}
	return f, nil
}
