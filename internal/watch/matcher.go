package watch

import (
	"strings"

	"github.com/roach88/engram/internal/item"
)

// Matches reports whether a change satisfies the filter.
//
// The predicate is pure and fully determined by the change record's
// denormalized fields - it never consults the underlying item, so
// DELETE changes match correctly after the item is gone.
//
// Semantics:
//   - AND across dimensions: every present dimension must accept the
//     change.
//   - An absent dimension accepts everything (vacuously true).
//   - Categories and priorities are set membership, not equality.
//   - Key patterns are OR'd: the key must match at least one pattern.
//     `*` matches zero or more characters at any position; every other
//     character is literal.
func Matches(c item.Change, f Filter) bool {
	return categoryOK(c, f) && priorityOK(c, f) && keyOK(c, f)
}

func categoryOK(c item.Change, f Filter) bool {
	if len(f.Categories) == 0 {
		return true
	}
	for _, cat := range f.Categories {
		if c.Category == cat {
			return true
		}
	}
	return false
}

func priorityOK(c item.Change, f Filter) bool {
	if len(f.Priorities) == 0 {
		return true
	}
	for _, p := range f.Priorities {
		if string(c.Priority) == p {
			return true
		}
	}
	return false
}

func keyOK(c item.Change, f Filter) bool {
	if len(f.KeyPatterns) == 0 {
		return true
	}
	for _, pattern := range f.KeyPatterns {
		if matchKey(pattern, c.Key) {
			return true
		}
	}
	return false
}

// matchKey evaluates one key pattern. Only `*` is special: it matches
// zero or more characters, `/` included - keys are flat strings, not
// paths. Literal segments between stars must appear in order; the
// leftmost placement of each segment is always safe because it leaves
// the most room for the segments after it.
func matchKey(pattern, key string) bool {
	parts := strings.Split(pattern, "*")
	if len(parts) == 1 {
		return key == pattern
	}

	if !strings.HasPrefix(key, parts[0]) {
		return false
	}
	key = key[len(parts[0]):]

	for _, part := range parts[1 : len(parts)-1] {
		if part == "" {
			continue
		}
		idx := strings.Index(key, part)
		if idx < 0 {
			return false
		}
		key = key[idx+len(part):]
	}

	return strings.HasSuffix(key, parts[len(parts)-1])
}
